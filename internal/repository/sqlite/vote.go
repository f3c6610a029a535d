package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/wikireview/wikireview/internal/apperror"
	"github.com/wikireview/wikireview/internal/model"
	"github.com/wikireview/wikireview/internal/repository"
)

var _ repository.VoteRepository = (*VoteStore)(nil)

type VoteStore struct {
	conn *sql.DB
}

func (s *VoteStore) Get(ctx context.Context, commentID, voter string) (*model.Vote, error) {
	var v model.Vote
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, comment_id, voter, value, created_at
		 FROM comment_votes WHERE comment_id = ? AND voter = ?`,
		commentID, voter,
	).Scan(&v.ID, &v.CommentID, &v.Voter, &v.Value, &v.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("vote", commentID)
		}
		return nil, fmt.Errorf("sqlite: getting vote on comment %s: %w", commentID, err)
	}
	return &v, nil
}

// Insert adds a vote row. Two concurrent first votes from the same voter
// both observe "no prior vote"; the UNIQUE(comment_id, voter) constraint
// rejects the second insert, reported here as ErrConflict so the service
// can re-read and take the toggle path instead.
func (s *VoteStore) Insert(ctx context.Context, vote *model.Vote) error {
	vote.ID = xid.New().String()
	vote.CreatedAt = time.Now().UTC()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO comment_votes (id, comment_id, voter, value, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		vote.ID, vote.CommentID, vote.Voter, vote.Value, vote.CreatedAt,
	)
	if err != nil {
		if isConstraintErr(err) {
			return apperror.Conflict("vote", "comment_id, voter")
		}
		return fmt.Errorf("sqlite: inserting vote on comment %s: %w", vote.CommentID, err)
	}
	return nil
}

func (s *VoteStore) UpdateValue(ctx context.Context, id string, value int) error {
	_, err := s.conn.ExecContext(ctx,
		`UPDATE comment_votes SET value = ? WHERE id = ?`, value, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating vote %s: %w", id, err)
	}
	return nil
}

func (s *VoteStore) Delete(ctx context.Context, id string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM comment_votes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting vote %s: %w", id, err)
	}
	return nil
}

// TallyForComment derives the aggregates by counting ledger rows. The
// counts are never cached, so they agree with the ledger at read time by
// construction.
func (s *VoteStore) TallyForComment(ctx context.Context, commentID, voter string) (*model.VoteResult, error) {
	var result model.VoteResult
	var voterValue sql.NullInt64

	err := s.conn.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN value = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN value = -1 THEN 1 ELSE 0 END), 0),
			MAX(CASE WHEN voter = ? THEN value END)
		 FROM comment_votes WHERE comment_id = ?`,
		voter, commentID,
	).Scan(&result.Upvotes, &result.Downvotes, &voterValue)
	if err != nil {
		return nil, fmt.Errorf("sqlite: tallying votes for comment %s: %w", commentID, err)
	}

	if voterValue.Valid {
		v := int(voterValue.Int64)
		result.VoterValue = &v
	}
	return &result, nil
}

// TallyForSubject aggregates every voted-on comment of a subject in one
// query, keyed by comment ID. Comments without votes are simply absent.
func (s *VoteStore) TallyForSubject(ctx context.Context, subjectID int64, voter string) (map[string]model.VoteResult, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT v.comment_id,
			SUM(CASE WHEN v.value = 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN v.value = -1 THEN 1 ELSE 0 END),
			MAX(CASE WHEN v.voter = ? THEN v.value END)
		 FROM comment_votes v
		 JOIN comments c ON c.id = v.comment_id
		 WHERE c.subject_id = ?
		 GROUP BY v.comment_id`,
		voter, subjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: tallying votes for subject %d: %w", subjectID, err)
	}
	defer rows.Close()

	tallies := make(map[string]model.VoteResult)
	for rows.Next() {
		var commentID string
		var result model.VoteResult
		var voterValue sql.NullInt64
		if err := rows.Scan(&commentID, &result.Upvotes, &result.Downvotes, &voterValue); err != nil {
			return nil, fmt.Errorf("sqlite: scanning vote tally row: %w", err)
		}
		if voterValue.Valid {
			v := int(voterValue.Int64)
			result.VoterValue = &v
		}
		tallies[commentID] = result
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating vote tally rows: %w", err)
	}

	return tallies, nil
}
