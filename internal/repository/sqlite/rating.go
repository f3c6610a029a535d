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

var _ repository.RatingRepository = (*RatingStore)(nil)

type RatingStore struct {
	conn *sql.DB
}

func (s *RatingStore) Get(ctx context.Context, subjectID int64, voter string) (*model.Rating, error) {
	var r model.Rating
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, subject_id, subject_label, voter, value, created_at, updated_at
		 FROM ratings WHERE subject_id = ? AND voter = ?`,
		subjectID, voter,
	).Scan(&r.ID, &r.SubjectID, &r.SubjectLabel, &r.Voter, &r.Value, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("rating", fmt.Sprintf("subject %d", subjectID))
		}
		return nil, fmt.Errorf("sqlite: getting rating for subject %d: %w", subjectID, err)
	}
	return &r, nil
}

// Insert adds a rating row; a concurrent insert for the same (subject,
// voter) pair loses to UNIQUE(subject_id, voter) and comes back as
// ErrConflict for the service to convert into the update path.
func (s *RatingStore) Insert(ctx context.Context, rating *model.Rating) error {
	now := time.Now().UTC()
	rating.ID = xid.New().String()
	rating.CreatedAt = now
	rating.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO ratings (id, subject_id, subject_label, voter, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rating.ID, rating.SubjectID, rating.SubjectLabel,
		rating.Voter, rating.Value, rating.CreatedAt, rating.UpdatedAt,
	)
	if err != nil {
		if isConstraintErr(err) {
			return apperror.Conflict("rating", "subject_id, voter")
		}
		return fmt.Errorf("sqlite: inserting rating for subject %d: %w", rating.SubjectID, err)
	}
	return nil
}

// UpdateValue overwrites the value in place; resubmission never appends.
func (s *RatingStore) UpdateValue(ctx context.Context, id string, value int) error {
	_, err := s.conn.ExecContext(ctx,
		`UPDATE ratings SET value = ?, updated_at = ? WHERE id = ?`,
		value, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating rating %s: %w", id, err)
	}
	return nil
}

// Aggregate returns the sum and count of current values for the subject and
// the voter's own value. The average itself is computed (and rounded) by
// the rating service.
func (s *RatingStore) Aggregate(ctx context.Context, subjectID int64, voter string) (int, int, *int, error) {
	var sum, count int
	var userValue sql.NullInt64

	err := s.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(value), 0), COUNT(*), MAX(CASE WHEN voter = ? THEN value END)
		 FROM ratings WHERE subject_id = ?`,
		voter, subjectID,
	).Scan(&sum, &count, &userValue)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("sqlite: aggregating ratings for subject %d: %w", subjectID, err)
	}

	var user *int
	if userValue.Valid {
		v := int(userValue.Int64)
		user = &v
	}
	return sum, count, user, nil
}
