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

var _ repository.CommentRepository = (*CommentStore)(nil)

type CommentStore struct {
	conn *sql.DB
}

func (s *CommentStore) Create(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = time.Now().UTC()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO comments (id, subject_id, subject_label, body, author_name, parent_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.SubjectID, comment.SubjectLabel,
		comment.Body, comment.AuthorName, comment.ParentID, comment.CreatedAt,
	)
	if err != nil {
		if isConstraintErr(err) {
			// Parent row vanished between the service's check and our insert.
			return apperror.NotFound("comment", derefOr(comment.ParentID, ""))
		}
		return fmt.Errorf("sqlite: inserting comment on subject %d: %w", comment.SubjectID, err)
	}
	return nil
}

func (s *CommentStore) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment
	var parentID sql.NullString

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, subject_id, subject_label, body, author_name, parent_id, created_at
		 FROM comments WHERE id = ?`, id,
	).Scan(&c.ID, &c.SubjectID, &c.SubjectLabel, &c.Body, &c.AuthorName, &parentID, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}

	if parentID.Valid {
		c.ParentID = &parentID.String
	}
	return &c, nil
}

// ListBySubject returns the flat rows for one subject in creation order.
// The xid tiebreak keeps the order stable when two comments share a
// timestamp, since xids are themselves time-ordered.
func (s *CommentStore) ListBySubject(ctx context.Context, subjectID int64) ([]*model.Comment, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, subject_id, subject_label, body, author_name, parent_id, created_at
		 FROM comments WHERE subject_id = ? ORDER BY created_at ASC, id ASC`, subjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for subject %d: %w", subjectID, err)
	}
	defer rows.Close()

	var comments []*model.Comment
	for rows.Next() {
		var c model.Comment
		var parentID sql.NullString
		if err := rows.Scan(&c.ID, &c.SubjectID, &c.SubjectLabel, &c.Body,
			&c.AuthorName, &parentID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		if parentID.Valid {
			c.ParentID = &parentID.String
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comment rows: %w", err)
	}

	return comments, nil
}

// Delete removes a comment. The ON DELETE CASCADE on parent_id takes the
// whole reply subtree with it, and the comment_votes cascade clears the
// ledger rows of every deleted comment.
func (s *CommentStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking comment delete: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("comment", id)
	}
	return nil
}

func derefOr(s *string, fallback string) string {
	if s != nil {
		return *s
	}
	return fallback
}
