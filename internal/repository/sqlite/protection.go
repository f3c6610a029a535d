package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wikireview/wikireview/internal/apperror"
	"github.com/wikireview/wikireview/internal/model"
	"github.com/wikireview/wikireview/internal/repository"
)

var _ repository.ProtectionRepository = (*ProtectionStore)(nil)

type ProtectionStore struct {
	conn *sql.DB
}

func (s *ProtectionStore) Get(ctx context.Context, subjectID int64) (*model.PageProtection, error) {
	var p model.PageProtection
	err := s.conn.QueryRowContext(ctx,
		`SELECT subject_id, creator_user_id, creator_name, protected, created_at, updated_at
		 FROM page_protections WHERE subject_id = ?`, subjectID,
	).Scan(&p.SubjectID, &p.CreatorUserID, &p.CreatorName, &p.Protected, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("page protection", fmt.Sprint(subjectID))
		}
		return nil, fmt.Errorf("sqlite: getting protection for subject %d: %w", subjectID, err)
	}
	return &p, nil
}

// Create claims a page for its first protector. The primary key on
// subject_id decides concurrent claims; the loser gets ErrConflict and the
// service re-reads the winner's row.
func (s *ProtectionStore) Create(ctx context.Context, p *model.PageProtection) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO page_protections (subject_id, creator_user_id, creator_name, protected, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.SubjectID, p.CreatorUserID, p.CreatorName, p.Protected, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isConstraintErr(err) {
			return apperror.Conflict("page protection", "subject_id")
		}
		return fmt.Errorf("sqlite: claiming protection for subject %d: %w", p.SubjectID, err)
	}
	return nil
}

func (s *ProtectionStore) SetProtected(ctx context.Context, subjectID int64, protected bool) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE page_protections SET protected = ?, updated_at = ? WHERE subject_id = ?`,
		protected, time.Now().UTC(), subjectID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating protection for subject %d: %w", subjectID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking protection update: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("page protection", fmt.Sprint(subjectID))
	}
	return nil
}
