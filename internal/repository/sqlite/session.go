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

var _ repository.SessionRepository = (*SessionStore)(nil)

type SessionStore struct {
	conn *sql.DB
}

func (s *SessionStore) Create(ctx context.Context, session *model.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		session.Token, session.UserID, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting session for user %s: %w", session.UserID, err)
	}
	return nil
}

// Get returns the session row whether or not it has expired; the auth
// service owns the expiry check so it happens in exactly one place.
func (s *SessionStore) Get(ctx context.Context, token string) (*model.Session, error) {
	var sess model.Session
	err := s.conn.QueryRowContext(ctx,
		`SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = ?`,
		token,
	).Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("session", "token")
		}
		return nil, fmt.Errorf("sqlite: getting session: %w", err)
	}
	return &sess, nil
}

// Delete is idempotent: deleting an unknown token succeeds quietly.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}

// PurgeExpired removes every session whose expiry is at or before now and
// reports how many rows went. Invoked explicitly, never from a background
// goroutine.
func (s *SessionStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting purged sessions: %w", err)
	}
	return n, nil
}
