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

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

type UserStore struct {
	conn *sql.DB
}

const userColumns = `id, username, email, password_hash, display_name, github_id, created_at, updated_at`

// Create inserts a new user, generating the ID and timestamps.
//
// Duplicate username or email surfaces as ErrConflict. We pre-check both
// fields so the error can name the offending one, but the UNIQUE constraints
// remain the authority; a race between two identical registrations is
// decided by the database, and the loser's constraint violation is reported
// as the same ErrConflict.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	var taken int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ?`, user.Username,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("sqlite: checking username %q: %w", user.Username, err)
	}
	if taken > 0 {
		return apperror.Conflict("user", "username")
	}

	err = s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ?`, user.Email,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("sqlite: checking email: %w", err)
	}
	if taken > 0 {
		return apperror.Conflict("user", "email")
	}

	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.DisplayName, user.GitHubID, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isConstraintErr(err) {
			return apperror.Conflict("user", "username")
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// UpsertByGitHubID inserts the user on first OAuth login and refreshes the
// profile fields on subsequent logins, keeping the internal ID stable.
func (s *UserStore) UpsertByGitHubID(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return fmt.Errorf("sqlite: upsert requires a GitHub ID")
	}

	var existingID string
	var createdAt time.Time
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM users WHERE github_id = ?`, *user.GitHubID,
	).Scan(&existingID, &createdAt)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", *user.GitHubID, err)
	}

	if existingID != "" {
		user.ID = existingID
		user.CreatedAt = createdAt
		user.UpdatedAt = time.Now().UTC()
		_, err = s.conn.ExecContext(ctx,
			`UPDATE users SET email = ?, display_name = ?, updated_at = ? WHERE id = ?`,
			user.Email, user.DisplayName, user.UpdatedAt, user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	return s.Create(ctx, user)
}

func (s *UserStore) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	var githubID sql.NullInt64

	err := s.conn.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.DisplayName, &githubID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	if githubID.Valid {
		u.GitHubID = &githubID.Int64
	}
	return &u, nil
}
