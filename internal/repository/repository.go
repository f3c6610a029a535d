// Package repository defines the storage interfaces the service layer
// depends on. The sqlite subpackage is the only implementation; tests
// substitute in-memory fakes or an in-memory sqlite instance.
package repository

import (
	"context"
	"time"

	"github.com/wikireview/wikireview/internal/model"
)

type UserRepository interface {
	// Create inserts a new user. Returns apperror.ErrConflict when the
	// username or email is already taken (exact, case-sensitive match).
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// UpsertByGitHubID inserts on first OAuth login and refreshes the
	// profile on subsequent logins, preserving the internal ID.
	UpsertByGitHubID(ctx context.Context, user *model.User) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	// Get returns apperror.ErrNotFound for unknown tokens. Expiry is the
	// caller's concern; the row is returned even when stale.
	Get(ctx context.Context, token string) (*model.Session, error)
	// Delete is idempotent; deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	// ListBySubject returns the flat rows for a subject in creation order;
	// tree reconstruction happens in the service layer.
	ListBySubject(ctx context.Context, subjectID int64) ([]*model.Comment, error)
	// Delete removes a comment; the reply subtree goes with it via the
	// self-referential cascade.
	Delete(ctx context.Context, id string) error
}

type VoteRepository interface {
	// Get returns apperror.ErrNotFound when the (comment, voter) pair has
	// no standing vote.
	Get(ctx context.Context, commentID, voter string) (*model.Vote, error)
	// Insert returns apperror.ErrConflict when a vote for the pair already
	// exists (the unique constraint resolving concurrent first votes).
	Insert(ctx context.Context, vote *model.Vote) error
	UpdateValue(ctx context.Context, id string, value int) error
	Delete(ctx context.Context, id string) error
	// TallyForComment recomputes the aggregates from the ledger rows.
	TallyForComment(ctx context.Context, commentID, voter string) (*model.VoteResult, error)
	// TallyForSubject returns per-comment aggregates for every voted-on
	// comment of a subject, keyed by comment ID.
	TallyForSubject(ctx context.Context, subjectID int64, voter string) (map[string]model.VoteResult, error)
}

type RatingRepository interface {
	Get(ctx context.Context, subjectID int64, voter string) (*model.Rating, error)
	// Insert returns apperror.ErrConflict when the (subject, voter) pair
	// already has a rating.
	Insert(ctx context.Context, rating *model.Rating) error
	UpdateValue(ctx context.Context, id string, value int) error
	// Aggregate returns the raw sum and count of current values for the
	// subject plus the voter's own value; averaging is the service's job.
	Aggregate(ctx context.Context, subjectID int64, voter string) (sum, count int, userValue *int, err error)
}

type ProtectionRepository interface {
	Get(ctx context.Context, subjectID int64) (*model.PageProtection, error)
	// Create claims a page; returns apperror.ErrConflict when already claimed.
	Create(ctx context.Context, p *model.PageProtection) error
	SetProtected(ctx context.Context, subjectID int64, protected bool) error
}
