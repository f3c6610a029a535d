package handler_test

import (
	"log/slog"
	"net/http"
	"os"
	"testing"

	"github.com/wikireview/wikireview/internal/auth"
	"github.com/wikireview/wikireview/internal/handler"
	"github.com/wikireview/wikireview/internal/repository/sqlite"
	"github.com/wikireview/wikireview/internal/service"
)

// testEnv wires the handlers to real services over an in-memory database,
// so handler tests exercise the same stack a request hits in production
// (minus the router and the wiki engine).
type testEnv struct {
	auths       *service.AuthService
	comments    *handler.CommentHandler
	ratings     *handler.RatingHandler
	pages       *handler.PageHandler
	authHandler *handler.AuthHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	auths := service.NewAuthService(db.Users(), db.Sessions(), auth.NewPasswordServiceForTest(100), logger)
	commentService := service.NewCommentService(db.Comments(), db.Votes(), logger)
	voteService := service.NewVoteService(db.Comments(), db.Votes(), logger)
	ratingService := service.NewRatingService(db.Ratings(), logger)
	protectionService := service.NewProtectionService(db.Protections(), nil, logger)

	return &testEnv{
		auths:       auths,
		comments:    handler.NewCommentHandler(commentService, voteService, logger),
		ratings:     handler.NewRatingHandler(ratingService, logger),
		pages:       handler.NewPageHandler(nil, protectionService, logger),
		authHandler: handler.NewAuthHandler(auths, nil, false, logger),
	}
}

// signIn registers an account and returns its session cookie.
func (e *testEnv) signIn(t *testing.T, username string) *http.Cookie {
	t.Helper()
	result, err := e.auths.Register(t.Context(), username, username+"@example.com", "hunter22", "")
	if err != nil {
		t.Fatalf("failed to register %q: %v", username, err)
	}
	return auth.SessionCookie(result.Token, false)
}

// protect wraps a handler in RequireAuth, the way the router mounts it.
func (e *testEnv) protect(h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(e.auths)(h)
}

// public wraps a handler in OptionalAuth.
func (e *testEnv) public(h http.HandlerFunc) http.Handler {
	return auth.OptionalAuth(e.auths)(h)
}
