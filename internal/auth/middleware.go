package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/wikireview/wikireview/internal/model"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "wikireview_session"

// SessionTTL is how long a session (and its cookie) lives from issuance.
const SessionTTL = 30 * 24 * time.Hour

// SessionResolver resolves a bearer token to a user. A (nil, nil) return
// means the token is unknown, expired, or revoked: an anonymous request,
// not an error. The auth service implements this.
type SessionResolver interface {
	UserForToken(ctx context.Context, token string) (*model.User, error)
}

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the values we store.
type contextKey string

const userKey contextKey = "user"

// RequireAuth enforces authentication on protected routes.
//
// It reads the session cookie, resolves it to a user, and stores the user in
// the request context. Absence at any step (no cookie, unknown token,
// expired session) yields 401 and stops the chain; resolution never panics
// or raises past this point, so handlers behind it can assume a user.
func RequireAuth(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveUser(r, sessions)
			if err != nil || user == nil {
				http.Error(w, `{"error":"unauthenticated","message":"valid session required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves the user when a valid session cookie is present but
// never blocks the request. Used on public routes (comment listing, rating)
// where an authenticated caller gets their own votes and ratings marked.
func OptionalAuth(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, err := resolveUser(r, sessions); err == nil && user != nil {
				r = r.WithContext(context.WithValue(r.Context(), userKey, user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext retrieves the authenticated user from the request context.
// Returns (nil, false) for anonymous requests.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

func resolveUser(r *http.Request, sessions SessionResolver) (*model.User, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		// http.ErrNoCookie: anonymous request
		return nil, err
	}
	return sessions.UserForToken(r.Context(), cookie.Value)
}

// SessionCookie builds the session cookie set on login and registration.
// HttpOnly and SameSite=Lax; Secure is flipped on by config in production.
func SessionCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie builds the expired cookie set on logout.
func ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
