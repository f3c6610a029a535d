package model

import "time"

// Session is a server-side login session. The token is an opaque random
// string used as a bearer credential via an HttpOnly cookie; it is the
// primary key of the sessions table, so revoking is a row delete.
//
// A session past ExpiresAt is treated identically to a nonexistent one;
// expiry is checked at read time, not by a background sweep.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the session has passed its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
