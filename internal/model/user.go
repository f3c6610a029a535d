// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Username and Email are unique (enforced by the database, matched
// case-sensitively). PasswordHash is a self-contained PBKDF2 string produced
// by the auth package; it is empty for accounts created through GitHub OAuth,
// which carry a GitHubID instead. The hash is never serialized to JSON.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"realname,omitempty"`
	GitHubID     *int64    `json:"-"` // set only for OAuth accounts
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Name returns the identity string used for comments, votes, and ratings:
// the display name when set, otherwise the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
