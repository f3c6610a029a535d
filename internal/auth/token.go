package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// sessionTokenBytes is the entropy of a session token before encoding.
// 32 bytes (256 bits) keeps tokens unguessable; xid is fine for row IDs
// but too predictable for a bearer credential.
const sessionTokenBytes = 32

// NewSessionToken returns a cryptographically random opaque token suitable
// for use as a session bearer credential. The encoded form is URL- and
// cookie-safe.
func NewSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
