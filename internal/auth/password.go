// Package auth provides password hashing, session token generation, the
// HTTP authentication middleware, and the GitHub OAuth provider.
package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. SHA-512 with a 64-byte derived key and a random
// per-user 16-byte salt. 10,000 iterations is the floor the scheme was
// designed around; raise defaultIterations to migrate, Verify reads the
// iteration count back out of the stored string.
const (
	defaultIterations = 10000
	saltLength        = 16
	keyLength         = 64
	hashScheme        = "pbkdf2_sha512"
)

// PasswordService derives and verifies salted password hashes.
//
// It's a struct (not free functions) so the iteration count can be lowered
// in tests; deriving a 64-byte key 10,000 times per test case adds up.
type PasswordService struct {
	iterations int
}

// NewPasswordService creates a PasswordService with the production iteration count.
func NewPasswordService() *PasswordService {
	return &PasswordService{iterations: defaultIterations}
}

// NewPasswordServiceForTest creates a PasswordService with a reduced iteration
// count. Do not use in production.
func NewPasswordServiceForTest(iterations int) *PasswordService {
	return &PasswordService{iterations: iterations}
}

// Hash derives a key from the plaintext with a fresh random salt and returns
// a self-contained string:
//
//	pbkdf2_sha512$10000$<base64 salt>$<base64 key>
//
// Store the string directly; Verify decodes the salt and iteration count
// from it. The plaintext is never persisted anywhere.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("auth: password must not be empty")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generating salt: %w", err)
	}

	key := pbkdf2.Key([]byte(plaintext), salt, p.iterations, keyLength, sha512.New)

	return fmt.Sprintf("%s$%d$%s$%s",
		hashScheme,
		p.iterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether the plaintext matches the stored hash string.
//
// The derived keys are compared with subtle.ConstantTimeCompare so response
// timing doesn't reveal how much of the hash matched. A malformed stored
// hash returns an error; a clean mismatch returns (false, nil).
func (p *PasswordService) Verify(stored, plaintext string) (bool, error) {
	scheme, iterations, salt, key, err := decodeHash(stored)
	if err != nil {
		return false, err
	}
	if scheme != hashScheme {
		return false, fmt.Errorf("auth: unsupported hash scheme %q", scheme)
	}

	derived := pbkdf2.Key([]byte(plaintext), salt, iterations, len(key), sha512.New)
	return subtle.ConstantTimeCompare(derived, key) == 1, nil
}

func decodeHash(stored string) (scheme string, iterations int, salt, key []byte, err error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 4 {
		return "", 0, nil, nil, fmt.Errorf("auth: malformed password hash")
	}

	iterations, err = strconv.Atoi(parts[1])
	if err != nil || iterations < 1 {
		return "", 0, nil, nil, fmt.Errorf("auth: malformed iteration count in password hash")
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", 0, nil, nil, fmt.Errorf("auth: decoding salt: %w", err)
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return "", 0, nil, nil, fmt.Errorf("auth: decoding key: %w", err)
	}

	return parts[0], iterations, salt, key, nil
}
