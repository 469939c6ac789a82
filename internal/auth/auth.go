//go:generate mockgen -source ./auth.go -destination=./mocks/auth.go -package=mock_auth
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Authenticator gates admin operations. The engine depends on this interface
// only; credential storage and rotation live behind it.
type Authenticator interface {
	Authenticate(candidate string) bool
}

// SharedSecret authenticates against a bcrypt hash of the admin password.
type SharedSecret struct {
	hash []byte
}

// NewSharedSecret accepts either a precomputed bcrypt hash or, when only a
// plaintext password is configured, derives the hash at startup so the
// plaintext never lives past initialization.
func NewSharedSecret(hash, plaintext string) (*SharedSecret, error) {
	if hash != "" {
		return &SharedSecret{hash: []byte(hash)}, nil
	}
	if plaintext == "" {
		return nil, errors.New("no admin secret configured")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &SharedSecret{hash: h}, nil
}

func (s *SharedSecret) Authenticate(candidate string) bool {
	return bcrypt.CompareHashAndPassword(s.hash, []byte(candidate)) == nil
}
