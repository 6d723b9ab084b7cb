package password

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Checker verifies submitted login passwords against the configured one
// without keeping it in comparable plaintext.
type Checker struct {
	hash      []byte
	plaintext []byte
}

// NewChecker hashes password once. Passwords bcrypt cannot take (over 72
// bytes) fall back to a constant-time comparison.
func NewChecker(password string) (*Checker, error) {
	if password == "" {
		return &Checker{}, nil
	}

	hash, err := HashPassword(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return &Checker{plaintext: []byte(password)}, nil
	}
	if err != nil {
		return nil, err
	}

	return &Checker{hash: []byte(hash)}, nil
}

// Check reports whether submitted equals the configured password. It is
// always false when no password is configured.
func (c *Checker) Check(submitted string) bool {
	switch {
	case c.hash != nil:
		return CheckPasswordHash(submitted, string(c.hash))
	case c.plaintext != nil:
		return subtle.ConstantTimeCompare([]byte(submitted), c.plaintext) == 1
	default:
		return false
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
