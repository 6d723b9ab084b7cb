// Package session derives the single valid session cookie value.
package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

const (
	CookieName = "auth_session"
	salt       = "_secret_salt"
	// MaxAge is 30 days in seconds.
	MaxAge = 30 * 24 * 60 * 60
)

// Credential returns hex(sha256(password + salt)). It is recomputed on every
// call so a password change invalidates issued cookies immediately.
func Credential(password string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

// IsAuthenticated reports whether r carries the session cookie for password.
// An empty password disables authentication.
func IsAuthenticated(r *http.Request, password string) bool {
	if password == "" {
		return true
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}

	expected := Credential(password)
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(expected)) == 1
}

// NewCookie returns the session cookie issued after a successful login.
func NewCookie(password string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    Credential(password),
		Path:     "/",
		MaxAge:   MaxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// ExpiredCookie overwrites the session cookie with immediate expiry.
func ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}
