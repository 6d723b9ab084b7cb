package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func requestWithCookie(header string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		r.Header.Set("Cookie", header)
	}
	return r
}

func TestCredential_Deterministic(t *testing.T) {
	a := Credential("hunter2")
	b := Credential("hunter2")
	if a != b {
		t.Fatal("Expected identical credentials for the same password")
	}
	if len(a) != 64 {
		t.Fatalf("Expected 64 hex chars, got %d", len(a))
	}
	if a == Credential("hunter3") {
		t.Fatal("Expected different credentials for different passwords")
	}
}

func TestIsAuthenticated(t *testing.T) {
	valid := CookieName + "=" + Credential("hunter2")

	tests := []struct {
		name     string
		password string
		cookie   string
		want     bool
	}{
		{"auth disabled", "", "", true},
		{"no cookie header", "hunter2", "", false},
		{"other cookies only", "hunter2", "theme=dark; lang=en", false},
		{"valid cookie", "hunter2", valid, true},
		{"valid among others", "hunter2", "theme=dark; " + valid + "; lang=en", true},
		{"wrong value", "hunter2", CookieName + "=deadbeef", false},
		{"malformed header", "hunter2", ";;==;", false},
		{"password changed", "newpass", valid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthenticated(requestWithCookie(tt.cookie), tt.password); got != tt.want {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewCookie_Attributes(t *testing.T) {
	header := NewCookie("hunter2").String()
	for _, attr := range []string{"HttpOnly", "Secure", "SameSite=Strict", "Max-Age=2592000", "Path=/"} {
		if !strings.Contains(header, attr) {
			t.Errorf("Expected %q in %q", attr, header)
		}
	}
}

func TestExpiredCookie(t *testing.T) {
	header := ExpiredCookie().String()
	if !strings.Contains(header, "Max-Age=0") {
		t.Fatalf("Expected immediate expiry, got %q", header)
	}
}
