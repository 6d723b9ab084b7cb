package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/princekumarofficial/imgbed/internal/config"
	"github.com/princekumarofficial/imgbed/internal/metrics"
	"github.com/princekumarofficial/imgbed/internal/utils/session"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
})

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cleanup := func() {
		redisClient.Close()
		mr.Close()
	}

	return redisClient, cleanup
}

func TestSessionAuth_RedirectPolicy(t *testing.T) {
	h := SessionAuth(PolicyRedirect, "hunter2")(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("Expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?redirect=%2Fimages" {
		t.Fatalf("Unexpected Location %q", loc)
	}
}

func TestSessionAuth_JSONPolicy(t *testing.T) {
	h := SessionAuth(PolicyJSON, "hunter2")(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if body["error"] != "Unauthorized" {
		t.Fatalf("Expected Unauthorized error, got %v", body)
	}
}

func TestSessionAuth_ValidCookie(t *testing.T) {
	for _, policy := range []AuthPolicy{PolicyRedirect, PolicyJSON} {
		t.Run(policy.String(), func(t *testing.T) {
			h := SessionAuth(policy, "hunter2")(okHandler)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(session.NewCookie("hunter2"))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rec.Code)
			}
		})
	}
}

func TestSessionAuth_StaleCookieAfterPasswordChange(t *testing.T) {
	h := SessionAuth(PolicyJSON, "new-password")(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/shorten", nil)
	req.AddCookie(session.NewCookie("old-password"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for stale cookie, got %d", rec.Code)
	}
}

func TestSessionAuth_DisabledWithoutPassword(t *testing.T) {
	h := SessionAuth(PolicyRedirect, "")(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 with auth disabled, got %d", rec.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	rlc := NewRateLimitConfig(redisClient, config.RateLimit{Upload: 2})
	h := rlc.RateLimitMiddleware(ActionUpload)(okHandler)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		req.RemoteAddr = "198.51.100.4:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.RemoteAddr = "198.51.100.4:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rec.Code)
	}

	// A different client has its own bucket.
	req = httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.RemoteAddr = "198.51.100.5:5000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for another client, got %d", rec.Code)
	}
}

func TestRateLimitMiddleware_Unconfigured(t *testing.T) {
	rlc := NewRateLimitConfig(nil, config.RateLimit{Upload: 1, Shorten: 1})
	h := rlc.RateLimitMiddleware(ActionShorten)(okHandler)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/shorten", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200 without redis, got %d", rec.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"cloudflare header", map[string]string{"CF-Connecting-IP": "203.0.113.1", "X-Forwarded-For": "10.0.0.1"}, "127.0.0.1:1", "203.0.113.1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.2, 10.0.0.1"}, "127.0.0.1:1", "203.0.113.2"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.3"}, "127.0.0.1:1", "203.0.113.3"},
		{"remote addr", nil, "203.0.113.4:443", "203.0.113.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Fatalf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("Expected generated id to be echoed, got %q and %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" {
		t.Fatalf("Expected incoming id to be kept, got %q", seen)
	}

	if GetRequestID(context.Background()) != "" {
		t.Fatal("Expected empty id on bare context")
	}
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	if rec.Body.String() != "{\"error\":\"internal server error\"}\n" {
		t.Fatalf("Unexpected body %q", rec.Body.String())
	}
}

func TestRequestLoggerAndInstrument(t *testing.T) {
	m := metrics.New()
	h := RequestLogger(Instrument(m, "stats")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("Expected status to pass through, got %d", rec.Code)
	}
	if rec.Body.String() != "short and stout" {
		t.Fatalf("Unexpected body %q", rec.Body.String())
	}
}
