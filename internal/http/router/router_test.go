package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/princekumarofficial/imgbed/internal/config"
	"github.com/princekumarofficial/imgbed/internal/http/handlers/pages"
	"github.com/princekumarofficial/imgbed/internal/metrics"
	shortlinkService "github.com/princekumarofficial/imgbed/internal/services/shortlink"
	uploadService "github.com/princekumarofficial/imgbed/internal/services/upload"
	"github.com/princekumarofficial/imgbed/internal/storage/memory"
	"github.com/princekumarofficial/imgbed/internal/types"
	"github.com/princekumarofficial/imgbed/internal/utils/password"
	"github.com/princekumarofficial/imgbed/internal/utils/session"
)

const (
	testDomain   = "img.example.com"
	testPassword = "hunter2"
)

type stubUsage struct{}

func (stubUsage) GetUsage(context.Context) (types.UsageSnapshot, error) {
	return types.UsageSnapshot{UsedBytes: 1, LimitBytes: 100, Percent: 1, HasBucket: true}, nil
}

type fixture struct {
	handler http.Handler
	store   *memory.Store
	blobs   *memory.BlobStore
}

func setup(t *testing.T, authEnabled bool) *fixture {
	cfg := &config.Config{
		Domain:     testDomain,
		HTTPServer: config.HTTPServer{PublicScheme: "https"},
		Auth:       config.Auth{Enabled: authEnabled, Password: testPassword},
		Upload:     config.Upload{MaxSizeMB: 1},
	}

	checker, err := password.NewChecker(testPassword)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	store := memory.NewStore()
	blobs := memory.NewBlobStore()
	rt := New(Deps{
		Config:     cfg,
		Store:      store,
		Blobs:      blobs,
		Usage:      stubUsage{},
		Uploads:    uploadService.NewService(blobs, store, stubUsage{}, testDomain, cfg.MaxUploadBytes()),
		ShortLinks: shortlinkService.NewService(store, testDomain),
		Checker:    checker,
		Renderer:   pages.NewRenderer(),
		Metrics:    metrics.New(),
	})

	return &fixture{handler: rt.Handler(), store: store, blobs: blobs}
}

func (f *fixture) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, "https://"+testDomain+path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, "https://"+testDomain+path, nil)
	}
	if authed {
		req.AddCookie(session.NewCookie(testPassword))
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_UnauthenticatedTable(t *testing.T) {
	f := setup(t, true)

	tests := []struct {
		method   string
		path     string
		status   int
		location string
	}{
		{http.MethodGet, "/login", http.StatusOK, ""},
		{http.MethodGet, "/logout", http.StatusFound, "/login"},
		{http.MethodGet, "/", http.StatusFound, "/login?redirect=%2F"},
		{http.MethodPost, "/upload", http.StatusUnauthorized, ""},
		{http.MethodGet, "/r2-usage", http.StatusOK, ""},
		{http.MethodPost, "/delete-images", http.StatusUnauthorized, ""},
		{http.MethodPost, "/shorten", http.StatusUnauthorized, ""},
		{http.MethodGet, "/stats", http.StatusOK, ""},
		{http.MethodGet, "/images", http.StatusFound, "/login?redirect=%2Fimages"},
		{http.MethodGet, "/urls", http.StatusFound, "/login?redirect=%2Furls"},
		{http.MethodGet, "/img/logo.png", http.StatusNotFound, ""},
		{http.MethodGet, "/abc", http.StatusNotFound, ""},
		{http.MethodGet, "/1700000000000.png", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, "", false)

			if rec.Code != tt.status {
				t.Fatalf("Expected %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
			if tt.location != "" && rec.Header().Get("Location") != tt.location {
				t.Fatalf("Expected Location %q, got %q", tt.location, rec.Header().Get("Location"))
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Fatalf("Expected a request id on every response")
			}
		})
	}
}

func TestRouter_JSONPolicyBody(t *testing.T) {
	f := setup(t, true)

	for _, path := range []string{"/upload", "/delete-images", "/shorten"} {
		rec := f.do(http.MethodPost, path, "", false)
		if rec.Body.String() != "{\"error\":\"Unauthorized\"}\n" {
			t.Fatalf("%s: unexpected body %q", path, rec.Body.String())
		}
	}
}

func TestRouter_Authenticated(t *testing.T) {
	f := setup(t, true)

	for _, path := range []string{"/", "/images", "/urls"} {
		rec := f.do(http.MethodGet, path, "", true)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	rec := f.do(http.MethodPost, "/shorten", `{"url":"https://example.com/a","customId":"docs"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var res types.ShortenResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.ShortURL != "https://"+testDomain+"/docs" {
		t.Fatalf("Unexpected short url %q", res.ShortURL)
	}

	rec = f.do(http.MethodGet, "/docs", "", false)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "https://example.com/a" {
		t.Fatalf("Expected redirect to target, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestRouter_AuthDisabled(t *testing.T) {
	f := setup(t, false)

	if rec := f.do(http.MethodGet, "/", "", false); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/shorten", `{"url":"https://example.com"}`, false); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestRouter_ShortIDFallsThroughToMedia(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()

	if err := f.store.InsertMedia(ctx, "https://"+testDomain+"/abc"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := f.blobs.Put(ctx, "abc", strings.NewReader("media"), 5, "text/plain"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	rec := f.do(http.MethodGet, "/abc", "", false)
	if rec.Code != http.StatusOK || rec.Body.String() != "media" {
		t.Fatalf("Expected media body, got %d %q", rec.Code, rec.Body.String())
	}

	if err := f.store.CreateShortURL(ctx, types.ShortURL{ShortID: "abc", URL: "https://example.com"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	rec = f.do(http.MethodGet, "/abc", "", false)
	if rec.Code != http.StatusFound {
		t.Fatalf("Expected short link to win, got %d", rec.Code)
	}
}

func TestRouter_ExactBeforeShortID(t *testing.T) {
	f := setup(t, false)

	if err := f.store.CreateShortURL(context.Background(), types.ShortURL{ShortID: "stats", URL: "https://example.com"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	rec := f.do(http.MethodGet, "/stats", "", false)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "totalImages") {
		t.Fatalf("Expected stats, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestIsShortIDPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/", false},
		{"/abc", true},
		{"/0123456789", true},
		{"/01234567890", false},
		{"/ééééééééé", true},
		{"/1700000000000.png", false},
	}

	for _, tt := range tests {
		if got := IsShortIDPath(tt.path); got != tt.want {
			t.Errorf("IsShortIDPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
