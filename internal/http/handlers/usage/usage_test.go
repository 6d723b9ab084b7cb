package usage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	usageService "github.com/princekumarofficial/imgbed/internal/services/usage"
	"github.com/princekumarofficial/imgbed/internal/types"
)

type stubSource struct {
	snap types.UsageSnapshot
	err  error
}

func (s stubSource) GetUsage(context.Context) (types.UsageSnapshot, error) {
	return s.snap, s.err
}

func TestUsage_OK(t *testing.T) {
	snap := types.UsageSnapshot{UsedBytes: 10, LimitBytes: 100, Percent: 10, HasBucket: true}

	rec := httptest.NewRecorder()
	Usage(stubSource{snap: snap}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/r2-usage", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var got types.UsageSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != snap {
		t.Fatalf("Expected %+v, got %+v", snap, got)
	}
}

func TestUsage_Error(t *testing.T) {
	rec := httptest.NewRecorder()
	src := stubSource{err: &usageService.FetchError{StatusCode: 403, Body: "forbidden"}}
	Usage(src).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/r2-usage", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != "failed to get R2 usage" || body["message"] == "" {
		t.Fatalf("Unexpected body %v", body)
	}
}
