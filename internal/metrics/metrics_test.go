package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest("upload", "POST", 200, 30*time.Millisecond, 120)
	m.ObserveRequest("upload", "POST", 200, 10*time.Millisecond, 80)

	got := testutil.ToFloat64(m.responseBytes.WithLabelValues("upload", "POST", "200"))
	if got != 200 {
		t.Fatalf("Expected 200 response bytes, got %v", got)
	}
}

func TestCounters(t *testing.T) {
	m := New()

	m.AddUploadBytes(1024)
	m.IncQuotaDenial()
	m.IncQuotaError()
	m.IncRedirect()
	m.IncRedirect()

	if v := testutil.ToFloat64(m.uploadBytes); v != 1024 {
		t.Fatalf("Expected 1024 upload bytes, got %v", v)
	}
	if v := testutil.ToFloat64(m.quotaDenials); v != 1 {
		t.Fatalf("Expected 1 quota denial, got %v", v)
	}
	if v := testutil.ToFloat64(m.redirects); v != 2 {
		t.Fatalf("Expected 2 redirects, got %v", v)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	m.ObserveRequest("stats", "GET", 200, time.Millisecond, 10)
	m.AddUploadBytes(1)
	m.IncQuotaDenial()
	m.IncQuotaError()
	m.IncRedirect()
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.IncRedirect()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "imgbed_short_link_redirects_total 1") {
		t.Fatalf("Expected redirect counter in exposition, got:\n%s", body)
	}
}
