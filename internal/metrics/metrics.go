// Package metrics holds the Prometheus collectors exported by the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "imgbed"

var labelNames = []string{"route", "method", "status"}

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	requestDurations *prometheus.HistogramVec
	responseBytes    *prometheus.CounterVec
	uploadBytes      prometheus.Counter
	quotaDenials     prometheus.Counter
	quotaErrors      prometheus.Counter
	redirects        prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time spent answering requests in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			labelNames,
		),
		responseBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "response_bytes_total",
				Help:      "Total volume of response payloads emitted in bytes.",
			},
			labelNames,
		),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total bytes accepted by the upload pipeline.",
		}),
		quotaDenials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_denials_total",
			Help:      "Uploads refused because storage usage reached the threshold.",
		}),
		quotaErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_check_errors_total",
			Help:      "Usage lookups that failed and were admitted anyway.",
		}),
		redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "short_link_redirects_total",
			Help:      "Short links resolved to a redirect.",
		}),
	}

	m.registry.MustRegister(
		m.requestDurations,
		m.responseBytes,
		m.uploadBytes,
		m.quotaDenials,
		m.quotaErrors,
		m.redirects,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration, bytes int64) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDurations.WithLabelValues(route, method, code).Observe(elapsed.Seconds())
	m.responseBytes.WithLabelValues(route, method, code).Add(float64(bytes))
}

func (m *Metrics) AddUploadBytes(n int64) {
	if m == nil {
		return
	}
	m.uploadBytes.Add(float64(n))
}

func (m *Metrics) IncQuotaDenial() {
	if m == nil {
		return
	}
	m.quotaDenials.Inc()
}

func (m *Metrics) IncQuotaError() {
	if m == nil {
		return
	}
	m.quotaErrors.Inc()
}

func (m *Metrics) IncRedirect() {
	if m == nil {
		return
	}
	m.redirects.Inc()
}
