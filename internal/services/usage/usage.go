// Package usage reads bucket consumption from the Cloudflare R2 metrics API
// and turns it into upload admission decisions.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/princekumarofficial/imgbed/internal/config"
	"github.com/princekumarofficial/imgbed/internal/types"
)

// DenyThreshold is the usage percentage at which uploads are refused.
const DenyThreshold = 95.0

const maxErrorBody = 4 << 10

// FetchError reports a failed read of the metrics endpoint.
type FetchError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch R2 metrics: %v", e.Err)
	}
	return fmt.Sprintf("failed to fetch R2 metrics: status %d - %s", e.StatusCode, e.Body)
}

func (e *FetchError) Unwrap() error { return e.Err }

type metricsResponse struct {
	Result struct {
		Standard struct {
			Published *struct {
				PayloadSize int64 `json:"payloadSize"`
				Objects     int64 `json:"objects"`
			} `json:"published"`
		} `json:"standard"`
	} `json:"result"`
}

type Service struct {
	client     *http.Client
	apiBase    string
	accountID  string
	email      string
	apiKey     string
	limitBytes int64
	configured bool
}

func NewService(cfg *config.Config, client *http.Client) *Service {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Quota.Timeout > 0 {
		c := *client
		c.Timeout = cfg.Quota.Timeout
		client = &c
	}

	return &Service{
		client:     client,
		apiBase:    strings.TrimRight(cfg.Quota.APIBase, "/"),
		accountID:  cfg.Quota.AccountID,
		email:      cfg.Quota.Email,
		apiKey:     cfg.Quota.APIKey,
		limitBytes: cfg.QuotaLimitBytes(),
		configured: cfg.Quota.HasMetricsCredentials(),
	}
}

// GetUsage returns the current snapshot. Without metrics credentials it
// returns a zero-usage snapshot with HasBucket false instead of failing.
func (s *Service) GetUsage(ctx context.Context) (types.UsageSnapshot, error) {
	snap := types.UsageSnapshot{LimitBytes: s.limitBytes}

	if !s.configured {
		slog.Warn("R2 metrics credentials missing, reporting zero usage")
		return snap, nil
	}

	endpoint := fmt.Sprintf("%s/accounts/%s/r2/metrics", s.apiBase, s.accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return snap, &FetchError{Err: err}
	}
	req.Header.Set("X-Auth-Email", s.email)
	req.Header.Set("X-Auth-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return snap, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return snap, &FetchError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var metrics metricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&metrics); err != nil {
		return snap, &FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode metrics: %w", err)}
	}

	if p := metrics.Result.Standard.Published; p != nil {
		snap.UsedBytes = p.PayloadSize
		snap.HasBucket = p.PayloadSize > 0 || p.Objects > 0
	}
	snap.Percent = Percent(snap.UsedBytes, snap.LimitBytes)

	return snap, nil
}

// Percent returns used/limit as a percentage clamped to [0, 100].
func Percent(used, limit int64) float64 {
	if limit <= 0 || used <= 0 {
		return 0
	}
	return math.Min(100, float64(used)/float64(limit)*100)
}

// OnError selects how Evaluate treats a failed usage read.
type OnError int

const (
	FailOpen OnError = iota
	FailClosed
)

type Decision struct {
	Allowed  bool
	Snapshot types.UsageSnapshot
	// Err is the fetch failure, if any, that the decision was made despite.
	Err error
}

// Evaluate turns a GetUsage result into an admission decision. Callers pick
// the failure policy explicitly.
func Evaluate(snap types.UsageSnapshot, err error, onError OnError) Decision {
	if err != nil {
		return Decision{Allowed: onError == FailOpen, Snapshot: snap, Err: err}
	}
	return Decision{Allowed: snap.Percent < DenyThreshold, Snapshot: snap}
}
