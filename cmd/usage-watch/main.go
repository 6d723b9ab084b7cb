package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/princekumarofficial/imgbed/internal/config"
	"github.com/princekumarofficial/imgbed/internal/services/usage"
	"github.com/princekumarofficial/imgbed/internal/types"
)

type UsageSource interface {
	GetUsage(ctx context.Context) (types.UsageSnapshot, error)
}

// UsageWatcher logs bucket usage on a fixed interval. It never stores what it reads.
type UsageWatcher struct {
	source   UsageSource
	interval time.Duration
	logger   *slog.Logger
}

func NewUsageWatcher(source UsageSource, interval time.Duration, logger *slog.Logger) *UsageWatcher {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	return &UsageWatcher{
		source:   source,
		interval: interval,
		logger:   logger,
	}
}

func (uw *UsageWatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(uw.interval)
	defer ticker.Stop()

	uw.logger.Info("Usage watcher started",
		"interval", uw.interval.String())

	// Run once immediately on startup
	uw.check(ctx)

	for {
		select {
		case <-ctx.Done():
			uw.logger.Info("Usage watcher shutting down")
			return
		case <-ticker.C:
			uw.check(ctx)
		}
	}
}

func (uw *UsageWatcher) check(ctx context.Context) {
	startTime := time.Now()

	snap, err := uw.source.GetUsage(ctx)
	if err != nil {
		uw.logger.Error("Failed to read bucket usage",
			"error", err.Error(),
			"duration_ms", time.Since(startTime).Milliseconds())
		return
	}

	attrs := []any{
		"used_bytes", snap.UsedBytes,
		"limit_bytes", snap.LimitBytes,
		"percent", snap.Percent,
		"has_bucket", snap.HasBucket,
		"duration_ms", time.Since(startTime).Milliseconds(),
	}

	if snap.HasBucket && snap.Percent >= usage.DenyThreshold {
		uw.logger.Warn("Bucket usage at upload threshold, uploads are paused", attrs...)
		return
	}
	uw.logger.Info("Bucket usage", attrs...)
}

func main() {
	// Load config
	cfg := config.MustLoad()

	if !cfg.Quota.HasMetricsCredentials() {
		slog.Warn("Cloudflare credentials missing, usage will always read as zero")
	}

	interval := cfg.Quota.WatchInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	watcher := NewUsageWatcher(usage.NewService(cfg, nil), interval, nil)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("Received shutdown signal")
		cancel()
	}()

	watcher.Start(ctx)

	slog.Info("Usage watcher stopped")
}
