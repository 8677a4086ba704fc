// Package worker provides initialization and setup utilities for Temporal workers.
// This package contains initialization logic that should be executed during
// worker startup, keeping activity packages focused on pure activity logic.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ahrav/clinicalextract/internal/config"
	"github.com/ahrav/clinicalextract/internal/metrics"
	"github.com/ahrav/clinicalextract/internal/store"
	"github.com/ahrav/clinicalextract/pkg/events"
)

// InitializeReportStore returns the report store selected by cfg and a
// function releasing its resources. Redis is pinged before it is returned.
// With Redis disabled an in-memory store is used, which only lives as long as
// the worker process.
func InitializeReportStore(
	ctx context.Context,
	cfg config.RedisConfig,
	logger *slog.Logger,
) (store.ReportStore, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		logger.Info("Using in-memory report store")
		return store.NewMemoryReportStore(), func() error { return nil }, nil
	}

	client := store.NewRedisClient(cfg)
	reports := store.NewRedisReportStore(client, cfg.KeyPrefix, cfg.TTL)
	if err := reports.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to initialize report store: %w", err)
	}
	logger.Info("Using redis report store", "addr", cfg.Addr, "db", cfg.DB, "ttl", cfg.TTL)
	return reports, client.Close, nil
}

// NewEventSink returns the sink activities publish to. Each idempotency key
// is recorded in m (when non-nil) and logged once while cfg's dedup window
// remembers it.
func NewEventSink(logger *slog.Logger, m *metrics.Metrics, cfg config.EventsConfig) events.EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	var sink events.EventSink = events.NewLogSink(logger, slog.LevelInfo)
	if m != nil {
		sink = m.Sink(sink)
	}
	return events.NewDedupSink(sink, cfg.DedupCapacity, cfg.DedupTTL)
}
