package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LogSink writes every envelope as a structured log record. It is the
// default sink of workers that have no event transport configured.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink creates a sink logging at level. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, level: level}
}

// Append implements EventSink.
func (s *LogSink) Append(ctx context.Context, e Envelope) error {
	s.logger.LogAttrs(ctx, s.level, "event",
		slog.String("event_id", e.ID),
		slog.String("event_type", e.Type),
		slog.String("source", e.Source),
		slog.String("version", e.Version),
		slog.String("idempotency_key", e.IdempotencyKey),
		slog.String("workflow_id", e.WorkflowID),
		slog.String("run_id", e.RunID),
		slog.Time("timestamp", e.Timestamp),
		slog.Any("payload", e.Payload),
	)
	return nil
}

// Dedup defaults sized for a long-running worker.
const (
	DefaultDedupCapacity = 100_000
	DefaultDedupTTL      = 24 * time.Hour
)

// DedupSink forwards each idempotency key to the wrapped sink at most once
// while the key is remembered. Activity retries re-emit the same keys; only
// the first successful append reaches next. Keys are held in an LRU bounded
// by capacity and expire after ttl, so a long-lived worker never grows
// without limit.
type DedupSink struct {
	next EventSink

	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

// NewDedupSink wraps next. Non-positive capacity or ttl select the defaults.
func NewDedupSink(next EventSink, capacity int, ttl time.Duration) *DedupSink {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &DedupSink{next: next, seen: expirable.NewLRU[string, struct{}](capacity, nil, ttl)}
}

// Len returns how many keys are currently remembered.
func (d *DedupSink) Len() int { return d.seen.Len() }

// Append implements EventSink. Envelopes without an idempotency key are
// always forwarded.
func (d *DedupSink) Append(ctx context.Context, e Envelope) error {
	if e.IdempotencyKey == "" {
		return d.next.Append(ctx, e)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen.Peek(e.IdempotencyKey); ok {
		return nil
	}
	if err := d.next.Append(ctx, e); err != nil {
		return err
	}
	d.seen.Add(e.IdempotencyKey, struct{}{})
	return nil
}
