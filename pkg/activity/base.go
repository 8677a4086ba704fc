// Package activity provides common infrastructure for Temporal activity implementations:
// workflow context extraction, context-safe logging, heartbeats and best-effort
// event emission. Every helper also works when called outside an activity
// (local CLI runs and unit tests), falling back to slog.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/ahrav/clinicalextract/pkg/events"
)

// LocalWorkflowID and LocalTenantID identify work executed outside Temporal.
const (
	LocalWorkflowID = "local"
	LocalTenantID   = "550e8400-e29b-41d4-a716-446655440000"
)

// WorkflowContext contains metadata extracted from the Temporal activity context.
type WorkflowContext struct {
	WorkflowID string
	RunID      string
	TenantID   string
	ActivityID string
	Attempt    int32
}

// InActivity reports whether the workflow context came from a real activity.
func (w WorkflowContext) InActivity() bool { return w.WorkflowID != LocalWorkflowID }

// BaseActivities provides common infrastructure for all activity types.
type BaseActivities struct {
	eventSink events.EventSink
}

// NewBaseActivities creates a new BaseActivities instance with the provided event sink.
// The event sink can be nil when event emission is not needed.
func NewBaseActivities(sink events.EventSink) BaseActivities {
	return BaseActivities{eventSink: sink}
}

// GetWorkflowContext extracts workflow execution details from ctx.
// Outside an activity (where activity.GetInfo panics) it returns the
// local identifiers; callers that need distinct run IDs supply their own.
// Evaluations are single-tenant, so TenantID is always LocalTenantID.
func (b *BaseActivities) GetWorkflowContext(ctx context.Context) WorkflowContext {
	wfCtx := WorkflowContext{
		WorkflowID: LocalWorkflowID,
		RunID:      LocalWorkflowID,
		TenantID:   LocalTenantID,
		ActivityID: "local",
		Attempt:    1,
	}

	func() {
		defer func() { _ = recover() }()

		info := activity.GetInfo(ctx)
		wfCtx.WorkflowID = info.WorkflowExecution.ID
		wfCtx.RunID = info.WorkflowExecution.RunID
		wfCtx.ActivityID = info.ActivityID
		wfCtx.Attempt = info.Attempt
	}()

	return wfCtx
}

// EmitEventSafe provides best-effort event emission with a short retry.
// Emission never fails the calling activity:
//   - a nil sink skips emission
//   - a failed append is retried once after 200ms
//   - the outcome is logged, never returned
func (b *BaseActivities) EmitEventSafe(
	ctx context.Context,
	envelope events.Envelope,
	description string,
) {
	if b.eventSink == nil {
		return
	}

	const maxAttempts = 2
	const retryDelay = 200 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				SafeLogError(ctx, fmt.Sprintf("Event emission cancelled: %s", description),
					"event_type", envelope.Type)
				return
			}
		}

		if err := b.eventSink.Append(ctx, envelope); err != nil {
			lastErr = err
			continue
		}

		SafeLog(ctx, fmt.Sprintf("Event emitted: %s", description),
			"event_type", envelope.Type,
			"idempotency_key", envelope.IdempotencyKey)
		return
	}

	SafeLogError(ctx, fmt.Sprintf("Failed to emit %s after %d attempts", description, maxAttempts),
		"event_type", envelope.Type,
		"error", lastErr)
}

// RecordHeartbeat records a heartbeat; it is ignored outside an activity.
func (b *BaseActivities) RecordHeartbeat(ctx context.Context, details ...any) {
	RecordHeartbeat(ctx, details...)
}

// SafeLog logs at INFO through the activity logger, or through slog.Default()
// when ctx is not an activity context.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	if !activityLog(ctx, slog.LevelInfo, msg, keyvals) {
		slog.Default().InfoContext(ctx, msg, keyvals...)
	}
}

// SafeLogWarn is SafeLog at WARN level.
func SafeLogWarn(ctx context.Context, msg string, keyvals ...any) {
	if !activityLog(ctx, slog.LevelWarn, msg, keyvals) {
		slog.Default().WarnContext(ctx, msg, keyvals...)
	}
}

// SafeLogError is SafeLog at ERROR level.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	if !activityLog(ctx, slog.LevelError, msg, keyvals) {
		slog.Default().ErrorContext(ctx, msg, keyvals...)
	}
}

func activityLog(ctx context.Context, level slog.Level, msg string, keyvals []any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	logger := activity.GetLogger(ctx)
	switch level {
	case slog.LevelWarn:
		logger.Warn(msg, keyvals...)
	case slog.LevelError:
		logger.Error(msg, keyvals...)
	default:
		logger.Info(msg, keyvals...)
	}
	return true
}

// RecordHeartbeat records activity progress. Outside an activity it does nothing.
func RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() { _ = recover() }()
	activity.RecordHeartbeat(ctx, details...)
}
