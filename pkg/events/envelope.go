// Package events provides the generic event infrastructure for domain event emission.
// It defines the Envelope type for wrapping domain events with consistent metadata
// and the EventSink interface for event storage/transmission.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Envelope wraps domain events with consistent metadata for reliable event processing.
// It can hold any domain payload while keeping the fields needed for routing,
// deduplication and correlation with the workflow that produced it.
type Envelope struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Type identifies the event for routing and processing.
	// Examples: "DocumentScored", "EvaluationCompleted"
	Type string `json:"type"`

	// Source identifies the component that emitted this event.
	Source string `json:"source"`

	// Version enables schema evolution, following semantic versioning.
	Version string `json:"version"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey ensures exactly-once processing during retries.
	// Generated deterministically from workflow context and event content.
	IdempotencyKey string `json:"idempotency_key"`

	TenantID   string `json:"tenant_id"`
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`

	// Payload contains the domain-specific event data as JSON.
	// Schema varies by Type and Version.
	Payload json.RawMessage `json:"payload"`
}

// EventSink defines the interface for emitting events to downstream consumers.
type EventSink interface {
	// Append adds an event to the sink with best-effort delivery.
	// Implementations should treat duplicate idempotency keys as no-ops
	// and return quickly to avoid blocking the caller.
	//
	// Callers must not fail their primary operation because of sink errors.
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink is a null implementation of EventSink for testing or when events are disabled.
type NoOpEventSink struct{}

// Append implements EventSink.Append with no-op behavior.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error {
	return nil
}

// NewNoOpEventSink creates a new no-op event sink.
func NewNoOpEventSink() EventSink {
	return &NoOpEventSink{}
}
