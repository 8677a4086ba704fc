package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event emitted by the system.
type EventType string

const (
	// EventTypeDocumentScored is emitted once per scored document.
	EventTypeDocumentScored EventType = "DocumentScored"

	// EventTypeEvaluationCompleted is emitted when a run's report is assembled.
	EventTypeEvaluationCompleted EventType = "EvaluationCompleted"
)

// EventEnvelope wraps all events with consistent metadata for projection processing.
type EventEnvelope struct {
	// IdempotencyKey ensures events are processed exactly once during retries.
	// Generated deterministically from workflow context and event content.
	IdempotencyKey string `json:"idempotency_key" validate:"required"`

	EventType  EventType `json:"event_type"  validate:"required"`
	Version    int       `json:"version"     validate:"required,min=1"`
	OccurredAt time.Time `json:"occurred_at" validate:"required"`
	TenantID   uuid.UUID `json:"tenant_id"   validate:"required"`
	WorkflowID string    `json:"workflow_id" validate:"required"`
	RunID      string    `json:"run_id"      validate:"required"`

	// Payload contains the event-specific data as JSON.
	Payload json.RawMessage `json:"payload" validate:"required"`

	// Producer identifies the component that emitted this event.
	Producer string `json:"producer" validate:"required"`
}

// Validate checks if the event envelope meets all requirements.
func (e *EventEnvelope) Validate() error {
	return validate.Struct(e)
}

// DocumentScoredPayload contains the data for DocumentScored events.
type DocumentScoredPayload struct {
	EvaluationRunID string  `json:"evaluation_run_id" validate:"required"`
	File            string  `json:"file"              validate:"required"`
	Index           int     `json:"index"             validate:"min=0"`
	Metrics         Metrics `json:"metrics"`
}

// Validate checks if the payload meets all requirements.
func (d *DocumentScoredPayload) Validate() error {
	if err := validate.Struct(d); err != nil {
		return err
	}
	return d.Metrics.Validate()
}

// EvaluationCompletedPayload contains the data for EvaluationCompleted events.
type EvaluationCompletedPayload struct {
	EvaluationRunID string    `json:"evaluation_run_id" validate:"required"`
	MatchMode       MatchMode `json:"match_mode"        validate:"required,match_mode"`
	DocumentsScored int       `json:"documents_scored"  validate:"min=0"`
	DocumentsSkip   int       `json:"documents_skipped" validate:"min=0"`
	Aggregate       Metrics   `json:"aggregate"`
	Persisted       bool      `json:"persisted"`
}

// Validate checks if the payload meets all requirements.
func (e *EvaluationCompletedPayload) Validate() error {
	if err := validate.Struct(e); err != nil {
		return err
	}
	return e.Aggregate.Validate()
}

// GenerateIdempotencyKey creates a deterministic key for event deduplication.
// Retries and replays of the same logical event produce identical keys.
func GenerateIdempotencyKey(clientIdempotencyKey, eventSuffix string) string {
	hasher := sha256.New()
	hasher.Write([]byte(clientIdempotencyKey + eventSuffix))
	return hex.EncodeToString(hasher.Sum(nil))
}

// DocumentScoredIdempotencyKey uses the pattern H(client_idem_key || ":doc:" || index).
func DocumentScoredIdempotencyKey(clientIdempotencyKey string, index int) string {
	return GenerateIdempotencyKey(clientIdempotencyKey, fmt.Sprintf(":doc:%d", index))
}

// EvaluationCompletedIdempotencyKey uses the pattern H(client_idem_key || ":aggregate:1").
func EvaluationCompletedIdempotencyKey(clientIdempotencyKey string) string {
	return GenerateIdempotencyKey(clientIdempotencyKey, ":aggregate:1")
}

func newEventEnvelope(
	eventType EventType,
	tenantID uuid.UUID,
	workflowID, runID string,
	payload any,
	idempotencyKey string,
) (EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	env := EventEnvelope{
		IdempotencyKey: idempotencyKey,
		EventType:      eventType,
		Version:        1,
		OccurredAt:     time.Now(),
		TenantID:       tenantID,
		WorkflowID:     workflowID,
		RunID:          runID,
		Payload:        raw,
		Producer:       "evaluation-activity",
	}
	if err := env.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid %s envelope: %w", eventType, err)
	}
	return env, nil
}

// NewDocumentScoredEvent creates a DocumentScored event envelope.
func NewDocumentScoredEvent(
	tenantID uuid.UUID,
	workflowID, runID string,
	payload DocumentScoredPayload,
	clientIdempotencyKey string,
) (EventEnvelope, error) {
	if err := payload.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid DocumentScored payload: %w", err)
	}
	return newEventEnvelope(EventTypeDocumentScored, tenantID, workflowID, runID, payload,
		DocumentScoredIdempotencyKey(clientIdempotencyKey, payload.Index))
}

// NewEvaluationCompletedEvent creates an EvaluationCompleted event envelope.
func NewEvaluationCompletedEvent(
	tenantID uuid.UUID,
	workflowID, runID string,
	payload EvaluationCompletedPayload,
	clientIdempotencyKey string,
) (EventEnvelope, error) {
	if err := payload.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid EvaluationCompleted payload: %w", err)
	}
	return newEventEnvelope(EventTypeEvaluationCompleted, tenantID, workflowID, runID, payload,
		EvaluationCompletedIdempotencyKey(clientIdempotencyKey))
}
