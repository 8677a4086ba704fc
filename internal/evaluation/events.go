package evaluation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ahrav/clinicalextract/internal/domain"
	"github.com/ahrav/clinicalextract/pkg/activity"
	"github.com/ahrav/clinicalextract/pkg/events"
)

// EventEmitter builds evaluation domain events and hands them to the base
// activity infrastructure. Emission is best-effort: failures are logged
// and never affect the activity result.
type EventEmitter struct {
	base activity.BaseActivities
}

// NewEventEmitter creates an EventEmitter on top of base.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base}
}

// EmitDocumentScored emits a DocumentScored event for one scored document.
func (e *EventEmitter) EmitDocumentScored(
	ctx context.Context,
	payload domain.DocumentScoredPayload,
	wfCtx activity.WorkflowContext,
	clientIdemKey string,
) {
	tenantID, err := parseUUID(wfCtx.TenantID, "tenant")
	if err != nil {
		activity.SafeLogError(ctx, "Failed to parse tenant ID for DocumentScored event",
			"tenant_id", wfCtx.TenantID,
			"error", err)
		return
	}

	domainEvent, err := domain.NewDocumentScoredEvent(tenantID, wfCtx.WorkflowID, wfCtx.RunID, payload, clientIdemKey)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create DocumentScored event",
			"file", payload.File,
			"error", err)
		return
	}

	e.base.EmitEventSafe(ctx, toEnvelope(domainEvent), fmt.Sprintf("DocumentScored[%s]", payload.File))
}

// EmitEvaluationCompleted emits the run-level EvaluationCompleted event.
func (e *EventEmitter) EmitEvaluationCompleted(
	ctx context.Context,
	payload domain.EvaluationCompletedPayload,
	wfCtx activity.WorkflowContext,
	clientIdemKey string,
) {
	tenantID, err := parseUUID(wfCtx.TenantID, "tenant")
	if err != nil {
		activity.SafeLogError(ctx, "Failed to parse tenant ID for EvaluationCompleted event",
			"tenant_id", wfCtx.TenantID,
			"error", err)
		return
	}

	domainEvent, err := domain.NewEvaluationCompletedEvent(tenantID, wfCtx.WorkflowID, wfCtx.RunID, payload, clientIdemKey)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create EvaluationCompleted event",
			"evaluation_run_id", payload.EvaluationRunID,
			"error", err)
		return
	}

	e.base.EmitEventSafe(ctx, toEnvelope(domainEvent),
		fmt.Sprintf("EvaluationCompleted[%s]", payload.EvaluationRunID))
}

func parseUUID(input, kind string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(input)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s UUID '%s': %w", kind, input, err)
	}
	return parsed, nil
}

// toEnvelope maps a domain event onto the generic envelope. The idempotency
// key doubles as the event ID so replays produce identical envelopes.
func toEnvelope(domainEvent domain.EventEnvelope) events.Envelope {
	return events.Envelope{
		ID:             domainEvent.IdempotencyKey,
		Type:           string(domainEvent.EventType),
		Source:         domainEvent.Producer,
		Version:        fmt.Sprintf("%d.0.0", domainEvent.Version),
		Timestamp:      domainEvent.OccurredAt,
		IdempotencyKey: domainEvent.IdempotencyKey,
		TenantID:       domainEvent.TenantID.String(),
		WorkflowID:     domainEvent.WorkflowID,
		RunID:          domainEvent.RunID,
		Payload:        domainEvent.Payload,
	}
}
