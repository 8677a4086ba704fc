// Package evaluation implements the Temporal activities of an evaluation run:
// scoring a single document pair and assembling the pooled report.
package evaluation

import (
	"context"

	"github.com/ahrav/clinicalextract/internal/domain"
	"github.com/ahrav/clinicalextract/internal/store"
	"github.com/ahrav/clinicalextract/pkg/activity"
)

// Activity names as registered with the worker.
const (
	ScoreDocumentActivity   = "ScoreDocument"
	AggregateReportActivity = "AggregateReport"
)

// Activities scores documents and assembles evaluation reports.
type Activities struct {
	activity.BaseActivities
	store  store.ReportStore
	events *EventEmitter
}

// NewActivities creates evaluation activities. reports may be nil when no
// run asks for persistence.
func NewActivities(base activity.BaseActivities, reports store.ReportStore) *Activities {
	return &Activities{
		BaseActivities: base,
		store:          reports,
		events:         NewEventEmitter(base),
	}
}

// ScoreDocument scores one document pair with the greedy one-to-one matcher.
// Incomplete pairs are reported as not scored rather than failing, so the
// workflow can fan out over every document and drop the skipped ones.
func (a *Activities) ScoreDocument(
	ctx context.Context,
	input domain.ScoreDocumentInput,
) (*domain.ScoreDocumentOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, nonRetryable(ErrorValidation, err, "invalid ScoreDocument input")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	out := &domain.ScoreDocumentOutput{Index: input.Index}

	result, ok := domain.ScoreDocument(input.Document, input.Options)
	if !ok {
		activity.SafeLog(ctx, "Document skipped: missing prediction or gold set",
			"file", input.Document.ID,
			"has_prediction", input.Document.Predicted != nil,
			"has_gold", input.Document.Gold != nil)
		return out, nil
	}
	out.Scored = true
	out.Result = result

	clientKey := input.ClientIdempotencyKey
	if clientKey == "" {
		clientKey = wfCtx.WorkflowID + "/" + wfCtx.RunID + "/" + input.RunID
	}
	a.events.EmitDocumentScored(ctx, domain.DocumentScoredPayload{
		EvaluationRunID: input.RunID,
		File:            result.File,
		Index:           input.Index,
		Metrics:         result.Metrics,
	}, wfCtx, clientKey)

	activity.SafeLog(ctx, "Document scored",
		"workflow_id", wfCtx.WorkflowID,
		"file", result.File,
		"precision", result.Metrics.Precision,
		"recall", result.Metrics.Recall,
		"f1", result.Metrics.F1)
	return out, nil
}

// AggregateReport recomputes the aggregate over the pooled records of every
// complete document, attaches the per-document results and optionally
// persists the report. Store failures are retryable.
func (a *Activities) AggregateReport(
	ctx context.Context,
	input domain.AggregateReportInput,
) (*domain.EvaluationReport, error) {
	if err := input.Validate(); err != nil {
		return nil, nonRetryable(ErrorValidation, err, "invalid AggregateReport input")
	}
	if input.Persist && a.store == nil {
		return nil, nonRetryable(ErrorConfiguration, ErrNoStore, "cannot persist report")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	activity.SafeLog(ctx, "Starting AggregateReport activity",
		"workflow_id", wfCtx.WorkflowID,
		"activity_id", wfCtx.ActivityID,
		"scored", len(input.Results),
		"skipped", input.Skipped)

	report := domain.AssembleReport(input.Results, input.Predicted, input.Gold, input.Options)
	report.RunID = input.RunID
	a.RecordHeartbeat(ctx, "report assembled")

	if input.Persist {
		if err := a.store.Save(ctx, &report); err != nil {
			return nil, retryable(ErrorStore, err, "failed to persist report")
		}
	}

	a.events.EmitEvaluationCompleted(ctx, domain.EvaluationCompletedPayload{
		EvaluationRunID: input.RunID,
		MatchMode:       report.MatchMode,
		DocumentsScored: len(report.PerFile),
		DocumentsSkip:   input.Skipped,
		Aggregate:       report.Aggregate,
		Persisted:       input.Persist,
	}, wfCtx, input.ClientIdempotencyKey)

	activity.SafeLog(ctx, "AggregateReport completed",
		"evaluation_run_id", input.RunID,
		"precision", report.Aggregate.Precision,
		"recall", report.Aggregate.Recall,
		"f1", report.Aggregate.F1,
		"persisted", input.Persist)
	return &report, nil
}
