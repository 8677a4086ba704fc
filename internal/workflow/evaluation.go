package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/clinicalextract/internal/domain"
	"github.com/ahrav/clinicalextract/internal/evaluation"
)

// Workflow tuning.
const (
	// ScoringWindow bounds how many ScoreDocument activities are in flight.
	ScoringWindow = 64

	// ProgressQuery returns the current Progress of a run.
	ProgressQuery = "progress"
)

// Progress is the answer of ProgressQuery.
type Progress struct {
	Total     int  `json:"total"`
	Completed int  `json:"completed"`
	Scored    int  `json:"scored"`
	Finished  bool `json:"finished"`
}

// EvaluationWorkflow scores every document of req and returns the report.
// Documents lacking a prediction or gold set are skipped, never failed.
func EvaluationWorkflow(
	ctx workflow.Context,
	req domain.EvaluationRequest,
) (*domain.EvaluationReport, error) {
	// Version gate enables safe evolution and backward compatibility.
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "evaluation.v", workflow.DefaultVersion, currentVersion)

	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid evaluation request",
			"Validation",
			err,
		)
	}

	progress := Progress{Total: len(req.Documents)}
	if err := workflow.SetQueryHandler(ctx, ProgressQuery, func() (Progress, error) {
		return progress, nil
	}); err != nil {
		return nil, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: req.Timeout(),
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
			NonRetryableErrorTypes: []string{
				evaluation.ErrorValidation,
				evaluation.ErrorConfiguration,
			},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	// Scoped to this execution so a rerun under the same run ID emits fresh events.
	exec := workflow.GetInfo(ctx).WorkflowExecution
	clientKey := exec.ID + "/" + exec.RunID + "/" + req.RunID

	results := make([]domain.DocumentResult, 0, len(req.Documents))
	for start := 0; start < len(req.Documents); start += ScoringWindow {
		end := min(start+ScoringWindow, len(req.Documents))

		futures := make([]workflow.Future, 0, end-start)
		for i := start; i < end; i++ {
			futures = append(futures, workflow.ExecuteActivity(ctx, evaluation.ScoreDocumentActivity,
				domain.ScoreDocumentInput{
					RunID:                req.RunID,
					Index:                i,
					Document:             req.Documents[i],
					Options:              req.Options,
					ClientIdempotencyKey: clientKey,
				}))
		}

		// Futures are drained in order so results stay in document order.
		for _, f := range futures {
			var out domain.ScoreDocumentOutput
			if err := f.Get(ctx, &out); err != nil {
				return nil, err
			}
			progress.Completed++
			if out.Scored {
				progress.Scored++
				results = append(results, out.Result)
			}
		}
	}

	predicted, gold := domain.PoolScoring(req.Documents)
	var report domain.EvaluationReport
	err := workflow.ExecuteActivity(ctx, evaluation.AggregateReportActivity, domain.AggregateReportInput{
		RunID:                req.RunID,
		Predicted:            predicted,
		Gold:                 gold,
		Results:              results,
		Skipped:              progress.Completed - progress.Scored,
		Options:              req.Options,
		Persist:              req.Persist,
		ClientIdempotencyKey: clientKey,
	}).Get(ctx, &report)
	if err != nil {
		return nil, err
	}
	progress.Finished = true

	logger.Info("Evaluation completed",
		"run_id", req.RunID,
		"documents", len(req.Documents),
		"scored", progress.Scored,
		"f1", report.Aggregate.F1)
	return &report, nil
}
