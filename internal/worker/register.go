// Package worker exposes helpers to register workflows/activities with a Temporal worker.
package worker

import (
	sdkactivity "go.temporal.io/sdk/activity"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/clinicalextract/internal/evaluation"
	"github.com/ahrav/clinicalextract/internal/store"
	"github.com/ahrav/clinicalextract/internal/workflow"
	"github.com/ahrav/clinicalextract/pkg/activity"
	"github.com/ahrav/clinicalextract/pkg/events"
)

// RegisterAll registers the evaluation workflow and its activities with the
// Temporal worker. It must be called once during worker startup, before the
// worker is started.
//
// reports may be nil; runs that ask for persistence then fail with a
// non-retryable configuration error.
func RegisterAll(w sdkworker.Registry, reports store.ReportStore, sink events.EventSink) {
	if sink == nil {
		sink = events.NewNoOpEventSink()
	}
	base := activity.NewBaseActivities(sink)
	acts := evaluation.NewActivities(base, reports)

	w.RegisterWorkflow(workflow.EvaluationWorkflow)

	// Method values, not the struct: Activities also exposes helpers from
	// BaseActivities that are not activities.
	w.RegisterActivityWithOptions(acts.ScoreDocument,
		sdkactivity.RegisterOptions{Name: evaluation.ScoreDocumentActivity})
	w.RegisterActivityWithOptions(acts.AggregateReport,
		sdkactivity.RegisterOptions{Name: evaluation.AggregateReportActivity})
}
