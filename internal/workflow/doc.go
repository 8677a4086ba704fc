// Package workflow implements the Temporal workflow of a clinical extraction
// evaluation run.
//
// EvaluationWorkflow fans out one ScoreDocument activity per document pair,
// collects the per-document results in document order and finishes with a
// single AggregateReport activity that recomputes the pooled aggregate and
// optionally persists the report.
//
// Workflow code is deterministic: no wall-clock reads, randomness or I/O.
// Everything else is delegated to activities.
package workflow
