// Package domain provides the core types and pure scoring logic of the
// clinical extraction evaluator. It defines extraction records, match
// predicates, metrics, and the operation contracts used by the Temporal
// activities that score documents and assemble evaluation reports.
// Nothing in this package performs I/O.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Default orchestration values for evaluation runs.
const (
	// DefaultActivityTimeout bounds a single scoring or aggregation activity.
	DefaultActivityTimeout = 30 * time.Second

	// MaxDocumentsPerRun caps how many document pairs one workflow accepts.
	MaxDocumentsPerRun = 2000

	// MaxRequestPayloadBytes bounds the encoded EvaluationRequest so it and
	// the pooled AggregateReport input stay below Temporal's 2 MiB payload
	// limit. Larger corpora are evaluated locally.
	MaxRequestPayloadBytes = 1536 << 10
)

// EvaluationRequest is the input of one evaluation workflow run.
type EvaluationRequest struct {
	// RunID names the run; reports are persisted under it.
	RunID string `json:"run_id" validate:"required,max=128"`

	// Documents are the pairs to score, in report order.
	Documents []DocumentPair `json:"documents" validate:"max=2000,dive"`

	// Options selects the match predicate and per-class breakdowns.
	Options AggregateOptions `json:"options"`

	// Persist stores the final report in the configured report store.
	Persist bool `json:"persist"`

	// ActivityTimeout overrides DefaultActivityTimeout when positive.
	ActivityTimeout time.Duration `json:"activity_timeout" validate:"min=0"`
}

// Validate checks if the evaluation request meets all contract requirements.
func (r *EvaluationRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// CheckPayloadSize reports ErrRequestTooLarge when the encoded request
// exceeds MaxRequestPayloadBytes.
func (r *EvaluationRequest) CheckPayloadSize() error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode evaluation request: %w", err)
	}
	if len(data) > MaxRequestPayloadBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrRequestTooLarge, len(data), MaxRequestPayloadBytes)
	}
	return nil
}

// Timeout returns the effective per-activity timeout.
func (r *EvaluationRequest) Timeout() time.Duration {
	if r.ActivityTimeout > 0 {
		return r.ActivityTimeout
	}
	return DefaultActivityTimeout
}

// ScoreDocumentInput is the input of the ScoreDocument activity.
type ScoreDocumentInput struct {
	RunID    string           `json:"run_id"   validate:"required"`
	Index    int              `json:"index"    validate:"min=0"`
	Document DocumentPair     `json:"document" validate:"required"`
	Options  AggregateOptions `json:"options"`

	// ClientIdempotencyKey scopes event keys to one workflow execution.
	// Empty keys fall back to the activity's workflow and run IDs.
	ClientIdempotencyKey string `json:"client_idempotency_key,omitempty"`
}

// Validate checks if the score document input meets all contract requirements.
func (s *ScoreDocumentInput) Validate() error { return validate.Struct(s) }

// ScoreDocumentOutput is the output of the ScoreDocument activity.
// Scored is false when the document was skipped for lacking a set.
type ScoreDocumentOutput struct {
	Index  int            `json:"index"`
	Scored bool           `json:"scored"`
	Result DocumentResult `json:"result"`
}

// AggregateReportInput is the input of the AggregateReport activity.
// Results must be in document order and contain only scored documents.
// Predicted and Gold are the PoolScoring records of the complete pairs.
type AggregateReportInput struct {
	RunID     string           `json:"run_id"    validate:"required"`
	Predicted []Extraction     `json:"predicted"`
	Gold      []Extraction     `json:"gold"`
	Results   []DocumentResult `json:"results"`
	Skipped   int              `json:"skipped"   validate:"min=0"`
	Options   AggregateOptions `json:"options"`
	Persist   bool             `json:"persist"`

	// ClientIdempotencyKey enables deterministic event generation.
	ClientIdempotencyKey string `json:"client_idempotency_key" validate:"required"`
}

// Validate checks if the aggregate report input meets all contract requirements.
func (a *AggregateReportInput) Validate() error { return validate.Struct(a) }
