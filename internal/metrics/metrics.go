// Package metrics exposes Prometheus instrumentation for evaluation runs and
// extraction calls.
//
// Metrics (all prefixed clinicaleval_):
//   - documents_scored_total - documents scored by workers
//   - document_f1 - histogram of per-document F1
//   - evaluations_completed_total{match_mode} - completed runs
//   - documents_skipped_total - documents lacking a prediction or gold set
//   - aggregate_f1{match_mode} - aggregate F1 of the latest run
//   - extraction_requests_total{outcome} - extraction calls by outcome
//   - extraction_duration_seconds - extraction call latency
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/clinicalextract/internal/domain"
	"github.com/ahrav/clinicalextract/internal/extraction"
	"github.com/ahrav/clinicalextract/pkg/events"
)

const namespace = "clinicaleval"

// Extraction outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Metrics holds the collectors. Create one per registry.
type Metrics struct {
	DocumentsScored      prometheus.Counter
	DocumentF1           prometheus.Histogram
	EvaluationsCompleted *prometheus.CounterVec
	DocumentsSkipped     prometheus.Counter
	AggregateF1          *prometheus.GaugeVec
	ExtractionRequests   *prometheus.CounterVec
	ExtractionDuration   prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DocumentsScored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_scored_total",
			Help:      "Total number of documents scored",
		}),
		DocumentF1: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_f1",
			Help:      "Per-document F1 scores",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		EvaluationsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_completed_total",
			Help:      "Total number of completed evaluation runs",
		}, []string{"match_mode"}),
		DocumentsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_skipped_total",
			Help:      "Total number of documents skipped for a missing prediction or gold set",
		}),
		AggregateF1: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "aggregate_f1",
			Help:      "Aggregate F1 of the most recent evaluation run",
		}, []string{"match_mode"}),
		ExtractionRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_requests_total",
			Help:      "Total number of extraction calls by outcome",
		}, []string{"outcome"}),
		ExtractionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Duration of extraction calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

// Sink returns an event sink that records evaluation events before
// forwarding them to next. Envelopes whose payload does not decode are
// forwarded without being counted.
func (m *Metrics) Sink(next events.EventSink) events.EventSink {
	return &eventSink{m: m, next: next}
}

type eventSink struct {
	m    *Metrics
	next events.EventSink
}

func (s *eventSink) Append(ctx context.Context, e events.Envelope) error {
	switch domain.EventType(e.Type) {
	case domain.EventTypeDocumentScored:
		var p domain.DocumentScoredPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			slog.Debug("metrics: undecodable payload", "event_type", e.Type, "error", err)
			break
		}
		s.m.DocumentsScored.Inc()
		s.m.DocumentF1.Observe(p.Metrics.F1)
	case domain.EventTypeEvaluationCompleted:
		var p domain.EvaluationCompletedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			slog.Debug("metrics: undecodable payload", "event_type", e.Type, "error", err)
			break
		}
		mode := p.MatchMode.String()
		s.m.EvaluationsCompleted.WithLabelValues(mode).Inc()
		s.m.DocumentsSkipped.Add(float64(p.DocumentsSkip))
		s.m.AggregateF1.WithLabelValues(mode).Set(p.Aggregate.F1)
	}
	return s.next.Append(ctx, e)
}

// Middleware instruments an extractor with call counts and latency.
func (m *Metrics) Middleware() extraction.Middleware {
	return func(next extraction.Extractor) extraction.Extractor {
		return extraction.ExtractorFunc(func(ctx context.Context, text string, opts extraction.Options) ([]domain.Extraction, error) {
			start := time.Now()
			records, err := next.Extract(ctx, text, opts)
			m.ExtractionDuration.Observe(time.Since(start).Seconds())

			outcome := OutcomeOK
			switch {
			case errors.Is(err, extraction.ErrEmptyText):
				outcome = OutcomeEmpty
			case err != nil:
				outcome = OutcomeError
			}
			m.ExtractionRequests.WithLabelValues(outcome).Inc()
			return records, err
		})
	}
}
