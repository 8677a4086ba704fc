package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/clinicalextract/internal/domain"
	"github.com/ahrav/clinicalextract/internal/extraction"
	"github.com/ahrav/clinicalextract/pkg/events"
)

// family returns the gathered metric family called name.
func family(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

type countingSink struct{ n int }

func (c *countingSink) Append(context.Context, events.Envelope) error {
	c.n++
	return nil
}

func envelope(t *testing.T, typ domain.EventType, payload any) events.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return events.Envelope{ID: string(typ), Type: string(typ), Payload: raw}
}

func TestSink_RecordsEvaluationEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	next := &countingSink{}
	sink := m.Sink(next)
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, envelope(t, domain.EventTypeDocumentScored, domain.DocumentScoredPayload{
		EvaluationRunID: "run-1",
		File:            "a.txt",
		Metrics:         domain.NewMetrics(1, 2, 2),
	})))
	require.NoError(t, sink.Append(ctx, envelope(t, domain.EventTypeEvaluationCompleted, domain.EvaluationCompletedPayload{
		EvaluationRunID: "run-1",
		MatchMode:       domain.MatchExact,
		DocumentsScored: 1,
		DocumentsSkip:   2,
		Aggregate:       domain.NewMetrics(3, 4, 5),
	})))

	assert.Equal(t, 2, next.n)
	assert.InDelta(t, 1, family(t, reg, "clinicaleval_documents_scored_total").GetMetric()[0].GetCounter().GetValue(), 1e-9)
	assert.Equal(t, uint64(1), family(t, reg, "clinicaleval_document_f1").GetMetric()[0].GetHistogram().GetSampleCount())
	assert.InDelta(t, 2, family(t, reg, "clinicaleval_documents_skipped_total").GetMetric()[0].GetCounter().GetValue(), 1e-9)

	completed := family(t, reg, "clinicaleval_evaluations_completed_total").GetMetric()
	require.Len(t, completed, 1)
	assert.Equal(t, "exact", labelValue(completed[0], "match_mode"))

	f1 := family(t, reg, "clinicaleval_aggregate_f1").GetMetric()
	require.Len(t, f1, 1)
	assert.InDelta(t, domain.NewMetrics(3, 4, 5).F1, f1[0].GetGauge().GetValue(), 1e-9)
}

func TestSink_ForwardsUndecodablePayloads(t *testing.T) {
	reg := prometheus.NewRegistry()
	next := &countingSink{}
	sink := New(reg).Sink(next)

	err := sink.Append(context.Background(), events.Envelope{
		Type:    string(domain.EventTypeDocumentScored),
		Payload: json.RawMessage(`"not an object"`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, next.n)
	assert.Zero(t, family(t, reg, "clinicaleval_documents_scored_total").GetMetric()[0].GetCounter().GetValue())
}

func TestMiddleware_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	results := []error{nil, extraction.ErrEmptyText, errors.New("boom"), nil}
	var i int
	ex := m.Middleware()(extraction.ExtractorFunc(
		func(context.Context, string, extraction.Options) ([]domain.Extraction, error) {
			err := results[i]
			i++
			return nil, err
		}))
	for range results {
		_, _ = ex.Extract(context.Background(), "note", extraction.DefaultOptions())
	}

	counts := map[string]float64{}
	for _, metric := range family(t, reg, "clinicaleval_extraction_requests_total").GetMetric() {
		counts[labelValue(metric, "outcome")] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{OutcomeOK: 2, OutcomeEmpty: 1, OutcomeError: 1}, counts)
	assert.Equal(t, uint64(4), family(t, reg, "clinicaleval_extraction_duration_seconds").GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.DocumentsScored.Add(3)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "clinicaleval_documents_scored_total 3")
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", prometheus.NewRegistry(), nil) }()

	cancel()
	assert.NoError(t, <-done)
}
