// Package store persists evaluation reports by run ID so that reports
// produced by workers can be fetched later from the command line.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/ahrav/clinicalextract/internal/domain"
)

// Store errors.
var (
	ErrReportNotFound = errors.New("report not found")
	ErrMissingRunID   = errors.New("report has no run ID")
)

// ReportStore saves and retrieves evaluation reports.
type ReportStore interface {
	// Save stores r under r.RunID, replacing any previous report of that run.
	Save(ctx context.Context, r *domain.EvaluationReport) error
	// Load returns the report of runID or ErrReportNotFound.
	Load(ctx context.Context, runID string) (*domain.EvaluationReport, error)
	// List returns stored run IDs, most recently saved first.
	List(ctx context.Context) ([]string, error)
}

// MemoryReportStore keeps reports in process memory.
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports map[string]domain.EvaluationReport
	order   []string
}

// NewMemoryReportStore creates an empty in-memory store.
func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{reports: make(map[string]domain.EvaluationReport)}
}

// Save implements ReportStore.
func (m *MemoryReportStore) Save(ctx context.Context, r *domain.EvaluationReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r == nil || r.RunID == "" {
		return ErrMissingRunID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reports[r.RunID]; exists {
		for i, id := range m.order {
			if id == r.RunID {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.reports[r.RunID] = cloneReport(*r)
	m.order = append(m.order, r.RunID)
	return nil
}

// Load implements ReportStore.
func (m *MemoryReportStore) Load(ctx context.Context, runID string) (*domain.EvaluationReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[runID]
	if !ok {
		return nil, ErrReportNotFound
	}
	out := cloneReport(r)
	return &out, nil
}

// List implements ReportStore.
func (m *MemoryReportStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		ids = append(ids, m.order[i])
	}
	return ids, nil
}

func cloneReport(r domain.EvaluationReport) domain.EvaluationReport {
	out := r
	if r.PerFile != nil {
		out.PerFile = make([]domain.DocumentResult, len(r.PerFile))
		for i, res := range r.PerFile {
			res.ByClass = cloneMetricsMap(res.ByClass)
			out.PerFile[i] = res
		}
	}
	out.AggregateByClass = cloneMetricsMap(r.AggregateByClass)
	return out
}

func cloneMetricsMap(in map[string]domain.Metrics) map[string]domain.Metrics {
	if in == nil {
		return nil
	}
	out := make(map[string]domain.Metrics, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
