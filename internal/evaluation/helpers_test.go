package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ahrav/clinicalextract/internal/domain"
	"github.com/ahrav/clinicalextract/pkg/events"
)

// CapturingEventSink captures all emitted events for test assertions.
type CapturingEventSink struct {
	mu           sync.RWMutex
	events       []events.Envelope
	failuresLeft int
}

// NewCapturingEventSink creates a new capturing event sink for testing.
func NewCapturingEventSink() *CapturingEventSink {
	return &CapturingEventSink{}
}

// NewFailingEventSink creates a sink that fails n times before succeeding.
func NewFailingEventSink(n int) *CapturingEventSink {
	return &CapturingEventSink{failuresLeft: n}
}

// Append implements events.EventSink.
func (c *CapturingEventSink) Append(_ context.Context, envelope events.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failuresLeft > 0 {
		c.failuresLeft--
		return errors.New("simulated event sink failure")
	}
	c.events = append(c.events, envelope)
	return nil
}

// Events returns a copy of the captured envelopes.
func (c *CapturingEventSink) Events() []events.Envelope {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]events.Envelope, len(c.events))
	copy(out, c.events)
	return out
}

// EventsOfType returns the captured envelopes of one type.
func (c *CapturingEventSink) EventsOfType(t domain.EventType) []events.Envelope {
	var out []events.Envelope
	for _, e := range c.Events() {
		if e.Type == string(t) {
			out = append(out, e)
		}
	}
	return out
}

// failingStore rejects every Save.
type failingStore struct{ err error }

func (f failingStore) Save(context.Context, *domain.EvaluationReport) error { return f.err }

func (f failingStore) Load(context.Context, string) (*domain.EvaluationReport, error) {
	return nil, f.err
}

func (f failingStore) List(context.Context) ([]string, error) { return nil, f.err }

func rec(class, text string) domain.Extraction {
	return domain.Extraction{Class: class, Text: text}
}

// testDocuments returns two complete documents and one without predictions.
func testDocuments() []domain.DocumentPair {
	return []domain.DocumentPair{
		{
			ID:        "a_symptoms.txt",
			Predicted: []domain.Extraction{rec("symptom_sign", "fever"), rec("symptom_sign", "cough")},
			Gold:      []domain.Extraction{rec("symptom_sign", "Fever"), rec("symptom_sign", "shortness of breath")},
		},
		{
			ID:        "b_meds.txt",
			Predicted: []domain.Extraction{rec("medication", "Cefazolin"), rec("route", "IV")},
			Gold:      []domain.Extraction{rec("medication", "cefazolin"), rec("route", "IV"), rec("dosage", "250 mg")},
		},
		{
			ID:   "c_pending.txt",
			Gold: []domain.Extraction{rec("procedure", "CT chest")},
		},
	}
}

func decodePayload[T any](data json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}
