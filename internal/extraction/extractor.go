// Package extraction defines the contract of the external clinical entity
// extraction engine and a thin HTTP transport to a remote extraction service.
// Prompting, chunking and model invocation belong to that service; this
// package only moves text out and extraction records back in.
package extraction

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/clinicalextract/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Extractor turns clinical text into entity mentions, in order of appearance.
type Extractor interface {
	Extract(ctx context.Context, text string, opts Options) ([]domain.Extraction, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, text string, opts Options) ([]domain.Extraction, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(ctx context.Context, text string, opts Options) ([]domain.Extraction, error) {
	return f(ctx, text, opts)
}

// ErrEmptyText indicates an extraction request without any text.
var ErrEmptyText = errors.New("extraction text is empty")

// Default extraction settings.
const (
	DefaultModelID        = "gemini-2.5-flash"
	DefaultTemperature    = 0.2
	DefaultMaxTokens      = 8192
	DefaultPasses         = 1
	DefaultMaxWorkers     = 4
	DefaultMaxCharBuffer  = 2000
	DefaultOllamaModelURL = "http://localhost:11434"
	DefaultAPIKeyEnv      = "LANGEXTRACT_API_KEY"
	DefaultRequestsPerSec = 2.0
	DefaultRequestBurst   = 1
	maxResponseBytes      = 16 << 20
)

// Options are forwarded to the extraction engine unchanged.
type Options struct {
	ModelID       string  `json:"model_id" validate:"required"`
	ModelURL      string  `json:"model_url,omitempty" validate:"omitempty,url"`
	Temperature   float64 `json:"temperature" validate:"min=0,max=2"`
	MaxTokens     int     `json:"max_tokens" validate:"min=1"`
	Passes        int     `json:"extraction_passes" validate:"min=1,max=5"`
	MaxWorkers    int     `json:"max_workers" validate:"min=1"`
	MaxCharBuffer int     `json:"max_char_buffer" validate:"min=500,max=10000"`
	UseOllama     bool    `json:"use_ollama"`
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ModelID:       DefaultModelID,
		Temperature:   DefaultTemperature,
		MaxTokens:     DefaultMaxTokens,
		Passes:        DefaultPasses,
		MaxWorkers:    DefaultMaxWorkers,
		MaxCharBuffer: DefaultMaxCharBuffer,
	}
}

// Validate checks the option ranges.
func (o *Options) Validate() error { return validate.Struct(o) }

// WithSpans returns copies of records whose char interval lies inside text,
// with Snippet set to the addressed slice. Offsets count runes. Records with
// an out-of-range interval keep their text but lose the interval.
func WithSpans(text string, records []domain.Extraction) []domain.Extraction {
	out := domain.CloneExtractions(records)
	if out == nil {
		return nil
	}
	runes := []rune(text)
	if !utf8.ValidString(text) {
		runes = []rune(strings.ToValidUTF8(text, "�"))
	}
	for i := range out {
		e := &out[i]
		if !e.HasInterval() {
			continue
		}
		if *e.Start < 0 || *e.End > len(runes) || *e.End < *e.Start {
			e.Start, e.End, e.Snippet = nil, nil, ""
			continue
		}
		e.Snippet = string(runes[*e.Start:*e.End])
	}
	return out
}
