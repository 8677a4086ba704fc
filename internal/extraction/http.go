package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/clinicalextract/internal/domain"
)

var (
	// ErrServiceStatus indicates the extraction service answered with a non-2xx status.
	ErrServiceStatus = errors.New("extraction service returned an error status")

	// ErrMalformedResponse indicates a 2xx answer whose body is not a record
	// collection, or one cut off at the response size limit.
	ErrMalformedResponse = errors.New("malformed extraction service response")
)

// StatusError is returned for a non-2xx answer. It unwraps to ErrServiceStatus.
type StatusError struct {
	StatusCode int
	Body       string
	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrServiceStatus, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrServiceStatus }

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// HTTPConfig configures an HTTPExtractor.
type HTTPConfig struct {
	Endpoint          string        `json:"endpoint" validate:"required,url"`
	APIKey            string        `json:"-"`
	RequestsPerSecond float64       `json:"requests_per_second" validate:"gt=0"`
	Burst             int           `json:"burst" validate:"min=1"`
	Timeout           time.Duration `json:"timeout" validate:"min=0"`
	Headers           map[string]string
}

// HTTPExtractor calls a remote extraction service. Requests are paced by a
// token bucket so a whole corpus can be submitted without tripping provider
// quotas.
type HTTPExtractor struct {
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewHTTPExtractor validates cfg and builds the client. A nil httpClient gets
// one with cfg.Timeout; a nil logger falls back to slog.Default().
func NewHTTPExtractor(cfg HTTPConfig, httpClient *http.Client, logger *slog.Logger) (*HTTPExtractor, error) {
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSec
	}
	if cfg.Burst == 0 {
		cfg.Burst = DefaultRequestBurst
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid extraction service config: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPExtractor{
		cfg:     cfg,
		client:  httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger,
	}, nil
}

type extractRequest struct {
	Text    string  `json:"text"`
	Options Options `json:"options"`
}

// Extract sends text to the service and returns the decoded records with
// snippets filled from their char intervals.
func (h *HTTPExtractor) Extract(ctx context.Context, text string, opts Options) ([]domain.Extraction, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extraction options: %w", err)
	}
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	httpReq, err := h.build(ctx, text, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call extraction service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       snippetOf(body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedResponse, maxResponseBytes)
	}
	decoded, err := decodeResponse(body)
	if err != nil {
		return nil, err
	}
	records := WithSpans(text, decoded)
	h.logger.Debug("extraction completed",
		"records", len(records),
		"model_id", opts.ModelID,
		"duration", time.Since(start))
	for _, class := range domain.Classes(records) {
		if !KnownClass(class) {
			h.logger.Warn("extraction service returned unknown class", "class", class)
		}
	}
	return records, nil
}

func (h *HTTPExtractor) build(ctx context.Context, text string, opts Options) (*http.Request, error) {
	body, err := json.Marshal(extractRequest{Text: text, Options: opts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if h.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	}
	for k, v := range h.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

type extractResponse struct {
	Extractions *[]domain.Extraction `json:"extractions"`
}

// decodeResponse accepts a bare record array or an object with an
// "extractions" array. Unlike record files, anything else is an error so a
// broken answer never becomes an empty prediction set.
func decodeResponse(body []byte) ([]domain.Extraction, error) {
	trimmed := bytes.TrimSpace(body)
	var records []domain.Extraction
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	} else {
		var wrapped extractResponse
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %w (body %q)", ErrMalformedResponse, err, snippetOf(body))
		}
		if wrapped.Extractions == nil {
			return nil, fmt.Errorf("%w: missing extractions array", ErrMalformedResponse)
		}
		records = *wrapped.Extractions
	}
	if records == nil {
		records = []domain.Extraction{}
	}

	for i := range records {
		if records[i].Validate() != nil {
			records[i].Start, records[i].End = nil, nil
		}
	}
	return records, nil
}

func snippetOf(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// parseRetryAfter reads the delay-seconds form of Retry-After.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
