package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/clinicalextract/internal/domain"
)

var (
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("extraction circuit breaker is open")

	errRetriesExhausted = errors.New("all retries exhausted")
)

// Middleware wraps an Extractor with additional behavior.
type Middleware func(Extractor) Extractor

// Chain applies mws to ex. The first middleware is the outermost.
func Chain(ex Extractor, mws ...Middleware) Extractor {
	for i := len(mws) - 1; i >= 0; i-- {
		ex = mws[i](ex)
	}
	return ex
}

// Resilient wraps ex with retries around a circuit breaker. Every attempt
// counts against the breaker; once it opens the remaining retries stop.
func Resilient(ex Extractor, retry RetryConfig, breaker BreakerConfig, logger *slog.Logger) (Extractor, error) {
	withRetry, err := WithRetry(retry, logger)
	if err != nil {
		return nil, err
	}
	cb, err := NewCircuitBreaker(breaker, logger)
	if err != nil {
		return nil, err
	}
	return Chain(ex, withRetry, cb.Middleware()), nil
}

// RetryConfig controls WithRetry.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts" json:"max_attempts" validate:"min=1"`
	InitialInterval time.Duration `koanf:"initial_interval" json:"initial_interval" validate:"gt=0"`
	MaxInterval     time.Duration `koanf:"max_interval" json:"max_interval" validate:"gtefield=InitialInterval"`
	Multiplier      float64       `koanf:"multiplier" json:"multiplier" validate:"gte=1"`
}

// DefaultRetryConfig returns three attempts with 500ms..10s backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
	}
}

// WithRetry retries transient failures with exponential backoff and full
// jitter. A server Retry-After hint replaces the computed delay when longer.
func WithRetry(cfg RetryConfig, logger *slog.Logger) (Middleware, error) {
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "retry")

	return func(next Extractor) Extractor {
		return ExtractorFunc(func(ctx context.Context, text string, opts Options) ([]domain.Extraction, error) {
			var lastErr error
			for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
				records, err := next.Extract(ctx, text, opts)
				if err == nil {
					if attempt > 1 {
						logger.Info("extraction succeeded after retry", "attempt", attempt)
					}
					return records, nil
				}
				if !IsRetryable(err) || ctx.Err() != nil {
					return nil, err
				}
				lastErr = err
				if attempt == cfg.MaxAttempts {
					break
				}

				backoff := cfg.backoff(attempt, err)
				logger.Debug("retrying after backoff", "attempt", attempt, "backoff", backoff, "error", err)
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return nil, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
				}
			}
			return nil, fmt.Errorf("%w after %d attempts: %w", errRetriesExhausted, cfg.MaxAttempts, lastErr)
		})
	}, nil
}

func (c RetryConfig) backoff(attempt int, err error) time.Duration {
	ceiling := float64(c.InitialInterval)
	for i := 1; i < attempt; i++ {
		ceiling *= c.Multiplier
	}
	ceiling = min(ceiling, float64(c.MaxInterval))
	//nolint:gosec // jitter does not need a cryptographic source
	d := time.Duration(rand.Int63n(int64(ceiling) + 1))

	var se *StatusError
	if errors.As(err, &se) && se.RetryAfter > d {
		d = min(se.RetryAfter, c.MaxInterval)
	}
	return d
}

// IsRetryable classifies extraction errors. Retryable statuses, network
// failures and deadline overruns are transient; input and option errors,
// an open breaker and cancellation are not.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrEmptyText), errors.Is(err, ErrCircuitOpen), errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return isNetworkError(err)
}

func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var netErr net.Error
		if errors.As(urlErr.Err, &netErr) && netErr.Timeout() {
			return true
		}
	}

	lowered := strings.ToLower(err.Error())
	for _, indicator := range []string{"connection refused", "connection reset", "broken pipe", "i/o timeout", "eof"} {
		if strings.Contains(lowered, indicator) {
			return true
		}
	}
	return false
}

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	// StateClosed allows requests through.
	StateClosed CircuitState = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen lets a single trial call through.
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls a CircuitBreaker.
type BreakerConfig struct {
	// FailureThreshold consecutive transient failures open the circuit.
	FailureThreshold int `koanf:"failure_threshold" json:"failure_threshold" validate:"min=1"`
	// SuccessThreshold successful trial calls close it again.
	SuccessThreshold int `koanf:"success_threshold" json:"success_threshold" validate:"min=1"`
	// OpenTimeout is how long the circuit stays open before allowing a trial call.
	OpenTimeout time.Duration `koanf:"open_timeout" json:"open_timeout" validate:"gt=0"`
}

// DefaultBreakerConfig opens after five failures for thirty seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, SuccessThreshold: 1, OpenTimeout: 30 * time.Second}
}

// CircuitBreaker stops calling a failing extraction service until it has
// had time to recover. Only transient failures count against it.
type CircuitBreaker struct {
	cfg    BreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu            sync.Mutex
	state         CircuitState
	failures      int
	successes     int
	openedAt      time.Time
	trialInFlight bool
}

// NewCircuitBreaker validates cfg and returns a closed breaker.
func NewCircuitBreaker(cfg BreakerConfig, logger *slog.Logger) (*CircuitBreaker, error) {
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid circuit breaker config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{cfg: cfg, logger: logger.With("component", "circuit_breaker"), now: time.Now}, nil
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Middleware returns the breaker as an extractor middleware.
func (cb *CircuitBreaker) Middleware() Middleware {
	return func(next Extractor) Extractor {
		return ExtractorFunc(func(ctx context.Context, text string, opts Options) ([]domain.Extraction, error) {
			if err := cb.allow(); err != nil {
				return nil, err
			}
			records, err := next.Extract(ctx, text, opts)
			cb.record(err)
			return records, err
		})
	}
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.OpenTimeout {
			return ErrCircuitOpen
		}
		cb.transitionTo(StateHalfOpen)
		cb.trialInFlight = true
		return nil
	case StateHalfOpen:
		if cb.trialInFlight {
			return ErrCircuitOpen
		}
		cb.trialInFlight = true
		return nil
	default:
		return nil
	}
}

// record applies the outcome of a call. Only nil counts as success and only
// transient errors count as failures; anything else, such as a canceled
// call, releases a trial slot without changing state.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	succeeded := err == nil
	failed := !succeeded && IsRetryable(err)
	switch cb.state {
	case StateClosed:
		switch {
		case succeeded:
			cb.failures = 0
		case failed:
			cb.failures++
			if cb.failures >= cb.cfg.FailureThreshold {
				cb.transitionTo(StateOpen)
			}
		}
	case StateHalfOpen:
		cb.trialInFlight = false
		switch {
		case succeeded:
			cb.successes++
			if cb.successes >= cb.cfg.SuccessThreshold {
				cb.transitionTo(StateClosed)
			}
		case failed:
			cb.transitionTo(StateOpen)
		}
	case StateOpen:
	}
}

// transitionTo must be called with mu held.
func (cb *CircuitBreaker) transitionTo(next CircuitState) {
	if cb.state == next {
		return
	}
	from := cb.state
	cb.state = next
	cb.failures = 0
	cb.successes = 0
	if next == StateOpen {
		cb.openedAt = cb.now()
		cb.trialInFlight = false
	}
	cb.logger.Info("circuit breaker state transition", "from", from.String(), "to", next.String())
}
