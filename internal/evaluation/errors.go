package evaluation

import (
	"errors"

	"go.temporal.io/sdk/temporal"
)

// Activity errors.
var (
	// ErrNoStore is returned when a report must be persisted but the
	// activities were built without a report store.
	ErrNoStore = errors.New("report store not configured")
)

// Application error types reported to the workflow. They classify failures
// for retry decisions and appear as ApplicationError.Type().
const (
	// ErrorValidation marks malformed activity input; never retried.
	ErrorValidation = "validation"

	// ErrorStore marks report store failures; retried with backoff.
	ErrorStore = "store"

	// ErrorConfiguration marks a worker wiring problem; never retried.
	ErrorConfiguration = "configuration"
)

func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationErrorWithCause(msg, tag, cause)
}
