package provider

import (
	"context"
	"errors"
	"fmt"
)

// FailureMessage is the only text a caller ever sees for a failed request.
const FailureMessage = "Failed to generate market data. Please try again."

// Failure reasons carried by GenerationError for logs and metrics.
const (
	ReasonInvalidStructure = "Invalid data structure"
	ReasonTransport        = "request failed"
	ReasonTimeout          = "request timed out"
	ReasonRateLimited      = "upstream rate limited"
	ReasonCanceled         = "request canceled"
	ReasonMalformed        = "malformed response"
	ReasonValidation       = "response failed validation"
)

// ErrInvalidStructure is wrapped when the top-level routes or kpis fields are
// absent from a parsed response.
var ErrInvalidStructure = errors.New("invalid data structure")

// GenerationError is returned for every provider failure. Error() is the
// uniform user-facing message; the cause is kept for logging via Unwrap.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	return FailureMessage
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Detail describes the failure for logs. It must not be sent to clients.
func (e *GenerationError) Detail() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func newGenerationError(reason string, err error) *GenerationError {
	return &GenerationError{Reason: reason, Err: err}
}

// newCanceledError keeps context.Canceled reachable through Unwrap even when
// the client library reports cancellation with its own error.
func newCanceledError(err error) *GenerationError {
	if !errors.Is(err, context.Canceled) {
		err = fmt.Errorf("%w: %v", context.Canceled, err)
	}
	return newGenerationError(ReasonCanceled, err)
}

// IsGenerationError reports whether err is, or wraps, a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}
