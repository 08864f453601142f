package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job cannot be found by ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidState is returned when an action is not valid for the job's current status,
	// e.g. cancelling a job that already finished.
	ErrInvalidState = errors.New("action not valid for current job status")

	// ErrResultNotReady is returned when a result is requested before the job completed.
	ErrResultNotReady = fmt.Errorf("result not available yet: %w", ErrInvalidState)

	// ErrUnavailable is returned on transient network or backend failures.
	ErrUnavailable = errors.New("job service is currently unavailable")

	// ErrValidation is returned for malformed user input.
	ErrValidation = errors.New("validation failed")

	// ErrPayloadTooLarge is returned when an uploaded file exceeds the size limit.
	ErrPayloadTooLarge = fmt.Errorf("%w: payload exceeds maximum size (10MB)", ErrValidation)

	// ErrPublishFailed is returned when the message broker publish fails.
	ErrPublishFailed = errors.New("failed to publish job to message queue")
)

// ValidationError wraps ErrValidation with the offending field.
func ValidationError(field, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, reason)
}
