package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// Callers use errors.Is to check for them; the API layer maps them to HTTP
// status codes.
var (
	// ErrStoreFailed indicates the uploaded input could not be stored.
	// API layer should map this to HTTP 500 Internal Server Error.
	ErrStoreFailed = errors.New("failed to store input")

	// ErrEnqueueFailed indicates the job request could not be enqueued.
	// API layer should map this to HTTP 500 Internal Server Error.
	ErrEnqueueFailed = errors.New("failed to enqueue job")
)

// ServiceError wraps errors from the classification service with context.
type ServiceError struct {
	// Operation is the step that failed (e.g., "store_input", "enqueue_job")
	Operation string
	// JobID is the job being processed, when known
	JobID string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("classification %s failed for job %s: %v", e.Operation, e.JobID, e.Err)
	}
	return fmt.Sprintf("classification %s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// newServiceError wraps cause under the given sentinel, keeping both visible
// to errors.Is. A nil sentinel wraps cause alone.
func newServiceError(operation, jobID string, sentinel, cause error) error {
	err := cause
	if sentinel != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &ServiceError{
		Operation: operation,
		JobID:     jobID,
		Err:       err,
	}
}
