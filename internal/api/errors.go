package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/phrazzld/vision-gateway/internal/domain"
	"github.com/phrazzld/vision-gateway/internal/service"
)

// StatusClientClosedRequest is logged when the client went away before its
// result arrived. Nothing useful can be written back at that point.
const StatusClientClosedRequest = 499

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingFile),
		errors.Is(err, domain.ErrEmptyJobID),
		errors.Is(err, domain.ErrInvalidJobID):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrStoreFailed),
		errors.Is(err, service.ErrEnqueueFailed):
		return http.StatusInternalServerError

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, domain.ErrMissingFile):
		return "No selected file"
	case errors.Is(err, domain.ErrEmptyJobID), errors.Is(err, domain.ErrInvalidJobID):
		return "Invalid file name"
	case errors.Is(err, service.ErrStoreFailed):
		return "Failed to store file"
	case errors.Is(err, service.ErrEnqueueFailed):
		return "Failed to enqueue job"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timed out waiting for result"
	case errors.Is(err, context.Canceled):
		return "Request cancelled"
	default:
		return "An unexpected error occurred"
	}
}
