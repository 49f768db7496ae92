package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrMissingFile is returned when a submission carries no file or an
	// empty filename. The API layer maps it to 400 Bad Request.
	ErrMissingFile = errors.New("no file submitted")

	// ErrInvalidMessage is returned when a queue message body cannot be decoded.
	ErrInvalidMessage = errors.New("invalid queue message")
)
