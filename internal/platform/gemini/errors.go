package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrInvalidConfig indicates the classifier was configured incorrectly.
	ErrInvalidConfig = errors.New("invalid gemini configuration")

	// ErrInvalidResponse indicates the API returned no usable text.
	ErrInvalidResponse = errors.New("invalid response from gemini")

	// ErrContentBlocked indicates the input was rejected by safety filters.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrTransientFailure indicates retries were exhausted on transient errors.
	ErrTransientFailure = errors.New("transient gemini failure")
)
