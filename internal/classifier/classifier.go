package classifier

import (
	"context"
	"errors"
)

// Common errors returned by classifiers
var (
	// ErrEmptyPath is returned when Classify is called without an input path.
	ErrEmptyPath = errors.New("input path cannot be empty")

	// ErrEmptyCommand is returned when an ExecClassifier has no program to run.
	ErrEmptyCommand = errors.New("classifier command cannot be empty")
)

// Classifier turns an input file into a textual result
type Classifier interface {
	// Classify runs the classification for the file at path. The returned
	// string is opaque to callers.
	Classify(ctx context.Context, path string) (string, error)
}

// Func adapts an ordinary function to the Classifier interface.
type Func func(ctx context.Context, path string) (string, error)

// Classify calls f(ctx, path).
func (f Func) Classify(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}
