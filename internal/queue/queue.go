package queue

import (
	"context"
	"errors"
	"time"
)

// Common errors returned by Queue implementations
var (
	// ErrMessageNotFound is returned by Delete when the receipt handle does not
	// refer to a message that can still be deleted (already deleted, or
	// superseded by a newer delivery).
	ErrMessageNotFound = errors.New("message not found or already deleted")

	// ErrEmptyBody is returned by Send when the message body is empty.
	ErrEmptyBody = errors.New("message body cannot be empty")
)

// Message is one delivery of a queued message.
type Message struct {
	// ID identifies the message across deliveries
	ID string

	// Body is the raw message payload
	Body string

	// ReceiptHandle is the per-delivery token required to delete the message
	ReceiptHandle string
}

// Queue is a logical message queue with visibility-timeout semantics.
type Queue interface {
	// Send enqueues a message body
	Send(ctx context.Context, body string) error

	// Receive returns up to max messages, waiting at most wait for at least one
	// to become available. An empty result with a nil error means the wait
	// elapsed without a delivery.
	Receive(ctx context.Context, max int, wait time.Duration) ([]Message, error)

	// Delete acknowledges a delivery. Implementations return an error wrapping
	// ErrMessageNotFound for handles that can no longer be deleted.
	Delete(ctx context.Context, receiptHandle string) error
}

// DepthReporter reports the approximate number of visible messages.
type DepthReporter interface {
	ApproximateDepth(ctx context.Context) (int, error)
}

// IgnoreNotFound returns nil for ErrMessageNotFound and err otherwise.
// Deleting an already-deleted message is a successful acknowledgement.
func IgnoreNotFound(err error) error {
	if errors.Is(err, ErrMessageNotFound) {
		return nil
	}
	return err
}
