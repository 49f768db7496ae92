package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultVisibilityTimeout is used when a MemoryQueue is created without one.
const DefaultVisibilityTimeout = 30 * time.Second

// memoryMessage tracks a single message and its current lease
type memoryMessage struct {
	id            string
	body          string
	visibleAt     time.Time
	receiptHandle string
	receiveCount  int
}

// MemoryQueue is an in-process Queue. Received messages are hidden for the
// visibility timeout; each delivery gets a new receipt handle and only the most
// recent handle can delete the message.
type MemoryQueue struct {
	mu                sync.Mutex
	name              string
	messages          []*memoryMessage
	byHandle          map[string]*memoryMessage
	visibilityTimeout time.Duration
	signal            chan struct{}
	logger            *slog.Logger
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue(name string, visibilityTimeout time.Duration, logger *slog.Logger) *MemoryQueue {
	if visibilityTimeout <= 0 {
		visibilityTimeout = DefaultVisibilityTimeout
	}
	return &MemoryQueue{
		name:              name,
		byHandle:          make(map[string]*memoryMessage),
		visibilityTimeout: visibilityTimeout,
		signal:            make(chan struct{}),
		logger:            logger.With("component", "memory_queue", "queue", name),
	}
}

// Send appends a message and wakes any waiting receivers.
func (q *MemoryQueue) Send(ctx context.Context, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if body == "" {
		return ErrEmptyBody
	}

	q.mu.Lock()
	q.messages = append(q.messages, &memoryMessage{
		id:   uuid.NewString(),
		body: body,
	})
	q.wakeLocked()
	depth := len(q.messages)
	q.mu.Unlock()

	q.logger.Debug("message sent", "depth", depth)
	return nil
}

// Receive leases up to max visible messages, long-polling for at most wait.
func (q *MemoryQueue) Receive(ctx context.Context, max int, wait time.Duration) ([]Message, error) {
	if max <= 0 {
		max = 1
	}
	deadline := time.Now().Add(wait)

	for {
		q.mu.Lock()
		msgs, nextVisible := q.leaseLocked(max, time.Now())
		signal := q.signal
		q.mu.Unlock()

		if len(msgs) > 0 {
			return msgs, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		sleep := remaining
		if !nextVisible.IsZero() {
			if d := time.Until(nextVisible); d < sleep {
				sleep = d
			}
		}
		if sleep < time.Millisecond {
			sleep = time.Millisecond
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-signal:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Delete removes the message leased under receiptHandle.
func (q *MemoryQueue) Delete(ctx context.Context, receiptHandle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	msg, ok := q.byHandle[receiptHandle]
	if !ok || msg.receiptHandle != receiptHandle {
		return fmt.Errorf("%w: queue %s", ErrMessageNotFound, q.name)
	}

	delete(q.byHandle, receiptHandle)
	for i, m := range q.messages {
		if m == msg {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			break
		}
	}
	return nil
}

// ApproximateDepth returns the number of currently visible messages.
func (q *MemoryQueue) ApproximateDepth(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	visible := 0
	for _, m := range q.messages {
		if !m.visibleAt.After(now) {
			visible++
		}
	}
	return visible, nil
}

// Len returns the number of undeleted messages, visible or in flight.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// leaseLocked hides up to max visible messages behind fresh receipt handles.
// It also returns the earliest time an in-flight message becomes visible again.
func (q *MemoryQueue) leaseLocked(max int, now time.Time) ([]Message, time.Time) {
	var out []Message
	var nextVisible time.Time

	for _, m := range q.messages {
		if m.visibleAt.After(now) {
			if nextVisible.IsZero() || m.visibleAt.Before(nextVisible) {
				nextVisible = m.visibleAt
			}
			continue
		}
		if len(out) == max {
			continue
		}

		if m.receiptHandle != "" {
			delete(q.byHandle, m.receiptHandle)
		}
		m.receiptHandle = uuid.NewString()
		m.visibleAt = now.Add(q.visibilityTimeout)
		m.receiveCount++
		q.byHandle[m.receiptHandle] = m

		if m.receiveCount > 1 {
			q.logger.Debug("message redelivered",
				"message_id", m.id,
				"receive_count", m.receiveCount)
		}

		out = append(out, Message{
			ID:            m.id,
			Body:          m.body,
			ReceiptHandle: m.receiptHandle,
		})
	}

	return out, nextVisible
}

// wakeLocked releases every receiver blocked in Receive.
func (q *MemoryQueue) wakeLocked() {
	close(q.signal)
	q.signal = make(chan struct{})
}
