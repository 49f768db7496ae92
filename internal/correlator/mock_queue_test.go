package correlator

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/vision-gateway/internal/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// MockQueue wraps a MemoryQueue and lets tests intercept calls
type MockQueue struct {
	*queue.MemoryQueue

	mu        sync.Mutex
	ReceiveFn func(ctx context.Context, max int, wait time.Duration) ([]queue.Message, error)
	DeleteFn  func(ctx context.Context, receiptHandle string) error
	deletes   int
}

func NewMockQueue() *MockQueue {
	return &MockQueue{MemoryQueue: queue.NewMemoryQueue("responses", time.Minute, testLogger())}
}

func (m *MockQueue) Receive(ctx context.Context, max int, wait time.Duration) ([]queue.Message, error) {
	m.mu.Lock()
	fn := m.ReceiveFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, max, wait)
	}
	return m.MemoryQueue.Receive(ctx, max, wait)
}

func (m *MockQueue) Delete(ctx context.Context, receiptHandle string) error {
	m.mu.Lock()
	m.deletes++
	fn := m.DeleteFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, receiptHandle)
	}
	return m.MemoryQueue.Delete(ctx, receiptHandle)
}

func (m *MockQueue) DeleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes
}
