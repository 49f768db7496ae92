package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventHandler records the events it receives
type MockEventHandler struct {
	mu       sync.Mutex
	events   []*Event
	HandleFn func(ctx context.Context, event *Event) error
}

func (h *MockEventHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	if h.HandleFn != nil {
		return h.HandleFn(ctx, event)
	}
	return nil
}

func (h *MockEventHandler) Received() []*Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Event, len(h.events))
	copy(out, h.events)
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent(t *testing.T) {
	t.Parallel()

	event, err := NewEvent(EventJobSubmitted, JobPayload{JobID: "cat", BlobKey: "cat.jpg"})
	require.NoError(t, err)
	assert.Equal(t, EventJobSubmitted, event.Type)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())

	var payload JobPayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, "cat", payload.JobID)
	assert.Equal(t, "cat.jpg", payload.BlobKey)
}

func TestInMemoryEventEmitter_DispatchesToAllHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(testLogger())
	failing := &MockEventHandler{HandleFn: func(ctx context.Context, event *Event) error {
		return errors.New("handler failed")
	}}
	ok := &MockEventHandler{}
	emitter.RegisterHandler(failing)
	emitter.RegisterHandler(ok)
	emitter.RegisterHandler(NewLogHandler(testLogger()))

	err := Emit(context.Background(), emitter, EventFleetScaled, FleetPayload{Action: "scale_up", Delta: 1})
	assert.EqualError(t, err, "handler failed")

	require.Len(t, failing.Received(), 1)
	require.Len(t, ok.Received(), 1, "later handlers still run after a failure")

	var payload FleetPayload
	require.NoError(t, ok.Received()[0].UnmarshalPayload(&payload))
	assert.Equal(t, "scale_up", payload.Action)
	assert.Equal(t, 1, payload.Delta)
}

func TestEmit_NilEmitter(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Emit(context.Background(), nil, EventJobCompleted, JobPayload{JobID: "cat"}))
}

func TestInMemoryEventEmitter_NoHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(testLogger())
	assert.NoError(t, Emit(context.Background(), emitter, EventJobCompleted, JobPayload{JobID: "cat"}))
}

func TestInMemoryEventEmitter_FiltersByType(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(testLogger())
	jobs := &MockEventHandler{}
	all := &MockEventHandler{}
	emitter.RegisterHandler(jobs, EventJobSubmitted, EventJobCompleted)
	emitter.RegisterHandler(all)

	ctx := context.Background()
	require.NoError(t, Emit(ctx, emitter, EventJobSubmitted, JobPayload{JobID: "cat"}))
	require.NoError(t, Emit(ctx, emitter, EventFleetScaled, FleetPayload{Action: "scale_up"}))

	require.Len(t, jobs.Received(), 1)
	assert.Equal(t, EventJobSubmitted, jobs.Received()[0].Type)
	assert.Len(t, all.Received(), 2)
}

func TestInMemoryEventEmitter_JoinsHandlerErrors(t *testing.T) {
	t.Parallel()

	errFirst := errors.New("first")
	errSecond := errors.New("second")

	emitter := NewInMemoryEventEmitter(testLogger())
	emitter.RegisterHandler(&MockEventHandler{HandleFn: func(context.Context, *Event) error { return errFirst }})
	emitter.RegisterHandler(&MockEventHandler{HandleFn: func(context.Context, *Event) error { return errSecond }})

	err := Emit(context.Background(), emitter, EventJobCompleted, JobPayload{JobID: "cat"})
	assert.ErrorIs(t, err, errFirst)
	assert.ErrorIs(t, err, errSecond)
}
