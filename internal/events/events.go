package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the gateway and the autoscaler
const (
	// EventJobSubmitted is emitted once a job's input is stored and its request enqueued
	EventJobSubmitted = "job.submitted"

	// EventJobCompleted is emitted when a waiting request consumes its result
	EventJobCompleted = "job.completed"

	// EventFleetScaled is emitted for every launch or terminate decision the
	// autoscaler acts on, successful or not
	EventFleetScaled = "fleet.scaled"
)

// Event is a notification about something that happened in the pipeline.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Event* constants
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// JobPayload is the payload of job.* events.
type JobPayload struct {
	JobID   string `json:"job_id"`
	BlobKey string `json:"blob_key,omitempty"`
	Result  string `json:"result,omitempty"`
}

// FleetPayload is the payload of fleet.scaled events.
type FleetPayload struct {
	Action     string `json:"action"`
	Delta      int    `json:"delta"`
	QueueDepth int    `json:"queue_depth"`
	Instances  int    `json:"instances"`
	InstanceID string `json:"instance_id,omitempty"`
	Reason     string `json:"reason"`
	Error      string `json:"error,omitempty"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler processes events delivered by an EventEmitter.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter publishes events to registered handlers without the publisher
// knowing who they are.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}

// Emit builds an event of eventType and publishes it. A nil emitter is a no-op.
func Emit(ctx context.Context, emitter EventEmitter, eventType string, payload interface{}) error {
	if emitter == nil {
		return nil
	}
	event, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	return emitter.EmitEvent(ctx, event)
}
