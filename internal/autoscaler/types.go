package autoscaler

import (
	"context"
	"errors"

	"github.com/phrazzld/vision-gateway/internal/domain"
)

// ErrInstanceNotFound is returned by TerminateOne for unknown instance IDs.
var ErrInstanceNotFound = errors.New("instance not found")

// Action represents a scaling decision action.
type Action string

const (
	// ActionScaleUp indicates one instance should be launched.
	ActionScaleUp Action = "scale_up"

	// ActionScaleDown indicates one instance should be terminated.
	ActionScaleDown Action = "scale_down"

	// ActionNone indicates no change is needed.
	ActionNone Action = "none"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// Decision is the result of evaluating the policy against one sample.
type Decision struct {
	// Action is the recommended scaling action.
	Action Action

	// Delta is +1, -1 or 0.
	Delta int

	// Reason is a human-readable explanation of the decision.
	Reason string
}

// Fleet is the set of worker instances the controller manages
type Fleet interface {
	// ListRunning returns the instances currently running
	ListRunning(ctx context.Context) ([]domain.WorkerInstance, error)

	// LaunchOne starts one new instance
	LaunchOne(ctx context.Context) (domain.WorkerInstance, error)

	// TerminateOne stops the instance with the given ID
	TerminateOne(ctx context.Context, id string) error
}
