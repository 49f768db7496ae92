package autoscaler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/vision-gateway/internal/events"
	"github.com/phrazzld/vision-gateway/internal/queue"
	"github.com/phrazzld/vision-gateway/internal/redact"
)

// DefaultInterval is the sampling interval of the original control loop
const DefaultInterval = 20 * time.Second

// Controller applies a Policy to a Fleet on a fixed interval
type Controller struct {
	depth    queue.DepthReporter
	fleet    Fleet
	policy   *Policy
	interval time.Duration
	emitter  events.EventEmitter
	logger   *slog.Logger
}

// NewController creates a Controller. A nil emitter disables fleet events; a
// non-positive interval uses DefaultInterval.
func NewController(
	depth queue.DepthReporter,
	fleet Fleet,
	policy *Policy,
	interval time.Duration,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (*Controller, error) {
	if depth == nil {
		return nil, errors.New("depth source cannot be nil")
	}
	if fleet == nil {
		return nil, errors.New("fleet cannot be nil")
	}
	if policy == nil {
		return nil, errors.New("policy cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		depth:    depth,
		fleet:    fleet,
		policy:   policy,
		interval: interval,
		emitter:  emitter,
		logger:   logger.With("component", "autoscaler"),
	}, nil
}

// Run ticks immediately and then once per interval until ctx is done. Tick
// errors are logged and never end the loop.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("autoscaler started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if _, err := c.Tick(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("autoscaler tick failed", "error", redact.Error(err))
		}

		select {
		case <-ctx.Done():
			c.logger.Info("autoscaler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick samples queue depth and fleet size once and applies the resulting
// decision. The returned decision is the one evaluated, even when applying it
// failed.
func (c *Controller) Tick(ctx context.Context) (Decision, error) {
	q, err := c.depth.ApproximateDepth(ctx)
	if err != nil {
		return Decision{Action: ActionNone}, fmt.Errorf("failed to read queue depth: %w", err)
	}

	instances, err := c.fleet.ListRunning(ctx)
	if err != nil {
		return Decision{Action: ActionNone}, fmt.Errorf("failed to list running instances: %w", err)
	}
	n := len(instances)

	decision := c.policy.Evaluate(q, n)
	log := c.logger.With("queue_depth", q, "instances", n, "action", decision.Action)

	payload := events.FleetPayload{
		Action:     decision.Action.String(),
		Delta:      decision.Delta,
		QueueDepth: q,
		Instances:  n,
		Reason:     decision.Reason,
	}

	switch decision.Action {
	case ActionScaleUp:
		inst, launchErr := c.fleet.LaunchOne(ctx)
		if launchErr != nil {
			err = fmt.Errorf("failed to launch instance: %w", launchErr)
			break
		}
		payload.InstanceID = inst.ID
		log.Info("launched instance", "instance_id", inst.ID, "reason", decision.Reason)

	case ActionScaleDown:
		victim := instances[0].ID
		payload.InstanceID = victim
		if termErr := c.fleet.TerminateOne(ctx, victim); termErr != nil {
			err = fmt.Errorf("failed to terminate instance %s: %w", victim, termErr)
			break
		}
		log.Info("terminated instance", "instance_id", victim, "reason", decision.Reason)

	default:
		log.Debug("no scaling action")
		return decision, nil
	}

	if err != nil {
		payload.Error = err.Error()
	}
	if emitErr := events.Emit(ctx, c.emitter, events.EventFleetScaled, payload); emitErr != nil {
		log.Warn("failed to emit fleet event", "error", emitErr)
	}

	return decision, err
}
