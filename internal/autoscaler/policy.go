package autoscaler

import (
	"errors"
	"fmt"
)

// Default policy values, as deployed with the original fleet.
const (
	defaultMinInstances       = 0
	defaultMaxInstances       = 19
	defaultScaleUpThreshold   = 1
	defaultScaleDownThreshold = 1
)

// Option configures a Policy.
type Option func(*Policy)

// WithMinInstances sets the minimum number of instances to keep.
func WithMinInstances(n int) Option {
	return func(p *Policy) { p.minInstances = n }
}

// WithMaxInstances sets the maximum number of instances allowed.
func WithMaxInstances(n int) Option {
	return func(p *Policy) { p.maxInstances = n }
}

// WithScaleUpThreshold sets the queue depth at or above which one instance is
// launched.
func WithScaleUpThreshold(n int) Option {
	return func(p *Policy) { p.scaleUpThreshold = n }
}

// WithScaleDownThreshold sets the queue depth below which one instance is
// terminated.
func WithScaleDownThreshold(n int) Option {
	return func(p *Policy) { p.scaleDownThreshold = n }
}

// Policy is a bang-bang rule over queue depth with fleet bounds. It holds no
// state between evaluations and is safe for concurrent use.
type Policy struct {
	minInstances       int
	maxInstances       int
	scaleUpThreshold   int
	scaleDownThreshold int
}

// NewPolicy creates a Policy with the given options.
// Unset options use defaults.
func NewPolicy(opts ...Option) (*Policy, error) {
	p := &Policy{
		minInstances:       defaultMinInstances,
		maxInstances:       defaultMaxInstances,
		scaleUpThreshold:   defaultScaleUpThreshold,
		scaleDownThreshold: defaultScaleDownThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.minInstances < 0 {
		return nil, errors.New("min instances cannot be negative")
	}
	if p.maxInstances < p.minInstances {
		return nil, fmt.Errorf("max instances (%d) cannot be less than min instances (%d)",
			p.maxInstances, p.minInstances)
	}
	if p.scaleUpThreshold < 0 || p.scaleDownThreshold < 0 {
		return nil, errors.New("thresholds cannot be negative")
	}
	return p, nil
}

// Evaluate returns the decision for queue depth q and running count n.
// Scale-up takes precedence when both rules would fire.
func (p *Policy) Evaluate(q, n int) Decision {
	if q >= p.scaleUpThreshold && n < p.maxInstances {
		return Decision{
			Action: ActionScaleUp,
			Delta:  1,
			Reason: fmt.Sprintf("queue depth %d at or above %d with %d of %d instances",
				q, p.scaleUpThreshold, n, p.maxInstances),
		}
	}

	if q < p.scaleDownThreshold && n > p.minInstances {
		return Decision{
			Action: ActionScaleDown,
			Delta:  -1,
			Reason: fmt.Sprintf("queue depth %d below %d with %d instances above minimum %d",
				q, p.scaleDownThreshold, n, p.minInstances),
		}
	}

	return Decision{
		Action: ActionNone,
		Reason: "no scaling needed",
	}
}
