package domain

// InstanceState represents the lifecycle state of a worker instance
type InstanceState string

// Possible worker instance states
const (
	InstanceStatePending     InstanceState = "pending"
	InstanceStateRunning     InstanceState = "running"
	InstanceStateTerminating InstanceState = "terminating"
)

// DefaultInstanceTag is the Name tag carried by every worker instance.
const DefaultInstanceTag = "app-tier-instance"

// WorkerInstance is one member of the worker fleet. Only the autoscaler
// creates or destroys instances; workers never register themselves.
type WorkerInstance struct {
	ID    string        `json:"id"`
	State InstanceState `json:"state"`
	Tag   string        `json:"tag"`
}

// IsRunning reports whether the instance counts toward the fleet size.
func (w WorkerInstance) IsRunning() bool {
	return w.State == InstanceStateRunning
}
