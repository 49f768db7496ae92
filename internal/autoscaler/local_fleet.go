package autoscaler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/vision-gateway/internal/domain"
)

// RunFunc is the body of one local instance. It should return when ctx is
// done.
type RunFunc func(ctx context.Context) error

type localInstance struct {
	instance domain.WorkerInstance
	cancel   context.CancelFunc
}

// LocalFleet runs each instance as a goroutine executing RunFunc. It is used
// with the in-memory queue for local development and tests.
type LocalFleet struct {
	mu        sync.Mutex
	base      context.Context
	stop      context.CancelFunc
	run       RunFunc
	tag       string
	instances map[string]*localInstance
	order     []string
	wg        sync.WaitGroup
	logger    *slog.Logger
}

// NewLocalFleet creates an empty LocalFleet. Instances run until terminated,
// until their RunFunc returns, or until Close is called.
func NewLocalFleet(run RunFunc, tag string, logger *slog.Logger) *LocalFleet {
	if tag == "" {
		tag = domain.DefaultInstanceTag
	}
	if logger == nil {
		logger = slog.Default()
	}
	base, stop := context.WithCancel(context.Background())

	return &LocalFleet{
		base:      base,
		stop:      stop,
		run:       run,
		tag:       tag,
		instances: make(map[string]*localInstance),
		logger:    logger.With("component", "local_fleet"),
	}
}

// ListRunning returns running instances in launch order.
func (f *LocalFleet) ListRunning(ctx context.Context) ([]domain.WorkerInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.WorkerInstance, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.instances[id].instance)
	}
	return out, nil
}

// LaunchOne starts a new instance goroutine.
func (f *LocalFleet) LaunchOne(ctx context.Context) (domain.WorkerInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.base.Err(); err != nil {
		return domain.WorkerInstance{}, fmt.Errorf("fleet is closed: %w", err)
	}

	inst := domain.WorkerInstance{
		ID:    "local-" + uuid.NewString(),
		State: domain.InstanceStateRunning,
		Tag:   f.tag,
	}
	runCtx, cancel := context.WithCancel(f.base)
	f.instances[inst.ID] = &localInstance{instance: inst, cancel: cancel}
	f.order = append(f.order, inst.ID)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer cancel()

		if err := f.run(runCtx); err != nil {
			f.logger.Error("instance exited with error", "instance_id", inst.ID, "error", err)
		}
		f.remove(inst.ID)
	}()

	f.logger.Debug("launched local instance", "instance_id", inst.ID)
	return inst, nil
}

// TerminateOne cancels the instance's context and forgets it. The goroutine
// finishes its current iteration in the background.
func (f *LocalFleet) TerminateOne(ctx context.Context, id string) error {
	f.mu.Lock()
	li, ok := f.instances[id]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}

	li.cancel()
	f.remove(id)
	f.logger.Debug("terminated local instance", "instance_id", id)
	return nil
}

// Close stops every instance and waits for their goroutines to return.
func (f *LocalFleet) Close() {
	f.mu.Lock()
	f.stop()
	f.mu.Unlock()
	f.wg.Wait()
}

func (f *LocalFleet) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.instances[id]; !ok {
		return
	}
	delete(f.instances, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}
