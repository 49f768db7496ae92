package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/vision-gateway/internal/blob"
	"github.com/phrazzld/vision-gateway/internal/domain"
	"github.com/phrazzld/vision-gateway/internal/events"
	"github.com/phrazzld/vision-gateway/internal/queue"
)

// ResultWaiter resolves job IDs to their completed results
type ResultWaiter interface {
	// Await blocks until the job's result is consumed or ctx is done
	Await(ctx context.Context, jobID string) (*domain.ResultRecord, error)
}

// ClassificationService bridges a synchronous submission to the asynchronous
// worker pipeline.
type ClassificationService interface {
	// Submit stores the input, enqueues a job and blocks until its result is
	// available, returning "{jobID}: {result}"
	Submit(ctx context.Context, filename string, data []byte) (string, error)
}

// ClassificationServiceConfig holds the service's tunables
type ClassificationServiceConfig struct {
	// ResultTimeout bounds how long Submit waits for a result.
	// Zero means wait until the caller's context is done.
	ResultTimeout time.Duration
}

type classificationServiceImpl struct {
	inputs       blob.Store
	requests     queue.Queue
	results      ResultWaiter
	eventEmitter events.EventEmitter
	config       ClassificationServiceConfig
	logger       *slog.Logger
}

// NewClassificationService creates a ClassificationService.
// It returns an error if any of the required dependencies are nil.
func NewClassificationService(
	inputs blob.Store,
	requests queue.Queue,
	results ResultWaiter,
	eventEmitter events.EventEmitter,
	config ClassificationServiceConfig,
	logger *slog.Logger,
) (ClassificationService, error) {
	if inputs == nil {
		return nil, errors.New("inputs cannot be nil")
	}
	if requests == nil {
		return nil, errors.New("requests cannot be nil")
	}
	if results == nil {
		return nil, errors.New("results cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &classificationServiceImpl{
		inputs:       inputs,
		requests:     requests,
		results:      results,
		eventEmitter: eventEmitter,
		config:       config,
		logger:       logger.With("component", "classification_service"),
	}, nil
}

// Submit runs the gateway sequence: store, enqueue, wait.
func (s *classificationServiceImpl) Submit(ctx context.Context, filename string, data []byte) (string, error) {
	// 1. Derive the job from the filename
	job, err := domain.NewJobFromFilename(filename)
	if err != nil {
		return "", err
	}
	log := s.logger.With("job_id", job.ID, "blob_key", job.BlobKey)
	log.Info("received file", "size_bytes", len(data))

	// 2. Store the input under its original name
	if err := s.inputs.Put(ctx, job.BlobKey, data); err != nil {
		log.Error("failed to store input", "error", err)
		return "", newServiceError("store_input", job.ID, ErrStoreFailed, err)
	}
	log.Debug("stored input")

	// 3. Enqueue the job
	body, err := domain.EncodeRequest(job.ID)
	if err != nil {
		return "", newServiceError("enqueue_job", job.ID, ErrEnqueueFailed, err)
	}
	if err := s.requests.Send(ctx, body); err != nil {
		log.Error("failed to enqueue job", "error", err)
		return "", newServiceError("enqueue_job", job.ID, ErrEnqueueFailed, err)
	}
	log.Debug("enqueued job")

	s.emit(ctx, events.EventJobSubmitted, events.JobPayload{JobID: job.ID, BlobKey: job.BlobKey})

	// 4. Wait for the correlated result
	waitCtx := ctx
	if s.config.ResultTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.config.ResultTimeout)
		defer cancel()
	}

	started := time.Now()
	record, err := s.results.Await(waitCtx, job.ID)
	if err != nil {
		log.Warn("stopped waiting for result",
			"waited", time.Since(started),
			"error", err)
		return "", newServiceError("await_result", job.ID, nil, err)
	}

	log.Info("result received", "waited", time.Since(started))
	s.emit(ctx, events.EventJobCompleted, events.JobPayload{JobID: job.ID, Result: record.Payload})

	return record.String(), nil
}

// emit publishes a best-effort event; failures are logged only.
func (s *classificationServiceImpl) emit(ctx context.Context, eventType string, payload events.JobPayload) {
	if err := events.Emit(ctx, s.eventEmitter, eventType, payload); err != nil {
		s.logger.Warn("failed to emit event",
			"event_type", eventType,
			"job_id", payload.JobID,
			"error", err)
	}
}
