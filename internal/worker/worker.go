package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/phrazzld/vision-gateway/internal/blob"
	"github.com/phrazzld/vision-gateway/internal/classifier"
	"github.com/phrazzld/vision-gateway/internal/domain"
	"github.com/phrazzld/vision-gateway/internal/queue"
	"github.com/phrazzld/vision-gateway/internal/redact"
	"github.com/sethvargo/go-retry"
)

// Errors returned by ProcessNext
var (
	// ErrClassification wraps failures of the classifier itself.
	ErrClassification = errors.New("classification failed")

	// ErrFetchInput indicates the input referenced by a request could not be
	// read from blob storage.
	ErrFetchInput = errors.New("failed to fetch input")

	// ErrPublishResult indicates the result could not be stored or sent.
	ErrPublishResult = errors.New("failed to publish result")
)

// Config holds configuration for a worker
type Config struct {
	// InputExtension is appended to the job ID to form the input blob key
	InputExtension string

	// WaitTime is the long-poll wait on the request queue
	WaitTime time.Duration

	// IdleDelay is the initial pause after a failed iteration. It doubles
	// while failures persist, up to MaxIdleDelay.
	IdleDelay time.Duration

	// MaxIdleDelay caps the pause between failing iterations
	MaxIdleDelay time.Duration

	// PublishRetries is the number of extra attempts for storing and sending
	// a result before the iteration is abandoned
	PublishRetries uint64

	// TempDir is where inputs are staged for the classifier.
	// Empty means os.TempDir().
	TempDir string
}

// DefaultConfig returns a Config matching the original worker: a 20 second
// long poll, ".jpg" inputs and a one second pause.
func DefaultConfig() Config {
	return Config{
		InputExtension: ".jpg",
		WaitTime:       20 * time.Second,
		IdleDelay:      time.Second,
		MaxIdleDelay:   30 * time.Second,
		PublishRetries: 3,
	}
}

// Worker processes classification requests
type Worker struct {
	requests   queue.Queue
	responses  queue.Queue
	inputs     blob.Store
	outputs    blob.Store
	classifier classifier.Classifier
	config     Config
	logger     *slog.Logger
}

// New creates a Worker. It returns an error if any dependency is nil.
func New(
	requests, responses queue.Queue,
	inputs, outputs blob.Store,
	c classifier.Classifier,
	config Config,
	logger *slog.Logger,
) (*Worker, error) {
	if requests == nil || responses == nil {
		return nil, errors.New("request and response queues cannot be nil")
	}
	if inputs == nil || outputs == nil {
		return nil, errors.New("input and output stores cannot be nil")
	}
	if c == nil {
		return nil, errors.New("classifier cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultConfig()
	if config.InputExtension == "" {
		config.InputExtension = defaults.InputExtension
	}
	if config.WaitTime <= 0 {
		config.WaitTime = defaults.WaitTime
	}
	if config.IdleDelay <= 0 {
		config.IdleDelay = defaults.IdleDelay
	}
	if config.MaxIdleDelay < config.IdleDelay {
		config.MaxIdleDelay = config.IdleDelay
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}

	return &Worker{
		requests:   requests,
		responses:  responses,
		inputs:     inputs,
		outputs:    outputs,
		classifier: c,
		config:     config,
		logger:     logger.With("component", "worker"),
	}, nil
}

// Run processes requests until ctx is done. Failed iterations are logged and
// followed by a growing pause; they never stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started",
		"wait_time", w.config.WaitTime,
		"input_extension", w.config.InputExtension)

	backoff := w.newBackoff()
	for {
		_, err := w.ProcessNext(ctx)
		if ctx.Err() != nil {
			w.logger.Info("worker stopped")
			return nil
		}
		if err == nil {
			backoff = w.newBackoff()
			continue
		}

		delay, _ := backoff.Next()
		w.logger.Error("failed to process request",
			"error", redact.Error(err),
			"retry_in", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.logger.Info("worker stopped")
			return nil
		case <-timer.C:
		}
	}
}

// ProcessNext handles at most one request. It reports whether a request was
// received; the error describes why it was left unacknowledged.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	msgs, err := w.requests.Receive(ctx, 1, w.config.WaitTime)
	if err != nil {
		return false, fmt.Errorf("failed to receive request: %w", err)
	}
	if len(msgs) == 0 {
		return false, nil
	}
	msg := msgs[0]

	jobID, err := domain.DecodeRequest(msg.Body)
	if err != nil {
		return true, fmt.Errorf("message %s: %w", msg.ID, err)
	}

	log := w.logger.With("job_id", jobID, "message_id", msg.ID)
	log.Info("processing request")
	started := time.Now()

	if err := w.process(ctx, jobID); err != nil {
		return true, fmt.Errorf("job %s: %w", jobID, err)
	}

	if err := queue.IgnoreNotFound(w.requests.Delete(ctx, msg.ReceiptHandle)); err != nil {
		return true, fmt.Errorf("job %s: failed to acknowledge request: %w", jobID, err)
	}

	log.Info("request completed", "duration", time.Since(started))
	return true, nil
}

// process runs every step that must succeed before the request is
// acknowledged.
func (w *Worker) process(ctx context.Context, jobID string) error {
	key := domain.InputKey(jobID, w.config.InputExtension)
	data, err := w.inputs.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrFetchInput, key, err)
	}

	dir, err := os.MkdirTemp(w.config.TempDir, "classify-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(dir)

	// Keep the original file name; classifiers may derive labels from it
	path := filepath.Join(dir, filepath.Base(key))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to stage input: %w", err)
	}

	result, err := w.classifier.Classify(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrClassification, err)
	}

	if err := w.publish(ctx, jobID, result); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishResult, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove staged input: %w", err)
	}
	return nil
}

// publish stores the result keyed by job ID and sends the response message.
// Both steps overwrite or duplicate harmlessly, so each is retried on its own.
func (w *Worker) publish(ctx context.Context, jobID, result string) error {
	if err := w.retry(ctx, func(ctx context.Context) error {
		return w.outputs.Put(ctx, jobID, []byte(result))
	}); err != nil {
		return fmt.Errorf("failed to store output: %w", err)
	}

	body, err := domain.EncodeResponse(jobID, result)
	if err != nil {
		return err
	}
	if err := w.retry(ctx, func(ctx context.Context) error {
		return w.responses.Send(ctx, body)
	}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}
	return nil
}

func (w *Worker) retry(ctx context.Context, fn retry.RetryFunc) error {
	b := retry.WithMaxRetries(w.config.PublishRetries, w.newBackoff())
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (w *Worker) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(w.config.MaxIdleDelay, retry.NewExponential(w.config.IdleDelay))
}
