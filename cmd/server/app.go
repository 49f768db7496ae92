package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/phrazzld/vision-gateway/internal/autoscaler"
	"github.com/phrazzld/vision-gateway/internal/blob"
	"github.com/phrazzld/vision-gateway/internal/classifier"
	"github.com/phrazzld/vision-gateway/internal/config"
	"github.com/phrazzld/vision-gateway/internal/correlator"
	"github.com/phrazzld/vision-gateway/internal/events"
	"github.com/phrazzld/vision-gateway/internal/platform/amazon"
	"github.com/phrazzld/vision-gateway/internal/platform/gcs"
	"github.com/phrazzld/vision-gateway/internal/platform/gemini"
	"github.com/phrazzld/vision-gateway/internal/platform/postgres"
	"github.com/phrazzld/vision-gateway/internal/queue"
	"github.com/phrazzld/vision-gateway/internal/service"
	"github.com/phrazzld/vision-gateway/internal/worker"
)

// Queue names used by the in-memory backend
const (
	requestQueueName  = "requests"
	responseQueueName = "responses"
)

// depthQueue is a queue that can also report its depth
type depthQueue interface {
	queue.Queue
	queue.DepthReporter
}

// application holds the dependencies shared by every command and ensures
// they are released on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	requests  depthQueue
	responses queue.Queue
	inputs    blob.Store
	outputs   blob.Store

	eventEmitter *events.InMemoryEventEmitter

	awsSession *session.Session
	closers    []func() error
}

// newApplication connects the queue and storage backends selected by cfg.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(events.NewLogHandler(logger))

	if err := app.setupQueues(ctx); err != nil {
		app.cleanup()
		return nil, err
	}
	if err := app.setupStores(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	logger.Info("application initialized",
		"queue_backend", cfg.Queue.Backend,
		"storage_backend", cfg.Storage.Backend)
	return app, nil
}

// session returns the shared AWS session, creating it on first use.
func (app *application) session() (*session.Session, error) {
	if app.awsSession != nil {
		return app.awsSession, nil
	}

	sess, err := amazon.NewSession(amazon.SessionConfig{
		Region:   app.config.AWS.Region,
		Endpoint: app.config.AWS.Endpoint,
	})
	if err != nil {
		return nil, err
	}
	app.awsSession = sess
	return sess, nil
}

func (app *application) setupQueues(ctx context.Context) error {
	switch app.config.Queue.Backend {
	case "memory":
		app.requests = queue.NewMemoryQueue(requestQueueName, app.config.Queue.VisibilityTimeout, app.logger)
		app.responses = queue.NewMemoryQueue(responseQueueName, app.config.Queue.VisibilityTimeout, app.logger)
		app.logger.Warn("using in-memory queues; workers must run in this process")
		return nil

	case "sqs":
		sess, err := app.session()
		if err != nil {
			return err
		}
		client := sqs.New(sess)

		requests, err := amazon.NewSQSQueue(ctx, client, app.config.Queue.RequestQueue, app.logger)
		if err != nil {
			return fmt.Errorf("failed to open request queue: %w", err)
		}
		responses, err := amazon.NewSQSQueue(ctx, client, app.config.Queue.ResponseQueue, app.logger)
		if err != nil {
			return fmt.Errorf("failed to open response queue: %w", err)
		}
		app.requests = requests
		app.responses = responses
		return nil

	default:
		return fmt.Errorf("unsupported queue backend %q", app.config.Queue.Backend)
	}
}

func (app *application) setupStores(ctx context.Context) error {
	cfg := app.config.Storage

	switch cfg.Backend {
	case "memory":
		app.inputs = blob.NewMemoryStore()
		app.outputs = blob.NewMemoryStore()
		return nil

	case "s3":
		sess, err := app.session()
		if err != nil {
			return err
		}
		client := s3.New(sess)

		if app.inputs, err = amazon.NewS3Store(client, cfg.InputBucket, app.logger); err != nil {
			return err
		}
		if app.outputs, err = amazon.NewS3Store(client, cfg.OutputBucket, app.logger); err != nil {
			return err
		}
		return nil

	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to create gcs client: %w", err)
		}
		app.closers = append(app.closers, client.Close)

		if app.inputs, err = gcs.NewStore(client, cfg.InputBucket, app.logger); err != nil {
			return err
		}
		if app.outputs, err = gcs.NewStore(client, cfg.OutputBucket, app.logger); err != nil {
			return err
		}
		return nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.DatabaseURL, app.logger)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, db.Close)

		if err := postgres.Migrate(ctx, db, app.logger); err != nil {
			return err
		}
		if app.inputs, err = postgres.NewBlobStore(db, cfg.InputBucket, app.logger); err != nil {
			return err
		}
		if app.outputs, err = postgres.NewBlobStore(db, cfg.OutputBucket, app.logger); err != nil {
			return err
		}
		return nil

	default:
		return fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// newCorrelator creates the shared result cache for the gateway.
func (app *application) newCorrelator() *correlator.Correlator {
	cfg := correlator.DefaultConfig()
	cfg.BatchSize = app.config.Queue.DrainBatchSize
	cfg.WaitTime = app.config.Queue.DrainWait
	cfg.TombstoneTTL = app.config.Correlator.TombstoneTTL

	return correlator.New(app.responses, cfg, app.logger)
}

// newClassificationService wires the gateway pipeline around results.
func (app *application) newClassificationService(results service.ResultWaiter) (service.ClassificationService, error) {
	return service.NewClassificationService(
		app.inputs,
		app.requests,
		results,
		app.eventEmitter,
		service.ClassificationServiceConfig{ResultTimeout: app.config.Server.ResultTimeout},
		app.logger,
	)
}

// newClassifier builds the configured classifier.
func (app *application) newClassifier(ctx context.Context) (classifier.Classifier, error) {
	cfg := app.config.Classifier

	switch cfg.Backend {
	case "exec":
		c, err := classifier.NewExecClassifier(cfg.Command, cfg.Timeout, app.logger)
		if err != nil {
			return nil, err
		}
		return c, nil

	case "gemini":
		c, err := gemini.NewClassifier(ctx, gemini.Config{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			Prompt:     cfg.Prompt,
			MaxRetries: cfg.MaxRetries,
		}, app.logger)
		if err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unsupported classifier backend %q", cfg.Backend)
	}
}

// newWorker builds one worker loop with its own classifier.
func (app *application) newWorker(ctx context.Context, logger *slog.Logger) (*worker.Worker, error) {
	c, err := app.newClassifier(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	cfg := app.config.Worker
	return worker.New(
		app.requests,
		app.responses,
		app.inputs,
		app.outputs,
		c,
		worker.Config{
			InputExtension: cfg.InputExtension,
			WaitTime:       app.config.Queue.WorkerWait,
			IdleDelay:      cfg.IdleDelay,
			MaxIdleDelay:   cfg.MaxIdleDelay,
			PublishRetries: cfg.PublishRetries,
			TempDir:        cfg.TempDir,
		},
		logger,
	)
}

// newFleet builds the configured fleet. The local fleet runs worker loops
// inside this process against the application's queues and stores.
func (app *application) newFleet() (autoscaler.Fleet, error) {
	cfg := app.config.Autoscaler

	switch cfg.Fleet {
	case "ec2":
		sess, err := app.session()
		if err != nil {
			return nil, err
		}
		fleet, err := amazon.NewEC2Fleet(ec2.New(sess), amazon.FleetConfig{
			Tag:              cfg.InstanceTag,
			ImageID:          cfg.ImageID,
			InstanceType:     cfg.InstanceType,
			KeyName:          cfg.KeyName,
			SecurityGroupIDs: cfg.SecurityGroupIDs,
			UserData:         cfg.UserData,
		}, app.logger)
		if err != nil {
			return nil, err
		}
		return fleet, nil

	case "local":
		fleet := autoscaler.NewLocalFleet(func(ctx context.Context) error {
			w, err := app.newWorker(ctx, app.logger)
			if err != nil {
				return err
			}
			return w.Run(ctx)
		}, cfg.InstanceTag, app.logger)
		app.closers = append(app.closers, func() error {
			fleet.Close()
			return nil
		})
		return fleet, nil

	default:
		return nil, fmt.Errorf("unsupported fleet %q", cfg.Fleet)
	}
}

// newController builds the autoscaler control loop.
func (app *application) newController() (*autoscaler.Controller, error) {
	cfg := app.config.Autoscaler

	policy, err := autoscaler.NewPolicy(
		autoscaler.WithMinInstances(cfg.MinInstances),
		autoscaler.WithMaxInstances(cfg.MaxInstances),
		autoscaler.WithScaleUpThreshold(cfg.ScaleUpThreshold),
		autoscaler.WithScaleDownThreshold(cfg.ScaleDownThreshold),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid autoscaler policy: %w", err)
	}

	fleet, err := app.newFleet()
	if err != nil {
		return nil, fmt.Errorf("failed to create fleet: %w", err)
	}

	return autoscaler.NewController(app.requests, fleet, policy, cfg.Interval, app.eventEmitter, app.logger)
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil

	if err := errors.Join(errs...); err != nil {
		app.logger.Error("error releasing resources", "error", err)
	}
}
