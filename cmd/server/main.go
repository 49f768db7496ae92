// Package main implements the vision gateway command: an HTTP front door
// that hands uploads to queue-driven workers, the worker loop itself and the
// autoscaler that sizes the worker fleet.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/vision-gateway/internal/config"
	"github.com/phrazzld/vision-gateway/internal/platform/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// runFunc is the body of a subcommand once the application is initialized
type runFunc func(app *application, ctx context.Context) error

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "vision-gateway",
		Short:         "Queue-mediated image classification gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./config.yaml)")

	root.AddCommand(
		newSubcommand("serve", "Run the HTTP gateway", &configFile, (*application).runGateway),
		newSubcommand("worker", "Run one worker loop", &configFile, (*application).runWorker),
		newSubcommand("autoscale", "Run the fleet autoscaler", &configFile, (*application).runAutoscaler),
	)

	return root
}

func newSubcommand(use, short string, configFile *string, run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err := runApp(ctx, *configFile, use, run)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", use, err)
			}
			return err
		},
	}
}

// runApp loads configuration, sets up logging, builds the application and
// runs it until ctx is done.
func runApp(ctx context.Context, configFile, component string, run runFunc) error {
	cfg, log, err := initializeApp(configFile, component)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		return err
	}
	defer app.cleanup()

	if err := run(app, ctx); err != nil {
		log.Error("stopped with error", "error", err)
		return err
	}
	return nil
}

// initializeApp loads configuration and sets up structured logging.
func initializeApp(configFile, component string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server, component)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"queue_backend", cfg.Queue.Backend,
		"storage_backend", cfg.Storage.Backend,
		"classifier_backend", cfg.Classifier.Backend)

	return cfg, log, nil
}
