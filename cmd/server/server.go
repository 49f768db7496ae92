package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/phrazzld/vision-gateway/internal/api"
	"github.com/phrazzld/vision-gateway/internal/autoscaler"
	"github.com/phrazzld/vision-gateway/internal/correlator"
	"golang.org/x/sync/errgroup"
)

// runGateway serves the HTTP front door together with the correlator's reaper
// and, when enabled, the autoscaler. It returns once ctx is done and every
// component has stopped.
func (app *application) runGateway(ctx context.Context) error {
	results, router, err := app.newGateway()
	if err != nil {
		return err
	}

	var controller *autoscaler.Controller
	if app.config.Autoscaler.Enabled {
		if controller, err = app.newController(); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:    net.JoinHostPort("", strconv.Itoa(app.config.Server.Port)),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		results.RunReaper(gctx, app.config.Correlator.ReapInterval, app.config.Correlator.EntryTTL)
		return nil
	})

	if controller != nil {
		g.Go(func() error {
			return controller.Run(gctx)
		})
	}

	err = g.Wait()
	app.logger.Info("server shutdown completed")
	return err
}

// newGateway builds the correlator and the HTTP handler that waits on it.
func (app *application) newGateway() (*correlator.Correlator, http.Handler, error) {
	results := app.newCorrelator()

	svc, err := app.newClassificationService(results)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create classification service: %w", err)
	}
	handler := api.NewClassifyHandler(svc, app.config.Server.MaxUploadBytes, app.logger)

	return results, newRouter(handler, app.logger), nil
}

// runWorker runs a single worker loop until ctx is done.
func (app *application) runWorker(ctx context.Context) error {
	w, err := app.newWorker(ctx, app.logger)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// runAutoscaler runs the control loop until ctx is done.
func (app *application) runAutoscaler(ctx context.Context) error {
	controller, err := app.newController()
	if err != nil {
		return err
	}
	return controller.Run(ctx)
}
