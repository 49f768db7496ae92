package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/vision-gateway/internal/api"
	apiMiddleware "github.com/phrazzld/vision-gateway/internal/api/middleware"
)

// newRouter creates the gateway router with its middleware and routes.
func newRouter(handler *api.ClassifyHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(logger))

	r.Post("/", handler.Classify)
	r.Get("/health", handler.Health)

	return r
}
