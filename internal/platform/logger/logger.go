package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/vision-gateway/internal/config"
)

// ParseLevel maps a configured level name to a slog.Level. Matching is
// case-insensitive; the boolean is false when the name is unknown, in which
// case info is returned.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New builds a JSON logger writing to w at the named level. Every record
// carries the service name so gateway, worker and autoscaler output can be
// told apart when they share a sink.
func New(w io.Writer, levelName, service string) *slog.Logger {
	level, _ := ParseLevel(levelName)
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})

	logger := slog.New(handler)
	if service != "" {
		logger = logger.With("service", service)
	}
	return logger
}

// Setup initializes the process-wide logger from the server configuration,
// installs it as the slog default and returns it.
func Setup(cfg config.ServerConfig, service string) (*slog.Logger, error) {
	if _, ok := ParseLevel(cfg.LogLevel); !ok {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Warn(
			"invalid log level configured, using default level",
			"configured_level", cfg.LogLevel,
			"default_level", "info",
		)
	}

	logger := New(os.Stdout, cfg.LogLevel, service)
	slog.SetDefault(logger)

	return logger, nil
}
