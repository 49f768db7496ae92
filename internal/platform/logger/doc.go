// Package logger configures structured JSON logging for the gateway, worker
// and autoscaler processes on top of log/slog.
package logger
