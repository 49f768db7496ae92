package classifier

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// maxStderrInError bounds how much stderr is copied into returned errors
const maxStderrInError = 512

// ExecClassifier runs an external program with the input path as its final
// argument and uses the trimmed stdout as the result.
type ExecClassifier struct {
	name    string
	args    []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecClassifier builds an ExecClassifier from a command line such as
// "python3 face_recognition.py". The command is split on whitespace; the input
// path is appended on every call. A zero timeout disables the per-call limit.
func NewExecClassifier(command string, timeout time.Duration, logger *slog.Logger) (*ExecClassifier, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrEmptyCommand
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ExecClassifier{
		name:    fields[0],
		args:    fields[1:],
		timeout: timeout,
		logger:  logger.With("component", "exec_classifier", "program", fields[0]),
	}, nil
}

// Classify implements Classifier.
func (c *ExecClassifier) Classify(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := make([]string, 0, len(c.args)+1)
	args = append(args, c.args...)
	args = append(args, path)

	cmd := exec.CommandContext(ctx, c.name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	if err := cmd.Run(); err != nil {
		c.logger.Error("classifier exited with error",
			"path", path,
			"duration", time.Since(started),
			"stderr", truncate(stderr.String(), maxStderrInError),
			"error", err)
		if ctx.Err() != nil {
			return "", fmt.Errorf("classifier interrupted: %w", ctx.Err())
		}
		return "", fmt.Errorf("classifier failed: %w: %s", err, truncate(stderr.String(), maxStderrInError))
	}

	result := strings.TrimSpace(stdout.String())
	c.logger.Debug("classifier finished",
		"path", path,
		"duration", time.Since(started),
		"result_length", len(result))

	return result, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
