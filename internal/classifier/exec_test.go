package classifier

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cat.jpg")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewExecClassifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		command string
		wantErr error
	}{
		{name: "program with args", command: "python3 face_recognition.py"},
		{name: "program only", command: "cat"},
		{name: "surrounding whitespace", command: "  cat  "},
		{name: "empty", command: "", wantErr: ErrEmptyCommand},
		{name: "blank", command: "   ", wantErr: ErrEmptyCommand},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c, err := NewExecClassifier(tc.command, 0, testLogger())
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestExecClassifier_TrimsStdout(t *testing.T) {
	t.Parallel()

	path := writeInput(t, "  feline\n\n")
	c, err := NewExecClassifier("cat", 0, testLogger())
	require.NoError(t, err)

	result, err := c.Classify(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "feline", result)
}

func TestExecClassifier_PassesPathAsLastArgument(t *testing.T) {
	t.Parallel()

	path := writeInput(t, "ignored")
	c, err := NewExecClassifier("echo -n", 0, testLogger())
	require.NoError(t, err)

	result, err := c.Classify(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, result)
}

func TestExecClassifier_NonZeroExit(t *testing.T) {
	t.Parallel()

	c, err := NewExecClassifier("cat", 0, testLogger())
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classifier failed")
}

func TestExecClassifier_Timeout(t *testing.T) {
	t.Parallel()

	c, err := NewExecClassifier("sleep 5", 50*time.Millisecond, testLogger())
	require.NoError(t, err)

	// sleep needs a numeric operand
	_, err = c.Classify(context.Background(), "5")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecClassifier_EmptyPath(t *testing.T) {
	t.Parallel()

	c, err := NewExecClassifier("cat", 0, testLogger())
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestFunc(t *testing.T) {
	t.Parallel()

	var f Classifier = Func(func(ctx context.Context, path string) (string, error) {
		return "classified " + filepath.Base(path), nil
	})

	result, err := f.Classify(context.Background(), "/tmp/dog.jpg")
	require.NoError(t, err)
	assert.Equal(t, "classified dog.jpg", result)
}
