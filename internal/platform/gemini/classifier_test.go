package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/vision-gateway/internal/classifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockGenerator stands in for the Gemini models API
type MockGenerator struct {
	GenerateContentFn func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error)
	calls             atomic.Int32
}

func (m *MockGenerator) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	m.calls.Add(1)
	return m.GenerateContentFn(ctx, model, contents)
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content, FinishReason: genai.FinishReasonStop}},
	}
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cat.jpg")
	// JPEG magic bytes so content sniffing picks image/jpeg
	require.NoError(t, os.WriteFile(path, []byte("\xff\xd8\xff\xe0fake jpeg"), 0o600))
	return path
}

func newTestClassifier(t *testing.T, gen *MockGenerator) *Classifier {
	t.Helper()
	c, err := newClassifier(gen, Config{
		Model:      "gemini-2.0-flash",
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, testLogger())
	require.NoError(t, err)
	return c
}

func TestClassifier_Classify(t *testing.T) {
	t.Parallel()

	gen := &MockGenerator{
		GenerateContentFn: func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
			assert.Equal(t, "gemini-2.0-flash", model)
			require.Len(t, contents, 1)
			parts := contents[0].Parts
			require.Len(t, parts, 2)
			require.NotNil(t, parts[0].InlineData)
			assert.Equal(t, "image/jpeg", parts[0].InlineData.MIMEType)
			assert.Equal(t, DefaultPrompt, parts[1].Text)
			return textResponse("  Feline", "\n"), nil
		},
	}
	c := newTestClassifier(t, gen)

	result, err := c.Classify(context.Background(), writeImage(t))
	require.NoError(t, err)
	assert.Equal(t, "Feline", result)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestClassifier_Classify_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		resp      *genai.GenerateContentResponse
		err       error
		wantErr   error
		wantCalls int32
	}{
		{
			name:      "transient errors are retried",
			err:       errors.New("503 unavailable"),
			wantErr:   ErrTransientFailure,
			wantCalls: 3,
		},
		{
			name: "safety block is permanent",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{FinishReason: genai.FinishReasonSafety},
			}},
			wantErr:   ErrContentBlocked,
			wantCalls: 1,
		},
		{
			name:      "no candidates is permanent",
			resp:      &genai.GenerateContentResponse{},
			wantErr:   ErrInvalidResponse,
			wantCalls: 1,
		},
		{
			name:      "blank text is permanent",
			resp:      textResponse("   "),
			wantErr:   ErrInvalidResponse,
			wantCalls: 1,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			gen := &MockGenerator{
				GenerateContentFn: func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
					return tc.resp, tc.err
				},
			}
			c := newTestClassifier(t, gen)

			_, err := c.Classify(context.Background(), writeImage(t))
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, tc.wantCalls, gen.calls.Load())
		})
	}
}

func TestClassifier_Classify_RecoversAfterTransientError(t *testing.T) {
	t.Parallel()

	gen := &MockGenerator{}
	gen.GenerateContentFn = func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
		if gen.calls.Load() == 1 {
			return nil, errors.New("429 rate limited")
		}
		return textResponse("feline"), nil
	}
	c := newTestClassifier(t, gen)

	result, err := c.Classify(context.Background(), writeImage(t))
	require.NoError(t, err)
	assert.Equal(t, "feline", result)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestClassifier_Classify_BadInput(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, &MockGenerator{})

	_, err := c.Classify(context.Background(), "")
	assert.ErrorIs(t, err, classifier.ErrEmptyPath)

	_, err = c.Classify(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewClassifier_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewClassifier(context.Background(), Config{Model: "gemini-2.0-flash"}, testLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = newClassifier(&MockGenerator{}, Config{}, testLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	c, err := NewClassifier(context.Background(), Config{APIKey: "test-key", Model: "gemini-2.0-flash"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultPrompt, c.config.Prompt)
}
