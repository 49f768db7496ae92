package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/phrazzld/vision-gateway/internal/classifier"
	"github.com/sethvargo/go-retry"
	"google.golang.org/genai"
)

// DefaultPrompt asks for a single label, matching the output of the face
// recognition program the exec classifier usually runs.
const DefaultPrompt = "Identify the person or main subject in this image. " +
	"Answer with a single name or label and nothing else."

// Config holds the classifier settings
type Config struct {
	// APIKey authenticates against the Gemini API
	APIKey string

	// Model is the model name, e.g. "gemini-2.0-flash"
	Model string

	// Prompt is sent with every image. Empty means DefaultPrompt.
	Prompt string

	// MaxRetries is the number of retries for transient failures
	MaxRetries uint64

	// RetryDelay is the initial backoff between retries
	RetryDelay time.Duration

	// BaseURL overrides the API endpoint
	BaseURL string
}

// contentGenerator is the subset of *genai.Models used here
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Classifier implements classifier.Classifier using the Gemini API.
type Classifier struct {
	models contentGenerator
	config Config
	logger *slog.Logger
}

var _ classifier.Classifier = (*Classifier)(nil)

// NewClassifier validates cfg and creates a Gemini API client.
func NewClassifier(ctx context.Context, cfg Config, logger *slog.Logger) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key cannot be empty", ErrInvalidConfig)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gemini client: %v", ErrInvalidConfig, err)
	}

	return newClassifier(client.Models, cfg, logger)
}

func newClassifier(models contentGenerator, cfg Config, logger *slog.Logger) (*Classifier, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Classifier{
		models: models,
		config: cfg,
		logger: logger.With("component", "gemini_classifier", "model", cfg.Model),
	}, nil
}

// Classify implements classifier.Classifier.
func (c *Classifier) Classify(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", classifier.ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, http.DetectContentType(data)),
			genai.NewPartFromText(c.config.Prompt),
		}, genai.RoleUser),
	}

	attempt := 0
	var result string
	backoff := retry.WithMaxRetries(c.config.MaxRetries, retry.NewExponential(c.config.RetryDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		text, err := c.generate(ctx, contents)
		if err == nil {
			result = text
			return nil
		}

		c.logger.WarnContext(ctx, "gemini call failed",
			"attempt", attempt,
			"path", path,
			"error", err)
		if errors.Is(err, ErrContentBlocked) || errors.Is(err, ErrInvalidResponse) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		if errors.Is(err, ErrContentBlocked) || errors.Is(err, ErrInvalidResponse) || ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w after %d attempts: %v", ErrTransientFailure, attempt, err)
	}

	c.logger.DebugContext(ctx, "gemini classification finished",
		"attempts", attempt,
		"result_length", len(result))
	return result, nil
}

// generate makes one API call and extracts the answer text.
func (c *Classifier) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.config.Model, contents, nil)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content", ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: no text in response", ErrInvalidResponse)
	}
	return text, nil
}
