package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/hh-career/internal/logger"
	"github.com/spigell/hh-career/internal/utils"
)

const (
	Provider = "gemini"

	defaultModel  = "gemini-2.0-flash-lite"
	maxQuotaDelay = 30 * time.Second
)

var (
	wait            = utils.WaitFor
	retryAfterRegex = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)
)

// contentModels is the part of genai.Models the generator calls.
type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models   contentModels
	model    string
	attempts int
	mimeType string
	logger   *zap.Logger
}

type Option func(*Generator)

// WithResponseMIMEType asks the model for a specific response type, e.g. "application/json".
func WithResponseMIMEType(mimeType string) Option {
	return func(g *Generator) {
		g.mimeType = strings.TrimSpace(mimeType)
	}
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
// maxRetries is the number of extra attempts after a transient failure; zero sends each prompt once.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, log *zap.Logger, opts ...Option) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, model, maxRetries, log, opts...), nil
}

func newGenerator(models contentModels, model string, maxRetries int, log *zap.Logger, opts ...Option) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	g := &Generator{
		models:   models,
		model:    model,
		attempts: maxRetries + 1,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logger.WithCommonFields(log, Provider, model)

	return g
}

// GenerateContent sends the prompt to Gemini and returns the joined textual response.
// Transient API errors are retried with exponential backoff when retries are enabled.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	var config *genai.GenerateContentConfig
	if g.mimeType != "" {
		config = &genai.GenerateContentConfig{ResponseMIMEType: g.mimeType}
	}

	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
		if err == nil {
			return joinCandidates(resp)
		}

		lastErr = err
		if !shouldRetry(err) || attempt == g.attempts {
			break
		}

		delay := utils.Backoff(attempt)
		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := wait(ctx, delay); err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
	}

	return "", fmt.Errorf("generate content: %w", lastErr)
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func joinCandidates(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned empty response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var apiErrPtr *genai.APIError
		if !errors.As(err, &apiErrPtr) || apiErrPtr == nil {
			return false
		}
		apiErr = *apiErrPtr
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests:
		if delay, ok := retryAfter(apiErr.Message); ok && delay > maxQuotaDelay {
			return false
		}
		return true
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// retryAfter extracts the server suggested delay from a quota message.
func retryAfter(message string) (time.Duration, bool) {
	m := retryAfterRegex.FindStringSubmatch(message)
	if len(m) < 2 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
