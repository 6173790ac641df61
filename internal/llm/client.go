package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/desk-relay/internal/config"
)

var (
	// ErrMissingAPIKey is returned before any call when no key is configured.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")
	// ErrEmptyCompletion is returned when the model sends no choices.
	ErrEmptyCompletion = errors.New("empty completion response")
)

// Client sends single-turn chat completions to an OpenAI-compatible endpoint.
type Client struct {
	api     *openai.Client
	apiKey  string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient builds a client from configuration. A zero rate limit disables
// client-side throttling.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		oc.BaseURL = base
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout()}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		api:     openai.NewClientWithConfig(oc),
		apiKey:  cfg.APIKey,
		limiter: limiter,
		logger:  logger,
	}
}

// Complete sends prompt as a single user message and returns the first
// choice's content untouched. One attempt, no retry.
func (c *Client) Complete(ctx context.Context, model, prompt string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", ErrMissingAPIKey
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn("completion rejected",
				zap.Int("status_code", apiErr.HTTPStatusCode),
				zap.String("model", model))
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug("completion received",
		zap.String("model", resp.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message.Content, nil
}
