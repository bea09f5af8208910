// Package groq provides the Groq-backed LLM adapter. Groq exposes an
// OpenAI-compatible chat completion API, so the adapter rides on
// go-openai pointed at the Groq endpoint.
package groq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/opsdeck/opsdeck/internal/port/outbound"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "llama-3.1-70b-versatile"

	// Low temperature keeps analyses reproducible; 3000 tokens is enough
	// for a full root-cause write-up.
	defaultTemperature = 0.3
	defaultMaxTokens   = 3000
)

// Config holds the Groq connection settings. An empty APIKey leaves the
// client unconfigured; callers check Configured() and degrade gracefully.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Client calls the Groq chat completion API.
type Client struct {
	api    *openai.Client
	model  string
	temp   float32
	tokens int
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient builds a Groq client from cfg. A missing API key is not an
// error; the resulting client reports Configured() == false and every
// Complete call fails, which the analysis layer turns into a fallback
// response.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		model:  cfg.Model,
		temp:   cfg.Temperature,
		tokens: cfg.MaxTokens,
		logger: slog.Default(),
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.temp == 0 {
		c.temp = defaultTemperature
	}
	if c.tokens == 0 {
		c.tokens = defaultMaxTokens
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.APIKey == "" {
		return c
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL
	if apiCfg.BaseURL == "" {
		apiCfg.BaseURL = defaultBaseURL
	}
	c.api = openai.NewClientWithConfig(apiCfg)
	return c
}

// Configured reports whether an API key was provided.
func (c *Client) Configured() bool {
	return c.api != nil
}

// Complete implements outbound.LLMClient.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c.api == nil {
		return "", fmt.Errorf("groq client not configured")
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temp,
		MaxTokens:   c.tokens,
	})
	if err != nil {
		return "", fmt.Errorf("groq chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}

	c.logger.Debug("groq completion finished",
		"model", c.model,
		"finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

// Compile-time interface verification.
var _ outbound.LLMClient = (*Client)(nil)
