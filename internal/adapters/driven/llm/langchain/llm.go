// Package langchain provides a text generation adapter over any
// OpenAI-compatible chat endpoint (OpenAI, Ollama, LM Studio).
package langchain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure TextGenerator implements the interface.
var _ driven.TextGenerator = (*TextGenerator)(nil)

// Default configuration values.
const (
	DefaultTimeout = 120 * time.Second

	// noToken is sent to local endpoints that do not check authentication.
	noToken = "none"
)

// Config holds configuration for the text generator.
type Config struct {
	// BaseURL is the OpenAI-compatible API base URL.
	BaseURL string

	// APIKey is the bearer token. Empty for local endpoints.
	APIKey string

	// Model is the chat model to use.
	Model string

	// Timeout bounds a single request (default: 120s).
	Timeout time.Duration
}

// contentGenerator is the part of llms.Model the adapter uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// TextGenerator produces text with a chat model.
type TextGenerator struct {
	client  contentGenerator
	model   string
	timeout time.Duration
}

// NewTextGenerator creates a text generator for the configured endpoint.
func NewTextGenerator(cfg Config) (*TextGenerator, error) {
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}
	token := cfg.APIKey
	if token == "" {
		token = noToken
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create chat client: %w", err)
	}
	return newWithClient(client, cfg.Model, cfg.Timeout), nil
}

func newWithClient(client contentGenerator, model string, timeout time.Duration) *TextGenerator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TextGenerator{
		client:  client,
		model:   model,
		timeout: timeout,
	}
}

// Generate returns the model's reply to content under systemPrompt.
func (g *TextGenerator) Generate(ctx context.Context, systemPrompt, content string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(content)},
		},
	}

	resp, err := g.client.GenerateContent(ctx, messages, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("generate: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// ModelName returns the model name.
func (g *TextGenerator) ModelName() string {
	return g.model
}

// Ping checks the endpoint answers a one-token request.
func (g *TextGenerator) Ping(ctx context.Context) error {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "ping"),
	}
	if _, err := g.client.GenerateContent(ctx, messages, llms.WithMaxTokens(1)); err != nil {
		return fmt.Errorf("ping %s: %w", g.model, err)
	}
	return nil
}
