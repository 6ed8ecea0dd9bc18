// Package langchain provides an embedding adapter over any OpenAI-compatible
// embeddings endpoint.
package langchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultBatchSize is the number of texts sent per embeddings request.
const DefaultBatchSize = 64

// Config holds configuration for the embedding service.
type Config struct {
	// BaseURL is the OpenAI-compatible API base URL.
	BaseURL string

	// APIKey is the bearer token. Empty for local endpoints.
	APIKey string

	// Model is the embedding model to use.
	Model string

	// BatchSize caps texts per request (default: 64).
	BatchSize int
}

// EmbeddingService generates embeddings through langchaingo.
type EmbeddingService struct {
	embedder embeddings.Embedder
	model    string
}

// NewEmbeddingService creates an embedding service for the configured endpoint.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}
	token := cfg.APIKey
	if token == "" {
		token = "none"
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create embeddings client: %w", err)
	}
	return newWithClient(client, cfg.Model, cfg.BatchSize)
}

func newWithClient(client embeddings.EmbedderClient, model string, batchSize int) (*EmbeddingService, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(batchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &EmbeddingService{embedder: embedder, model: model}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed batch: got %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}

// ModelName returns the model name.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping embeds a short string to check the endpoint.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.embedder.EmbedQuery(ctx, "ping"); err != nil {
		return fmt.Errorf("ping %s: %w", s.model, err)
	}
	return nil
}
