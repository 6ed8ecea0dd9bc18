// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	lcembed "github.com/custodia-labs/sercha-ingest/internal/adapters/driven/embedding/langchain"
	lcllm "github.com/custodia-labs/sercha-ingest/internal/adapters/driven/llm/langchain"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	TextGenerator    driven.TextGenerator
	Warnings         []string // Non-fatal issues that caused fallback.
}

// Init creates both AI services from settings. Unreachable services are
// dropped with a warning so ingestion can continue without them.
func Init(settings *domain.AppSettings) *InitResult {
	result := &InitResult{}

	embedder, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	} else {
		result.EmbeddingService = embedder
	}

	gen, err := CreateAndValidateTextGenerator(&settings.LLM)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	} else {
		result.TextGenerator = gen
	}

	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns nil without error when embeddings are not configured.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sercha-ingest settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'sercha-ingest settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateTextGenerator creates a text generator and validates connectivity.
// Returns nil without error when the LLM is not configured.
func CreateAndValidateTextGenerator(settings *domain.LLMSettings) (driven.TextGenerator, error) {
	gen, err := CreateTextGenerator(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sercha-ingest settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}
	if gen == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := gen.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'sercha-ingest settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}
	return gen, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	gen, err := CreateTextGenerator(settings)
	if err != nil || gen == nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return gen.Ping(ctx)
}

// CreateEmbeddingService creates the embedding service described by settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := lcembed.NewEmbeddingService(lcembed.Config{
		BaseURL: baseURL(settings.Provider, settings.BaseURL),
		APIKey:  settings.APIKey,
		Model:   modelOrDefault(settings.Model, domain.DefaultEmbeddingModels()[settings.Provider]),
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// CreateTextGenerator creates the text generator described by settings.
// Returns nil if the provider is not configured.
func CreateTextGenerator(settings *domain.LLMSettings) (driven.TextGenerator, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	gen, err := lcllm.NewTextGenerator(lcllm.Config{
		BaseURL: baseURL(settings.Provider, settings.BaseURL),
		APIKey:  settings.APIKey,
		Model:   modelOrDefault(settings.Model, domain.DefaultLLMModels()[settings.Provider]),
	})
	if err != nil {
		return nil, err
	}
	return gen, nil
}

func baseURL(provider domain.AIProvider, override string) string {
	if override != "" {
		return override
	}
	return provider.DefaultBaseURL()
}

func modelOrDefault(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}
