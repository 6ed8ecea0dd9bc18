package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService answers queries against chunk stores resolved by name.
type SearchService struct {
	stores StoreResolver
}

// NewSearchService creates a new search service.
func NewSearchService(stores StoreResolver) *SearchService {
	return &SearchService{stores: stores}
}

// Search runs a query against one chunk store.
func (s *SearchService) Search(ctx context.Context, store string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	logger.Section("Search Execution")
	logger.Debug("Store: %s, query: %q", store, opts.Query)

	// Return empty for empty query
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchHit{}, nil
	}

	mode, ok := domain.ParseSearchMode(string(opts.Mode))
	if !ok {
		return nil, fmt.Errorf("%w: search mode %q", domain.ErrInvalidInput, opts.Mode)
	}

	chunks, err := s.stores.ChunkStore(ctx, store)
	if err != nil {
		return nil, err
	}

	logger.Debug("Mode: %s, limit: %d, filters: %v", mode, opts.Limit(), opts.Filters)
	hits, err := chunks.Search(ctx, driven.SearchRequest{
		Text:    query,
		Mode:    mode,
		TopK:    opts.Limit(),
		Filters: opts.Filters,
	})
	if err != nil {
		logger.Warn("Search failed: %v", err)
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]domain.SearchHit, len(hits))
	for i, h := range hits {
		results[i] = domain.SearchHit{Chunk: h.Chunk, Score: h.Score}
	}
	logger.Info("Final results: %d", len(results))
	return results, nil
}
