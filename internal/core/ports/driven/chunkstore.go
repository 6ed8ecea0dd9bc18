package driven

import (
	"context"
	"iter"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// ChunkStore persists chunks of exactly one kind.
// Writing a chunk of another kind fails with domain.ErrChunkKindMismatch.
type ChunkStore interface {
	// Kind returns the chunk kind the store holds.
	Kind() domain.ChunkKind

	// Upsert stores or replaces chunks by key.
	Upsert(ctx context.Context, chunks ...domain.Chunk) error

	// Delete removes chunks by key. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Enumerate yields chunks matching filter in key order.
	// A limit of zero or less means no limit.
	Enumerate(ctx context.Context, filter domain.ChunkFilter, limit int) iter.Seq2[domain.Chunk, error]

	// Count returns the number of chunks matching filter.
	Count(ctx context.Context, filter domain.ChunkFilter) (int, error)

	// Search returns chunks most similar to the request.
	Search(ctx context.Context, req SearchRequest) ([]ChunkHit, error)
}

// SearchRequest describes a similarity and metadata search.
type SearchRequest struct {
	// Vector is a query embedding. When set it takes precedence over Text.
	Vector []float32

	// Text is a free-text query.
	Text string

	// Mode selects keyword, vector or hybrid search for Text queries.
	Mode domain.SearchMode

	// TopK bounds the number of hits.
	TopK int

	// Filters are metadata equality tests on the chunk kind's fields.
	Filters map[string]string
}

// ChunkHit is one search result.
type ChunkHit struct {
	Chunk domain.Chunk
	Score float64
}

// CollectChunks drains an enumeration into a slice.
func CollectChunks(seq iter.Seq2[domain.Chunk, error]) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for c, err := range seq {
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// ChunkBackend is a ChunkStore that resolves chunks by key.
// Index adapters use it to turn hit keys back into full chunks.
type ChunkBackend interface {
	ChunkStore

	// Get returns the chunks with the given keys in the order requested.
	// Missing keys are skipped.
	Get(ctx context.Context, keys ...string) ([]domain.Chunk, error)
}
