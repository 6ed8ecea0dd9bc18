package driven

import "context"

// SearchEngine provides full-text search operations.
// Backed by bleve for keyword search.
type SearchEngine interface {
	// Index adds or updates the text of a chunk in the search index.
	// fields holds exact-match metadata that Search can filter on.
	Index(ctx context.Context, chunkKey, text string, fields map[string]string) error

	// Delete removes chunks from the search index.
	Delete(ctx context.Context, chunkKeys ...string) error

	// Search performs a keyword search and returns matching chunk keys with
	// scores. Only chunks whose fields equal every entry of where match.
	Search(ctx context.Context, query string, where map[string]string, limit int) ([]SearchHit, error)

	// Close releases resources.
	Close() error
}

// SearchHit represents a search result from the engine.
type SearchHit struct {
	// ChunkKey is the matched chunk.
	ChunkKey string

	// Score is the relevance score.
	Score float64
}
