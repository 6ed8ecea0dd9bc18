package driven

import "context"

// VectorIndex provides semantic similarity search operations.
// Backed by chromem-go for exhaustive cosine search.
type VectorIndex interface {
	// Add inserts or replaces the vector of a chunk with its string metadata.
	Add(ctx context.Context, chunkKey string, embedding []float32, metadata map[string]string) error

	// Delete removes vectors from the index.
	Delete(ctx context.Context, chunkKeys ...string) error

	// Search finds the k nearest neighbours to the query vector among the
	// vectors whose metadata equals every entry of where.
	// k larger than the index size is clamped.
	Search(ctx context.Context, query []float32, where map[string]string, k int) ([]VectorHit, error)

	// Count returns the number of vectors in the index.
	Count() int
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkKey is the matched chunk.
	ChunkKey string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}
