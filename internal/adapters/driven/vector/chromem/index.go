package chromem

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// errNoEmbedder is returned if chromem ever tries to embed content itself.
var errNoEmbedder = errors.New("chromem: embeddings must be supplied by the caller")

// DB is a set of vector collections, in memory or persisted to a directory.
type DB struct {
	db   *chromem.DB
	path string
}

// Open opens the database at path, creating it when missing.
// An empty path creates a memory-only database.
func Open(path string) (*DB, error) {
	if path == "" {
		return &DB{db: chromem.NewDB()}, nil
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("chromem: failed to open database %s: %w", path, err)
	}
	return &DB{db: db, path: path}, nil
}

// Index returns the collection with the given name as a VectorIndex.
func (d *DB) Index(name string) (*Index, error) {
	collection, err := d.db.GetOrCreateCollection(name, map[string]string{"hnsw:space": "cosine"}, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("chromem: failed to open collection %s: %w", name, err)
	}
	return &Index{collection: collection}, nil
}

// Path returns the database directory, empty for memory-only databases.
func (d *DB) Path() string {
	return d.path
}

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedder
}

// Index provides cosine similarity search over one collection.
type Index struct {
	mu         sync.RWMutex
	collection *chromem.Collection
}

// Add inserts or replaces the vector of a chunk.
func (idx *Index) Add(ctx context.Context, chunkKey string, embedding []float32, metadata map[string]string) error {
	if len(embedding) == 0 {
		return fmt.Errorf("chromem: chunk %s has no embedding", chunkKey)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	doc := chromem.Document{
		ID:        chunkKey,
		Metadata:  metadata,
		Embedding: embedding,
		Content:   chunkKey,
	}
	if err := idx.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("chromem: failed to add vector: %w", err)
	}
	return nil
}

// Delete removes vectors from the index. Unknown keys are ignored.
func (idx *Index) Delete(ctx context.Context, chunkKeys ...string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	present := make([]string, 0, len(chunkKeys))
	for _, key := range chunkKeys {
		if _, err := idx.collection.GetByID(ctx, key); err == nil {
			present = append(present, key)
		}
	}
	if len(present) == 0 {
		return nil
	}

	if err := idx.collection.Delete(ctx, nil, nil, present...); err != nil {
		return fmt.Errorf("chromem: failed to delete vectors: %w", err)
	}
	return nil
}

// Search finds the k nearest neighbours by cosine similarity among the
// vectors whose metadata matches where.
func (idx *Index) Search(ctx context.Context, query []float32, where map[string]string, k int) ([]driven.VectorHit, error) {
	if len(query) == 0 {
		return nil, errors.New("chromem: query vector is empty")
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	k = min(k, idx.collection.Count())
	if k <= 0 {
		return nil, nil
	}

	results, err := idx.collection.QueryEmbedding(ctx, query, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: search failed: %w", err)
	}

	hits := make([]driven.VectorHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, driven.VectorHit{ChunkKey: r.ID, Similarity: float64(r.Similarity)})
	}
	return hits, nil
}

// Count returns the number of vectors in the index.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.collection.Count()
}
