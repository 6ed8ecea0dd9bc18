package memory

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface for every kind.
var (
	_ driven.ChunkBackend = (*ChunkStore[domain.TextChunk])(nil)
	_ driven.ChunkBackend = (*ChunkStore[domain.CodeChunk])(nil)
	_ driven.ChunkBackend = (*ChunkStore[domain.TableChunk])(nil)
)

// ChunkStore is an in-memory implementation of driven.ChunkBackend holding
// chunks of one concrete type.
type ChunkStore[T domain.Chunk] struct {
	mu     sync.RWMutex
	chunks map[string]T
}

// NewChunkStore creates a new in-memory chunk store for T.
func NewChunkStore[T domain.Chunk]() *ChunkStore[T] {
	return &ChunkStore[T]{
		chunks: make(map[string]T),
	}
}

// NewTextChunkStore creates an in-memory store of text chunks.
func NewTextChunkStore() *ChunkStore[domain.TextChunk] { return NewChunkStore[domain.TextChunk]() }

// NewCodeChunkStore creates an in-memory store of code chunks.
func NewCodeChunkStore() *ChunkStore[domain.CodeChunk] { return NewChunkStore[domain.CodeChunk]() }

// NewTableChunkStore creates an in-memory store of table chunks.
func NewTableChunkStore() *ChunkStore[domain.TableChunk] { return NewChunkStore[domain.TableChunk]() }

// Kind returns the chunk kind the store holds.
func (s *ChunkStore[T]) Kind() domain.ChunkKind {
	var zero T
	return zero.ChunkKind()
}

// Upsert stores or replaces chunks by key. Nothing is written when any
// chunk has the wrong kind.
func (s *ChunkStore[T]) Upsert(_ context.Context, chunks ...domain.Chunk) error {
	typed := make([]T, 0, len(chunks))
	for _, c := range chunks {
		v, ok := c.(T)
		if !ok {
			return fmt.Errorf("%w: %s store got %T", domain.ErrChunkKindMismatch, s.Kind(), c)
		}
		typed = append(typed, v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range typed {
		s.chunks[c.ChunkKey()] = c
	}
	return nil
}

// Delete removes chunks by key.
func (s *ChunkStore[T]) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.chunks, k)
	}
	return nil
}

// Enumerate yields a snapshot of matching chunks in key order.
func (s *ChunkStore[T]) Enumerate(ctx context.Context, filter domain.ChunkFilter, limit int) iter.Seq2[domain.Chunk, error] {
	snapshot := s.matching(func(c T) bool { return filter.Matches(c) })
	if limit > 0 && len(snapshot) > limit {
		snapshot = snapshot[:limit]
	}

	return func(yield func(domain.Chunk, error) bool) {
		for _, c := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}

// Count returns the number of chunks matching filter.
func (s *ChunkStore[T]) Count(_ context.Context, filter domain.ChunkFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.chunks {
		if filter.Matches(c) {
			n++
		}
	}
	return n, nil
}

// Get returns chunks by key in the order requested.
func (s *ChunkStore[T]) Get(_ context.Context, keys ...string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Chunk, 0, len(keys))
	for _, k := range keys {
		if c, ok := s.chunks[k]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

// Search scores chunks by how often the query terms occur in their search
// text. Every term must occur. Vector queries are not supported.
func (s *ChunkStore[T]) Search(_ context.Context, req driven.SearchRequest) ([]driven.ChunkHit, error) {
	if len(req.Vector) > 0 {
		return nil, fmt.Errorf("%w: %s memory store has no vector index", domain.ErrSearchUnavailable, s.Kind())
	}
	filter, err := domain.CompileFilters(s.Kind(), req.Filters)
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(req.Text))
	var hits []driven.ChunkHit
	for _, c := range s.matching(func(c T) bool { return filter.Match(c) }) {
		text := strings.ToLower(c.SearchText())
		score := 0
		for _, term := range terms {
			n := strings.Count(text, term)
			if n == 0 {
				score = -1
				break
			}
			score += n
		}
		if score < 0 {
			continue
		}
		hits = append(hits, driven.ChunkHit{Chunk: c, Score: float64(max(score, 1))})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// matching returns chunks passing keep, ordered by key.
func (s *ChunkStore[T]) matching(keep func(T) bool) []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.chunks))
	for k, c := range s.chunks {
		if keep(c) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	result := make([]domain.Chunk, 0, len(keys))
	for _, k := range keys {
		result = append(result, s.chunks[k])
	}
	return result
}
