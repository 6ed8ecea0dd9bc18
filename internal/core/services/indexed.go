package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure IndexedChunkStore implements the interface.
var _ driven.ChunkBackend = (*IndexedChunkStore)(nil)

// overfetch multiplies TopK for the first index query. Each further page
// doubles the limit until TopK hits survive or the indexes run dry.
const overfetch = 4

// rrfK damps reciprocal rank fusion in hybrid search.
const rrfK = 60

// IndexedChunkStore keeps a keyword index and a vector index in step with a
// backing chunk store and answers searches from them. Either index may be
// nil. Without a keyword index, text queries fall back to the backing store.
type IndexedChunkStore struct {
	backend  driven.ChunkBackend
	keyword  driven.SearchEngine
	vectors  driven.VectorIndex
	embedder driven.EmbeddingService
}

// NewIndexedChunkStore wraps backend with optional indexes. The vector
// index is only maintained when an embedding service is given.
func NewIndexedChunkStore(
	backend driven.ChunkBackend,
	keyword driven.SearchEngine,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
) *IndexedChunkStore {
	if embedder == nil {
		vectors = nil
	}
	return &IndexedChunkStore{
		backend:  backend,
		keyword:  keyword,
		vectors:  vectors,
		embedder: embedder,
	}
}

// Kind returns the chunk kind of the backing store.
func (s *IndexedChunkStore) Kind() domain.ChunkKind {
	return s.backend.Kind()
}

// Upsert writes chunks to the backing store, then indexes them.
func (s *IndexedChunkStore) Upsert(ctx context.Context, chunks ...domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.backend.Upsert(ctx, chunks...); err != nil {
		return err
	}

	if s.keyword != nil {
		for _, c := range chunks {
			if err := s.keyword.Index(ctx, c.ChunkKey(), c.SearchText(), domain.ChunkMetadata(c)); err != nil {
				return fmt.Errorf("keyword index: %w", err)
			}
		}
	}

	if s.vectors != nil {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.SearchText()
		}
		embeddings, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		for i, c := range chunks {
			if err := s.vectors.Add(ctx, c.ChunkKey(), embeddings[i], domain.ChunkMetadata(c)); err != nil {
				return fmt.Errorf("vector index: %w", err)
			}
		}
	}
	return nil
}

// Delete removes chunks from the indexes and the backing store.
func (s *IndexedChunkStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	var errs []error
	if s.keyword != nil {
		if err := s.keyword.Delete(ctx, keys...); err != nil {
			errs = append(errs, fmt.Errorf("keyword index: %w", err))
		}
	}
	if s.vectors != nil {
		if err := s.vectors.Delete(ctx, keys...); err != nil {
			errs = append(errs, fmt.Errorf("vector index: %w", err))
		}
	}
	if err := s.backend.Delete(ctx, keys...); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Enumerate delegates to the backing store.
func (s *IndexedChunkStore) Enumerate(ctx context.Context, filter domain.ChunkFilter, limit int) iter.Seq2[domain.Chunk, error] {
	return s.backend.Enumerate(ctx, filter, limit)
}

// Count delegates to the backing store.
func (s *IndexedChunkStore) Count(ctx context.Context, filter domain.ChunkFilter) (int, error) {
	return s.backend.Count(ctx, filter)
}

// Get delegates to the backing store.
func (s *IndexedChunkStore) Get(ctx context.Context, keys ...string) ([]domain.Chunk, error) {
	return s.backend.Get(ctx, keys...)
}

// Search answers a request from the vector index, the keyword index or both.
// Metadata filters the indexes can evaluate are passed down to them. Hits
// are resolved through the backing store and checked against the whole
// filter. When fewer than TopK survive, the indexes are asked again with a
// larger limit until they have nothing more to give.
func (s *IndexedChunkStore) Search(ctx context.Context, req driven.SearchRequest) ([]driven.ChunkHit, error) {
	filter, err := domain.CompileFilters(s.Kind(), req.Filters)
	if err != nil {
		return nil, err
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}

	q, err := s.plan(ctx, req)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return s.backend.Search(ctx, driven.SearchRequest{Text: req.Text, TopK: topK, Filters: req.Filters})
	}
	q.where, _ = filter.Pushdown()

	for limit := topK * overfetch; ; limit *= 2 {
		ranked, exhausted, err := s.rank(ctx, q, limit)
		if err != nil {
			return nil, err
		}
		hits, err := s.resolve(ctx, ranked, filter, topK)
		if err != nil {
			return nil, err
		}
		if len(hits) == topK || exhausted {
			return hits, nil
		}
	}
}

// indexQuery is a search request bound to the indexes that answer it.
type indexQuery struct {
	text    string
	vector  []float32
	keyword bool
	where   map[string]string
}

// plan picks the indexes for req and embeds its text when a vector index
// takes part. A nil query means the backing store answers.
func (s *IndexedChunkStore) plan(ctx context.Context, req driven.SearchRequest) (*indexQuery, error) {
	switch {
	case len(req.Vector) > 0:
		if s.vectors == nil {
			return nil, fmt.Errorf("%w: no vector index", domain.ErrSearchUnavailable)
		}
		return &indexQuery{vector: req.Vector}, nil
	case req.Mode == domain.SearchVector:
		vec, err := s.embedQuery(ctx, req.Text)
		if err != nil {
			return nil, err
		}
		return &indexQuery{vector: vec}, nil
	case req.Mode == domain.SearchHybrid && s.vectors != nil:
		vec, err := s.embedQuery(ctx, req.Text)
		if err != nil {
			return nil, err
		}
		return &indexQuery{text: req.Text, vector: vec, keyword: s.keyword != nil}, nil
	case s.keyword == nil:
		return nil, nil
	default:
		return &indexQuery{text: req.Text, keyword: true}, nil
	}
}

// rank queries the planned indexes for up to limit keys each. exhausted
// reports that no index had more than limit matches.
func (s *IndexedChunkStore) rank(ctx context.Context, q *indexQuery, limit int) (ranked []scoredKey, exhausted bool, err error) {
	exhausted = true
	var lists [][]scoredKey
	if q.keyword {
		kw, err := s.keywordSearch(ctx, q.text, q.where, limit)
		if err != nil {
			return nil, false, err
		}
		exhausted = exhausted && len(kw) < limit
		lists = append(lists, kw)
	}
	if len(q.vector) > 0 {
		vec, err := s.vectorSearch(ctx, q.vector, q.where, limit)
		if err != nil {
			return nil, false, err
		}
		exhausted = exhausted && len(vec) < limit
		lists = append(lists, vec)
	}
	if len(lists) == 1 {
		return lists[0], exhausted, nil
	}
	return fuse(lists), exhausted, nil
}

// Reindex rebuilds both indexes from the backing store.
func (s *IndexedChunkStore) Reindex(ctx context.Context) (int, error) {
	n := 0
	batch := make([]domain.Chunk, 0, 64)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.indexOnly(ctx, batch); err != nil {
			return err
		}
		n += len(batch)
		batch = batch[:0]
		return nil
	}

	for c, err := range s.backend.Enumerate(ctx, domain.ChunkFilter{}, 0) {
		if err != nil {
			return n, err
		}
		batch = append(batch, c)
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	if err := flush(); err != nil {
		return n, err
	}
	logger.Info("Reindexed %d %s chunks", n, s.Kind())
	return n, nil
}

// indexOnly indexes chunks that are already stored.
func (s *IndexedChunkStore) indexOnly(ctx context.Context, chunks []domain.Chunk) error {
	shadow := &IndexedChunkStore{
		backend:  nopWriter{s.backend},
		keyword:  s.keyword,
		vectors:  s.vectors,
		embedder: s.embedder,
	}
	return shadow.Upsert(ctx, chunks...)
}

type scoredKey struct {
	key   string
	score float64
}

func (s *IndexedChunkStore) keywordSearch(ctx context.Context, text string, where map[string]string, limit int) ([]scoredKey, error) {
	hits, err := s.keyword.Search(ctx, text, where, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	ranked := make([]scoredKey, len(hits))
	for i, h := range hits {
		ranked[i] = scoredKey{key: h.ChunkKey, score: h.Score}
	}
	return ranked, nil
}

func (s *IndexedChunkStore) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.vectors == nil {
		return nil, fmt.Errorf("%w: vector search needs an embedding service", domain.ErrEmbeddingUnavailable)
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

func (s *IndexedChunkStore) vectorSearch(ctx context.Context, vec []float32, where map[string]string, limit int) ([]scoredKey, error) {
	hits, err := s.vectors.Search(ctx, vec, where, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	ranked := make([]scoredKey, len(hits))
	for i, h := range hits {
		ranked[i] = scoredKey{key: h.ChunkKey, score: h.Similarity}
	}
	return ranked, nil
}

// fuse merges rankings by reciprocal rank fusion.
func fuse(lists [][]scoredKey) []scoredKey {
	fused := make(map[string]float64)
	for _, list := range lists {
		for rank, h := range list {
			fused[h.key] += 1.0 / float64(rrfK+rank+1)
		}
	}
	ranked := make([]scoredKey, 0, len(fused))
	for key, score := range fused {
		ranked = append(ranked, scoredKey{key: key, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].key < ranked[j].key
	})
	return ranked
}

// resolve loads ranked keys from the backing store. Keys whose chunk is
// gone or fails the filter are dropped.
func (s *IndexedChunkStore) resolve(ctx context.Context, ranked []scoredKey, filter *domain.CompiledFilter, topK int) ([]driven.ChunkHit, error) {
	keys := make([]string, len(ranked))
	scores := make(map[string]float64, len(ranked))
	for i, r := range ranked {
		keys[i] = r.key
		scores[r.key] = r.score
	}
	chunks, err := s.backend.Get(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("resolve hits: %w", err)
	}

	hits := make([]driven.ChunkHit, 0, min(topK, len(chunks)))
	for _, c := range chunks {
		if !filter.Match(c) {
			continue
		}
		hits = append(hits, driven.ChunkHit{Chunk: c, Score: scores[c.ChunkKey()]})
		if len(hits) == topK {
			break
		}
	}
	return hits, nil
}

// nopWriter is a backend whose writes do nothing.
type nopWriter struct {
	driven.ChunkBackend
}

func (nopWriter) Upsert(context.Context, ...domain.Chunk) error { return nil }
