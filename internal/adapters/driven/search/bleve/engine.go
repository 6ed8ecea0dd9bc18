package bleve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/mapping"
	"github.com/blevesearch/bleve/search/query"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure Engine implements the interface.
var _ driven.SearchEngine = (*Engine)(nil)

// textField holds the analysed search text of a chunk. Every other field
// is indexed verbatim.
const textField = "text"

// mappingVersion is stored in the index and bumped whenever newMapping
// changes. Indexes with another version are rebuilt.
const mappingVersion = "2"

var mappingVersionKey = []byte("sercha-ingest:mapping")

// Engine provides full-text search using bleve.
type Engine struct {
	mu      sync.RWMutex
	index   bleve.Index
	path    string
	created bool
}

// New opens the bleve index at path, creating it when missing.
// An empty path creates a memory-only index. An index written with an
// older mapping is discarded and created again.
func New(path string) (*Engine, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("bleve: failed to create index: %w", err)
		}
		return &Engine{index: index, created: true}, nil
	}

	index, err := bleve.Open(path)
	switch {
	case errors.Is(err, bleve.ErrorIndexPathDoesNotExist):
		return create(path)
	case err != nil:
		return nil, fmt.Errorf("bleve: failed to open index %s: %w", path, err)
	}

	version, err := index.GetInternal(mappingVersionKey)
	if err == nil && string(version) == mappingVersion {
		return &Engine{index: index, path: path}, nil
	}
	logger.Info("Keyword index %s has an outdated mapping, rebuilding", path)
	if err := index.Close(); err != nil {
		return nil, fmt.Errorf("bleve: failed to close index %s: %w", path, err)
	}
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("bleve: failed to remove index %s: %w", path, err)
	}
	return create(path)
}

func create(path string) (*Engine, error) {
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("bleve: failed to create index %s: %w", path, err)
	}
	if err := index.SetInternal(mappingVersionKey, []byte(mappingVersion)); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("bleve: failed to record mapping version: %w", err)
	}
	return &Engine{index: index, path: path, created: true}, nil
}

// newMapping analyses the text field with the standard analyzer and keeps
// chunk metadata as single keyword terms.
func newMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	text.Store = false

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name
	exact.Store = false
	exact.IncludeInAll = false
	exact.IncludeTermVectors = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(textField, text)
	for _, field := range domain.MetadataFields() {
		doc.AddFieldMappingsAt(field, exact)
	}
	doc.DefaultAnalyzer = keyword.Name

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

// Created reports whether the index was created empty by New, either
// because none existed or because its mapping was outdated.
func (e *Engine) Created() bool {
	return e.created
}

// Index adds or updates the text and metadata fields of a chunk.
func (e *Engine) Index(_ context.Context, chunkKey, text string, fields map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index == nil {
		return errors.New("bleve: index is closed")
	}
	doc := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		doc[k] = v
	}
	doc[textField] = text
	if err := e.index.Index(chunkKey, doc); err != nil {
		return fmt.Errorf("bleve: failed to index chunk: %w", err)
	}
	return nil
}

// Delete removes chunks from the index.
func (e *Engine) Delete(_ context.Context, chunkKeys ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index == nil {
		return errors.New("bleve: index is closed")
	}
	if len(chunkKeys) == 0 {
		return nil
	}

	batch := e.index.NewBatch()
	for _, key := range chunkKeys {
		batch.Delete(key)
	}
	if err := e.index.Batch(batch); err != nil {
		return fmt.Errorf("bleve: failed to delete chunks: %w", err)
	}
	return nil
}

// Search matches query against the text field and returns chunk keys by
// descending score. Each entry of where adds a term query on its field.
func (e *Engine) Search(ctx context.Context, text string, where map[string]string, limit int) ([]driven.SearchHit, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.index == nil {
		return nil, errors.New("bleve: index is closed")
	}
	if limit <= 0 {
		return nil, nil
	}

	match := bleve.NewMatchQuery(text)
	match.SetField(textField)
	var q query.Query = match
	if len(where) > 0 {
		conj := bleve.NewConjunctionQuery(match)
		for field, value := range where {
			term := bleve.NewTermQuery(value)
			term.SetField(field)
			conj.AddQuery(term)
		}
		q = conj
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve: search failed: %w", err)
	}

	hits := make([]driven.SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, driven.SearchHit{ChunkKey: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Close releases resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index == nil {
		return nil
	}
	err := e.index.Close()
	e.index = nil
	return err
}

// Path returns the index directory, empty for memory-only indexes.
func (e *Engine) Path() string {
	return e.path
}
