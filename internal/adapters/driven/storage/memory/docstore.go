package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.IngestedDocument
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.IngestedDocument),
	}
}

// Upsert stores or replaces documents by Key.
func (s *DocumentStore) Upsert(_ context.Context, docs ...domain.IngestedDocument) error {
	for _, doc := range docs {
		if doc.Key == "" {
			return fmt.Errorf("%w: document %q has no key", domain.ErrInvalidInput, doc.DocumentID)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		s.documents[doc.Key] = doc
	}
	return nil
}

// Delete removes documents by Key.
func (s *DocumentStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.documents, k)
	}
	return nil
}

// List returns documents for a source ordered by DocumentID.
func (s *DocumentStore) List(_ context.Context, sourceID string) ([]domain.IngestedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.IngestedDocument
	for _, doc := range s.documents {
		if sourceID == "" || doc.SourceID == sourceID {
			result = append(result, doc)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DocumentID != result[j].DocumentID {
			return result[i].DocumentID < result[j].DocumentID
		}
		return result[i].Key < result[j].Key
	})
	return result, nil
}

// Count returns the number of documents for a source.
func (s *DocumentStore) Count(ctx context.Context, sourceID string) (int, error) {
	docs, err := s.List(ctx, sourceID)
	return len(docs), err
}
