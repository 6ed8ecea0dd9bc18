package driven

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// DocumentStore persists ingested document records.
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// Upsert stores or replaces documents by Key.
	Upsert(ctx context.Context, docs ...domain.IngestedDocument) error

	// Delete removes documents by Key. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// List returns documents of a source. An empty sourceID lists all.
	List(ctx context.Context, sourceID string) ([]domain.IngestedDocument, error)

	// Count returns the number of documents of a source. An empty sourceID
	// counts all.
	Count(ctx context.Context, sourceID string) (int, error)
}
