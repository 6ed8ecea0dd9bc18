package driven

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// ProgressFunc receives informational status notifications.
// Implementations must be safe to call from several goroutines.
type ProgressFunc func(domain.Progress)

// Notify calls fn if it is set.
func (fn ProgressFunc) Notify(p domain.Progress) {
	if fn != nil {
		fn(p)
	}
}

// Source is one origin of documents: a directory of files of one kind or a
// database schema. Each variant implements the same three operations.
type Source interface {
	// SourceID returns the stable identifier documents of this source carry.
	SourceID() string

	// GetNewOrModifiedDocuments returns documents that are absent from
	// existing or whose version differs. New documents get a fresh Key;
	// modified ones keep the stored Key and carry the new version.
	// Unchanged documents are omitted. Progress is raised per item considered.
	GetNewOrModifiedDocuments(ctx context.Context, existing []domain.IngestedDocument, progress ProgressFunc) ([]domain.IngestedDocument, error)

	// GetDeletedDocuments returns documents in existing whose DocumentID no
	// longer exists at the source, each DocumentID exactly once.
	GetDeletedDocuments(ctx context.Context, existing []domain.IngestedDocument, progress ProgressFunc) ([]domain.IngestedDocument, error)

	// CreateChunksForDocument decomposes the current content of doc.
	// The result is deterministic for the same content. Unparseable content
	// yields no chunks and a progress notification rather than an error.
	CreateChunksForDocument(ctx context.Context, doc domain.IngestedDocument, progress ProgressFunc) ([]domain.Chunk, error)
}
