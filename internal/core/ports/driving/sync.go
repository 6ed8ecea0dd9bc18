package driving

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// IngestionOrchestrator keeps chunk and document stores consistent with sources.
type IngestionOrchestrator interface {
	// Sync reconciles the stores with the current contents of source.
	// Store lookup failures are returned as errors. Every other failure is
	// reported through the returned result.
	Sync(ctx context.Context, source driven.Source, chunkStore, documentStore string, opts ...SyncOption) (*domain.SyncResult, error)

	// Status returns sync status for a source.
	Status(ctx context.Context, sourceID string) (*SyncStatus, error)

	// DeleteDocument removes one document and its chunks.
	DeleteDocument(ctx context.Context, chunkStore, documentStore, sourceID, documentID string) error

	// DeleteSource removes every document of a source and their chunks.
	DeleteSource(ctx context.Context, chunkStore, documentStore, sourceID string) (int, error)

	// CountChunks returns the number of chunks in a chunk store.
	CountChunks(ctx context.Context, chunkStore string) (int, error)

	// CountDocuments returns the number of documents of a source.
	// An empty sourceID counts all documents.
	CountDocuments(ctx context.Context, documentStore, sourceID string) (int, error)
}

// SyncOptions holds per-call sync settings.
type SyncOptions struct {
	// Progress receives informational notifications. May be nil.
	Progress func(domain.Progress)
}

// SyncOption configures a single Sync call.
type SyncOption func(*SyncOptions)

// WithProgress sets the progress callback of a Sync call.
func WithProgress(fn func(domain.Progress)) SyncOption {
	return func(o *SyncOptions) {
		o.Progress = fn
	}
}

// ApplySyncOptions folds opts into a SyncOptions value.
func ApplySyncOptions(opts ...SyncOption) SyncOptions {
	var o SyncOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// SyncStatus represents the current state of a sync operation.
type SyncStatus struct {
	// SourceID identifies the source.
	SourceID string

	// Running indicates if sync is currently in progress.
	Running bool

	// DocumentsProcessed is the count of documents processed.
	DocumentsProcessed int

	// ErrorCount is the number of errors encountered.
	ErrorCount int

	// Last is the persisted summary of the last finished sync, if any.
	Last *domain.SyncState
}
