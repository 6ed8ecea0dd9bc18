package driving

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Default store names.
const (
	StoreTextChunks  = "text-chunks"
	StoreCodeChunks  = "code-chunks"
	StoreTableChunks = "sql-table-chunks"
	StoreDocuments   = "documents"
)

// SyncTarget is a source together with the stores it syncs into.
type SyncTarget struct {
	Source        driven.Source
	ChunkStore    string
	DocumentStore string

	// Close releases resources held by the source, such as a database
	// connection. May be nil.
	Close func() error
}

// Release calls Close if it is set.
func (t *SyncTarget) Release() error {
	if t == nil || t.Close == nil {
		return nil
	}
	return t.Close()
}

// TargetResolver builds sync targets from user input.
type TargetResolver interface {
	// Directory returns the target for a directory source of the given kind
	// ("code", "pdf" or "text").
	Directory(kind, root string) (*SyncTarget, error)

	// Database connects to a configured database and returns its target.
	Database(ctx context.Context, id string) (*SyncTarget, error)

	// ChunkStoreFor returns the chunk store a source kind syncs into.
	ChunkStoreFor(kind string) (string, error)
}
