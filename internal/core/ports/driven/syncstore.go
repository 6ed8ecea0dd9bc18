package driven

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// SyncStateStore persists the outcome of the last sync per source.
type SyncStateStore interface {
	// Save stores or updates sync state.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves sync state for a source.
	// Returns domain.ErrNotFound if the source never synced.
	Get(ctx context.Context, sourceID string) (*domain.SyncState, error)

	// List returns sync state for every source.
	List(ctx context.Context) ([]domain.SyncState, error)

	// Delete removes sync state for a source.
	Delete(ctx context.Context, sourceID string) error
}
