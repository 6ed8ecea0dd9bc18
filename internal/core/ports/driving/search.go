package driving

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// SearchService provides search over a named chunk store.
type SearchService interface {
	// Search runs a keyword, vector or hybrid query against one store.
	Search(ctx context.Context, store string, opts domain.SearchOptions) ([]domain.SearchHit, error)
}
