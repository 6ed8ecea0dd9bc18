package driven

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// HealthChecker reports readiness of the storage and embedding backends.
type HealthChecker interface {
	Health(ctx context.Context) domain.Health
}

// Pinger checks that a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
