package services

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure IndexHealth implements the interface.
var _ driven.HealthChecker = (*IndexHealth)(nil)

// IndexHealth reports readiness of the metadata store and the embedding
// service. A missing embedding service degrades search to keyword only.
type IndexHealth struct {
	store    driven.Pinger
	embedder driven.EmbeddingService
}

// NewIndexHealth creates a health checker. Either argument may be nil.
func NewIndexHealth(store driven.Pinger, embedder driven.EmbeddingService) *IndexHealth {
	return &IndexHealth{store: store, embedder: embedder}
}

// Health pings each configured backend.
func (h *IndexHealth) Health(ctx context.Context) domain.Health {
	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			return domain.Health{Status: domain.HealthUnhealthy, Reason: "metadata store: " + err.Error()}
		}
	}
	if h.embedder == nil {
		return domain.Health{Status: domain.HealthDegraded, Reason: "no embedding service, vector search disabled"}
	}
	if err := h.embedder.Ping(ctx); err != nil {
		return domain.Health{Status: domain.HealthUnhealthy, Reason: "embedding service: " + err.Error()}
	}
	return domain.Health{Status: domain.HealthHealthy}
}
