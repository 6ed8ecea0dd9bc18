package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Well-known store names.
const (
	StoreTextChunks  = driving.StoreTextChunks
	StoreCodeChunks  = driving.StoreCodeChunks
	StoreTableChunks = driving.StoreTableChunks
	StoreDocuments   = driving.StoreDocuments
)

// ChunkStoreBuilder constructs a chunk store on first use.
type ChunkStoreBuilder func(ctx context.Context) (driven.ChunkStore, error)

// DocumentStoreBuilder constructs a document store on first use.
type DocumentStoreBuilder func(ctx context.Context) (driven.DocumentStore, error)

// StoreRegistry resolves stores by name. Each store is built at most once;
// a failed build is not cached, so a later call retries it. Stores are not
// handed out while the health checker reports the index unhealthy.
type StoreRegistry struct {
	health driven.HealthChecker

	mu     sync.RWMutex
	chunks map[string]*lazy[driven.ChunkStore]
	docs   map[string]*lazy[driven.DocumentStore]
}

// NewStoreRegistry creates an empty registry. A nil health checker never
// blocks resolution.
func NewStoreRegistry(health driven.HealthChecker) *StoreRegistry {
	return &StoreRegistry{
		health: health,
		chunks: make(map[string]*lazy[driven.ChunkStore]),
		docs:   make(map[string]*lazy[driven.DocumentStore]),
	}
}

// RegisterChunkStore registers a chunk store builder under name,
// replacing any previous registration.
func (r *StoreRegistry) RegisterChunkStore(name string, build ChunkStoreBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks[name] = &lazy[driven.ChunkStore]{build: build}
}

// RegisterDocumentStore registers a document store builder under name,
// replacing any previous registration.
func (r *StoreRegistry) RegisterDocumentStore(name string, build DocumentStoreBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[name] = &lazy[driven.DocumentStore]{build: build}
}

// ChunkStore returns the chunk store registered under name.
func (r *StoreRegistry) ChunkStore(ctx context.Context, name string) (driven.ChunkStore, error) {
	r.mu.RLock()
	entry, ok := r.chunks[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: chunk store %q", domain.ErrUnknownStore, name)
	}
	if err := r.checkHealth(ctx); err != nil {
		return nil, err
	}
	return entry.get(ctx, name)
}

// DocumentStore returns the document store registered under name.
func (r *StoreRegistry) DocumentStore(ctx context.Context, name string) (driven.DocumentStore, error) {
	r.mu.RLock()
	entry, ok := r.docs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: document store %q", domain.ErrUnknownStore, name)
	}
	if err := r.checkHealth(ctx); err != nil {
		return nil, err
	}
	return entry.get(ctx, name)
}

// ChunkStoreNames lists registered chunk store names in order.
func (r *StoreRegistry) ChunkStoreNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.chunks))
	for name := range r.chunks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *StoreRegistry) checkHealth(ctx context.Context) error {
	if r.health == nil {
		return nil
	}
	h := r.health.Health(ctx)
	switch h.Status {
	case domain.HealthUnhealthy:
		return fmt.Errorf("%w: %s", domain.ErrIndexUnavailable, h.Reason)
	case domain.HealthDegraded:
		logger.Debug("Index degraded: %s", h.Reason)
	}
	return nil
}

// lazy builds a value once. Failed builds are retried on the next call.
type lazy[T any] struct {
	mu    sync.Mutex
	build func(context.Context) (T, error)
	value T
	done  bool
}

func (l *lazy[T]) get(ctx context.Context, name string) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return l.value, nil
	}
	v, err := l.build(ctx)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("build store %q: %w", name, err)
	}
	l.value = v
	l.done = true
	logger.Debug("Store %q ready", name)
	return v, nil
}
