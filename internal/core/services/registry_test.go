package services

import (
	"context"
	"errors"
	stdsync "sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

type staticHealth struct {
	health domain.Health
}

func (h staticHealth) Health(context.Context) domain.Health { return h.health }

func TestStoreRegistry_UnknownStore(t *testing.T) {
	r := NewStoreRegistry(nil)

	_, err := r.ChunkStore(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUnknownStore)

	_, err = r.DocumentStore(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUnknownStore)
}

func TestStoreRegistry_BuildsOnce(t *testing.T) {
	r := NewStoreRegistry(nil)
	var builds atomic.Int32
	r.RegisterChunkStore(StoreTextChunks, func(context.Context) (driven.ChunkStore, error) {
		builds.Add(1)
		return memory.NewTextChunkStore(), nil
	})

	var wg stdsync.WaitGroup
	stores := make([]driven.ChunkStore, 8)
	for i := range stores {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.ChunkStore(context.Background(), StoreTextChunks)
			assert.NoError(t, err)
			stores[i] = s
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, s := range stores {
		assert.Same(t, stores[0], s)
	}
}

func TestStoreRegistry_RetriesFailedBuild(t *testing.T) {
	r := NewStoreRegistry(nil)
	calls := 0
	r.RegisterDocumentStore(StoreDocuments, func(context.Context) (driven.DocumentStore, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("disk full")
		}
		return memory.NewDocumentStore(), nil
	})

	_, err := r.DocumentStore(context.Background(), StoreDocuments)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	s, err := r.DocumentStore(context.Background(), StoreDocuments)
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Equal(t, 2, calls)
}

func TestStoreRegistry_HealthGate(t *testing.T) {
	tests := []struct {
		name    string
		health  domain.Health
		wantErr error
	}{
		{name: "healthy", health: domain.Health{Status: domain.HealthHealthy}},
		{name: "degraded", health: domain.Health{Status: domain.HealthDegraded, Reason: "no embedder"}},
		{
			name:    "unhealthy",
			health:  domain.Health{Status: domain.HealthUnhealthy, Reason: "db gone"},
			wantErr: domain.ErrIndexUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewStoreRegistry(staticHealth{tt.health})
			r.RegisterChunkStore(StoreCodeChunks, func(context.Context) (driven.ChunkStore, error) {
				return memory.NewCodeChunkStore(), nil
			})
			r.RegisterDocumentStore(StoreDocuments, func(context.Context) (driven.DocumentStore, error) {
				return memory.NewDocumentStore(), nil
			})

			_, chunkErr := r.ChunkStore(context.Background(), StoreCodeChunks)
			_, docErr := r.DocumentStore(context.Background(), StoreDocuments)
			if tt.wantErr == nil {
				assert.NoError(t, chunkErr)
				assert.NoError(t, docErr)
				return
			}
			assert.ErrorIs(t, chunkErr, tt.wantErr)
			assert.ErrorIs(t, docErr, tt.wantErr)
			assert.Contains(t, chunkErr.Error(), tt.health.Reason)
		})
	}
}

func TestStoreRegistry_UnknownBeatsUnhealthy(t *testing.T) {
	r := NewStoreRegistry(staticHealth{domain.Health{Status: domain.HealthUnhealthy}})

	_, err := r.ChunkStore(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUnknownStore)
}

func TestStoreRegistry_ChunkStoreNames(t *testing.T) {
	r := NewStoreRegistry(nil)
	build := func(context.Context) (driven.ChunkStore, error) { return memory.NewTextChunkStore(), nil }
	r.RegisterChunkStore(StoreTextChunks, build)
	r.RegisterChunkStore(StoreCodeChunks, build)
	r.RegisterChunkStore(StoreTableChunks, build)

	assert.Equal(t, []string{StoreCodeChunks, StoreTableChunks, StoreTextChunks}, r.ChunkStoreNames())
}
