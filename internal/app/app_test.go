package app

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/vector/chromem"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	base := t.TempDir()
	a, err := New(Options{
		ConfigDir: filepath.Join(base, "config"),
		DataDir:   filepath.Join(base, "data"),
		SkipAI:    true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestApp_ChunkStoreFor(t *testing.T) {
	a := newTestApp(t)

	tests := map[string]string{
		"code": driving.StoreCodeChunks,
		"pdf":  driving.StoreTextChunks,
		"text": driving.StoreTextChunks,
		"db":   driving.StoreTableChunks,
	}
	for kind, want := range tests {
		got, err := a.ChunkStoreFor(kind)
		require.NoError(t, err)
		assert.Equal(t, want, got, kind)
	}

	_, err := a.ChunkStoreFor("slack")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = a.Directory("db", t.TempDir())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.ElementsMatch(t, []string{driving.StoreCodeChunks, driving.StoreTableChunks, driving.StoreTextChunks}, a.ChunkStoreNames())
}

func TestApp_DatabaseNotConfigured(t *testing.T) {
	a := newTestApp(t)
	_, err := a.Database(context.Background(), "shop")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApp_SyncAndSearchCode(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "cart.go"), `package shop

// Cart holds line items.
type Cart struct {
	Items []string
}

// Checkout finalises the order.
func (c *Cart) Checkout() error { return nil }
`)

	target, err := a.Directory("code", root)
	require.NoError(t, err)

	result, err := a.Orchestrator().Sync(ctx, target.Source, target.ChunkStore, target.DocumentStore)
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, domain.OutcomeComplete, result.Outcome)
	assert.Equal(t, 1, result.Added)
	assert.Positive(t, result.Chunks)

	hits, err := a.Search().Search(ctx, driving.StoreCodeChunks, domain.SearchOptions{
		Query:   "Checkout",
		Filters: map[string]string{domain.FieldElementKind: "method"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	chunk, ok := hits[0].Chunk.(domain.CodeChunk)
	require.True(t, ok)
	assert.Equal(t, "Checkout", chunk.Name)
	assert.Equal(t, "Cart", chunk.ParentName)

	again, err := a.Orchestrator().Sync(ctx, target.Source, target.ChunkStore, target.DocumentStore)
	require.NoError(t, err)
	assert.Zero(t, again.Added+again.Updated+again.Deleted)
	assert.Equal(t, 1, again.Unchanged)

	n, err := a.Orchestrator().CountDocuments(ctx, driving.StoreDocuments, target.Source.SourceID())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestApp_SchedulerSkipsFreshSource(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.md"), "# Notes\n\nRemember the frobnicator.\n")

	target, err := a.Directory("text", root)
	require.NoError(t, err)
	result, err := a.Orchestrator().Sync(ctx, target.Source, target.ChunkStore, target.DocumentStore)
	require.NoError(t, err)
	require.NoError(t, result.Err)

	var mu sync.Mutex
	runs := 0
	sched := a.NewScheduler(time.Hour, func(*domain.SyncResult) {
		mu.Lock()
		runs++
		mu.Unlock()
	})
	sched.Add(target)

	done := make(chan error, 1)
	go func() { done <- sched.Start(ctx) }()

	assert.Never(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs > 0
	}, 150*time.Millisecond, 10*time.Millisecond)

	require.NoError(t, sched.Stop())
	require.NoError(t, <-done)
}

func TestApp_MetricsHandler(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.txt"), "hello world\n")
	target, err := a.Directory("text", root)
	require.NoError(t, err)
	_, err = a.Orchestrator().Sync(ctx, target.Source, target.ChunkStore, target.DocumentStore)
	require.NoError(t, err)

	srv := httptest.NewServer(a.MetricsHandler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "sercha_ingest_sync_runs_total")
	assert.Contains(t, string(body), `outcome="complete"`)
}

func TestApp_ReopenKeepsIndex(t *testing.T) {
	base := t.TempDir()
	opts := Options{
		ConfigDir: filepath.Join(base, "config"),
		DataDir:   filepath.Join(base, "data"),
		SkipAI:    true,
	}
	ctx := context.Background()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "guide.md"), "# Guide\n\nUse the frobnicator carefully.\n")

	first, err := New(opts)
	require.NoError(t, err)
	target, err := first.Directory("text", root)
	require.NoError(t, err)
	_, err = first.Orchestrator().Sync(ctx, target.Source, target.ChunkStore, target.DocumentStore)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Dropping the keyword index forces a rebuild from the metadata store.
	require.NoError(t, os.RemoveAll(filepath.Join(opts.DataDir, "keyword")))

	second, err := New(opts)
	require.NoError(t, err)
	defer second.Close()

	hits, err := second.Search().Search(ctx, driving.StoreTextChunks, domain.SearchOptions{Query: "frobnicator"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "guide.md", hits[0].Chunk.ChunkDocumentID())
}

func TestNeedsRebuild(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	backend, err := store.ChunkStore(domain.ChunkKindText)
	require.NoError(t, err)

	db, err := chromem.Open("")
	require.NoError(t, err)
	vectors, err := db.Index("text-chunks")
	require.NoError(t, err)

	rebuild, err := needsRebuild(ctx, backend, true, nil)
	require.NoError(t, err)
	assert.False(t, rebuild, "nothing to rebuild from an empty table")

	require.NoError(t, backend.Upsert(ctx, domain.TextChunk{Key: "c1", DocumentID: "a.txt", Page: 1, Text: "hello"}))

	tests := []struct {
		name           string
		keywordCreated bool
		withVectors    bool
		want           bool
	}{
		{name: "existing keyword index", want: false},
		{name: "new keyword index", keywordCreated: true, want: true},
		{name: "empty vector collection", withVectors: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var idx driven.VectorIndex
			if tt.withVectors {
				idx = vectors
			}
			got, err := needsRebuild(ctx, backend, tt.keywordCreated, idx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	require.NoError(t, vectors.Add(ctx, "c1", []float32{1, 0}, nil))
	rebuild, err = needsRebuild(ctx, backend, false, vectors)
	require.NoError(t, err)
	assert.False(t, rebuild, "populated vector collection is kept")
}
