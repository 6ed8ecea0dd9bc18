package bleve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/blevesearch/bleve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_IndexAndSearch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Index(ctx, "c1", "invoices are paid at the end of the month", nil))
	require.NoError(t, e.Index(ctx, "c2", "the customer table stores customer records", nil))
	require.NoError(t, e.Index(ctx, "c3", "customer invoices", nil))

	hits, err := e.Search(ctx, "customer", nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	keys := []string{hits[0].ChunkKey, hits[1].ChunkKey}
	assert.ElementsMatch(t, []string{"c2", "c3"}, keys)
	assert.Greater(t, hits[0].Score, 0.0)

	hits, err = e.Search(ctx, "customer", nil, 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestEngine_SearchWhere(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for i := range 20 {
		text := "needle needle needle " + fmt.Sprint(i)
		require.NoError(t, e.Index(ctx, fmt.Sprintf("near-%02d", i), text,
			map[string]string{"document_id": "near.txt", "kind": "text"}))
	}
	require.NoError(t, e.Index(ctx, "far", "a single needle in a long haystack of other words",
		map[string]string{"document_id": "far.txt", "kind": "text", "page": "3"}))

	hits, err := e.Search(ctx, "needle", map[string]string{"document_id": "far.txt"}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "far", hits[0].ChunkKey)

	hits, err = e.Search(ctx, "needle", map[string]string{"document_id": "far.txt", "page": "3", "kind": "text"}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = e.Search(ctx, "needle", map[string]string{"document_id": "far"}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits, "metadata is matched whole, not by token")

	hits, err = e.Search(ctx, "near.txt", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, hits, "metadata is not part of the text")
}

func TestEngine_ReindexReplacesText(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Index(ctx, "c1", "alpha", nil))
	require.NoError(t, e.Index(ctx, "c1", "beta", nil))

	hits, err := e.Search(ctx, "alpha", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = e.Search(ctx, "beta", nil, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestEngine_Delete(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Index(ctx, "c1", "parser", nil))
	require.NoError(t, e.Index(ctx, "c2", "parser", nil))
	require.NoError(t, e.Delete(ctx, "c1", "missing"))
	require.NoError(t, e.Delete(ctx))

	hits, err := e.Search(ctx, "parser", nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c2", hits[0].ChunkKey)
}

func TestEngine_PersistentReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyword.bleve")
	ctx := context.Background()

	e, err := New(path)
	require.NoError(t, err)
	assert.True(t, e.Created())
	require.NoError(t, e.Index(ctx, "c1", "reconciliation", map[string]string{"name": "Reconcile"}))
	require.NoError(t, e.Close())
	_, err = os.Stat(path)
	require.NoError(t, err)

	reopened, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	assert.Equal(t, path, reopened.Path())
	assert.False(t, reopened.Created())

	hits, err := reopened.Search(ctx, "reconciliation", map[string]string{"name": "Reconcile"}, 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestEngine_OutdatedMappingIsRebuilt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyword.bleve")

	old, err := bleve.New(path, bleve.NewIndexMapping())
	require.NoError(t, err)
	require.NoError(t, old.Index("c1", map[string]interface{}{"text": "stale"}))
	require.NoError(t, old.Close())

	e, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	assert.True(t, e.Created())

	hits, err := e.Search(context.Background(), "stale", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestEngine_Closed(t *testing.T) {
	e, err := New("")
	require.NoError(t, err)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	assert.Error(t, e.Index(context.Background(), "c", "x", nil))
	assert.Error(t, e.Delete(context.Background(), "c"))
	_, err = e.Search(context.Background(), "x", nil, 1)
	assert.Error(t, err)
}
