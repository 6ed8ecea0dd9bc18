package chromem

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	db, err := Open("")
	require.NoError(t, err)
	idx, err := db.Index("text-chunks")
	require.NoError(t, err)
	return idx
}

func TestIndex_AddAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "north", []float32{0, 1, 0}, map[string]string{"page": "1"}))
	require.NoError(t, idx.Add(ctx, "east", []float32{1, 0, 0}, map[string]string{"page": "2"}))
	require.NoError(t, idx.Add(ctx, "north-east", []float32{0.7, 0.7, 0}, nil))

	hits, err := idx.Search(ctx, []float32{0, 1, 0}, nil, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "north", hits[0].ChunkKey)
	assert.Equal(t, "north-east", hits[1].ChunkKey)
	assert.InDelta(t, 1.0, hits[0].Similarity, 0.001)
}

func TestIndex_SearchWhere(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	for i := range 20 {
		key := fmt.Sprintf("near-%02d", i)
		require.NoError(t, idx.Add(ctx, key, []float32{1, float32(i) / 100}, map[string]string{"document_id": "near.txt"}))
	}
	require.NoError(t, idx.Add(ctx, "far", []float32{0, 1}, map[string]string{"document_id": "far.txt"}))

	hits, err := idx.Search(ctx, []float32{1, 0}, map[string]string{"document_id": "far.txt"}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "far", hits[0].ChunkKey)

	hits, err = idx.Search(ctx, []float32{1, 0}, map[string]string{"document_id": "none.txt"}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_SearchClampsK(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "only", []float32{1, 0}, nil))

	hits, err := idx.Search(ctx, []float32{1, 0}, nil, 50)

	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndex_SearchEmpty(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), []float32{1, 0}, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = idx.Search(context.Background(), nil, nil, 5)
	assert.Error(t, err)
}

func TestIndex_AddRequiresEmbedding(t *testing.T) {
	idx := newTestIndex(t)

	err := idx.Add(context.Background(), "k", nil, nil)

	assert.Error(t, err)
	assert.Zero(t, idx.Count())
}

func TestIndex_Delete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "a", []float32{1, 0}, nil))
	require.NoError(t, idx.Add(ctx, "b", []float32{0, 1}, nil))

	require.NoError(t, idx.Delete(ctx, "a", "missing"))
	require.NoError(t, idx.Delete(ctx))

	assert.Equal(t, 1, idx.Count())
	hits, err := idx.Search(ctx, []float32{1, 0}, nil, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ChunkKey)
}

func TestDB_PersistentReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors")
	ctx := context.Background()

	db, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())
	idx, err := db.Index("code-chunks")
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, "k", []float32{0.6, 0.8}, map[string]string{"name": "Get"}))

	reopened, err := Open(path)
	require.NoError(t, err)
	idx2, err := reopened.Index("code-chunks")
	require.NoError(t, err)
	assert.Equal(t, 1, idx2.Count())
}
