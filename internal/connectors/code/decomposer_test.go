package code

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/keys"
)

func TestDecomposer_Decompose(t *testing.T) {
	d := NewDecomposer(NewGoParser())
	doc := domain.IngestedDocument{Key: "doc-key", SourceID: "code:/repo", DocumentID: "shop/cart.go", DocumentVersion: "1"}
	raw := &domain.RawDocument{Path: "/repo/shop/cart.go", Content: []byte(sample)}

	chunks, err := d.Decompose(context.Background(), doc, raw, nil)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		cc, ok := c.(domain.CodeChunk)
		require.True(t, ok)
		assert.Equal(t, keys.ChunkKey("doc-key", i), cc.Key)
		assert.Equal(t, "shop/cart.go", cc.DocumentID)
		assert.Equal(t, "doc-key", cc.DocumentKey)
		assert.Equal(t, "shop/cart.go", cc.FilePath)
		assert.Equal(t, "shop", cc.Namespace)
	}

	again, err := d.Decompose(context.Background(), doc, raw, nil)
	require.NoError(t, err)
	assert.Equal(t, chunks, again)
}

func TestDecomposer_SyntaxErrorYieldsNoChunks(t *testing.T) {
	var notes []domain.Progress
	chunks, err := NewDecomposer(NewGoParser()).Decompose(
		context.Background(),
		domain.IngestedDocument{Key: "k", DocumentID: "bad.go"},
		&domain.RawDocument{Path: "/repo/bad.go", Content: []byte("package x\nfunc {")},
		func(p domain.Progress) { notes = append(notes, p) },
	)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.StageSkipped, notes[0].Stage)
	assert.Equal(t, "bad.go", notes[0].DocumentID)
}

func TestDecomposer_UnknownExtension(t *testing.T) {
	chunks, err := NewDecomposer(NewGoParser()).Decompose(
		context.Background(),
		domain.IngestedDocument{Key: "k", DocumentID: "main.py"},
		&domain.RawDocument{Path: "/repo/main.py", Content: []byte("print(1)")},
		nil,
	)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestNewSource(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	src, err := NewSource(root, []string{".go"})
	require.NoError(t, err)
	assert.Contains(t, src.SourceID(), "code:")

	docs, err := src.GetNewOrModifiedDocuments(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "main.go", docs[0].DocumentID)

	chunks, err := src.CreateChunksForDocument(context.Background(), docs[0], nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	main := chunks[0].(domain.CodeChunk)
	assert.Equal(t, domain.CodeElementMethod, main.Kind)
	assert.Equal(t, "main", main.Name)
	assert.Equal(t, 3, main.StartLine)
}
