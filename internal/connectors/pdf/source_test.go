package pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	pdfnorm "github.com/custodia-labs/sercha-ingest/internal/normalisers/pdf"
)

type fakeRunner struct {
	output []byte
	err    error
}

func (f fakeRunner) Run(context.Context, string, ...string) ([]byte, error) {
	return f.output, f.err
}

func TestSource_ChunksPerPage(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "report.pdf"), []byte("%PDF-1.4"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	out := "Annual Report\n\n    Revenue grew this year.\n\fCosts      fell.\n\f"
	extractor := pdfnorm.NewWithRunner(fakeRunner{output: []byte(out)})

	src, err := NewSourceWithExtractor(root, extractor, domain.ChunkingSettings{MaxChars: 1000, PageLines: 60})
	require.NoError(t, err)
	assert.Contains(t, src.SourceID(), "pdf:")

	docs, err := src.GetNewOrModifiedDocuments(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "report.pdf", docs[0].DocumentID)

	chunks, err := src.CreateChunksForDocument(context.Background(), docs[0], nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	first := chunks[0].(domain.TextChunk)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, "Annual Report\n\nRevenue grew this year.", first.Text)

	second := chunks[1].(domain.TextChunk)
	assert.Equal(t, 2, second.Page)
	assert.Equal(t, "Costs fell.", second.Text)
}

func TestSource_ToolMissingFailsDocument(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.pdf"), []byte("%PDF"), 0o644))

	extractor := pdfnorm.NewWithRunner(fakeRunner{err: pdfnorm.ErrPDFToolNotFound})
	src, err := NewSourceWithExtractor(root, extractor, domain.ChunkingSettings{})
	require.NoError(t, err)

	docs, err := src.GetNewOrModifiedDocuments(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	_, err = src.CreateChunksForDocument(context.Background(), docs[0], nil)
	assert.ErrorIs(t, err, pdfnorm.ErrPDFToolNotFound)
}
