// Package pdf is the directory source for PDF files. Text is extracted per
// page with pdftotext and packed into paragraph chunks tagged with the page.
package pdf

import (
	"github.com/custodia-labs/sercha-ingest/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-ingest/internal/connectors/text"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	pdfnorm "github.com/custodia-labs/sercha-ingest/internal/normalisers/pdf"
	"github.com/custodia-labs/sercha-ingest/internal/postprocessors"
)

// Kind is the source kind of PDF directories.
const Kind = "pdf"

// DefaultExtensions selects PDF files.
var DefaultExtensions = []string{".pdf"}

// NewDecomposer creates a PDF decomposer over the given extractor. A missing
// pdftotext binary fails each document rather than silently yielding nothing.
func NewDecomposer(extractor *pdfnorm.Normaliser, chunking domain.ChunkingSettings) (*text.Decomposer, error) {
	pipeline, err := postprocessors.NewDefaultPipeline(chunking.MaxChars)
	if err != nil {
		return nil, err
	}
	return text.NewDecomposer(Kind, extractor, pipeline,
		text.WithPageLines(chunking.PageLines),
		text.WithFatalErrors(pdfnorm.ErrPDFToolNotFound),
	), nil
}

// NewSource creates a PDF directory source using pdftotext.
func NewSource(root string, chunking domain.ChunkingSettings) (*filesystem.Source, error) {
	return NewSourceWithExtractor(root, pdfnorm.New(), chunking)
}

// NewSourceWithExtractor creates a PDF directory source with a custom extractor.
func NewSourceWithExtractor(root string, extractor *pdfnorm.Normaliser, chunking domain.ChunkingSettings) (*filesystem.Source, error) {
	d, err := NewDecomposer(extractor, chunking)
	if err != nil {
		return nil, err
	}
	return filesystem.New(root, DefaultExtensions, d)
}
