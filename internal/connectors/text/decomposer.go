// Package text is the directory source for generic text files. Markup is
// stripped by the normalisers, the text is cut into pseudo-pages and the
// pages are packed into bounded paragraph chunks.
package text

import (
	"context"
	"errors"

	"github.com/custodia-labs/sercha-ingest/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
	"github.com/custodia-labs/sercha-ingest/internal/normalisers"
	"github.com/custodia-labs/sercha-ingest/internal/postprocessors"
)

// Kind is the source kind of generic text directories.
const Kind = "text"

// Ensure Decomposer implements the interface.
var _ filesystem.Decomposer = (*Decomposer)(nil)

// Normaliser extracts text from raw content.
type Normaliser interface {
	Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error)
}

// Decomposer normalises a file and chunks its pages.
type Decomposer struct {
	kind       string
	normaliser Normaliser
	pipeline   driven.PostProcessorPipeline
	pageLines  int
	fatal      []error
}

// Option configures a Decomposer.
type Option func(*Decomposer)

// WithPageLines sets the pseudo-page height for text without pages.
func WithPageLines(n int) Option {
	return func(d *Decomposer) {
		if n > 0 {
			d.pageLines = n
		}
	}
}

// WithFatalErrors lists normaliser errors that fail the document instead
// of yielding an empty result.
func WithFatalErrors(errs ...error) Option {
	return func(d *Decomposer) {
		d.fatal = append(d.fatal, errs...)
	}
}

// NewDecomposer creates a decomposer reporting kind as its source kind.
func NewDecomposer(kind string, n Normaliser, pipeline driven.PostProcessorPipeline, opts ...Option) *Decomposer {
	d := &Decomposer{
		kind:       kind,
		normaliser: n,
		pipeline:   pipeline,
		pageLines:  postprocessors.DefaultPageLines,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewSource creates a text directory source with the built-in normalisers
// and the default chunking chain.
func NewSource(root string, extensions []string, chunking domain.ChunkingSettings) (*filesystem.Source, error) {
	pipeline, err := postprocessors.NewDefaultPipeline(chunking.MaxChars)
	if err != nil {
		return nil, err
	}
	d := NewDecomposer(Kind, normalisers.NewDefaultRegistry(), pipeline, WithPageLines(chunking.PageLines))
	return filesystem.New(root, extensions, d)
}

// Kind returns the source kind.
func (d *Decomposer) Kind() string {
	return d.kind
}

// Decompose extracts text and chunks it page by page.
func (d *Decomposer) Decompose(
	ctx context.Context,
	doc domain.IngestedDocument,
	raw *domain.RawDocument,
	progress driven.ProgressFunc,
) ([]domain.Chunk, error) {
	result, err := d.normaliser.Normalise(ctx, raw)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		for _, fatal := range d.fatal {
			if errors.Is(err, fatal) {
				return nil, err
			}
		}
		logger.Warn("%s: %v", doc.DocumentID, err)
		progress.Notify(domain.Progress{Stage: domain.StageSkipped, DocumentID: doc.DocumentID, Message: err.Error()})
		return nil, nil
	}

	pages := result.Pages
	if len(pages) == 0 {
		pages = postprocessors.Paginate(result.Content, d.pageLines)
	}

	textChunks, err := d.pipeline.Process(ctx, &domain.PagedDocument{
		Key:        doc.Key,
		DocumentID: doc.DocumentID,
		Pages:      pages,
	})
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, 0, len(textChunks))
	for _, c := range textChunks {
		chunks = append(chunks, c)
	}
	return chunks, nil
}
