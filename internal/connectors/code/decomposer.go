package code

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/keys"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Kind is the source kind of code directories.
const Kind = "code"

// Ensure Decomposer implements the interface.
var _ filesystem.Decomposer = (*Decomposer)(nil)

// Decomposer turns source files into code chunks using the parser
// registered for the file extension.
type Decomposer struct {
	parsers map[string]Parser
}

// NewDecomposer creates a decomposer over the given parsers. Later parsers
// override earlier ones for the same extension.
func NewDecomposer(parsers ...Parser) *Decomposer {
	d := &Decomposer{parsers: make(map[string]Parser)}
	for _, p := range parsers {
		for _, ext := range p.Extensions() {
			d.parsers[strings.ToLower(ext)] = p
		}
	}
	return d
}

// NewSource creates a code directory source with the built-in parsers.
func NewSource(root string, extensions []string) (*filesystem.Source, error) {
	return filesystem.New(root, extensions, NewDecomposer(NewGoParser()))
}

// Kind returns "code".
func (d *Decomposer) Kind() string {
	return Kind
}

// Extensions lists the extensions a parser is registered for.
func (d *Decomposer) Extensions() []string {
	exts := make([]string, 0, len(d.parsers))
	for ext := range d.parsers {
		exts = append(exts, ext)
	}
	return exts
}

// Decompose parses the file and emits one chunk per element. Files with no
// parser or with syntax errors produce no chunks.
func (d *Decomposer) Decompose(
	ctx context.Context,
	doc domain.IngestedDocument,
	raw *domain.RawDocument,
	progress driven.ProgressFunc,
) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser, ok := d.parsers[strings.ToLower(filepath.Ext(raw.Path))]
	if !ok {
		progress.Notify(domain.Progress{Stage: domain.StageSkipped, DocumentID: doc.DocumentID, Message: "no parser for file type"})
		return nil, nil
	}

	elements, err := parser.Parse(raw.Path, raw.Content)
	if err != nil {
		logger.Warn("%s: %v", doc.DocumentID, err)
		progress.Notify(domain.Progress{Stage: domain.StageSkipped, DocumentID: doc.DocumentID, Message: err.Error()})
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(elements))
	for i, el := range elements {
		chunks = append(chunks, domain.CodeChunk{
			Key:           keys.ChunkKey(doc.Key, i),
			DocumentKey:   doc.Key,
			DocumentID:    doc.DocumentID,
			Kind:          el.Kind,
			Name:          el.Name,
			ParentName:    el.ParentName,
			Namespace:     el.Namespace,
			Parameters:    el.Parameters,
			Returns:       el.Returns,
			Attributes:    el.Attributes,
			Documentation: el.Documentation,
			StartLine:     el.StartLine,
			EndLine:       el.EndLine,
			FilePath:      doc.DocumentID,
			Content:       el.Content,
		})
	}
	return chunks, nil
}
