// Package chunker packs paragraphs into bounded text chunks.
package chunker

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/keys"
)

// DefaultMaxChars is the default upper bound on characters per chunk.
const DefaultMaxChars = 1000

// indentBreak is how far a line must be indented past the previous one to
// start a new paragraph.
const indentBreak = 2

// Processor splits each page into paragraphs and packs consecutive paragraphs
// into chunks of at most maxChars characters. Chunks never span pages.
// It implements the PostProcessor interface.
type Processor struct {
	maxChars int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxChars sets the chunk size bound in characters.
func WithMaxChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxChars: DefaultMaxChars,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process creates chunks from the document pages. Input chunks are ignored.
// Chunk keys derive from the document key and the chunk position, so the
// same content always yields the same keys.
func (p *Processor) Process(ctx context.Context, doc *domain.PagedDocument, _ []domain.TextChunk) ([]domain.TextChunk, error) {
	var chunks []domain.TextChunk

	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, text := range Pack(Paragraphs(page.Text), p.maxChars) {
			chunks = append(chunks, domain.TextChunk{
				Key:         keys.ChunkKey(doc.Key, len(chunks)),
				DocumentKey: doc.Key,
				DocumentID:  doc.DocumentID,
				Page:        page.Number,
				Text:        text,
			})
		}
	}

	return chunks, nil
}

// Paragraphs segments layout text. A blank line ends a paragraph, and so does
// a line indented further than its predecessor, which is how first-line
// indents survive pdftotext -layout.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		paragraphs []string
		current    []string
		prevIndent int
	)
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}

		indent := indentation(line)
		if len(current) > 0 && indent-prevIndent >= indentBreak {
			flush()
		}
		current = append(current, trimmed)
		prevIndent = indent
	}
	flush()

	return paragraphs
}

// Pack greedily joins paragraphs with blank lines while the result fits in
// maxChars. Paragraphs longer than maxChars are split on whitespace, or hard
// split when a single word exceeds the bound.
func Pack(paragraphs []string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if size > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}
	add := func(s string, n int) {
		if size > 0 {
			current.WriteString("\n\n")
			size += 2
		}
		current.WriteString(s)
		size += n
	}

	for _, para := range paragraphs {
		n := utf8.RuneCountInString(para)
		switch {
		case size > 0 && size+2+n <= maxChars:
			add(para, n)
		case n <= maxChars:
			flush()
			add(para, n)
		default:
			flush()
			pieces := splitLong(para, maxChars)
			chunks = append(chunks, pieces[:len(pieces)-1]...)
			last := pieces[len(pieces)-1]
			add(last, utf8.RuneCountInString(last))
		}
	}
	flush()

	return chunks
}

// splitLong cuts s into pieces of at most maxChars runes, preferring the last
// whitespace in the second half of each window.
func splitLong(s string, maxChars int) []string {
	runes := []rune(s)
	var pieces []string

	for len(runes) > maxChars {
		cut := maxChars
		for i := maxChars; i > maxChars/2; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}

		piece := strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace)
		if piece != "" {
			pieces = append(pieces, piece)
		}
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	if len(runes) > 0 || len(pieces) == 0 {
		pieces = append(pieces, string(runes))
	}

	return pieces
}

func indentation(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}
