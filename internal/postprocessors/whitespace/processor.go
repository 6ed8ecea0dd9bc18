// Package whitespace normalises spacing inside text chunks.
package whitespace

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

var (
	horizontal = regexp.MustCompile(`[ \t\v\x{00A0}]+`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
)

// Processor collapses runs of spaces and tabs, trims every line and drops
// chunks left empty. It implements the PostProcessor interface.
type Processor struct{}

// New creates a whitespace processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "whitespace"
}

// Process rewrites chunk text in place. Keys and pages are preserved.
func (p *Processor) Process(_ context.Context, _ *domain.PagedDocument, chunks []domain.TextChunk) ([]domain.TextChunk, error) {
	out := chunks[:0]
	for _, c := range chunks {
		c.Text = Normalise(c.Text)
		if c.Text == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Normalise collapses horizontal whitespace and blank line runs.
func Normalise(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = horizontal.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
