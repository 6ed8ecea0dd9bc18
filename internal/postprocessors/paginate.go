package postprocessors

import (
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// DefaultPageLines is the pseudo-page height used when none is configured.
const DefaultPageLines = 60

// Paginate splits non-paginated text into pseudo-pages of linesPerPage lines
// so text chunks carry a page number like PDF chunks do. Empty text has no pages.
func Paginate(text string, linesPerPage int) []domain.Page {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if linesPerPage <= 0 {
		linesPerPage = DefaultPageLines
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	pages := make([]domain.Page, 0, len(lines)/linesPerPage+1)
	for start := 0; start < len(lines); start += linesPerPage {
		end := min(start+linesPerPage, len(lines))
		pages = append(pages, domain.Page{
			Number: len(pages) + 1,
			Text:   strings.Join(lines[start:end], "\n"),
		})
	}
	return pages
}
