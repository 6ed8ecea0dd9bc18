package postprocessors

import (
	"strings"
	"testing"
)

func TestPaginate(t *testing.T) {
	t.Run("empty text has no pages", func(t *testing.T) {
		if pages := Paginate("  \n ", 10); pages != nil {
			t.Errorf("expected nil pages, got %v", pages)
		}
	})

	t.Run("splits into fixed line counts", func(t *testing.T) {
		lines := make([]string, 25)
		for i := range lines {
			lines[i] = "line"
		}
		pages := Paginate(strings.Join(lines, "\n"), 10)
		if len(pages) != 3 {
			t.Fatalf("expected 3 pages, got %d", len(pages))
		}
		for i, p := range pages {
			if p.Number != i+1 {
				t.Errorf("page %d numbered %d", i, p.Number)
			}
		}
		if got := strings.Count(pages[2].Text, "\n") + 1; got != 5 {
			t.Errorf("expected 5 lines on last page, got %d", got)
		}
	})

	t.Run("non-positive height uses default", func(t *testing.T) {
		pages := Paginate(strings.Repeat("x\n", DefaultPageLines), 0)
		if len(pages) != 2 {
			t.Errorf("expected 2 pages, got %d", len(pages))
		}
	})
}
