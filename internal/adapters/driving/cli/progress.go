package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// redrawInterval throttles terminal progress updates.
const redrawInterval = 100 * time.Millisecond

// progressPrinter tallies progress notifications. On a terminal it redraws
// a single status line; elsewhere it stays silent.
type progressPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	redraw bool
	counts map[domain.ProgressStage]int
	drawn  time.Time
	dirty  bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{
		w:      w,
		redraw: isTerminal(w),
		counts: make(map[domain.ProgressStage]int),
	}
}

// Notify records one notification. Safe for concurrent use.
func (p *progressPrinter) Notify(n domain.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts[n.Stage]++
	if !p.redraw {
		return
	}
	if now := time.Now(); now.Sub(p.drawn) >= redrawInterval {
		p.draw()
		p.drawn = now
	}
}

// Done prints the final tally and ends the status line.
func (p *progressPrinter) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.redraw || !p.dirty {
		return
	}
	p.draw()
	fmt.Fprintln(p.w)
}

// Count returns how many notifications of a stage were seen.
func (p *progressPrinter) Count(stage domain.ProgressStage) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[stage]
}

func (p *progressPrinter) draw() {
	p.dirty = true
	fmt.Fprintf(p.w, "\r%s", p.line())
}

func (p *progressPrinter) line() string {
	return fmt.Sprintf("considered %d  read %d  stored %d  skipped %d  deleted %d",
		p.counts[domain.StageConsidered],
		p.counts[domain.StageRead],
		p.counts[domain.StageStored],
		p.counts[domain.StageSkipped],
		p.counts[domain.StageDeleted])
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
