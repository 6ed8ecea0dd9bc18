package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 500 * time.Millisecond

// ChangeType classifies a filesystem change.
type ChangeType int

const (
	ChangeCreated ChangeType = iota
	ChangeUpdated
	ChangeDeleted
)

// String returns the string representation.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is one relevant filesystem event.
type Change struct {
	Type ChangeType
	Path string
}

// Watch reports batches of changes under the root. A batch is emitted once
// no further event has arrived for the debounce interval. The channel is
// closed when ctx is done.
func (s *Source) Watch(ctx context.Context, debounce time.Duration) (<-chan []Change, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := s.addTree(watcher, s.root); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	out := make(chan []Change)
	go s.watchLoop(ctx, watcher, debounce, out)
	return out, nil
}

func (s *Source) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, out chan<- []Change) {
	defer close(out)
	defer watcher.Close()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	var pending []Change
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && s.isVisibleDir(event.Name) {
				if err := s.addTree(watcher, event.Name); err != nil {
					logger.Warn("watch %s: %v", event.Name, err)
				}
			}
			if change := s.handleFsEvent(event); change != nil {
				pending = append(pending, *change)
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher: %v", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			select {
			case out <- pending:
				pending = nil
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleFsEvent converts an fsnotify event into a change, or nil when the
// event is irrelevant: hidden paths, directories, filtered extensions and
// pure permission changes.
func (s *Source) handleFsEvent(event fsnotify.Event) *Change {
	rel, err := filepath.Rel(s.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") || isHidden(rel) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		// A removed directory has no extension; report it so its files are reconciled
		if filepath.Ext(event.Name) != "" && !s.allowed(event.Name) {
			return nil
		}
		return &Change{Type: ChangeDeleted, Path: event.Name}

	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() || !s.allowed(event.Name) {
			return nil
		}
		if event.Has(fsnotify.Create) {
			return &Change{Type: ChangeCreated, Path: event.Name}
		}
		return &Change{Type: ChangeUpdated, Path: event.Name}

	default:
		return nil
	}
}

func (s *Source) isVisibleDir(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || isHidden(rel) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// addTree watches dir and every visible directory below it.
func (s *Source) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != dir {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != s.root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
