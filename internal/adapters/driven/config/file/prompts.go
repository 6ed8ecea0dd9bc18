package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed prompts
var defaultPromptFS embed.FS

const promptExt = ".txt"

// promptVerbs is the number of format verbs each known prompt must carry.
var promptVerbs = map[string]int{
	driven.PromptTableDescription: 0,
	driven.PromptTableSchema:      2,
}

var verbPattern = regexp.MustCompile(`%[%a-zA-Z]`)

// PromptStore serves prompt templates from a directory of user-editable
// files. Missing directories are seeded from the embedded defaults on first
// use, and existing files are never overwritten. A file whose format verbs
// do not match its default is ignored.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore creates a prompt store rooted at dir. An empty dir means
// ~/.sercha-ingest/prompts. No I/O happens until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".sercha-ingest", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the named template.
func (s *PromptStore) Load(name string) (string, error) {
	s.seedOnce.Do(s.seed)

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	def, hasDefault := defaultPrompt(name)
	if s.seedErr != nil {
		if hasDefault {
			return def, nil
		}
		return "", fmt.Errorf("prompt store: %w", s.seedErr)
	}

	prompt, err := s.readFile(name)
	switch {
	case err == nil && hasDefault && !verbsMatch(name, prompt):
		logger.Warn("prompt %s in %s has the wrong placeholders, using the default", name, s.dir)
		prompt = def
	case err != nil && hasDefault:
		prompt = def
	case err != nil:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	if existing, ok := s.cache[name]; ok {
		prompt = existing
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()
	return prompt, nil
}

// Reload drops cached templates so the next Load reads the files again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// seed copies every embedded file that is missing from the directory.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	s.seedErr = fs.WalkDir(defaultPromptFS, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		target := filepath.Join(s.dir, d.Name())
		if _, err := os.Stat(target); !errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		data, err := defaultPromptFS.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o600); err != nil {
			return fmt.Errorf("write default prompt %s: %w", d.Name(), err)
		}
		return nil
	})
}

func (s *PromptStore) readFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+promptExt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// defaultPrompt returns the embedded template for name.
func defaultPrompt(name string) (string, bool) {
	data, err := defaultPromptFS.ReadFile("prompts/" + name + promptExt)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// verbsMatch reports whether tpl has as many format verbs as name requires.
// Escaped percent signs are not verbs.
func verbsMatch(name, tpl string) bool {
	want, ok := promptVerbs[name]
	if !ok {
		return true
	}
	got := 0
	for _, m := range verbPattern.FindAllString(tpl, -1) {
		if m != "%%" {
			got++
		}
	}
	return got == want
}
