// Package filesystem is the directory source shared by the code, pdf and
// text sources. It walks a root directory, versions files by modification
// time and hands file content to a per-kind Decomposer.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/connectors"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.Source = (*Source)(nil)

// Decomposer turns the content of one file into chunks.
type Decomposer interface {
	// Kind names the source kind, e.g. "code". It prefixes the SourceID.
	Kind() string

	// Decompose returns the chunks of raw. Content that cannot be parsed
	// yields no chunks and a progress notification rather than an error.
	Decompose(ctx context.Context, doc domain.IngestedDocument, raw *domain.RawDocument, progress driven.ProgressFunc) ([]domain.Chunk, error)
}

// Source is a directory of files of one kind.
type Source struct {
	root       string
	sourceID   string
	extensions map[string]bool
	decomposer Decomposer
}

// New creates a directory source. Only files whose extension is listed are
// considered; an empty list admits every file. Hidden files and directories
// are always skipped.
func New(root string, extensions []string, d Decomposer) (*Source, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: root path is required", domain.ErrInvalidInput)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: root path does not exist: %s", domain.ErrInvalidInput, abs)
		}
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root path is not a directory: %s", domain.ErrInvalidInput, abs)
	}

	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = true
	}

	return &Source{
		root:       abs,
		sourceID:   SourceID(d.Kind(), abs),
		extensions: exts,
		decomposer: d,
	}, nil
}

// SourceID returns "<kind>:<abs-root>".
func (s *Source) SourceID() string {
	return s.sourceID
}


// GetNewOrModifiedDocuments walks the root and reports new or changed files.
func (s *Source) GetNewOrModifiedDocuments(
	ctx context.Context,
	existing []domain.IngestedDocument,
	progress driven.ProgressFunc,
) ([]domain.IngestedDocument, error) {
	listing, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	return connectors.NewOrModified(ctx, s.sourceID, listing, existing, progress)
}

// GetDeletedDocuments walks the root and reports stored files that are gone.
func (s *Source) GetDeletedDocuments(
	ctx context.Context,
	existing []domain.IngestedDocument,
	progress driven.ProgressFunc,
) ([]domain.IngestedDocument, error) {
	listing, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	return connectors.Deleted(ctx, listing, existing, progress)
}

// CreateChunksForDocument reads the current content of the file and
// decomposes it.
func (s *Source) CreateChunksForDocument(
	ctx context.Context,
	doc domain.IngestedDocument,
	progress driven.ProgressFunc,
) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := ResolvePath(s.root, doc.DocumentID)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDocument, doc.DocumentID)
		}
		return nil, fmt.Errorf("read %s: %w", doc.DocumentID, err)
	}

	progress.Notify(domain.Progress{Stage: domain.StageRead, DocumentID: doc.DocumentID})

	raw := &domain.RawDocument{
		SourceID:   s.sourceID,
		DocumentID: doc.DocumentID,
		Path:       path,
		MIMEType:   detectMIMEType(path),
		Content:    content,
	}
	return s.decomposer.Decompose(ctx, doc, raw, progress)
}

// Matches reports whether a path under the root would be ingested.
func (s *Source) Matches(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return !isHidden(rel) && s.allowed(path)
}

func (s *Source) allowed(path string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	return s.extensions[strings.ToLower(filepath.Ext(path))]
}

// list walks the root and versions every matching file by mtime.
func (s *Source) list(ctx context.Context) ([]connectors.Listing, error) {
	var listing []connectors.Listing

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == s.root {
				return walkErr
			}
			logger.Warn("skipping %s: %v", path, walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == s.root {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !s.allowed(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// Removed between listing and stat
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		listing = append(listing, connectors.Listing{
			DocumentID: filepath.ToSlash(rel),
			Version:    strconv.FormatInt(info.ModTime().UnixNano(), 10),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}

	return listing, nil
}

// isHidden checks if any component of the path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
