package filesystem

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// SourceID builds the identifier of a directory source.
func SourceID(kind, root string) string {
	return kind + ":" + root
}

// ParseSourceID splits a directory SourceID into kind and root.
func ParseSourceID(id string) (kind, root string, ok bool) {
	kind, root, ok = strings.Cut(id, ":")
	if !ok || kind == "" || !filepath.IsAbs(root) {
		return "", "", false
	}
	return kind, root, true
}

// ResolvePath maps a DocumentID back to a file under root. IDs that are
// absolute or escape the root are unknown documents.
func ResolvePath(root, documentID string) (string, error) {
	if documentID == "" || filepath.IsAbs(documentID) || strings.HasPrefix(documentID, "/") {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownDocument, documentID)
	}

	path := filepath.Join(root, filepath.FromSlash(documentID))
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q is outside %s", domain.ErrUnknownDocument, documentID, root)
	}
	return path, nil
}
