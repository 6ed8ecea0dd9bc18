// Package keys derives storage keys for documents and chunks.
package keys

import (
	"strconv"

	"github.com/google/uuid"
)

// chunkNamespace seeds name-based chunk keys.
var chunkNamespace = uuid.MustParse("6f1b3e4c-8a52-4d0e-9c7a-2e51f0b8d913")

// NewDocumentKey returns a fresh random document key.
func NewDocumentKey() string {
	return uuid.NewString()
}

// ChunkKey returns the key of the chunk at position pos of a document.
// The same document key and position always yield the same chunk key.
func ChunkKey(documentKey string, pos int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(documentKey+"#"+strconv.Itoa(pos))).String()
}
