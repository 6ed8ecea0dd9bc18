// Package chromem provides vector similarity search using chromem-go.
// It implements the driven.VectorIndex interface.
//
// Each index is one chromem collection. Embeddings are always supplied by
// the caller; the collection never computes them itself.
package chromem
