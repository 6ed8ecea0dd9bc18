package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync is already running for the source.
	ErrSyncInProgress = errors.New("sync in progress")

	// Lookup errors. These are fatal to the operation that raised them.

	// ErrUnknownStore indicates no store is registered under the requested name.
	ErrUnknownStore = errors.New("unknown store")

	// ErrUnknownDocument indicates a DocumentID cannot be mapped back to a
	// file or table of its source.
	ErrUnknownDocument = errors.New("unknown document")

	// ErrIndexUnavailable indicates the readiness signal reports the backing
	// index as unhealthy. Stores are not handed out in this state.
	ErrIndexUnavailable = errors.New("index unavailable")

	// Store errors.

	// ErrChunkKindMismatch indicates a chunk was written to a store of another kind.
	ErrChunkKindMismatch = errors.New("chunk kind mismatch")

	// ErrUnsupportedFilter indicates a metadata filter names a field the
	// chunk kind does not have.
	ErrUnsupportedFilter = errors.New("unsupported filter field")

	// Collaborator errors.

	// ErrLLMUnavailable indicates the text generation service is not configured.
	// Table descriptions fall back to a placeholder.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Vector search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSearchUnavailable indicates neither a keyword nor a vector index can
	// answer the request.
	ErrSearchUnavailable = errors.New("search unavailable")
)
