// Package domain defines the core business entities for Sercha ingestion.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - IngestedDocument: One file or table tracked for change detection
//   - Chunk: A retrieval unit, one of TextChunk, CodeChunk or TableChunk
//   - CompiledFilter: Typed metadata predicates per chunk kind
//   - SyncResult: The explicit outcome of one sync
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
