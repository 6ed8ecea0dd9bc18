// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Source: Lists changed and deleted documents and chunks them
//   - ChunkStore: Chunk persistence for one chunk kind
//   - DocumentStore: Per-document version records
//   - SyncStateStore: Outcome of the last sync per source
//   - ConfigStore: Application configuration
//   - SearchEngine: Keyword search (bleve). Always present.
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - VectorIndex: Vector storage and search (chromem). Only enabled when EmbeddingService is configured.
//   - EmbeddingService: Generates vector embeddings. Without it, VectorIndex is also disabled.
//   - TextGenerator: Language model completions. Without it, table descriptions use a placeholder.
//   - NormaliserRegistry: Converts non-plain text files. Without it, files are read as-is.
//   - PostProcessorPipeline: Splits and sanitises text chunks.
//   - HealthChecker: Readiness of the backing index.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
