// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The ingestion orchestrator reconciles a Source with a chunk store and a
// document store resolved by name from the StoreRegistry. IndexedChunkStore
// keeps keyword and vector indexes in step with a backing chunk store.
package services
