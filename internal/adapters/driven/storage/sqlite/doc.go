// Package sqlite provides SQLite-backed implementations of the document,
// chunk and sync state stores.
//
// Each chunk kind has its own table with typed columns, so a store opened
// for one kind cannot hold chunks of another. Schema changes are applied
// from the embedded migrations directory on open.
package sqlite
