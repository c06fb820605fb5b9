// Package sqlite persists the vector index in a SQLite database.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. The snapshot is spread over three tables:
//
//   - index_meta: model, chunk budgets and timestamps (one row)
//   - documents: documents in ingestion order
//   - chunks: chunks in ingestion order, embeddings as float64 blobs
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Writes
//
// Save replaces every row inside a single transaction, so a reader never
// observes a half-written index.
package sqlite
