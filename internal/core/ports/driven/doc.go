// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - EmbeddingService: Turns text into a vector (OpenAI, Ollama, hashing)
//   - VectorIndex: Ordered in-memory documents/chunks store
//   - IndexStore: Persists and reloads index snapshots (JSON file, SQLite)
//   - PostProcessor: Produces chunks from document content (chunker)
//   - TokenEstimator: Token budget heuristic used by the chunker
//   - ConfigStore: Flat dot-keyed user settings
//   - Normaliser: Extracts text from a raw file by MIME type
//   - DocumentSource: Discovers documents on disk for ingestion
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or postprocessor package
package driven
