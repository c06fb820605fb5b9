// Package domain defines the core business entities for sercha-rag.
//
// Types:
//
//   - Document: An ingested document with its aggregate counts
//   - Chunk: A word window of a document, the unit of embedding and retrieval
//   - Index: The ordered documents/chunks snapshot that gets persisted
//   - SearchResult: A ranked chunk returned by a similarity query
//   - RawDocument, NormalisedDocument: File bytes before and after text extraction
//   - AppSettings: Embedding, chunking, index and search configuration
//
// Errors are sentinels (ErrInvalidInput, ErrValidation, ...) that adapters
// wrap with %w so callers can branch with errors.Is.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
