package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// VectorIndex is the ordered documents/chunks store searched by the ranker.
// Each Append is applied as a single atomic update so readers always see
// a complete document.
type VectorIndex interface {
	// Append adds a document and its chunks, recomputes the aggregate
	// counts and stamps the updated (and, on first write, created) time.
	Append(doc domain.Document, chunks []domain.Chunk) error

	// Documents returns a copy of the ordered document list.
	Documents() []domain.Document

	// Document returns the document with the given ID.
	Document(id string) (domain.Document, bool)

	// Chunks returns a copy of the ordered chunk list.
	Chunks() []domain.Chunk

	// Len returns the number of chunks.
	Len() int

	// Metadata returns the index metadata block.
	Metadata() domain.IndexMetadata

	// Snapshot returns a deep copy of the full index state.
	Snapshot() *domain.Index

	// Restore replaces the in-memory state with the given index.
	Restore(idx *domain.Index) error

	// Clear removes all documents and chunks but keeps model and chunk settings.
	Clear()

	// DeleteDocument removes a document and all of its chunks.
	DeleteDocument(id string) (domain.Document, error)
}
