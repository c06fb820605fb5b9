package memory

import (
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory implementation of driven.VectorIndex.
// Readers always observe a whole document: Append takes the write lock
// for the full update.
type VectorIndex struct {
	mu        sync.RWMutex
	documents []domain.Document
	chunks    []domain.Chunk
	meta      domain.IndexMetadata
	now       func() time.Time
}

// NewVectorIndex creates an empty index for the given model and chunk budgets.
func NewVectorIndex(model string, chunking domain.ChunkingSettings) *VectorIndex {
	return &VectorIndex{
		meta: domain.IndexMetadata{
			Model:        model,
			ChunkSize:    chunking.Size,
			ChunkOverlap: chunking.Overlap,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Append adds a document and its chunks.
func (v *VectorIndex) Append(doc domain.Document, chunks []domain.Chunk) error {
	if doc.ID == "" {
		return &domain.ValidationError{Field: "document id", Reason: "must not be empty"}
	}
	for i := range chunks {
		if chunks[i].DocumentID() != doc.ID {
			return &domain.ValidationError{
				Field:  "chunks",
				Reason: "chunk " + chunks[i].ID + " does not belong to document " + doc.ID,
			}
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.indexOf(doc.ID); ok {
		return &domain.ValidationError{Field: "document id", Reason: "duplicate " + doc.ID}
	}

	v.documents = append(v.documents, copyDocument(doc))
	for i := range chunks {
		v.chunks = append(v.chunks, copyChunk(chunks[i]))
	}

	ts := v.now()
	if v.meta.Created == nil {
		created := ts
		v.meta.Created = &created
	}
	v.meta.Updated = &ts
	v.recount()

	return nil
}

// Documents returns a copy of the ordered document list.
func (v *VectorIndex) Documents() []domain.Document {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]domain.Document, len(v.documents))
	for i := range v.documents {
		out[i] = copyDocument(v.documents[i])
	}
	return out
}

// Document returns the document with the given ID.
func (v *VectorIndex) Document(id string) (domain.Document, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	i, ok := v.indexOf(id)
	if !ok {
		return domain.Document{}, false
	}
	return copyDocument(v.documents[i]), true
}

// Chunks returns a copy of the ordered chunk list.
func (v *VectorIndex) Chunks() []domain.Chunk {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]domain.Chunk, len(v.chunks))
	for i := range v.chunks {
		out[i] = copyChunk(v.chunks[i])
	}
	return out
}

// Len returns the number of chunks.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.chunks)
}

// Metadata returns the index metadata block.
func (v *VectorIndex) Metadata() domain.IndexMetadata {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return copyMetadata(v.meta)
}

// Snapshot returns a deep copy of the full index state.
func (v *VectorIndex) Snapshot() *domain.Index {
	v.mu.RLock()
	defer v.mu.RUnlock()

	idx := &domain.Index{
		Documents: make([]domain.Document, len(v.documents)),
		Chunks:    make([]domain.Chunk, len(v.chunks)),
		Metadata:  copyMetadata(v.meta),
	}
	for i := range v.documents {
		idx.Documents[i] = copyDocument(v.documents[i])
	}
	for i := range v.chunks {
		idx.Chunks[i] = copyChunk(v.chunks[i])
	}
	return idx
}

// Restore replaces the in-memory state with the given index.
// The aggregate counts are recomputed from the lists.
func (v *VectorIndex) Restore(idx *domain.Index) error {
	if idx == nil {
		return &domain.ValidationError{Field: "index", Reason: "must not be nil"}
	}
	if err := idx.Validate(); err != nil {
		return err
	}

	docs := make([]domain.Document, len(idx.Documents))
	for i := range idx.Documents {
		docs[i] = copyDocument(idx.Documents[i])
	}
	chunks := make([]domain.Chunk, len(idx.Chunks))
	for i := range idx.Chunks {
		chunks[i] = copyChunk(idx.Chunks[i])
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.documents = docs
	v.chunks = chunks
	v.meta = copyMetadata(idx.Metadata)
	v.recount()
	return nil
}

// Clear removes all documents and chunks. Model and chunk budgets are kept;
// timestamps are reset.
func (v *VectorIndex) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.documents = nil
	v.chunks = nil
	v.meta.Created = nil
	v.meta.Updated = nil
	v.recount()
}

// DeleteDocument removes a document and all of its chunks.
func (v *VectorIndex) DeleteDocument(id string) (domain.Document, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	i, ok := v.indexOf(id)
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}

	doc := v.documents[i]
	v.documents = slices.Delete(v.documents, i, i+1)
	v.chunks = slices.DeleteFunc(v.chunks, func(c domain.Chunk) bool {
		return c.DocumentID() == id
	})

	ts := v.now()
	v.meta.Updated = &ts
	v.recount()

	return doc, nil
}

func (v *VectorIndex) indexOf(id string) (int, bool) {
	for i := range v.documents {
		if v.documents[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (v *VectorIndex) recount() {
	v.meta.TotalDocuments = len(v.documents)
	v.meta.TotalChunks = len(v.chunks)
}

func copyDocument(d domain.Document) domain.Document {
	d.Metadata = domain.CloneMetadata(d.Metadata)
	return d
}

func copyChunk(c domain.Chunk) domain.Chunk {
	c.Metadata.Extra = domain.CloneMetadata(c.Metadata.Extra)
	if c.Embedding != nil {
		c.Embedding = slices.Clone(c.Embedding)
	}
	return c
}

func copyMetadata(m domain.IndexMetadata) domain.IndexMetadata {
	if m.Created != nil {
		t := *m.Created
		m.Created = &t
	}
	if m.Updated != nil {
		t := *m.Updated
		m.Updated = &t
	}
	return m
}
