package domain

import "time"

// IndexMetadata describes the configuration and aggregates of an index.
type IndexMetadata struct {
	// Model is the embedding model the index was built with.
	Model string `json:"model"`

	// ChunkSize is the token budget per chunk.
	ChunkSize int `json:"chunkSize"`

	// ChunkOverlap is the token overlap between consecutive chunks.
	ChunkOverlap int `json:"chunkOverlap"`

	// Created is stamped on the first append. Nil for an empty index.
	Created *time.Time `json:"created"`

	// Updated is stamped on every append.
	Updated *time.Time `json:"updated"`

	// TotalDocuments always equals len(Index.Documents).
	TotalDocuments int `json:"totalDocuments"`

	// TotalChunks always equals len(Index.Chunks).
	TotalChunks int `json:"totalChunks"`
}

// Index is the full persisted state: ordered documents, ordered chunks
// and the metadata block.
type Index struct {
	Documents []Document    `json:"documents"`
	Chunks    []Chunk       `json:"chunks"`
	Metadata  IndexMetadata `json:"metadata"`
}

// Recount brings the aggregate counts in line with the lists.
func (i *Index) Recount() {
	i.Metadata.TotalDocuments = len(i.Documents)
	i.Metadata.TotalChunks = len(i.Chunks)
}

// Validate checks that every chunk references a document in the index.
func (i *Index) Validate() error {
	ids := make(map[string]struct{}, len(i.Documents))
	for _, d := range i.Documents {
		ids[d.ID] = struct{}{}
	}
	for _, c := range i.Chunks {
		if _, ok := ids[c.Metadata.DocumentID]; !ok {
			return &ValidationError{
				Field:  "chunks",
				Reason: "chunk " + c.ID + " references unknown document " + c.Metadata.DocumentID,
			}
		}
	}
	return nil
}

// IndexStats summarises the state of an index.
type IndexStats struct {
	TotalDocuments int
	TotalChunks    int

	// EmbeddedChunks counts chunks that carry a vector.
	EmbeddedChunks int

	// FailedChunks counts chunks whose embedding failed.
	FailedChunks int

	// Dimension is the vector length of the first embedded chunk.
	Dimension int

	// MemoryBytes approximates vector storage as Dimension * 4 * TotalChunks.
	MemoryBytes int64

	// AverageChunkTokens is the mean token estimate across chunks.
	AverageChunkTokens float64

	Model        string
	ChunkSize    int
	ChunkOverlap int
	Created      *time.Time
	Updated      *time.Time
}

// ComputeStats derives IndexStats from an index snapshot.
func ComputeStats(idx *Index) IndexStats {
	stats := IndexStats{
		TotalDocuments: len(idx.Documents),
		TotalChunks:    len(idx.Chunks),
		Model:          idx.Metadata.Model,
		ChunkSize:      idx.Metadata.ChunkSize,
		ChunkOverlap:   idx.Metadata.ChunkOverlap,
		Created:        idx.Metadata.Created,
		Updated:        idx.Metadata.Updated,
	}

	tokens := 0
	for i := range idx.Chunks {
		c := &idx.Chunks[i]
		tokens += c.TokenEstimate
		if c.HasEmbedding() {
			stats.EmbeddedChunks++
			if stats.Dimension == 0 {
				stats.Dimension = len(c.Embedding)
			}
		} else {
			stats.FailedChunks++
		}
	}

	if stats.TotalChunks > 0 {
		stats.AverageChunkTokens = float64(tokens) / float64(stats.TotalChunks)
	}
	stats.MemoryBytes = int64(stats.Dimension) * 4 * int64(stats.TotalChunks)

	return stats
}
