package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Document represents an ingested document.
// The full text is not retained; only its chunks are.
type Document struct {
	// ID is the unique identifier for the document.
	ID string `json:"id"`

	// Name is the human-readable name (usually the file name).
	Name string `json:"name"`

	// Type is the caller-supplied document type (e.g. "markdown").
	Type string `json:"type"`

	// Metadata contains caller-supplied key-value pairs.
	Metadata map[string]any `json:"metadata"`

	// ChunkCount is the number of chunks produced for the document.
	ChunkCount int `json:"chunkCount"`

	// TotalTokens is the embedding token usage summed over all chunks.
	TotalTokens int `json:"totalTokens"`

	// ProcessedAt is when ingestion of the document completed.
	ProcessedAt time.Time `json:"processedAt"`
}

// ChunkMetadata is the fixed core schema attached to every chunk,
// plus an extension map carrying the caller's document metadata.
type ChunkMetadata struct {
	DocumentID   string         `json:"documentId"`
	DocumentName string         `json:"documentName"`
	DocumentType string         `json:"documentType"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Chunk represents a contiguous word window of a document.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string `json:"id"`

	// Text is the window's words joined by single spaces.
	Text string `json:"text"`

	// TokenEstimate is the estimated token count of Text.
	TokenEstimate int `json:"tokenEstimate"`

	// Position is the ordinal position within the document.
	Position int `json:"position"`

	// StartWord and EndWord delimit the half-open word span [StartWord, EndWord).
	StartWord int `json:"startWord"`
	EndWord   int `json:"endWord"`

	// Metadata links the chunk to its document.
	Metadata ChunkMetadata `json:"metadata"`

	// Embedding is the vector representation. Nil when embedding failed.
	Embedding []float64 `json:"embedding"`

	// EmbeddingModel is the model reported by the provider.
	EmbeddingModel string `json:"embeddingModel,omitempty"`

	// TokensUsed is the provider-reported token usage for this chunk.
	TokensUsed int `json:"tokensUsed"`

	// Error records why Embedding is nil.
	Error string `json:"error,omitempty"`
}

// DocumentID returns the id of the document the chunk belongs to.
func (c *Chunk) DocumentID() string {
	return c.Metadata.DocumentID
}

// HasEmbedding returns true if the chunk can take part in ranking.
func (c *Chunk) HasEmbedding() bool {
	return c.Embedding != nil
}

// WordCount returns the number of words covered by the chunk.
func (c *Chunk) WordCount() int {
	return c.EndWord - c.StartWord
}

// DocumentInput is the (content, metadata) pair handed to ingestion.
type DocumentInput struct {
	// Name is the document name.
	Name string

	// Type is the document type.
	Type string

	// Content is the full text to chunk and embed.
	Content string

	// Metadata contains caller-supplied key-value pairs.
	Metadata map[string]any
}

// CloneMetadata returns a shallow copy of a metadata map.
// Nil maps stay nil so serialisation round-trips exactly.
func CloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// NormaliseMetadata converts m to the shape a JSON decode produces:
// numbers become float64, slices []any and nested maps map[string]any.
// Ingestion stores the normalised form so a saved index loads back equal.
// Values JSON cannot encode are rejected with ErrInvalidInput.
func NormaliseMetadata(m map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidInput, err)
	}
	out := make(map[string]any, len(m))
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidInput, err)
	}
	return out, nil
}

// MetadataPath is the metadata key carrying a document's source file path.
const MetadataPath = "path"

// DocumentChange is a filesystem event for a watched document.
type DocumentChange struct {
	// Path is the absolute file path.
	Path string

	// Removed is true when the file was deleted or renamed away.
	Removed bool

	// Input holds the new content when Removed is false.
	Input DocumentInput
}
