package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIndex() *Index {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &Index{
		Documents: []Document{
			{ID: "doc-a", Name: "a.txt", ChunkCount: 2},
			{ID: "doc-b", Name: "b.txt", ChunkCount: 1},
		},
		Chunks: []Chunk{
			{ID: "c1", TokenEstimate: 10, Metadata: ChunkMetadata{DocumentID: "doc-a"}, Embedding: []float64{1, 0, 0}},
			{ID: "c2", TokenEstimate: 20, Metadata: ChunkMetadata{DocumentID: "doc-a"}, Error: "provider down"},
			{ID: "c3", TokenEstimate: 30, Metadata: ChunkMetadata{DocumentID: "doc-b"}, Embedding: []float64{0, 1, 0}},
		},
		Metadata: IndexMetadata{
			Model:        "text-embedding-3-small",
			ChunkSize:    500,
			ChunkOverlap: 50,
			Created:      &created,
			Updated:      &created,
		},
	}
}

func TestIndex_Recount(t *testing.T) {
	idx := sampleIndex()
	idx.Recount()

	assert.Equal(t, 2, idx.Metadata.TotalDocuments)
	assert.Equal(t, 3, idx.Metadata.TotalChunks)
}

func TestIndex_Validate(t *testing.T) {
	t.Run("consistent index", func(t *testing.T) {
		require.NoError(t, sampleIndex().Validate())
	})

	t.Run("orphan chunk", func(t *testing.T) {
		idx := sampleIndex()
		idx.Chunks = append(idx.Chunks, Chunk{ID: "c4", Metadata: ChunkMetadata{DocumentID: "missing"}})

		err := idx.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "missing")
	})
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(sampleIndex())

	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 3, stats.TotalChunks)
	assert.Equal(t, 2, stats.EmbeddedChunks)
	assert.Equal(t, 1, stats.FailedChunks)
	assert.Equal(t, 3, stats.Dimension)
	assert.Equal(t, int64(3*4*3), stats.MemoryBytes)
	assert.InDelta(t, 20.0, stats.AverageChunkTokens, 1e-9)
	assert.Equal(t, "text-embedding-3-small", stats.Model)
	assert.Equal(t, 500, stats.ChunkSize)
	assert.Equal(t, 50, stats.ChunkOverlap)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(&Index{})

	assert.Zero(t, stats.TotalChunks)
	assert.Zero(t, stats.Dimension)
	assert.Zero(t, stats.MemoryBytes)
	assert.Zero(t, stats.AverageChunkTokens)
}

func TestChunk_Helpers(t *testing.T) {
	c := Chunk{StartWord: 10, EndWord: 25, Metadata: ChunkMetadata{DocumentID: "doc-a"}}

	assert.Equal(t, "doc-a", c.DocumentID())
	assert.Equal(t, 15, c.WordCount())
	assert.False(t, c.HasEmbedding())

	c.Embedding = []float64{}
	assert.True(t, c.HasEmbedding())
}

func TestProcessResult_Err(t *testing.T) {
	ok := &ProcessResult{Document: Document{ID: "d"}, Chunks: make([]Chunk, 3)}
	assert.NoError(t, ok.Err())

	partial := &ProcessResult{Document: Document{ID: "d"}, Chunks: make([]Chunk, 3), FailedChunks: 1}
	err := partial.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialFailure)
}

func TestCloneMetadata(t *testing.T) {
	assert.Nil(t, CloneMetadata(nil))

	orig := map[string]any{"path": "/docs/a.md"}
	cp := CloneMetadata(orig)
	cp["path"] = "changed"
	assert.Equal(t, "/docs/a.md", orig["path"])
}

func TestNormaliseMetadata(t *testing.T) {
	got, err := NormaliseMetadata(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	orig := map[string]any{
		"path":   "/docs/a.md",
		"size":   int64(1234),
		"pages":  3,
		"tags":   []string{"go", "rag"},
		"nested": map[string]int{"depth": 2},
		"draft":  false,
	}
	got, err = NormaliseMetadata(orig)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"path":   "/docs/a.md",
		"size":   float64(1234),
		"pages":  float64(3),
		"tags":   []any{"go", "rag"},
		"nested": map[string]any{"depth": float64(2)},
		"draft":  false,
	}, got)
	assert.Equal(t, int64(1234), orig["size"], "input is not modified")

	_, err = NormaliseMetadata(map[string]any{"bad": make(chan int)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
