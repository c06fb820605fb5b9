package file

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// sampleMetadata is in the JSON-decoded shape ingestion stores.
func sampleMetadata() map[string]any {
	return map[string]any{
		"path":  "/notes/pets.md",
		"size":  float64(1234),
		"tags":  []any{"animals", "notes"},
		"stats": map[string]any{"lines": float64(12), "draft": false},
	}
}

func sampleIndex() *domain.Index {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	updated := created.Add(90 * time.Second)

	return &domain.Index{
		Documents: []domain.Document{
			{
				ID:          "doc-1",
				Name:        "pets.md",
				Type:        "markdown",
				Metadata:    sampleMetadata(),
				ChunkCount:  2,
				TotalTokens: 17,
				ProcessedAt: updated,
			},
		},
		Chunks: []domain.Chunk{
			{
				ID:            "c-1",
				Text:          "cats and dogs",
				TokenEstimate: 4,
				Position:      0,
				StartWord:     0,
				EndWord:       3,
				Metadata: domain.ChunkMetadata{
					DocumentID:   "doc-1",
					DocumentName: "pets.md",
					DocumentType: "markdown",
					Extra:        sampleMetadata(),
				},
				Embedding:      []float64{0.1, -0.2, 1.0 / 3.0, math.SmallestNonzeroFloat64, 1e300},
				EmbeddingModel: "test-model",
				TokensUsed:     17,
			},
			{
				ID:            "c-2",
				Text:          "are common pets",
				TokenEstimate: 4,
				Position:      1,
				StartWord:     3,
				EndWord:       6,
				Metadata: domain.ChunkMetadata{
					DocumentID:   "doc-1",
					DocumentName: "pets.md",
					DocumentType: "markdown",
				},
				Error: "openai: status 500: boom",
			},
		},
		Metadata: domain.IndexMetadata{
			Model:          "test-model",
			ChunkSize:      500,
			ChunkOverlap:   50,
			Created:        &created,
			Updated:        &updated,
			TotalDocuments: 1,
			TotalChunks:    2,
		},
	}
}

func TestStore_SaveLoad_RoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{"plain", nil},
		{"atomic", []Option{WithAtomicWrite()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "nested", "index.json")
			store := NewStore(tc.opts...)

			want := sampleIndex()
			n, err := store.Save(ctx, path, want)
			require.NoError(t, err)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, info.Size(), n)

			_, err = os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err))

			got, err := store.Load(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Nil(t, got.Chunks[1].Embedding)
		})
	}
}

func TestStore_SaveLoad_IngestedMetadata(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.json")
	store := NewStore()

	meta, err := domain.NormaliseMetadata(map[string]any{"path": "/notes/pets.md", "size": int64(1234)})
	require.NoError(t, err)

	want := sampleIndex()
	want.Documents[0].Metadata = meta
	want.Chunks[0].Metadata.Extra = domain.CloneMetadata(meta)

	_, err = store.Save(ctx, path, want)
	require.NoError(t, err)
	got, err := store.Load(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, float64(1234), got.Chunks[0].Metadata.Extra["size"])
}

func TestStore_Save_CreatesPrivateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	path := filepath.Join(dir, "index.json")

	_, err := NewStore().Save(context.Background(), path, sampleIndex())
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestStore_Load_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	_, err := NewStore().Load(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, path, nf.Path)
}

func TestStore_Load_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{not json"},
		{"wrong shape", `{"documents": "nope"}`},
		{"orphan chunk", `{"documents": [], "chunks": [{"id": "c", "metadata": {"documentId": "ghost"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "index.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0600))

			_, err := NewStore().Load(context.Background(), path)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrParse)

			var pe *domain.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, path, pe.Path)
		})
	}
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "index.json")
	_, err := NewStore().Save(ctx, path, sampleIndex())
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewStore().Load(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncode_Layout(t *testing.T) {
	data, err := Encode(sampleIndex())
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"documents"`)
	assert.Contains(t, s, `"chunks"`)
	assert.Contains(t, s, `"metadata"`)
	assert.Contains(t, s, `"chunkOverlap": 50`)
	assert.Contains(t, s, `"documentId": "doc-1"`)
	assert.Contains(t, s, `"embedding": null`)
}

func TestEncode_EmptyIndex(t *testing.T) {
	data, err := Encode(&domain.Index{Metadata: domain.IndexMetadata{TotalChunks: 3}})
	require.NoError(t, err)

	idx, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, idx.Documents)
	assert.Empty(t, idx.Chunks)
	assert.Zero(t, idx.Metadata.TotalChunks)
	assert.Nil(t, idx.Metadata.Created)
}

func TestEncode_Nil(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDecode_RecomputesTotals(t *testing.T) {
	data := []byte(`{
		"documents": [{"id": "d", "name": "n"}],
		"chunks": [],
		"metadata": {"totalDocuments": 10, "totalChunks": 10}
	}`)

	idx, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Metadata.TotalDocuments)
	assert.Equal(t, 0, idx.Metadata.TotalChunks)
}
