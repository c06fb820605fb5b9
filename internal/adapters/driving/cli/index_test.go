package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

func TestIndexCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range indexCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"add", "list", "delete", "remove", "clear", "export", "import"}, names)
}

func TestIndexAddCmd(t *testing.T) {
	t.Run("requires a path", func(t *testing.T) {
		_, cleanup := setupTestServices()
		defer cleanup()

		_, err := execute(t, "index", "add")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
	})

	t.Run("prints report", func(t *testing.T) {
		ts, cleanup := setupTestServices()
		defer cleanup()

		ts.sync.report = &driving.SyncReport{
			Outcomes: []domain.BatchOutcome{
				{Name: "a.md", Success: true, ChunkCount: 3, TokensUsed: 42},
				{Name: "b.md", Success: true, ChunkCount: 2, FailedChunks: 1},
				{Name: "c.md", Err: errors.New("rate limited")},
			},
			Added:        2,
			Failed:       1,
			BytesWritten: 2048,
		}

		out, err := execute(t, "index", "add", "docs", "notes/*.md")
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"docs", "notes/*.md"}}, ts.sync.paths)
		assert.Contains(t, out, "ok   a.md (3 chunks, 42 tokens)")
		assert.Contains(t, out, "1 of 2 chunks have no embedding")
		assert.Contains(t, out, "FAIL c.md: rate limited")
		assert.Contains(t, out, "Added 2, updated 0, failed 1.")
		assert.Contains(t, out, "Index saved (2048 bytes).")
	})

	t.Run("sync error", func(t *testing.T) {
		ts, cleanup := setupTestServices()
		defer cleanup()

		ts.sync.err = errors.New("path docs does not exist")
		_, err := execute(t, "index", "add", "docs")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})
}

func TestIndexListCmd(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, cleanup := setupTestServices()
		defer cleanup()

		out, err := execute(t, "index", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "No documents indexed.")
	})

	t.Run("lists documents with path", func(t *testing.T) {
		ts, cleanup := setupTestServices()
		defer cleanup()

		ts.index.documents = []domain.Document{
			{ID: "doc-1", Name: "a.md", ChunkCount: 4, Metadata: map[string]any{"path": "/notes/a.md"}},
			{ID: "doc-2", Name: "pasted", ChunkCount: 1},
		}

		out, err := execute(t, "index", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "doc-1")
		assert.Contains(t, out, "/notes/a.md")
		assert.Contains(t, out, "pasted")
		assert.Contains(t, out, "2 documents")
	})
}

func TestIndexDeleteCmd(t *testing.T) {
	t.Run("deletes and saves", func(t *testing.T) {
		ts, cleanup := setupTestServices()
		defer cleanup()

		out, err := execute(t, "index", "delete", "doc-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"doc-1"}, ts.index.deleted)
		assert.Equal(t, []string{""}, ts.index.saved)
		assert.Contains(t, out, "Deleted document doc-1")
	})

	t.Run("not found", func(t *testing.T) {
		ts, cleanup := setupTestServices()
		defer cleanup()

		ts.index.deleteErr = domain.ErrNotFound
		_, err := execute(t, "index", "delete", "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Empty(t, ts.index.saved)
	})

	t.Run("requires id", func(t *testing.T) {
		_, cleanup := setupTestServices()
		defer cleanup()

		_, err := execute(t, "index", "delete")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "accepts 1 arg(s)")
	})
}

func TestIndexRemoveCmd(t *testing.T) {
	t.Run("resolves absolute path", func(t *testing.T) {
		ts, cleanup := setupTestServices()
		defer cleanup()

		ts.sync.removeN = 1
		out, err := execute(t, "index", "remove", "notes/a.md")
		require.NoError(t, err)

		want, _ := filepath.Abs("notes/a.md")
		assert.Equal(t, []string{want}, ts.sync.removed)
		assert.Contains(t, out, "Removed 1 documents")
	})

	t.Run("nothing indexed", func(t *testing.T) {
		_, cleanup := setupTestServices()
		defer cleanup()

		out, err := execute(t, "index", "remove", "/tmp/none.md")
		require.NoError(t, err)
		assert.Contains(t, out, "No documents indexed from /tmp/none.md")
	})
}

func TestIndexClearCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "index", "clear")
	require.NoError(t, err)
	assert.True(t, ts.index.cleared)
	assert.Equal(t, []string{""}, ts.index.saved)
	assert.Contains(t, out, "Index cleared.")
}

func TestIndexExportCmd(t *testing.T) {
	t.Run("saves to path", func(t *testing.T) {
		ts, cleanup := setupTestServices()
		defer cleanup()

		out, err := execute(t, "index", "export", "/backup/index.json")
		require.NoError(t, err)
		assert.Equal(t, []string{"/backup/index.json"}, ts.index.saved)
		assert.Contains(t, out, "Wrote 256 bytes to /backup/index.json")
	})

	t.Run("save error", func(t *testing.T) {
		ts, cleanup := setupTestServices()
		defer cleanup()

		ts.index.saveErr = errors.New("disk full")
		_, err := execute(t, "index", "export", "/backup/index.json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestIndexImportCmd(t *testing.T) {
	t.Run("loads then saves", func(t *testing.T) {
		ts, cleanup := setupTestServices()
		defer cleanup()

		ts.index.stats = domain.IndexStats{TotalDocuments: 3, TotalChunks: 10}
		out, err := execute(t, "index", "import", "/backup/index.json")
		require.NoError(t, err)
		assert.Equal(t, []string{"/backup/index.json"}, ts.index.loaded)
		assert.Equal(t, []string{""}, ts.index.saved)
		assert.Contains(t, out, "Imported 3 documents (10 chunks)")
	})

	t.Run("load error", func(t *testing.T) {
		ts, cleanup := setupTestServices()
		defer cleanup()

		ts.index.loadErr = domain.ErrNotFound
		_, err := execute(t, "index", "import", "/missing.json")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Empty(t, ts.index.saved)
	})
}
