package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "sercha-rag", rootCmd.Use)
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"verbose", "config", "no-config", "index"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "v", rootCmd.PersistentFlags().Lookup("verbose").Shorthand)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"index", "search", "stats", "watch", "mcp", "tui", "settings", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRequireSettings_OpensConfigFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	settingsService = nil
	configPath = filepath.Join(t.TempDir(), "config.yaml")

	svc, err := requireSettings()
	require.NoError(t, err)
	require.NoError(t, svc.Set("search.top_k", "9"))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 9, settings.Search.TopK)

	_, err = os.Stat(configPath)
	assert.NoError(t, err, "config file is written")

	again, err := requireSettings()
	require.NoError(t, err)
	assert.Same(t, svc, again)
}

func TestRequireSettings_NoConfig(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	settingsService = nil
	noConfig = true

	svc, err := requireSettings()
	require.NoError(t, err)
	assert.IsType(t, &services.SettingsService{}, svc)
}

func TestLoadSettings(t *testing.T) {
	t.Run("index flag overrides path", func(t *testing.T) {
		_, cleanup := setupTestServices()
		defer cleanup()

		indexPathFl = "/data/other.json"
		settings, err := loadSettings()
		require.NoError(t, err)
		assert.Equal(t, "/data/other.json", settings.Index.Path)
	})

	t.Run("invalid settings", func(t *testing.T) {
		ts, cleanup := setupTestServices()
		defer cleanup()

		ts.settings.validateErr = errors.New("missing API key")
		_, err := loadSettings()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid settings")
		assert.Contains(t, err.Error(), "missing API key")
	})
}

func TestSearchDefaults(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	ts.settings.settings.Search.TopK = 12
	ts.settings.settings.Search.ExcludeDegenerate = true

	d := searchDefaults()
	assert.Equal(t, 12, d.TopK)
	assert.True(t, d.ExcludeDegenerate)

	assert.Equal(t, domain.SearchOptions{Limit: 12, ExcludeDegenerate: true}, defaultSearchOptions())

	ts.settings.settings.Search.TopK = 0
	assert.Equal(t, 5, searchDefaults().TopK)
}

// useHashingEngine swaps the mocks for a real settings service configured
// with the offline hashing provider so the full engine can be built.
func useHashingEngine(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "index.json")

	settingsService = services.NewSettingsService(memory.NewConfigStore(map[string]any{
		"embedding.provider":        "hashing",
		"embedding.min_interval_ms": 0,
		"chunking.size":             50,
		"chunking.overlap":          5,
		"index.path":                indexPath,
	}))
	indexService = nil
	syncOrchestrator = nil
	documentWatcher = nil
	return indexPath
}

func TestRequireIndex_BuildsEngine(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	useHashingEngine(t)

	idx, err := requireIndex(context.Background())
	require.NoError(t, err)
	require.NotNil(t, idx)
	assert.Zero(t, idx.Stats(context.Background()).TotalDocuments)

	again, err := requireIndex(context.Background())
	require.NoError(t, err)
	assert.Same(t, idx, again)
	assert.NotEmpty(t, closers)
}

func TestRequireIndex_InvalidSettings(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	indexService = nil
	ts.settings.validateErr = errors.New("bad")

	_, err := requireIndex(context.Background())
	assert.Error(t, err)
	assert.Nil(t, indexService)
}

func TestEndToEnd_AddSearchStats(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	indexPath := useHashingEngine(t)

	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "pets.md"),
		[]byte("# Pets\n\ncats and dogs are popular pets that live with people"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "market.txt"),
		[]byte("the stock market fell sharply as bond yields rose"), 0o600))

	out, err := execute(t, "index", "add", docs)
	require.NoError(t, err)
	assert.Contains(t, out, "pets.md")
	assert.Contains(t, out, "Added 2, updated 0, failed 0.")

	_, err = os.Stat(indexPath)
	require.NoError(t, err, "index saved")

	out, err = execute(t, "search", "cats and dogs", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "[1]")
	assert.NotContains(t, out, "[2]")

	out, err = execute(t, "stats", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_documents": 2`)

	out, err = execute(t, "index", "add", docs)
	require.NoError(t, err)
	assert.Contains(t, out, "Added 0, updated 2, failed 0.")
}
