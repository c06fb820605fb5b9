// Package cli provides the cobra command tree for sercha-rag.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
)

// version is set at build time via -ldflags.
var version = "dev"

// Global flags.
var (
	verbose     bool
	configPath  string
	noConfig    bool
	indexPathFl string
)

// Services are built on first use so commands that only touch settings
// never need a working embedding provider. Tests assign them directly.
var (
	settingsService  driving.SettingsService
	indexService     driving.IndexService
	syncOrchestrator driving.SyncOrchestrator
	documentWatcher  driven.DocumentWatcher
)

// closers release resources acquired while wiring services.
var closers []func() error

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Semantic retrieval over your local documents",
	Long: `sercha-rag splits documents into overlapping chunks, embeds each chunk
and answers natural language queries by cosine similarity.

Documents are added with 'index add', queried with 'search' or the TUI,
and exposed to AI assistants with 'mcp serve'.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default ~/.sercha-rag/config.toml; .yaml/.yml also accepted)")
	rootCmd.PersistentFlags().BoolVar(&noConfig, "no-config", false,
		"ignore the config file and use defaults plus environment")
	rootCmd.PersistentFlags().StringVar(&indexPathFl, "index", "", "index file (overrides index.path)")
}

// Execute runs the root command and releases any services it built.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

func closeServices() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn("close: %v", err)
		}
	}
	closers = nil
}

// requireSettings returns the settings service, opening the config file on first use.
func requireSettings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}

	store, err := openConfigStore()
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	settingsService = services.NewSettingsService(store)
	return settingsService, nil
}

func openConfigStore() (driven.ConfigStore, error) {
	if noConfig {
		logger.Debug("Config file disabled")
		return memory.NewConfigStore(nil), nil
	}

	var store *file.ConfigStore
	var err error
	if configPath != "" {
		store, err = file.NewConfigStoreAt(configPath)
	} else {
		store, err = file.NewConfigStore("")
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("Config file: %s", store.Path())
	return store, nil
}

// loadSettings reads and validates settings, applying the --index override.
func loadSettings() (*domain.AppSettings, error) {
	svc, err := requireSettings()
	if err != nil {
		return nil, err
	}
	if err := svc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w. Run 'sercha-rag settings show'", err)
	}

	settings, err := svc.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if indexPathFl != "" {
		settings.Index.Path = indexPathFl
	}
	return settings, nil
}

// searchDefaults returns the configured result limit and degenerate filter.
// Falls back to built-in defaults when settings cannot be read.
func searchDefaults() domain.SearchSettings {
	defaults := domain.DefaultAppSettings().Search

	svc, err := requireSettings()
	if err != nil {
		return defaults
	}
	settings, err := svc.Get()
	if err != nil || settings.Search.TopK <= 0 {
		return defaults
	}
	return settings.Search
}

// defaultSearchOptions turns the search settings into options for
// interactive surfaces.
func defaultSearchOptions() domain.SearchOptions {
	d := searchDefaults()
	return domain.SearchOptions{Limit: d.TopK, ExcludeDegenerate: d.ExcludeDegenerate}
}

// requireIndex returns the index service, building and loading it on first use.
func requireIndex(ctx context.Context) (driving.IndexService, error) {
	if indexService != nil {
		return indexService, nil
	}

	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}

	svc, err := buildIndexService(ctx, settings)
	if err != nil {
		return nil, err
	}
	closers = append(closers, svc.Close)
	indexService = svc
	return indexService, nil
}

// buildIndexService wires the chunking pipeline, embedder, vector index and
// store described by settings, then loads any index already on disk.
func buildIndexService(ctx context.Context, settings *domain.AppSettings) (*services.IndexService, error) {
	logger.Section("Engine")

	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.BuildPipeline(registry, domain.PipelineConfigFor(settings.Chunking))
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	store, err := storage.NewIndexStore(settings.Index)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	index := memory.NewVectorIndex(settings.Embedding.Model, settings.Chunking)
	svc := services.NewIndexService(pipeline, embedder, index, store, settings.Index.Path)

	logger.Debug("Provider %s, model %s, chunks %d/%d, stages %v, index %s (%s)",
		settings.Embedding.Provider, settings.Embedding.Model,
		settings.Chunking.Size, settings.Chunking.Overlap, pipeline.Stages(),
		settings.Index.Path, settings.Index.Backend)

	if err := svc.LoadIfExists(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("loading index: %w", err)
	}
	return svc, nil
}

// requireSync returns the sync orchestrator over the filesystem connector.
func requireSync(ctx context.Context) (driving.SyncOrchestrator, error) {
	if syncOrchestrator != nil {
		return syncOrchestrator, nil
	}

	idx, err := requireIndex(ctx)
	if err != nil {
		return nil, err
	}
	syncOrchestrator = services.NewSyncOrchestrator(filesystemConnector(), idx)
	return syncOrchestrator, nil
}

// requireWatcher returns the filesystem watcher.
func requireWatcher() driven.DocumentWatcher {
	if documentWatcher == nil {
		documentWatcher = filesystemConnector()
	}
	return documentWatcher
}

var connector *filesystem.Connector

func filesystemConnector() *filesystem.Connector {
	if connector == nil {
		connector = filesystem.New(
			filesystem.WithNormaliser(normalisers.NewDefaultRegistry()),
			filesystem.WithExtensions(filesystem.NormalisedExtensions...),
		)
		closers = append(closers, connector.Close)
	}
	return connector
}
