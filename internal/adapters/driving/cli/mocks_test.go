package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// mockSettingsService is an in-memory driving.SettingsService.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	setErr      error
	set         map[string]string
	unset       []string
}

func newMockSettings() *mockSettingsService {
	s := domain.DefaultAppSettings()
	s.Embedding.APIKey = "sk-test-1234567890"
	s.Index.Path = "/tmp/index.json"
	return &mockSettingsService{settings: s, set: map[string]string{}}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Unset(key string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.unset = append(m.unset, key)
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if provider.RequiresAPIKey() && apiKey == "" && m.settings.Embedding.APIKey == "" {
		return domain.ErrMissingCredentials
	}
	m.settings.Embedding.Provider = provider
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}
	m.settings.Embedding.Model = model
	if apiKey != "" {
		m.settings.Embedding.APIKey = apiKey
	}
	return nil
}

func (m *mockSettingsService) SetChunking(size, overlap int) error {
	c := domain.ChunkingSettings{Size: size, Overlap: overlap}
	if err := c.Validate(); err != nil {
		return err
	}
	m.settings.Chunking = c
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) Keys() []string {
	return []string{"chunking.size", "embedding.model", "search.top_k"}
}

// mockIndexService records calls made by commands.
type mockIndexService struct {
	response  *domain.SearchResponse
	searchErr error
	queries   []string
	opts      []domain.SearchOptions

	documents []domain.Document
	stats     domain.IndexStats
	deleteErr error
	saveErr   error
	loadErr   error

	deleted []string
	saved   []string
	loaded  []string
	cleared bool
}

func (m *mockIndexService) Search(_ context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	m.queries = append(m.queries, query)
	m.opts = append(m.opts, opts)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if m.response == nil {
		return &domain.SearchResponse{}, nil
	}
	return m.response, nil
}

func (m *mockIndexService) ProcessDocument(context.Context, domain.DocumentInput) (*domain.ProcessResult, error) {
	return &domain.ProcessResult{}, nil
}

func (m *mockIndexService) ProcessDocuments(context.Context, []domain.DocumentInput) []domain.BatchOutcome {
	return nil
}

func (m *mockIndexService) ReindexDocument(context.Context, string, domain.DocumentInput) (*domain.ProcessResult, error) {
	return &domain.ProcessResult{}, nil
}

func (m *mockIndexService) DeleteDocument(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockIndexService) Documents(context.Context) []domain.Document { return m.documents }

func (m *mockIndexService) Stats(context.Context) domain.IndexStats { return m.stats }

func (m *mockIndexService) Save(_ context.Context, path string) (int64, error) {
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	m.saved = append(m.saved, path)
	return 256, nil
}

func (m *mockIndexService) Load(_ context.Context, path string) error {
	if m.loadErr != nil {
		return m.loadErr
	}
	m.loaded = append(m.loaded, path)
	return nil
}

func (m *mockIndexService) Clear(context.Context) { m.cleared = true }

// mockSyncOrchestrator returns a canned report.
type mockSyncOrchestrator struct {
	report    *driving.SyncReport
	err       error
	removeN   int
	removeErr error

	paths   [][]string
	inputs  []domain.DocumentInput
	removed []string
}

func (m *mockSyncOrchestrator) Sync(_ context.Context, paths []string) (*driving.SyncReport, error) {
	m.paths = append(m.paths, paths)
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil {
		return &driving.SyncReport{}, nil
	}
	return m.report, nil
}

func (m *mockSyncOrchestrator) SyncInputs(_ context.Context, inputs []domain.DocumentInput) (*driving.SyncReport, error) {
	m.inputs = append(m.inputs, inputs...)
	if m.err != nil {
		return nil, m.err
	}
	outcomes := make([]domain.BatchOutcome, len(inputs))
	for i := range inputs {
		outcomes[i] = domain.BatchOutcome{Name: inputs[i].Name, Success: true, ChunkCount: 1}
	}
	return &driving.SyncReport{Outcomes: outcomes, Added: len(inputs)}, nil
}

func (m *mockSyncOrchestrator) RemovePath(_ context.Context, path string) (int, error) {
	m.removed = append(m.removed, path)
	return m.removeN, m.removeErr
}

func (m *mockSyncOrchestrator) Status() driving.SyncStatus { return driving.SyncStatus{} }

// mockWatcher replays a fixed list of changes and closes the channel.
type mockWatcher struct {
	changes []domain.DocumentChange
	err     error
	dir     string
}

func (m *mockWatcher) Watch(_ context.Context, dir string) (<-chan domain.DocumentChange, error) {
	m.dir = dir
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan domain.DocumentChange, len(m.changes))
	for _, c := range m.changes {
		ch <- c
	}
	close(ch)
	return ch, nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	settings *mockSettingsService
	index    *mockIndexService
	sync     *mockSyncOrchestrator
	watcher  *mockWatcher
}

// setupTestServices installs mocks for every service global and resets
// command flags. The returned cleanup restores the previous state.
func setupTestServices() (*testServices, func()) {
	oldSettings, oldIndex, oldSync, oldWatcher := settingsService, indexService, syncOrchestrator, documentWatcher
	oldStdin, oldIsTerminal := stdin, stdinIsTerminal

	ts := &testServices{
		settings: newMockSettings(),
		index:    &mockIndexService{},
		sync:     &mockSyncOrchestrator{},
		watcher:  &mockWatcher{},
	}
	settingsService = ts.settings
	indexService = ts.index
	syncOrchestrator = ts.sync
	documentWatcher = ts.watcher
	resetFlags()

	return ts, func() {
		closeServices()
		connector = nil
		settingsService, indexService, syncOrchestrator, documentWatcher = oldSettings, oldIndex, oldSync, oldWatcher
		stdin, stdinIsTerminal = oldStdin, oldIsTerminal
		resetFlags()
		rootCmd.SetArgs(nil)
	}
}

func resetFlags() {
	searchLimit = 0
	searchJSON = false
	searchExcludeNA = false
	searchMinScore = 0
	statsJSON = false
	indexPathFl = ""
	noConfig = false
	configPath = ""
	verbose = false
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func setStdin(input string) {
	stdin = bufio.NewReader(strings.NewReader(input))
	stdinIsTerminal = func() bool { return false }
}
