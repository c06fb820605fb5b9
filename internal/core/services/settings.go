package services

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedAPIKeyEnv   = "embedding.api_key_env"
	keyEmbedIntervalMS  = "embedding.min_interval_ms"
	keyEmbedTimeoutSecs = "embedding.timeout_secs"
	keyEmbedMaxRetries  = "embedding.max_retries"
	keyEmbedDimensions  = "embedding.dimensions"
	keyChunkSize        = "chunking.size"
	keyChunkOverlap     = "chunking.overlap"
	keyIndexPath        = "index.path"
	keyIndexBackend     = "index.backend"
	keyIndexAtomic      = "index.atomic"
	keySearchTopK       = "search.top_k"
	keySearchExclude    = "search.exclude_degenerate"
)

// DefaultDataDirName is the directory under the user's home holding the index.
const DefaultDataDirName = ".sercha-rag"

// SettingsService maps flat config keys onto domain.AppSettings.
type SettingsService struct {
	configStore driven.ConfigStore
	dataDir     string
	lookupEnv   func(string) (string, bool)
}

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithDataDir sets the directory the default index path is resolved against.
func WithDataDir(dir string) SettingsOption {
	return func(s *SettingsService) {
		s.dataDir = dir
	}
}

// WithEnvLookup replaces os.LookupEnv for API key resolution.
func WithEnvLookup(fn func(string) (string, bool)) SettingsOption {
	return func(s *SettingsService) {
		s.lookupEnv = fn
	}
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, opts ...SettingsOption) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			s.dataDir = filepath.Join(home, DefaultDataDirName)
		}
	}
	return s
}

// Get retrieves current application settings. The API key falls back to
// the environment variable named by embedding.api_key_env.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := s.getProvider(defaults.Embedding.Provider)
	model := s.configStore.GetString(keyEmbedModel)
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:    provider,
			Model:       model,
			BaseURL:     s.configStore.GetString(keyEmbedBaseURL),
			APIKey:      s.configStore.GetString(keyEmbedAPIKey),
			APIKeyEnv:   s.getString(keyEmbedAPIKeyEnv, defaults.Embedding.APIKeyEnv),
			MinInterval: s.getDuration(keyEmbedIntervalMS, time.Millisecond, defaults.Embedding.MinInterval),
			Timeout:     s.getDuration(keyEmbedTimeoutSecs, time.Second, defaults.Embedding.Timeout),
			MaxRetries:  s.getInt(keyEmbedMaxRetries, defaults.Embedding.MaxRetries),
			Dimensions:  s.getInt(keyEmbedDimensions, defaults.Embedding.Dimensions),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkSize, defaults.Chunking.Size),
			Overlap: s.getIntAllowZero(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Index: domain.IndexSettings{
			Backend:     s.getBackend(defaults.Index.Backend),
			AtomicWrite: s.getBool(keyIndexAtomic, defaults.Index.AtomicWrite),
		},
		Search: domain.SearchSettings{
			TopK:              s.getInt(keySearchTopK, defaults.Search.TopK),
			ExcludeDegenerate: s.getBool(keySearchExclude, defaults.Search.ExcludeDegenerate),
		},
	}

	if settings.Embedding.APIKey == "" && settings.Embedding.APIKeyEnv != "" {
		if v, ok := s.lookupEnv(settings.Embedding.APIKeyEnv); ok {
			settings.Embedding.APIKey = strings.TrimSpace(v)
		}
	}

	settings.Index.Path = s.configStore.GetString(keyIndexPath)
	if settings.Index.Path == "" {
		settings.Index.Path = s.DefaultIndexPath(settings.Index.Backend)
	}

	return settings, nil
}

// DefaultIndexPath returns the index path used when index.path is unset.
func (s *SettingsService) DefaultIndexPath(backend domain.IndexBackend) string {
	name := "index.json"
	if backend == domain.IndexBackendSQLite {
		name = "index.db"
	}
	return filepath.Join(s.dataDir, name)
}

// Save persists application settings. An API key that came from the
// environment is not written back.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Chunking.Validate(); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedAPIKeyEnv, settings.Embedding.APIKeyEnv},
		{keyEmbedIntervalMS, settings.Embedding.MinInterval.Milliseconds()},
		{keyEmbedTimeoutSecs, int64(settings.Embedding.Timeout / time.Second)},
		{keyEmbedMaxRetries, settings.Embedding.MaxRetries},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyChunkSize, settings.Chunking.Size},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyIndexBackend, string(settings.Index.Backend)},
		{keyIndexAtomic, settings.Index.AtomicWrite},
		{keySearchTopK, settings.Search.TopK},
		{keySearchExclude, settings.Search.ExcludeDegenerate},
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Index.Path != "" && settings.Index.Path != s.DefaultIndexPath(settings.Index.Backend) {
		if err := s.configStore.Set(keyIndexPath, settings.Index.Path); err != nil {
			return fmt.Errorf("save %s: %w", keyIndexPath, err)
		}
	}

	if settings.Embedding.APIKey != "" && !s.keyFromEnv(settings.Embedding) {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}

	return nil
}

func (s *SettingsService) keyFromEnv(e domain.EmbeddingSettings) bool {
	if s.configStore.GetString(keyEmbedAPIKey) != "" || e.APIKeyEnv == "" {
		return false
	}
	v, ok := s.lookupEnv(e.APIKeyEnv)
	return ok && strings.TrimSpace(v) == e.APIKey
}

// Set updates a single setting by its config key, parsing value to the
// key's type.
func (s *SettingsService) Set(key, value string) error {
	value = strings.TrimSpace(value)

	parsed, err := s.parse(key, value)
	if err != nil {
		return err
	}

	switch key {
	case keyChunkSize, keyChunkOverlap:
		current, err := s.Get()
		if err != nil {
			return err
		}
		c := current.Chunking
		if key == keyChunkSize {
			c.Size = parsed.(int)
		} else {
			c.Overlap = parsed.(int)
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Unset removes a stored setting so its default applies again. Chunking
// keys are checked against the other stored budget first.
func (s *SettingsService) Unset(key string) error {
	if !slices.Contains(s.Keys(), key) {
		return &domain.ValidationError{Field: "key", Reason: fmt.Sprintf("unknown setting %q", key)}
	}

	if key == keyChunkSize || key == keyChunkOverlap {
		current, err := s.Get()
		if err != nil {
			return err
		}
		defaults := domain.DefaultAppSettings().Chunking
		c := current.Chunking
		if key == keyChunkSize {
			c.Size = defaults.Size
		} else {
			c.Overlap = defaults.Overlap
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}

	if err := s.configStore.Delete(key); err != nil {
		return fmt.Errorf("unset %s: %w", key, err)
	}
	return nil
}

func (s *SettingsService) parse(key, value string) (any, error) {
	switch key {
	case keyEmbedProvider:
		p := domain.AIProvider(value)
		if !p.IsValid() {
			return nil, &domain.ValidationError{Field: key, Reason: fmt.Sprintf("unknown provider %q", value)}
		}
		return value, nil

	case keyIndexBackend:
		b := domain.IndexBackend(value)
		if !b.IsValid() {
			return nil, &domain.ValidationError{Field: key, Reason: fmt.Sprintf("unknown backend %q", value)}
		}
		return value, nil

	case keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey, keyEmbedAPIKeyEnv, keyIndexPath:
		return value, nil

	case keyEmbedIntervalMS, keyEmbedTimeoutSecs, keyEmbedMaxRetries, keyEmbedDimensions,
		keyChunkSize, keyChunkOverlap, keySearchTopK:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, &domain.ValidationError{Field: key, Reason: "must be an integer"}
		}
		if n < 0 {
			return nil, &domain.ValidationError{Field: key, Reason: "must not be negative"}
		}
		return n, nil

	case keyIndexAtomic, keySearchExclude:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, &domain.ValidationError{Field: key, Reason: "must be true or false"}
		}
		return b, nil

	default:
		return nil, &domain.ValidationError{Field: "key", Reason: fmt.Sprintf("unknown setting %q", key)}
	}
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return &domain.ValidationError{Field: "embedding provider", Reason: fmt.Sprintf("unknown provider %q", provider)}
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if apiKey == "" && provider == settings.Embedding.Provider {
		apiKey = settings.Embedding.APIKey
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s: %w", provider, domain.ErrMissingCredentials)
	}

	settings.Embedding.Provider = provider

	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	// Local providers need a base URL, cloud providers use the client default.
	if provider == domain.AIProviderOllama {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetChunking updates the chunk token budgets.
func (s *SettingsService) SetChunking(size, overlap int) error {
	c := domain.ChunkingSettings{Size: size, Overlap: overlap}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.configStore.Set(keyChunkSize, size); err != nil {
		return fmt.Errorf("save %s: %w", keyChunkSize, err)
	}
	if err := s.configStore.Set(keyChunkOverlap, overlap); err != nil {
		return fmt.Errorf("save %s: %w", keyChunkOverlap, err)
	}
	return nil
}

// Validate checks that the current settings can build the engine.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if err := settings.Chunking.Validate(); err != nil {
		return err
	}
	if !settings.Index.Backend.IsValid() {
		return &domain.ValidationError{Field: keyIndexBackend, Reason: "unknown backend"}
	}
	if settings.Search.TopK <= 0 {
		return &domain.ValidationError{Field: keySearchTopK, Reason: "must be positive"}
	}
	if !settings.Embedding.IsConfigured() {
		if settings.Embedding.Provider.RequiresAPIKey() {
			return fmt.Errorf("%s requires an API key (set %s or %s): %w",
				settings.Embedding.Provider, keyEmbedAPIKey, settings.Embedding.APIKeyEnv,
				domain.ErrMissingCredentials)
		}
		return &domain.ValidationError{Field: keyEmbedProvider, Reason: "not configured"}
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Keys lists the supported config keys.
func (s *SettingsService) Keys() []string {
	keys := []string{
		keyEmbedProvider, keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey, keyEmbedAPIKeyEnv,
		keyEmbedIntervalMS, keyEmbedTimeoutSecs, keyEmbedMaxRetries, keyEmbedDimensions,
		keyChunkSize, keyChunkOverlap,
		keyIndexPath, keyIndexBackend, keyIndexAtomic,
		keySearchTopK, keySearchExclude,
	}
	slices.Sort(keys)
	return keys
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero treats an explicit zero as a value rather than "unset".
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getDuration(key string, unit time.Duration, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * unit
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(keyEmbedProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.IndexBackend) domain.IndexBackend {
	backend := domain.IndexBackend(s.configStore.GetString(keyIndexBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
