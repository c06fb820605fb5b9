package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available embedding providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API (or any compatible endpoint).
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderHashing is the offline feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderHashing:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs without a remote service.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderHashing:
		return "Feature hashing (offline)"
	default:
		return unknownDescription
	}
}

// IndexBackend selects how the index is persisted.
type IndexBackend string

// Available index backends.
const (
	// IndexBackendJSON stores the index as a single JSON document.
	IndexBackendJSON IndexBackend = "json"

	// IndexBackendSQLite stores the index in a SQLite database.
	IndexBackendSQLite IndexBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b IndexBackend) IsValid() bool {
	return b == IndexBackendJSON || b == IndexBackendSQLite
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// APIKeyEnv names the environment variable consulted when APIKey is empty.
	APIKeyEnv string

	// MinInterval is the enforced pause between consecutive provider calls.
	MinInterval time.Duration

	// Timeout bounds a single provider request.
	Timeout time.Duration

	// MaxRetries is how many times a rate-limited or 5xx call is retried.
	MaxRetries int

	// Dimensions is the vector size for the hashing provider.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings holds the token budgets for the chunk splitter.
type ChunkingSettings struct {
	// Size is the token budget per chunk.
	Size int

	// Overlap is the token overlap between consecutive chunks.
	Overlap int
}

// Validate checks that size > overlap >= 0.
func (c ChunkingSettings) Validate() error {
	if c.Size <= 0 {
		return &ValidationError{Field: "chunk size", Reason: "must be positive"}
	}
	if c.Overlap < 0 {
		return &ValidationError{Field: "chunk overlap", Reason: "must not be negative"}
	}
	if c.Overlap >= c.Size {
		return &ValidationError{Field: "chunk overlap", Reason: "must be smaller than chunk size"}
	}
	return nil
}

// IndexSettings holds index persistence configuration.
type IndexSettings struct {
	// Path is the file the index is saved to and loaded from.
	Path string

	// Backend selects the persistence format.
	Backend IndexBackend

	// AtomicWrite writes to a temporary file and renames it into place.
	AtomicWrite bool
}

// SearchSettings holds search behaviour configuration.
type SearchSettings struct {
	// TopK is the default number of results.
	TopK int

	// ExcludeDegenerate drops results whose similarity is a fallback zero.
	ExcludeDegenerate bool
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	Chunking  ChunkingSettings
	Index     IndexSettings
	Search    SearchSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The index path is left empty; the settings service fills it
// relative to the user's home directory.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:    AIProviderOpenAI,
			Model:       DefaultEmbeddingModels()[AIProviderOpenAI],
			APIKeyEnv:   "OPENAI_API_KEY",
			MinInterval: 100 * time.Millisecond,
			Timeout:     30 * time.Second,
			Dimensions:  256,
		},
		Chunking: ChunkingSettings{
			Size:    500,
			Overlap: 50,
		},
		Index: IndexSettings{
			Backend: IndexBackendJSON,
		},
		Search: SearchSettings{
			TopK: DefaultSearchLimit,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderOllama,
		AIProviderHashing,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:  "nomic-embed-text",
		AIProviderOpenAI:  "text-embedding-3-small",
		AIProviderHashing: "hashing-v1",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config so new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor builds the default chunking pipeline for the given budgets.
func PipelineConfigFor(c ChunkingSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": c.Size,
				"overlap":    c.Overlap,
			},
		},
	}
}
