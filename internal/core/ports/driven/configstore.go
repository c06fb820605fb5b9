package driven

// ConfigStore holds user settings as flat, dot-separated keys
// ("embedding.provider", "chunking.size"). Typed getters return the zero
// value when a key is missing or holds another type; callers apply
// defaults themselves.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool

	// Set stores value under key. File-backed stores write through.
	Set(key string, value any) error

	// Delete removes key so the caller's default applies again.
	// Deleting a missing key is not an error.
	Delete(key string) error

	// Save flushes the store to its backing file, if any.
	Save() error

	// Load replaces the in-memory values with the backing file's contents.
	Load() error

	// Path is the backing file, or "" for stores without one.
	Path() string
}
