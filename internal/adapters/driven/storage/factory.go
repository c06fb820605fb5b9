// Package storage selects the index persistence backend.
package storage

import (
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// NewIndexStore returns the IndexStore for the configured backend.
// An empty backend selects JSON.
func NewIndexStore(settings domain.IndexSettings) (driven.IndexStore, error) {
	switch settings.Backend {
	case domain.IndexBackendJSON, "":
		var opts []file.Option
		if settings.AtomicWrite {
			opts = append(opts, file.WithAtomicWrite())
		}
		return file.NewStore(opts...), nil
	case domain.IndexBackendSQLite:
		return sqlite.NewStore(), nil
	default:
		return nil, fmt.Errorf("index backend %q: %w", settings.Backend, domain.ErrUnsupportedType)
	}
}
