package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IndexStore persists index snapshots.
type IndexStore interface {
	// Save writes the full index to path, creating parent directories as
	// needed, and returns the number of bytes written.
	Save(ctx context.Context, path string, idx *domain.Index) (int64, error)

	// Load reads an index from path.
	// Returns *domain.NotFoundError when path does not exist and
	// *domain.ParseError when its contents cannot be decoded.
	Load(ctx context.Context, path string) (*domain.Index, error)
}
