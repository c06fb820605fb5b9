package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentSource discovers documents for ingestion.
type DocumentSource interface {
	// Collect resolves the given paths into documents ready to ingest.
	Collect(ctx context.Context, paths []string) ([]domain.DocumentInput, error)
}

// DocumentWatcher streams changes to documents on disk.
type DocumentWatcher interface {
	// Watch emits a change each time a matching file under dir is written
	// or removed. The channel closes when ctx is cancelled.
	Watch(ctx context.Context, dir string) (<-chan domain.DocumentChange, error)
}
