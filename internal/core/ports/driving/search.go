package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SearchService provides similarity search to external actors.
type SearchService interface {
	// Search embeds the query and returns the top-ranked chunks.
	// opts.Limit of zero selects the default top-K. An empty query or a
	// negative limit fails with *domain.ValidationError.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)
}
