package mcp

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports holds the services the MCP server exposes.
type Ports struct {
	Search driving.SearchService

	// Index enables the index_document and stats tools and the index://
	// resources. Search-only servers leave it nil.
	Index driving.IndexService

	// Defaults fills in search tool arguments the caller leaves zero.
	Defaults domain.SearchOptions
}

// Validate reports ErrMissingSearchService when no search service is set.
func (p *Ports) Validate() error {
	if p == nil || p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}

// searchOptions merges tool input with the configured defaults.
func (p *Ports) searchOptions(in SearchInput) domain.SearchOptions {
	opts := domain.SearchOptions{
		Limit:             in.Limit,
		ExcludeDegenerate: in.ExcludeDegenerate || p.Defaults.ExcludeDegenerate,
		MinScore:          in.MinScore,
	}
	if opts.Limit == 0 {
		opts.Limit = p.Defaults.Limit
	}
	if opts.MinScore == 0 {
		opts.MinScore = p.Defaults.MinScore
	}
	return opts
}
