// Package tui provides an interactive terminal user interface for the index.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// ErrMissingSearchService is returned by Validate and New when Ports has no search service.
var ErrMissingSearchService = fmt.Errorf("tui: search service: %w", domain.ErrInvalidInput)

// Ports aggregates the driving ports and defaults used by the TUI.
type Ports struct {
	// Search provides search capabilities.
	Search driving.SearchService

	// Index reports statistics for the status bar. Optional.
	Index driving.IndexService

	// Defaults seeds the result limit and degenerate filter.
	Defaults domain.SearchOptions
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
