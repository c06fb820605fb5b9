// Package messages holds the tea.Msg types passed between the app model
// and its views.
package messages

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SearchCompleted is returned by the search command. Query lets the view
// drop responses to queries that have since been replaced.
type SearchCompleted struct {
	Query    string
	Response *domain.SearchResponse
	Err      error
}

// StatsLoaded refreshes the document and chunk counts in the status bar.
type StatsLoaded struct {
	Stats domain.IndexStats
}

// ViewChanged asks the app to switch views.
type ViewChanged struct {
	View ViewType
}

// ViewType names a top-level view.
type ViewType int

const (
	ViewSearch ViewType = iota
	ViewHelp
)

var viewNames = [...]string{
	ViewSearch: "search",
	ViewHelp:   "help",
}

func (v ViewType) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

// ErrorOccurred surfaces a failure in the status bar.
type ErrorOccurred struct {
	Err error
}

// Quit exits the program.
type Quit struct{}
