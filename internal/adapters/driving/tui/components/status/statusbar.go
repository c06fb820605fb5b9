// Package status provides the status bar component for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// State represents the current application state for display.
type State string

const (
	StateReady     State = "ready"
	StateSearching State = "searching"
	StateError     State = "error"
	StateResults   State = "results"
)

// Bar displays search state, index size and keybinding hints.
type Bar struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	state  State
	width  int

	message     string
	resultCount int
	queryTokens int
	limit       int
	hideNA      bool
	stats       *domain.IndexStats
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	inner := s.width - s.styles.StatusBar.GetHorizontalFrameSize()
	padding := max(1, inner-lipgloss.Width(left)-lipgloss.Width(right))

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	switch s.state {
	case StateSearching:
		return s.styles.Muted.Render("Embedding query...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render("Error: " + s.message)
		}
		return s.styles.Error.Render("Error")
	case StateResults:
		parts := []string{fmt.Sprintf("%d results", s.resultCount)}
		if s.queryTokens > 0 {
			parts = append(parts, fmt.Sprintf("%d query tokens", s.queryTokens))
		}
		if s.message != "" {
			parts = append(parts, s.message)
		}
		return s.styles.Normal.Render(strings.Join(parts, " · "))
	case StateReady:
	}

	if s.stats != nil {
		return s.styles.Muted.Render(s.IndexSummary())
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.state == StateResults && s.resultCount > 0 {
		bindings = s.keymap.ResultsHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings)+1)
	if s.limit > 0 {
		flag := ""
		if s.hideNA {
			flag = " -n/a"
		}
		hints = append(hints, fmt.Sprintf("top %d%s", s.limit, flag))
	}
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// IndexSummary describes the loaded index, e.g. "3 docs · 12 chunks · model".
func (s *Bar) IndexSummary() string {
	if s.stats == nil {
		return ""
	}
	summary := fmt.Sprintf("%d docs · %d chunks", s.stats.TotalDocuments, s.stats.TotalChunks)
	if s.stats.FailedChunks > 0 {
		summary += fmt.Sprintf(" (%d unembedded)", s.stats.FailedChunks)
	}
	if s.stats.Model != "" {
		summary += " · " + s.stats.Model
	}
	return summary
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetResponse records the outcome of a search.
func (s *Bar) SetResponse(resultCount, queryTokens int) {
	s.resultCount = resultCount
	s.queryTokens = queryTokens
}

// ResultCount returns the current result count.
func (s *Bar) ResultCount() int {
	return s.resultCount
}

// SetSearchOptions shows the active result limit and degenerate filter.
func (s *Bar) SetSearchOptions(limit int, excludeDegenerate bool) {
	s.limit = limit
	s.hideNA = excludeDegenerate
}

// SetStats sets the index statistics shown while idle.
func (s *Bar) SetStats(stats domain.IndexStats) {
	s.stats = &stats
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Clear resets the status bar to default state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.resultCount = 0
	s.queryTokens = 0
}
