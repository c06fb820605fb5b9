// Package list provides the ranked result list for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// linesPerResult is the height of a collapsed result: title line and preview.
const linesPerResult = 3

// ResultList displays ranked chunks in a navigable list.
type ResultList struct {
	results  []domain.SearchResult
	selected int
	expanded bool
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates a new result list component.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &ResultList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Update handles list navigation keys.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the result list.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No results")
	}

	lines := make([]string, 0, len(r.results)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(r.results))), "")

	start, end := r.visibleRange()
	for i := start; i < end; i++ {
		lines = append(lines, r.renderResult(i, &r.results[i]))
		if i == r.selected && r.expanded {
			lines = append(lines, r.renderExpanded(&r.results[i]))
		}
	}

	return strings.Join(lines, "\n")
}

// visibleRange keeps the selection on screen.
func (r *ResultList) visibleRange() (int, int) {
	visible := max(1, (r.height-2)/linesPerResult)
	if r.expanded {
		// The expanded chunk takes roughly half the space.
		visible = max(1, visible/2)
	}

	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := min(start+visible, len(r.results))
	return start, end
}

// renderResult formats one ranked chunk as a title line and a preview line.
func (r *ResultList) renderResult(index int, result *domain.SearchResult) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	name := result.Document.Name
	if name == "" {
		name = result.Chunk.Metadata.DocumentName
	}
	if name == "" {
		name = "(unnamed)"
	}
	name = truncate(fmt.Sprintf("%s #%d", name, result.Chunk.Position), max(10, r.width-24))

	score := FormatScore(result.Similarity, result.Degenerate)
	rank := fmt.Sprintf("%2d.", result.Rank)

	var title string
	if index == r.selected {
		title = r.styles.Selected.Render(indicator+rank+" "+name) + "  " + r.styles.Score(result.Similarity, result.Degenerate).Render(score)
	} else {
		title = r.styles.Normal.Render(indicator+rank+" "+name) + "  " + r.styles.Score(result.Similarity, result.Degenerate).Render(score)
	}

	preview := truncate(oneLine(result.Chunk.Text), max(20, r.width-8))
	return title + "\n" + r.styles.Muted.Render("     "+preview)
}

// renderExpanded shows the full chunk text wrapped to the list width.
func (r *ResultList) renderExpanded(result *domain.SearchResult) string {
	width := max(20, r.width-8)
	body := lipgloss.NewStyle().Width(width).Render(result.Chunk.Text)

	var meta []string
	if p, ok := result.Chunk.Metadata.Extra[domain.MetadataPath].(string); ok && p != "" {
		meta = append(meta, p)
	}
	meta = append(meta, fmt.Sprintf("words %d-%d", result.Chunk.StartWord, result.Chunk.EndWord))
	meta = append(meta, fmt.Sprintf("~%d tokens", result.Chunk.TokenEstimate))

	return r.styles.Preview.MarginLeft(4).Render(body + "\n" + r.styles.Muted.Render(strings.Join(meta, " · ")))
}

// FormatScore renders a similarity, or "n/a" when it could not be computed.
func FormatScore(similarity float64, degenerate bool) string {
	if degenerate {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", similarity)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// SetResults replaces the results and resets the selection.
func (r *ResultList) SetResults(results []domain.SearchResult) {
	r.results = results
	r.selected = 0
	r.expanded = false
}

// Results returns the current results.
func (r *ResultList) Results() []domain.SearchResult {
	return r.results
}

// Selected returns the index of the selected result.
func (r *ResultList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index.
func (r *ResultList) SetSelected(index int) {
	if index >= 0 && index < len(r.results) {
		r.selected = index
	}
}

// SelectedResult returns the currently selected result, or nil if none.
func (r *ResultList) SelectedResult() *domain.SearchResult {
	if len(r.results) == 0 || r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
	}
}

// ToggleExpanded shows or hides the full text of the selected chunk.
func (r *ResultList) ToggleExpanded() {
	if len(r.results) == 0 {
		r.expanded = false
		return
	}
	r.expanded = !r.expanded
}

// Expanded reports whether the selected chunk is shown in full.
func (r *ResultList) Expanded() bool {
	return r.expanded
}

// SetDimensions sets the component dimensions.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of results.
func (r *ResultList) Count() int {
	return len(r.results)
}

// IsEmpty returns whether the list is empty.
func (r *ResultList) IsEmpty() bool {
	return len(r.results) == 0
}
