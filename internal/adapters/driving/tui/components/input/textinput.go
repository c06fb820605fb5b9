// Package input provides the query input component for the TUI.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
)

// MaxQueryLength bounds the characters accepted in a query.
const MaxQueryLength = 1024

// QueryInput wraps a bubbles textinput and remembers submitted queries.
type QueryInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int

	history []string
	// cursor indexes history while browsing; len(history) means "not browsing".
	cursor int
}

// NewQueryInput creates a focused query input.
func NewQueryInput(s *styles.Styles) *QueryInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask the index..."
	ti.Prompt = "❯ "
	ti.Focus()
	ti.CharLimit = MaxQueryLength
	ti.Width = 50

	return &QueryInput{
		textinput: ti,
		styles:    s,
		width:     50,
	}
}

// Init starts the cursor blinking.
func (q *QueryInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update forwards messages to the text input.
func (q *QueryInput) Update(msg tea.Msg) (*QueryInput, tea.Cmd) {
	var cmd tea.Cmd
	q.textinput, cmd = q.textinput.Update(msg)
	return q, cmd
}

// View renders the input.
func (q *QueryInput) View() string {
	label := q.styles.Title.Render("Query ")
	field := q.styles.InputField.Render(q.textinput.View())
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the trimmed query.
func (q *QueryInput) Value() string {
	return strings.TrimSpace(q.textinput.Value())
}

// SetValue replaces the input text.
func (q *QueryInput) SetValue(value string) {
	q.textinput.SetValue(value)
	q.textinput.CursorEnd()
}

// Remember records a submitted query. Consecutive duplicates are collapsed.
func (q *QueryInput) Remember(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	if n := len(q.history); n == 0 || q.history[n-1] != query {
		q.history = append(q.history, query)
	}
	q.cursor = len(q.history)
}

// History returns the remembered queries, oldest first.
func (q *QueryInput) History() []string {
	return q.history
}

// Previous recalls the query before the one shown.
func (q *QueryInput) Previous() {
	if len(q.history) == 0 {
		return
	}
	if q.cursor > 0 {
		q.cursor--
	}
	q.SetValue(q.history[q.cursor])
}

// Next recalls the query after the one shown, clearing the input past the newest.
func (q *QueryInput) Next() {
	if q.cursor >= len(q.history) {
		return
	}
	q.cursor++
	if q.cursor == len(q.history) {
		q.SetValue("")
		return
	}
	q.SetValue(q.history[q.cursor])
}

// Focus sets focus on the input.
func (q *QueryInput) Focus() tea.Cmd {
	return q.textinput.Focus()
}

// Blur removes focus from the input.
func (q *QueryInput) Blur() {
	q.textinput.Blur()
}

// Focused returns whether the input is focused.
func (q *QueryInput) Focused() bool {
	return q.textinput.Focused()
}

// SetWidth sets the width of the input.
func (q *QueryInput) SetWidth(width int) {
	q.width = width
	// Label, prompt and border.
	q.textinput.Width = max(20, width-12)
}

// Width returns the current width.
func (q *QueryInput) Width() int {
	return q.width
}
