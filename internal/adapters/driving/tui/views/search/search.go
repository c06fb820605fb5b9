// Package search provides the search view for the TUI.
package search

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Result limit bounds for the +/- keys.
const (
	MinLimit = 1
	MaxLimit = 50
)

// ErrNoSearchService is reported when a query is submitted without a search service.
var ErrNoSearchService = fmt.Errorf("search view: no search service: %w", domain.ErrInvalidInput)

// View is the search view: query input, ranked results and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.ResultList
	statusbar *status.Bar

	searchService driving.SearchService
	ctx           context.Context

	opts      domain.SearchOptions
	lastQuery string
	model     string

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = typing a query, false = navigating results
}

// NewView creates a new search view. opts supplies the initial result
// limit and degenerate filter.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	searchService driving.SearchService,
	opts domain.SearchOptions,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	if opts.Limit <= 0 {
		opts.Limit = domain.DefaultSearchLimit
	}

	v := &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQueryInput(s),
		list:          list.NewResultList(s),
		statusbar:     status.NewBar(s, km),
		searchService: searchService,
		ctx:           context.Background(),
		opts:          opts,
		width:         80,
		height:        24,
		focusInput:    true,
	}
	v.statusbar.SetSearchOptions(opts.Limit, opts.ExcludeDegenerate)
	return v
}

// WithContext sets the context searches run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.StatsLoaded:
		v.statusbar.SetStats(msg.Stats)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.focusInput {
		return v.handleInputKey(msg)
	}
	return v.handleResultsKey(msg)
}

func (v *View) handleInputKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	//nolint:exhaustive // only keys with input-mode meaning
	switch msg.Type {
	case tea.KeyEnter:
		query := v.input.Value()
		if query == "" {
			return v, nil
		}
		v.input.Remember(query)
		return v, v.submit(query)

	case tea.KeyEsc:
		if !v.list.IsEmpty() {
			v.focusResults()
		}
		return v, nil

	case tea.KeyUp:
		v.input.Previous()
		return v, nil

	case tea.KeyDown:
		v.input.Next()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleResultsKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()

	switch {
	case keymap.Matches(k, v.keymap.Up):
		v.list.MoveUp()
	case keymap.Matches(k, v.keymap.Down):
		v.list.MoveDown()
	case keymap.Matches(k, v.keymap.Expand):
		v.list.ToggleExpanded()
	case keymap.Matches(k, v.keymap.NewSearch):
		v.focusQuery("")
	case keymap.Matches(k, v.keymap.Degenerate):
		v.opts.ExcludeDegenerate = !v.opts.ExcludeDegenerate
		return v, v.rerun()
	case keymap.Matches(k, v.keymap.More):
		return v, v.setLimit(v.opts.Limit + 1)
	case keymap.Matches(k, v.keymap.Fewer):
		return v, v.setLimit(v.opts.Limit - 1)
	case keymap.Matches(k, v.keymap.Help):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewHelp} }
	case keymap.Matches(k, v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }
	case keymap.Matches(k, v.keymap.Back):
		if v.list.Expanded() {
			v.list.ToggleExpanded()
		} else {
			v.focusQuery(v.lastQuery)
		}
	}

	return v, nil
}

// setLimit clamps and applies a new result limit, re-running the last query.
func (v *View) setLimit(n int) tea.Cmd {
	n = max(MinLimit, min(MaxLimit, n))
	if n == v.opts.Limit {
		return nil
	}
	v.opts.Limit = n
	return v.rerun()
}

func (v *View) rerun() tea.Cmd {
	v.statusbar.SetSearchOptions(v.opts.Limit, v.opts.ExcludeDegenerate)
	if v.lastQuery == "" {
		return nil
	}
	return v.submit(v.lastQuery)
}

func (v *View) submit(query string) tea.Cmd {
	v.lastQuery = query
	v.statusbar.SetState(status.StateSearching)
	return v.performSearch(query, v.opts)
}

// performSearch runs the query off the UI goroutine.
func (v *View) performSearch(query string, opts domain.SearchOptions) tea.Cmd {
	svc := v.searchService
	ctx := v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoSearchService}
		}
		resp, err := svc.Search(ctx, query, opts)
		return messages.SearchCompleted{Query: query, Response: resp, Err: err}
	}
}

func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	if msg.Query != "" && msg.Query != v.lastQuery {
		// Superseded by a newer query.
		return
	}
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	var results []domain.SearchResult
	queryTokens := 0
	if msg.Response != nil {
		results = msg.Response.Results
		queryTokens = msg.Response.QueryTokens
		v.model = msg.Response.Model
	}

	v.list.SetResults(results)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetMessage("")
	v.statusbar.SetResponse(len(results), queryTokens)

	if len(results) > 0 {
		v.focusResults()
	}
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

func (v *View) focusResults() {
	v.focusInput = false
	v.input.Blur()
}

func (v *View) focusQuery(value string) {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue(value)
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	header := v.styles.Title.Render("sercha-rag")
	if v.model != "" {
		header += "  " + v.styles.Muted.Render(v.model)
	}

	sections := make([]string, 0, 8)
	sections = append(sections, header, "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	sections = append(sections, v.list.View(), "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	// Header, input box, spacing and status bar.
	v.list.SetDimensions(width, height-10)
	v.statusbar.SetWidth(width)
}

// SetStats shows index statistics in the status bar.
func (v *View) SetStats(stats domain.IndexStats) {
	v.statusbar.SetStats(stats)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current input text.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the input text.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// LastQuery returns the most recently submitted query.
func (v *View) LastQuery() string {
	return v.lastQuery
}

// Options returns the options the next search will use.
func (v *View) Options() domain.SearchOptions {
	return v.opts
}

// Results returns the current search results.
func (v *View) Results() []domain.SearchResult {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected result.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// SelectedResult returns the currently selected result.
func (v *View) SelectedResult() *domain.SearchResult {
	return v.list.SelectedResult()
}

// Expanded reports whether the selected result is shown in full.
func (v *View) Expanded() bool {
	return v.list.Expanded()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// StatusState returns the status bar state.
func (v *View) StatusState() status.State {
	return v.statusbar.State()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Reset returns the view to an empty query.
func (v *View) Reset() {
	v.focusQuery("")
	v.lastQuery = ""
	v.list.SetResults(nil)
	v.err = nil
	v.statusbar.Clear()
}
