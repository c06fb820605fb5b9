package search

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockSearchService records queries and returns canned results.
type mockSearchService struct {
	results []domain.SearchResult
	err     error
	queries []string
	opts    []domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	m.queries = append(m.queries, query)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.SearchResponse{Results: m.results, QueryTokens: 2, Model: "test-model"}, nil
}

func sampleResults() []domain.SearchResult {
	return []domain.SearchResult{
		{Rank: 1, Similarity: 0.9, Document: domain.Document{Name: "a.md"}, Chunk: domain.Chunk{Text: "cats and dogs"}},
		{Rank: 2, Similarity: 0.4, Document: domain.Document{Name: "b.md"}, Chunk: domain.Chunk{Text: "stock market"}},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeQuery(v *View, q string) *View {
	for _, r := range q {
		v, _ = v.Update(runes(string(r)))
	}
	return v
}

// drive executes cmd and feeds the message back into the view.
func drive(t *testing.T, v *View, cmd tea.Cmd) (*View, tea.Msg) {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	v, _ = v.Update(msg)
	return v, msg
}

func newView(svc *mockSearchService) *View {
	v := NewView(nil, nil, svc, domain.SearchOptions{Limit: 3})
	v.SetDimensions(100, 40)
	return v
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil, nil, domain.SearchOptions{})
	assert.Equal(t, domain.DefaultSearchLimit, v.Options().Limit)
	assert.True(t, v.InputFocused())
	assert.False(t, v.Ready())
	assert.Equal(t, "Initialising...", v.View())
}

func TestView_SubmitSearch(t *testing.T) {
	svc := &mockSearchService{results: sampleResults()}
	v := newView(svc)
	v = typeQuery(v, "pets")

	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, status.StateSearching, v.StatusState())

	v, msg := drive(t, v, cmd)
	require.IsType(t, messages.SearchCompleted{}, msg)

	assert.Equal(t, []string{"pets"}, svc.queries)
	assert.Equal(t, 3, svc.opts[0].Limit)
	assert.Len(t, v.Results(), 2)
	assert.False(t, v.InputFocused(), "focus moves to results")
	assert.Equal(t, status.StateResults, v.StatusState())
	assert.Equal(t, "pets", v.LastQuery())

	view := v.View()
	assert.Contains(t, view, "test-model")
	assert.Contains(t, view, "a.md")
}

func TestView_EmptyQueryIgnored(t *testing.T) {
	svc := &mockSearchService{}
	v := newView(svc)
	v = typeQuery(v, "   ")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, svc.queries)
}

func TestView_SearchError(t *testing.T) {
	svc := &mockSearchService{err: errors.New("provider down")}
	v := newView(svc)
	v = typeQuery(v, "pets")

	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v, _ = drive(t, v, cmd)

	require.Error(t, v.Err())
	assert.Equal(t, status.StateError, v.StatusState())
	assert.True(t, v.InputFocused())
	assert.Contains(t, v.View(), "provider down")
}

func TestView_NoResultsKeepsInputFocus(t *testing.T) {
	v := newView(&mockSearchService{})
	v = typeQuery(v, "nothing")

	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v, _ = drive(t, v, cmd)
	assert.True(t, v.InputFocused())
	assert.Contains(t, v.View(), "No results")
}

func TestView_NoSearchService(t *testing.T) {
	v := NewView(nil, nil, nil, domain.SearchOptions{})
	v.SetDimensions(80, 24)
	v = typeQuery(v, "x")

	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v, msg := drive(t, v, cmd)
	assert.IsType(t, messages.ErrorOccurred{}, msg)
	assert.ErrorIs(t, v.Err(), ErrNoSearchService)
}

func TestView_StaleResponseIgnored(t *testing.T) {
	v := newView(&mockSearchService{})
	v = typeQuery(v, "new")
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	v, _ = v.Update(messages.SearchCompleted{
		Query:    "old",
		Response: &domain.SearchResponse{Results: sampleResults()},
	})
	assert.Empty(t, v.Results())
}

func searched(t *testing.T, svc *mockSearchService) *View {
	t.Helper()
	v := newView(svc)
	v = typeQuery(v, "pets")
	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v, _ = drive(t, v, cmd)
	require.False(t, v.InputFocused())
	return v
}

func TestView_ResultsNavigation(t *testing.T) {
	v := searched(t, &mockSearchService{results: sampleResults()})

	v, _ = v.Update(runes("j"))
	assert.Equal(t, 1, v.SelectedIndex())
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, v.SelectedIndex())

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, v.Expanded())

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, v.Expanded(), "esc collapses first")
	assert.False(t, v.InputFocused())

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, v.InputFocused(), "second esc edits the query")
	assert.Equal(t, "pets", v.Query())
}

func TestView_NewSearchKey(t *testing.T) {
	v := searched(t, &mockSearchService{results: sampleResults()})

	v, _ = v.Update(runes("n"))
	assert.True(t, v.InputFocused())
	assert.Empty(t, v.Query())
}

func TestView_ToggleDegenerateReruns(t *testing.T) {
	svc := &mockSearchService{results: sampleResults()}
	v := searched(t, svc)

	v, cmd := v.Update(runes("d"))
	assert.True(t, v.Options().ExcludeDegenerate)
	_, _ = drive(t, v, cmd)

	require.Len(t, svc.opts, 2)
	assert.True(t, svc.opts[1].ExcludeDegenerate)
	assert.Equal(t, "pets", svc.queries[1])
}

func TestView_ChangeLimit(t *testing.T) {
	svc := &mockSearchService{results: sampleResults()}
	v := searched(t, svc)

	v, cmd := v.Update(runes("+"))
	assert.Equal(t, 4, v.Options().Limit)
	v, _ = drive(t, v, cmd)
	assert.Equal(t, 4, svc.opts[1].Limit)

	v, cmd = v.Update(runes("-"))
	assert.Equal(t, 3, v.Options().Limit)
	require.NotNil(t, cmd)
}

func TestView_SetLimitClamps(t *testing.T) {
	v := newView(&mockSearchService{})

	assert.Nil(t, v.setLimit(0), "no query yet, nothing to rerun")
	assert.Equal(t, MinLimit, v.Options().Limit)

	v.setLimit(1000)
	assert.Equal(t, MaxLimit, v.Options().Limit)
	assert.Nil(t, v.setLimit(MaxLimit+1), "unchanged limit does not rerun")
}

func TestView_HelpAndQuitKeys(t *testing.T) {
	v := searched(t, &mockSearchService{results: sampleResults()})

	_, cmd := v.Update(runes("?"))
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewHelp}, cmd())

	_, cmd = v.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, messages.Quit{}, cmd())
}

func TestView_InputHistory(t *testing.T) {
	svc := &mockSearchService{}
	v := newView(svc)

	for _, q := range []string{"first", "second"} {
		v.SetQuery("")
		v = typeQuery(v, q)
		v, _ = v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	}
	v.SetQuery("")

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "second", v.Query())
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "first", v.Query())
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "second", v.Query())
}

func TestView_StatsLoaded(t *testing.T) {
	v := newView(&mockSearchService{})
	v, _ = v.Update(messages.StatsLoaded{Stats: domain.IndexStats{TotalDocuments: 4, TotalChunks: 10}})
	assert.Contains(t, v.View(), "4 docs")
}

func TestView_Reset(t *testing.T) {
	v := searched(t, &mockSearchService{results: sampleResults()})
	v.Reset()

	assert.True(t, v.InputFocused())
	assert.Empty(t, v.Results())
	assert.Empty(t, v.LastQuery())
	assert.NoError(t, v.Err())
	assert.Equal(t, status.StateReady, v.StatusState())
}

func TestView_WindowSize(t *testing.T) {
	v := NewView(nil, nil, nil, domain.SearchOptions{})
	v, _ = v.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	assert.True(t, v.Ready())
	assert.Contains(t, v.View(), "sercha-rag")
}
