package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap_Bindings(t *testing.T) {
	km := DefaultKeyMap()
	require.NotNil(t, km)

	tests := []struct {
		name    string
		binding key.Binding
		keys    []string
	}{
		{"quit", km.Quit, []string{"q", "ctrl+c"}},
		{"help", km.Help, []string{"?"}},
		{"back", km.Back, []string{"esc"}},
		{"search", km.Search, []string{"enter"}},
		{"up", km.Up, []string{"up", "k"}},
		{"down", km.Down, []string{"down", "j"}},
		{"new search", km.NewSearch, []string{"n", "/"}},
		{"expand", km.Expand, []string{"enter", " "}},
		{"degenerate", km.Degenerate, []string{"d"}},
		{"more", km.More, []string{"+", "="}},
		{"fewer", km.Fewer, []string{"-"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.keys, tt.binding.Keys())
			assert.NotEmpty(t, tt.binding.Help().Desc)
		})
	}
}

func TestKeyMap_HelpGroups(t *testing.T) {
	km := DefaultKeyMap()

	assert.Len(t, km.ShortHelp(), 3)
	assert.Len(t, km.ResultsHelp(), 5)

	total := 0
	for _, group := range km.FullHelp() {
		assert.NotEmpty(t, group)
		total += len(group)
	}
	assert.Equal(t, 11, total)
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		name     string
		keyStr   string
		binding  key.Binding
		expected bool
	}{
		{"q matches quit", "q", km.Quit, true},
		{"ctrl+c matches quit", "ctrl+c", km.Quit, true},
		{"k matches up", "k", km.Up, true},
		{"d matches degenerate", "d", km.Degenerate, true},
		{"x does not match quit", "x", km.Quit, false},
		{"empty does not match", "", km.Back, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Matches(tt.keyStr, tt.binding))
		})
	}
}
