// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding
	Back key.Binding

	// Search submits the query in the input.
	Search key.Binding

	Up   key.Binding
	Down key.Binding

	// NewSearch returns focus to the input from the results list.
	NewSearch key.Binding

	// Expand toggles the full text of the selected chunk.
	Expand key.Binding

	// Degenerate toggles hiding results without a computable similarity.
	Degenerate key.Binding

	// More and Fewer change the number of results requested.
	More  key.Binding
	Fewer key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Search: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "search"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		NewSearch: key.NewBinding(
			key.WithKeys("n", "/"),
			key.WithHelp("n", "new search"),
		),
		Expand: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "expand"),
		),
		Degenerate: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "hide n/a"),
		),
		More: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "more"),
		),
		Fewer: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "fewer"),
		),
	}
}

// ShortHelp returns a short list of keybindings for the input mode.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Help, k.Back}
}

// ResultsHelp returns keybindings for the results mode.
func (k *KeyMap) ResultsHelp() []key.Binding {
	return []key.Binding{k.NewSearch, k.Expand, k.Degenerate, k.More, k.Quit}
}

// FullHelp returns the full list of keybindings for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.NewSearch, k.Back},
		{k.Up, k.Down, k.Expand},
		{k.Degenerate, k.More, k.Fewer},
		{k.Help, k.Quit},
	}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
