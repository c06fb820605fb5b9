// Package styles provides the colour palette and lipgloss styles for the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Score bands used to colour similarities.
const (
	HighScore = 0.75
	LowScore  = 0.4
)

// Theme is the colour palette.
type Theme struct {
	Accent    lipgloss.Color
	Info      lipgloss.Color
	Text      lipgloss.Color
	Dim       lipgloss.Color
	High      lipgloss.Color
	Mid       lipgloss.Color
	Low       lipgloss.Color
	Error     lipgloss.Color
	Border    lipgloss.Color
	BarBg     lipgloss.Color
	Highlight lipgloss.Color
}

// DefaultTheme returns the default dark palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:    lipgloss.Color("#7C3AED"),
		Info:      lipgloss.Color("#06B6D4"),
		Text:      lipgloss.Color("#CDD6F4"),
		Dim:       lipgloss.Color("#6C7086"),
		High:      lipgloss.Color("#A6E3A1"),
		Mid:       lipgloss.Color("#F9E2AF"),
		Low:       lipgloss.Color("#FAB387"),
		Error:     lipgloss.Color("#F38BA8"),
		Border:    lipgloss.Color("#45475A"),
		BarBg:     lipgloss.Color("#181825"),
		Highlight: lipgloss.Color("#313244"),
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Normal     lipgloss.Style
	Muted      lipgloss.Style
	Selected   lipgloss.Style
	Error      lipgloss.Style
	Warning    lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Border     lipgloss.Style

	// Preview renders the expanded chunk text.
	Preview lipgloss.Style

	scoreHigh  lipgloss.Style
	scoreMid   lipgloss.Style
	scoreLow   lipgloss.Style
	degenerate lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(theme.Info),
		Normal:   lipgloss.NewStyle().Foreground(theme.Text),
		Muted:    lipgloss.NewStyle().Foreground(theme.Dim),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(theme.Text).Background(theme.Highlight),
		Error:    lipgloss.NewStyle().Foreground(theme.Error),
		Warning:  lipgloss.NewStyle().Foreground(theme.Mid),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Dim).
			Background(theme.BarBg).
			Padding(0, 1),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		Preview: lipgloss.NewStyle().
			Foreground(theme.Text).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(theme.Accent).
			PaddingLeft(1),

		scoreHigh:  lipgloss.NewStyle().Bold(true).Foreground(theme.High),
		scoreMid:   lipgloss.NewStyle().Foreground(theme.Mid),
		scoreLow:   lipgloss.NewStyle().Foreground(theme.Low),
		degenerate: lipgloss.NewStyle().Italic(true).Foreground(theme.Dim),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Score picks the style for a similarity value.
func (s *Styles) Score(similarity float64, degenerate bool) lipgloss.Style {
	switch {
	case degenerate:
		return s.degenerate
	case similarity >= HighScore:
		return s.scoreHigh
	case similarity >= LowScore:
		return s.scoreMid
	default:
		return s.scoreLow
	}
}
