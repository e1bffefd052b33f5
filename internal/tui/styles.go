package tui

import "github.com/charmbracelet/lipgloss"

// Styles groups every lipgloss style the terminal client renders with.
type Styles struct {
	Header  lipgloss.Style
	Board   lipgloss.Style
	Star    lipgloss.Style
	Cursor  lipgloss.Style
	OnStar  lipgloss.Style
	Empty   lipgloss.Style
	Banner  lipgloss.Style
	Message lipgloss.Style
	Footer  lipgloss.Style
}

// DefaultStyles returns the night-sky palette.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Background(lipgloss.Color("#3b2e7e")).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),
		Board: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6c5fc7")),
		Star: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffd75f")).
			Bold(true),
		Cursor: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5fd7ff")),
		OnStar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#ffd75f")).
			Bold(true),
		Empty: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3a3a3a")),
		Banner: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff87af")).
			Bold(true).
			MarginTop(1),
		Message: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#ffd75f")).
			Padding(1, 3).
			Bold(true),
		Footer: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#808080")).
			MarginTop(1),
	}
}
