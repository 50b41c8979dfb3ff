// Package tui holds the interactive terminal views: the drag-style reorder
// list and the login and confirmation forms.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains lipgloss styles for the TUI
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Muted    lipgloss.Style
	Cursor   lipgloss.Style
	Grabbed  lipgloss.Style
	Item     lipgloss.Style
	Help     lipgloss.Style
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")). // Purple
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Status: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")), // Cyan
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Cursor: lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true),
		Grabbed: lipgloss.NewStyle().
			Background(lipgloss.Color("63")).
			Foreground(lipgloss.Color("230")).
			Bold(true),
		Item: lipgloss.NewStyle(),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1),
	}
}

// PlainStyles renders without color or emphasis.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title: plain.MarginBottom(1), Subtitle: plain, Status: plain, Error: plain,
		Success: plain, Muted: plain, Cursor: plain, Grabbed: plain, Item: plain,
		Help: plain.MarginTop(1),
	}
}
