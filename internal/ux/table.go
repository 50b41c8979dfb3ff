package ux

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	oddRowStyle = cellStyle.Foreground(lipgloss.Color("252"))
	borderColor = lipgloss.Color("238")
)

// RenderTable draws rows under headers. noColor drops all styling except
// padding.
func RenderTable(headers []string, rows [][]string, noColor bool) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)

	if noColor {
		return t.StyleFunc(func(int, int) lipgloss.Style { return cellStyle }).String()
	}

	return t.
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row%2 == 1:
				return oddRowStyle
			default:
				return cellStyle
			}
		}).
		String()
}

// Table is a ready-made Tabular value.
type Table struct {
	Head []string
	Body [][]string
}

// Headers implements Tabular.
func (t Table) Headers() []string { return t.Head }

// Rows implements Tabular.
func (t Table) Rows() [][]string { return t.Body }
