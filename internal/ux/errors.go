package ux

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
)

var (
	errorLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	codeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
)

// RenderError writes err for a person to read: the message, its code and any
// recovery suggestions. Plain errors print their text.
func RenderError(w io.Writer, err error, noColor bool) {
	if err == nil {
		return
	}

	style := func(s lipgloss.Style, text string) string {
		if noColor {
			return text
		}
		return s.Render(text)
	}

	var adminErr *errors.AdminError
	if !stderrors.As(err, &adminErr) {
		fmt.Fprintf(w, "%s %s\n", style(errorLabelStyle, "Error:"), err)
		return
	}

	fmt.Fprintf(w, "%s %s %s\n",
		style(errorLabelStyle, "Error:"),
		adminErr.Message,
		style(codeStyle, "("+string(adminErr.Code)+")"))

	if cause := adminErr.Cause; cause != nil && !strings.Contains(adminErr.Message, cause.Error()) {
		fmt.Fprintf(w, "  %s\n", style(codeStyle, firstLine(cause.Error())))
	}

	for _, s := range adminErr.Suggestions {
		fmt.Fprintf(w, "  %s %s\n", style(hintStyle, "→"), s)
	}
	if adminErr.DocsURL != "" {
		fmt.Fprintf(w, "  %s\n", adminErr.DocsURL)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
