package ux

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// LinePrompter asks questions over plain reader and writer streams. It is
// used when stdin is not a terminal, where full-screen forms cannot run.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter creates a prompter reading answers from in.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

// Confirm prompts the user for yes/no confirmation
func (p *LinePrompter) Confirm(message string, defaultYes bool) bool {
	prompt := message
	if defaultYes {
		prompt += " (Y/n): "
	} else {
		prompt += " (y/N): "
	}

	fmt.Fprint(p.out, prompt)
	response, err := p.in.ReadString('\n')
	if err != nil && response == "" {
		return defaultYes
	}

	response = strings.TrimSpace(strings.ToLower(response))

	if response == "" {
		return defaultYes
	}

	return response == "y" || response == "yes"
}

// String prompts the user for a string value
func (p *LinePrompter) String(message string, defaultValue string) string {
	if defaultValue != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", message, defaultValue)
	} else {
		fmt.Fprintf(p.out, "%s: ", message)
	}

	response, err := p.in.ReadString('\n')
	if err != nil && response == "" {
		return defaultValue
	}

	response = strings.TrimSpace(response)
	if response == "" {
		return defaultValue
	}

	return response
}
