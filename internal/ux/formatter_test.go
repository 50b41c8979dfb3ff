package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
)

type testData struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"json format", "json", false},
		{"yaml format", "yaml", false},
		{"text format", "text", false},
		{"empty format defaults to text", "", false},
		{"unknown format", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFormatter(tt.format, nil)
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	formatter, err := NewFormatter("json", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, formatter.Format(testData{Name: "test", Value: 42}))

	assert.Contains(t, buf.String(), `"name": "test"`)
	assert.Contains(t, buf.String(), `"value": 42`)
}

func TestJSONFormatterCompact(t *testing.T) {
	var buf bytes.Buffer
	formatter, err := NewFormatter("json", &FormatterOptions{Writer: &buf, Compact: true})
	require.NoError(t, err)

	require.NoError(t, formatter.Format(testData{Name: "test", Value: 42}))

	assert.Equal(t, 1, strings.Count(buf.String(), "\n"), "compact JSON is one line")
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	formatter, err := NewFormatter("yaml", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, formatter.Format(testData{Name: "test", Value: 42}))

	assert.Contains(t, buf.String(), "name: test")
	assert.Contains(t, buf.String(), "value: 42")
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name string
		data any
		want []string
	}{
		{"string data", "hello world", []string{"hello world"}},
		{"struct falls back to yaml", testData{Name: "test", Value: 42}, []string{"name: test", "value: 42"}},
		{
			"tabular renders a table",
			Table{Head: []string{"ID", "NAME"}, Body: [][]string{{"7", "Acme"}, {"9", "Bolt"}}},
			[]string{"ID", "NAME", "Acme", "Bolt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatter, err := NewFormatter("text", &FormatterOptions{Writer: &buf, NoColor: true})
			require.NoError(t, err)

			require.NoError(t, formatter.Format(tt.data))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestRenderTableNoColorHasNoEscapes(t *testing.T) {
	out := RenderTable([]string{"POS", "BRAND"}, [][]string{{"1", "Acme"}}, true)

	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "Acme")
}

func TestRenderError(t *testing.T) {
	t.Run("coded error with suggestions", func(t *testing.T) {
		var buf bytes.Buffer
		err := errors.NewReorderBusyError("brand")

		RenderError(&buf, err, true)

		out := buf.String()
		assert.Contains(t, out, "Error: a brand reorder is still being saved (REORDER-002)")
		assert.Contains(t, out, "→ Wait for the current save to finish")
	})

	t.Run("plain error", func(t *testing.T) {
		var buf bytes.Buffer
		RenderError(&buf, assert.AnError, true)
		assert.Equal(t, "Error: "+assert.AnError.Error()+"\n", buf.String())
	})

	t.Run("nil error writes nothing", func(t *testing.T) {
		var buf bytes.Buffer
		RenderError(&buf, nil, true)
		assert.Empty(t, buf.String())
	})
}

func TestLinePrompter(t *testing.T) {
	tests := []struct {
		input      string
		defaultYes bool
		want       bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", true, false},
		{"\n", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		p := NewLinePrompter(strings.NewReader(tt.input), &out)
		assert.Equal(t, tt.want, p.Confirm("Delete brand?", tt.defaultYes), "input %q", tt.input)
		assert.Contains(t, out.String(), "Delete brand?")
	}

	p := NewLinePrompter(strings.NewReader("Acme\n"), &bytes.Buffer{})
	assert.Equal(t, "Acme", p.String("Name", "default"))
	p = NewLinePrompter(strings.NewReader("\n"), &bytes.Buffer{})
	assert.Equal(t, "default", p.String("Name", "default"))
}
