package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Format represents the output format for logs
type Format int

const (
	// FormatJSON outputs logs in JSON format
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format
	FormatText
)

// String returns the string representation of the format
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	default:
		return "json"
	}
}

// ParseFormat parses a string into a Format
func ParseFormat(s string) Format {
	switch s {
	case "text", "TEXT", "console":
		return FormatText
	default:
		return FormatJSON
	}
}

// Output represents where logs should be written
type Output struct {
	writer io.Writer
	closer io.Closer
}

// Writer returns the underlying io.Writer
func (o Output) Writer() io.Writer {
	if o.writer == nil {
		return os.Stderr
	}
	return o.writer
}

// Close releases a file-backed output. It is a no-op for stdout/stderr.
func (o Output) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

// NewOutput creates an Output from an io.Writer
func NewOutput(w io.Writer) Output {
	return Output{writer: w}
}

// OutputStderr creates an Output that writes to stderr.
// Command output owns stdout, so this is the default.
func OutputStderr() Output {
	return Output{writer: os.Stderr}
}

// OutputFile appends to the file at path, creating parent directories.
func OutputFile(path string) (Output, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Output{}, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return Output{}, fmt.Errorf("failed to open log file: %w", err)
	}
	return Output{writer: f, closer: f}, nil
}

// Config holds configuration for the logger
type Config struct {
	// Level is the minimum log level to output
	Level Level

	// Format is the output format (JSON or Text)
	Format Format

	// Output is where logs should be written
	Output Output

	// AddSource includes source file and line number in logs
	AddSource bool

	// ServiceName is attached to every entry as "service"
	ServiceName string

	// ServiceVersion is attached to every entry as "version"
	ServiceVersion string
}

// DefaultConfig logs warnings and above as text to stderr, keeping normal runs quiet.
func DefaultConfig() Config {
	return Config{
		Level:          LevelWarn,
		Format:         FormatText,
		Output:         OutputStderr(),
		ServiceName:    "twcadmin",
		ServiceVersion: "dev",
	}
}

// DevelopmentConfig logs everything with source locations.
func DevelopmentConfig() Config {
	return Config{
		Level:          LevelDebug,
		Format:         FormatText,
		Output:         OutputStderr(),
		AddSource:      true,
		ServiceName:    "twcadmin",
		ServiceVersion: "dev",
	}
}
