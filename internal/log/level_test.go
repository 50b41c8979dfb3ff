package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		" warn ":  LevelWarn,
		"warning": LevelWarn,
		"Error":   LevelError,
	}
	for in, want := range tests {
		got, err := CheckLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := CheckLevel("verbose")
	assert.ErrorContains(t, err, `unknown log level "verbose"`)
}

func TestParseLevelFallsBackToWarn(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(""))
	assert.Equal(t, LevelWarn, ParseLevel("trace"))
}
