package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level is slog's level, so handlers take it without mapping.
type Level = slog.Level

// Levels accepted by --log-level and logging.level.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// CheckLevel parses a level name case-insensitively. "warning" is read as warn.
func CheckLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelWarn, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
}

// ParseLevel is CheckLevel for names already validated with the config.
// Anything else falls back to warn.
func ParseLevel(s string) Level {
	l, _ := CheckLevel(s)
	return l
}
