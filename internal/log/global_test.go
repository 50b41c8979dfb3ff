package log

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func restoreDefault(t *testing.T) {
	t.Helper()
	original := defaultLogger.Load()
	t.Cleanup(func() { defaultLogger.Store(original) })
}

func TestSetDefaultLogger(t *testing.T) {
	restoreDefault(t)

	custom := Development()
	SetDefaultLogger(custom)

	assert.Same(t, custom, DefaultLogger())
}

func TestDefaultLoggerDiscardsUntilConfigured(t *testing.T) {
	restoreDefault(t)
	defaultLogger.Store(nil)

	logger := DefaultLogger()

	assert.Same(t, logger, DefaultLogger())
	assert.False(t, logger.Enabled(t.Context(), LevelError))
}

func TestDefaultLoggerConcurrentFirstUse(t *testing.T) {
	restoreDefault(t)
	defaultLogger.Store(nil)

	loggers := make([]*Logger, 20)
	var wg sync.WaitGroup
	for i := range loggers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loggers[i] = DefaultLogger()
		}()
	}
	wg.Wait()

	for _, l := range loggers {
		assert.Same(t, loggers[0], l)
	}
}
