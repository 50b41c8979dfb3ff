package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Auth.Revalidate)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, 20, cfg.Output.PerPage)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "credentials.yaml", filepath.Base(cfg.Auth.CredentialsFile))
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
api:
  base_url: https://file.shop.test
  timeout: 45s
output:
  format: json
  per_page: 50
logging:
  level: info
`)
	t.Setenv("TWC_OUTPUT_PER_PAGE", "75")
	t.Setenv("TWC_LOGGING_LEVEL", "debug")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("api-url", "", "")
	flags.String("format", "", "")
	require.NoError(t, flags.Parse([]string{"--format", "yaml"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "https://file.shop.test", cfg.API.BaseURL, "unset flag does not override file")
	assert.Equal(t, 45*time.Second, cfg.API.Timeout)
	assert.Equal(t, 75, cfg.Output.PerPage, "env overrides file")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "yaml", cfg.Output.Format, "flag overrides file")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "TWC_API_BASE_URL=https://dotenv.shop.test\n")
	t.Setenv("TWC_API_BASE_URL", "")
	require.NoError(t, os.Unsetenv("TWC_API_BASE_URL"))
	t.Cleanup(func() { _ = os.Unsetenv("TWC_API_BASE_URL") })

	cfg, err := Load(filepath.Join(dir, "config.yaml"), nil)
	require.NoError(t, err)

	assert.Equal(t, "https://dotenv.shop.test", cfg.API.BaseURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code errors.ErrorCode
	}{
		{"relative url", "api:\n  base_url: shop.test\n", errors.ErrCodeConfigInvalid},
		{"unknown format", "output:\n  format: xml\n", errors.ErrCodeConfigInvalid},
		{"per page too large", "output:\n  per_page: 500\n", errors.ErrCodeConfigInvalid},
		{"negative rate", "api:\n  rate_limit: -1\n", errors.ErrCodeConfigInvalid},
		{"unknown log level", "logging:\n  level: verbose\n", errors.ErrCodeConfigInvalid},
		{"broken yaml", "api: [", errors.ErrCodeConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, tt.yaml)

			_, err := Load(path, nil)

			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, Set(path, "api.base_url", "https://set.shop.test"))
	require.NoError(t, Set(path, "output.per_page", "40"))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://set.shop.test", cfg.API.BaseURL)
	assert.Equal(t, 40, cfg.Output.PerPage)
}

func TestSetUnknownKey(t *testing.T) {
	err := Set(filepath.Join(t.TempDir(), "config.yaml"), "api.colour", "blue")

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
}

func TestKeys(t *testing.T) {
	keys := Keys()

	assert.Contains(t, keys, "api.base_url")
	assert.Contains(t, keys, "metrics.addr")
	assert.IsNonDecreasing(t, keys)
}
