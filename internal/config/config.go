// Package config handles application configuration using Viper.
//
// Values come from, lowest to highest precedence: built-in defaults, the YAML
// file at ~/.twcadmin/config.yaml, a .env file, TWC_* environment variables
// and command-line flags.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/log"
)

// EnvPrefix prefixes every environment override, e.g. TWC_API_BASE_URL.
const EnvPrefix = "TWC"

// Output formats.
var Formats = []string{"text", "json", "yaml"}

// Config holds the application configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api" yaml:"api" json:"api"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth" json:"auth"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output" json:"output"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging" json:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry" json:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// APIConfig holds the store endpoint settings.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// AuthConfig holds credential storage settings.
type AuthConfig struct {
	CredentialsFile string        `mapstructure:"credentials_file" yaml:"credentials_file" json:"credentials_file"`
	TokenTTL        time.Duration `mapstructure:"token_ttl" yaml:"token_ttl" json:"token_ttl"`
	Revalidate      bool          `mapstructure:"revalidate" yaml:"revalidate" json:"revalidate"`
}

// OutputConfig holds display settings.
type OutputConfig struct {
	Format  string `mapstructure:"format" yaml:"format" json:"format"`
	PerPage int    `mapstructure:"per_page" yaml:"per_page" json:"per_page"`
	NoColor bool   `mapstructure:"no_color" yaml:"no_color" json:"no_color"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
}

// MetricsConfig holds the Prometheus listener setting.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" json:"addr"`
}

// FlagKeys maps global flag names to the keys they override.
var FlagKeys = map[string]string{
	"api-url":      "api.base_url",
	"format":       "output.format",
	"log-level":    "logging.level",
	"no-color":     "output.no_color",
	"metrics-addr": "metrics.addr",
}

// Dir returns the configuration directory, ~/.twcadmin.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".twcadmin"
	}
	return filepath.Join(home, ".twcadmin")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("auth.credentials_file", filepath.Join(Dir(), "credentials.yaml"))
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.revalidate", true)
	v.SetDefault("output.format", "text")
	v.SetDefault("output.per_page", 20)
	v.SetDefault("output.no_color", false)
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("metrics.addr", "")
}

// Keys returns every known configuration key, sorted.
func Keys() []string {
	v := viper.New()
	setDefaults(v)
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

// Load reads configuration from file, .env, environment and flags. An empty
// configPath uses DefaultPath; a missing file is not an error. flags may be
// nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == "" {
		configPath = DefaultPath()
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	loadDotEnv(filepath.Dir(configPath))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "bind flag "+name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("read config %s", configPath), err).
			WithSuggestion("Fix the YAML syntax or delete the file to start from defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "decode config", err)
	}

	cfg.Auth.CredentialsFile = expandHome(cfg.Auth.CredentialsFile)
	cfg.Logging.File = expandHome(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return stderrors.As(err, &notFound) || stderrors.Is(err, fs.ErrNotExist)
}

// loadDotEnv applies .env files from the working directory and dir. Values
// already in the environment win.
func loadDotEnv(dir string) {
	for _, path := range []string{".env", filepath.Join(dir, ".env")} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.NewConfigMissingError("api.base_url")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("api.base_url", fmt.Sprintf("%q is not an absolute URL", c.API.BaseURL))
	}
	if !slices.Contains(Formats, c.Output.Format) {
		return invalid("output.format", fmt.Sprintf("%q is not one of %s", c.Output.Format, strings.Join(Formats, ", ")))
	}
	if c.Output.PerPage < 1 || c.Output.PerPage > 100 {
		return invalid("output.per_page", "must be between 1 and 100")
	}
	if c.API.Timeout <= 0 {
		return invalid("api.timeout", "must be positive")
	}
	if c.API.RateLimit < 0 {
		return invalid("api.rate_limit", "must not be negative")
	}
	if _, err := log.CheckLevel(c.Logging.Level); err != nil {
		return invalid("logging.level", err.Error())
	}
	return nil
}

func invalid(key, reason string) error {
	return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid %s: %s", key, reason)).
		WithSuggestion(fmt.Sprintf("Run 'twcadmin config set %s <value>'", key))
}

// Set writes key=value into the file at path, keeping other values.
func Set(path, key, value string) error {
	if !slices.Contains(Keys(), key) {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("unknown configuration key %q", key)).
			WithSuggestion("Known keys: " + strings.Join(Keys(), ", "))
	}
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("read config %s", path), err)
	}
	v.Set(key, value)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "create config directory", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, fmt.Sprintf("write config %s", path), err)
	}

	// Validate the merged result so a bad value is reported now.
	_, err := Load(path, nil)
	return err
}
