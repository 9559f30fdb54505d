// Package config provides unified configuration loading for aisoc.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/nvandessel/aisociety/internal/society"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user and per-project data directory name.
const DirName = ".aisoc"

// Config contains all aisoc configuration settings.
type Config struct {
	// Defaults are the simulation inputs used when a host does not supply one.
	Defaults society.Params `json:"defaults" yaml:"defaults"`

	// Server configures the local HTTP UI.
	Server ServerConfig `json:"server" yaml:"server"`

	// Store configures run history persistence.
	Store StoreConfig `json:"store" yaml:"store"`

	// Logging contains settings for operational logging and run tracing.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Telemetry configures OpenTelemetry trace export.
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

// ServerConfig configures the HTTP UI and JSON API.
type ServerConfig struct {
	// Addr is the listen address. "localhost:0" lets the OS pick a port.
	Addr string `json:"addr" yaml:"addr" env:"AISOC_SERVER_ADDR"`

	// OpenBrowser opens the UI in the default browser once listening.
	OpenBrowser bool `json:"open_browser" yaml:"open_browser" env:"AISOC_OPEN_BROWSER"`

	// MaxYears and MaxPopulation bound requests accepted over HTTP and MCP.
	MaxYears      int `json:"max_years" yaml:"max_years" env:"AISOC_MAX_YEARS"`
	MaxPopulation int `json:"max_population" yaml:"max_population" env:"AISOC_MAX_POPULATION"`

	// RequestsPerMinute and Burst configure per-client rate limiting.
	RequestsPerMinute float64 `json:"requests_per_minute" yaml:"requests_per_minute" env:"AISOC_REQUESTS_PER_MINUTE"`
	Burst             int     `json:"burst" yaml:"burst" env:"AISOC_BURST"`
}

// StoreConfig configures the SQLite run store.
type StoreConfig struct {
	// Path overrides the database location. Empty means <root>/.aisoc/aisoc.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty" env:"AISOC_DB_PATH"`
}

// LoggingConfig configures aisoc's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the run trace at .aisoc/runs.jsonl.
	Level string `json:"level" yaml:"level" env:"AISOC_LOG_LEVEL"`

	// Format selects the handler: "text" (default, colorized on terminals) or "json".
	Format string `json:"format" yaml:"format" env:"AISOC_LOG_FORMAT"`
}

// TelemetryConfig configures span export. Tracing is off unless Endpoint is set.
type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector URL, e.g. http://localhost:4318.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" env:"AISOC_OTEL_ENDPOINT"`
}

// Default returns a Config with the reference slider defaults.
func Default() *Config {
	return &Config{
		Defaults: society.DefaultParams(),
		Server: ServerConfig{
			Addr:              "localhost:0",
			OpenBrowser:       true,
			MaxYears:          200,
			MaxPopulation:     1_000_000,
			RequestsPerMinute: 120,
			Burst:             20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Path returns the default config file location, ~/.aisoc/config.yaml.
func Path() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName, "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.aisoc/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	if configPath, err := Path(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
// Keys missing from the file keep their default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// Save writes the configuration to path as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}

	if c.Server.MaxYears < 1 {
		return fmt.Errorf("server.max_years must be at least 1, got %d", c.Server.MaxYears)
	}
	if c.Server.MaxPopulation < 1 {
		return fmt.Errorf("server.max_population must be at least 1, got %d", c.Server.MaxPopulation)
	}
	if c.Defaults.Years > c.Server.MaxYears || c.Defaults.Population > c.Server.MaxPopulation {
		return fmt.Errorf("defaults exceed server limits (years %d/%d, population %d/%d)",
			c.Defaults.Years, c.Server.MaxYears, c.Defaults.Population, c.Server.MaxPopulation)
	}
	if c.Server.RequestsPerMinute <= 0 || c.Server.Burst < 1 {
		return fmt.Errorf("server rate limit must be positive, got %.1f/min burst %d",
			c.Server.RequestsPerMinute, c.Server.Burst)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if c.Logging.Format != "" && !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Logging.Format)
	}

	return nil
}

// CheckLimits rejects params that exceed the host limits. The returned error
// wraps society.ErrInvalidInput.
func (s ServerConfig) CheckLimits(p society.Params) error {
	if p.Years > s.MaxYears {
		return &society.InvalidInputError{Field: "years", Value: p.Years,
			Reason: fmt.Sprintf("exceeds server limit of %d", s.MaxYears)}
	}
	if p.Population > s.MaxPopulation {
		return &society.InvalidInputError{Field: "population", Value: p.Population,
			Reason: fmt.Sprintf("exceeds server limit of %d", s.MaxPopulation)}
	}
	return nil
}

// applyEnvOverrides applies AISOC_* environment variable overrides to the config.
func applyEnvOverrides(config *Config) error {
	if err := env.Parse(&config.Server); err != nil {
		return fmt.Errorf("parse server env: %w", err)
	}
	if err := env.Parse(&config.Store); err != nil {
		return fmt.Errorf("parse store env: %w", err)
	}
	if err := env.Parse(&config.Logging); err != nil {
		return fmt.Errorf("parse logging env: %w", err)
	}
	if err := env.Parse(&config.Telemetry); err != nil {
		return fmt.Errorf("parse telemetry env: %w", err)
	}
	return nil
}
