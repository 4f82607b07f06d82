// Package config loads server settings from file, .env, and environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	configDirName  = "vapi-mcp"
	dotEnvFileName = ".env"

	maxTimeout = 10 * time.Minute
)

// duration wraps time.Duration for YAML unmarshaling.
type duration struct {
	d time.Duration
}

func (d *duration) unmarshalText(s string) error {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.d = parsed
	return nil
}

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	return d.unmarshalText(value.Value)
}

func (d *duration) Duration() time.Duration {
	return d.d
}

// Config for the server. Pointer fields; nil = unset.
type Config struct {
	// APIKey comes from VAPI_API_KEY only and is never read from the file.
	APIKey string `yaml:"-"`

	BaseURL  *string   `yaml:"base_url"`
	Timeout  *duration `yaml:"timeout"`
	LogLevel *string   `yaml:"log_level"`

	// CatalogDir holds extra operation files merged over the embedded catalog.
	CatalogDir *string `yaml:"catalog_dir"`
}

// LoadFrom loads config from path. Missing files return zero Config, nil.
func LoadFrom(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Load reads ./.env into the environment (existing variables win), then
// loads the default config file with environment overrides.
func Load() (Config, error) {
	if err := LoadDotEnv(dotEnvFileName); err != nil {
		return Config{}, err
	}
	return LoadFrom(defaultConfigPath())
}

// LoadDotEnv sets variables from a dotenv file without overriding ones
// already present. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v, ok := os.LookupEnv("VAPI_API_KEY"); ok {
		c.APIKey = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("VAPI_BASE_URL"); ok {
		c.BaseURL = &v
	}
	if v, ok := os.LookupEnv("VAPI_TIMEOUT"); ok {
		d := &duration{}
		if err := d.unmarshalText(v); err != nil {
			return fmt.Errorf("parse VAPI_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v, ok := os.LookupEnv("VAPI_MCP_LOG_LEVEL"); ok {
		c.LogLevel = &v
	}
	if v, ok := os.LookupEnv("VAPI_MCP_CATALOG_DIR"); ok {
		c.CatalogDir = &v
	}
	return nil
}

func (c *Config) validate() error {
	if c.BaseURL != nil {
		u, err := url.Parse(*c.BaseURL)
		if err != nil {
			return fmt.Errorf("parse base_url: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("base_url must be an absolute http(s) URL, got %q", *c.BaseURL)
		}
	}
	if c.Timeout != nil && c.Timeout.Duration() <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout.Duration())
	}
	if c.Timeout != nil && c.Timeout.Duration() > maxTimeout {
		return fmt.Errorf("timeout must not exceed %v, got %v", maxTimeout, c.Timeout.Duration())
	}
	if c.LogLevel != nil {
		if _, err := ParseLevel(*c.LogLevel); err != nil {
			return err
		}
	}
	if c.CatalogDir != nil && strings.TrimSpace(*c.CatalogDir) == "" {
		return errors.New("catalog_dir must not be empty")
	}
	return nil
}

// Level returns the configured log level, defaulting to info.
func (c Config) Level() slog.Level {
	if c.LogLevel == nil {
		return slog.LevelInfo
	}
	level, err := ParseLevel(*c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// TimeoutDuration returns the configured timeout, or 0 when unset.
func (c Config) TimeoutDuration() time.Duration {
	if c.Timeout == nil {
		return 0
	}
	return c.Timeout.Duration()
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", s)
	}
}

func defaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName, configFileName)
}
