// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (TUTORVAULT_* prefix)
//  2. Config file (~/.tutorvault/config.yaml, or ./config.yaml)
//  3. Default values
//
// Categories:
//   - Vault: root directory of the document vault
//   - Index: remote retrieval-index service (base URL, API key, timeout)
//   - Server: HTTP API bind address and rate limit
//   - Log: level and format
//
// Security: the index API key is never logged; the config directory uses
// 0750 permissions. Validation is fail-fast with sentinel errors so callers
// can check causes with errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidVaultRoot indicates the vault root directory is empty or unusable.
	ErrInvalidVaultRoot = errors.New("invalid vault root")

	// ErrInvalidIndexURL indicates the retrieval-index base URL is malformed.
	ErrInvalidIndexURL = errors.New("invalid index service URL")

	// ErrInvalidIndexTimeout indicates the index request timeout is out of range.
	ErrInvalidIndexTimeout = errors.New("invalid index timeout")

	// ErrInvalidServerAddr indicates the HTTP server address is malformed.
	ErrInvalidServerAddr = errors.New("invalid server address")

	// ErrInvalidLogLevel indicates an unknown log level name.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

const (
	// DefaultIndexTimeout bounds every request to the retrieval-index
	// service; remote calls must fail visibly rather than hang.
	DefaultIndexTimeout = 60 * time.Second

	// MaxIndexTimeout is the upper bound accepted from configuration.
	MaxIndexTimeout = 10 * time.Minute
)

// Config stores application configuration.
// SECURITY: IndexAPIKey is sensitive; never log the whole struct.
type Config struct {
	// Vault configuration
	VaultRoot string `mapstructure:"vault_root"`

	// Retrieval-index service configuration
	IndexURL     string        `mapstructure:"index_url"`
	IndexAPIKey  string        `mapstructure:"index_api_key"` // SENSITIVE
	IndexTimeout time.Duration `mapstructure:"index_timeout"`

	// HTTP server configuration (serve mode only)
	ServerAddr     string  `mapstructure:"server_addr"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".tutorvault")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, filepath.Join(home, ".tutorvault", "vault"))

	v.SetEnvPrefix("TUTORVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, defaultVault string) {
	v.SetDefault("vault_root", defaultVault)

	v.SetDefault("index_url", "http://localhost:3001")
	v.SetDefault("index_timeout", DefaultIndexTimeout)

	v.SetDefault("server_addr", "127.0.0.1:8600")
	v.SetDefault("rate_limit_rps", 10.0)
	v.SetDefault("rate_limit_burst", 20)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// Validate checks the configuration for invalid values.
// Returns a sentinel error wrapped with detail on the first failure.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("configuration is nil")
	}

	if strings.TrimSpace(c.VaultRoot) == "" {
		return fmt.Errorf("%w: vault_root is empty", ErrInvalidVaultRoot)
	}

	// An empty index_url disables the retrieval index entirely.
	if c.IndexURL != "" {
		u, err := url.Parse(c.IndexURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidIndexURL, c.IndexURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidIndexURL, u.Scheme)
		}
	}

	if c.IndexTimeout <= 0 || c.IndexTimeout > MaxIndexTimeout {
		return fmt.Errorf("%w: %s (must be in (0, %s])",
			ErrInvalidIndexTimeout, c.IndexTimeout, MaxIndexTimeout)
	}

	if !strings.Contains(c.ServerAddr, ":") {
		return fmt.Errorf("%w: %q (expected host:port)", ErrInvalidServerAddr, c.ServerAddr)
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// ParseLogLevel maps a level name to a slog.Level.
func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, name)
	}
}
