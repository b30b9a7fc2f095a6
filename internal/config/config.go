// Package config loads canvaslink settings: defaults, then an optional YAML
// file, then CANVASLINK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const DefaultVaultPath = "~/Documents/Obsidian"

// Environment variables
const (
	EnvVault       = "CANVASLINK_VAULT"
	EnvDatabase    = "CANVASLINK_DB"
	EnvLogLevel    = "CANVASLINK_LOG_LEVEL"
	EnvMetricsAddr = "CANVASLINK_METRICS_ADDR"
)

// Config holds every setting
type Config struct {
	// Vault is the root of the Obsidian vault
	Vault string `yaml:"vault" validate:"required"`

	// Database is the sqlite file holding linkage groups. Empty means one
	// file per vault under $XDG_DATA_HOME/canvaslink.
	Database string `yaml:"database"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// MetricsAddr is where the watch daemon serves /metrics. Empty disables it.
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`

	Watch WatchConfig `yaml:"watch"`
}

// WatchConfig tunes the edit detector
type WatchConfig struct {
	// Debounce is how long a canvas must stay quiet before it is diffed
	Debounce time.Duration `yaml:"debounce" validate:"gte=0,lte=10s"`

	// RegistryPoll is how often the daemon checks the database for groups
	// changed by another process
	RegistryPoll time.Duration `yaml:"registry_poll" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the default configuration
func Default() Config {
	return Config{
		Vault:    VaultPath(),
		LogLevel: "info",
		Watch: WatchConfig{
			Debounce:     150 * time.Millisecond,
			RegistryPoll: 2 * time.Second,
		},
	}
}

// Load builds the configuration. An explicit path must exist; when path is
// empty the default location is read if present.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadEnv(&cfg)
	cfg.Vault = ExpandHome(cfg.Vault)
	cfg.Database = ExpandHome(cfg.Database)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) {
	if v := os.Getenv(EnvVault); v != "" {
		cfg.Vault = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv(EnvMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	return validate.Struct(c)
}

// SlogLevel returns LogLevel as a slog level
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// DefaultPath returns $XDG_CONFIG_HOME/canvaslink/config.yaml
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "canvaslink", "config.yaml")
}

// VaultPath returns the vault path from CANVASLINK_VAULT env var,
// falling back to DefaultVaultPath.
func VaultPath() string {
	if env := os.Getenv(EnvVault); env != "" {
		return env
	}
	return DefaultVaultPath
}

// ExpandHome replaces a leading ~ with the home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
