// Package config provides configuration management for the trade journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"trade-journal/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Journal   JournalConfig   `mapstructure:"journal"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	UI        UIConfig        `mapstructure:"ui"`

	// Dir is the directory the config was loaded from.
	Dir string `mapstructure:"-"`
}

// JournalConfig holds account and import settings.
type JournalConfig struct {
	Account         string  `mapstructure:"account"`
	Timezone        string  `mapstructure:"timezone"` // IANA name, "Local" for the host zone
	StartingBalance float64 `mapstructure:"starting_balance"`
	DefaultFormat   string  `mapstructure:"default_format"` // generic, tradovate, tradingview
}

// AnalyticsConfig holds analytics cache settings.
type AnalyticsConfig struct {
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CleanupSchedule string        `mapstructure:"cleanup_schedule"`
}

// StorageConfig holds SQLite mirror settings.
type StorageConfig struct {
	Mirror bool   `mapstructure:"mirror"`
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       bool   `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// UIConfig holds CLI rendering settings.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	Currency     string `mapstructure:"currency"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trade-journal"
	}
	return filepath.Join(home, ".config", "trade-journal")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by the commented template and loading continues.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config.toml: %w", err)
	}
	cfg.Dir = configDir

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration rooted at configDir.
func Default(configDir string) *Config {
	v := viper.New()
	setDefaults(v, configDir)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	cfg.Dir = configDir
	return cfg
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("journal.account", "default")
	v.SetDefault("journal.timezone", "Local")
	v.SetDefault("journal.starting_balance", 0.0)
	v.SetDefault("journal.default_format", "generic")

	v.SetDefault("analytics.cache_ttl", 5*time.Minute)
	v.SetDefault("analytics.cleanup_schedule", "@every 10m")

	v.SetDefault("storage.mirror", true)
	v.SetDefault("storage.db_path", filepath.Join(configDir, "journal.db"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.currency", "$")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TJ_ACCOUNT"); v != "" {
		cfg.Journal.Account = v
	}
	if v := os.Getenv("TJ_TIMEZONE"); v != "" {
		cfg.Journal.Timezone = v
	}
	if v := os.Getenv("TJ_STARTING_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Journal.StartingBalance = f
		}
	}
	if v := os.Getenv("TJ_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("TJ_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Journal.Account == "" {
		return errors.Wrap(errors.ErrConfigInvalid, "journal.account must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return errors.Wrapf(errors.ErrConfigInvalid, "journal.timezone %q", c.Journal.Timezone)
	}
	switch c.Journal.DefaultFormat {
	case "", "generic", "tradovate", "tradingview":
	default:
		return errors.Wrapf(errors.ErrConfigInvalid, "journal.default_format %q", c.Journal.DefaultFormat)
	}
	if c.Analytics.CacheTTL <= 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "analytics.cache_ttl must be positive")
	}
	if c.Storage.Mirror && c.Storage.DBPath == "" {
		return errors.Wrap(errors.ErrConfigInvalid, "storage.db_path is required when mirroring")
	}
	return nil
}

// Location resolves the configured timezone. Dates are always interpreted
// as calendar dates in this location, never shifted through UTC.
func (c *Config) Location() (*time.Location, error) {
	switch c.Journal.Timezone {
	case "", "Local", "local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Journal.Timezone)
	}
}
