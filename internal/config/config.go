// Package config loads vidsheet settings from an optional YAML file,
// VIDSHEET_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/clock"
)

// Configuration keys. Flags are bound to the same names.
const (
	KeyReadoutMs      = "readout_ms"
	KeyShowAllSources = "show_all_sources"
	KeyLogLevel       = "log_level"
	KeyDB             = "db"
)

// EnvPrefix prefixes environment overrides, e.g. VIDSHEET_READOUT_MS.
const EnvPrefix = "VIDSHEET"

// Config holds the resolved settings.
type Config struct {
	ReadoutMs      float64 `mapstructure:"readout_ms"`
	ShowAllSources bool    `mapstructure:"show_all_sources"`
	LogLevel       string  `mapstructure:"log_level"`
	DB             string  `mapstructure:"db"` // Recording database path; empty disables recording
}

// New returns a viper instance with defaults and environment overrides set.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyReadoutMs, 100)
	v.SetDefault(KeyShowAllSources, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyDB, "")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

// Load reads and validates the configuration. When path is empty, vidsheet.yaml in the
// working directory is used if it exists.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("vidsheet")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if !(c.ReadoutMs >= 0) {
		return fmt.Errorf("%s must be >= 0, got %v", KeyReadoutMs, c.ReadoutMs)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// ReadoutInterval is the position readout period. Zero disables readouts.
func (c *Config) ReadoutInterval() time.Duration {
	return clock.Milliseconds(c.ReadoutMs)
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	return level, nil
}
