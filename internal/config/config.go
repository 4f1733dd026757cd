// Package config loads wincal settings from an optional YAML file, WINCAL_*
// environment variables and built-in defaults, in decreasing priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyp0633/wincal/calendar"
	"github.com/cyp0633/wincal/recurrence"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WINCAL_DATABASE.
const EnvPrefix = "WINCAL"

// Config is the resolved application configuration.
type Config struct {
	// Database is the SQLite file path, or ":memory:".
	Database string `mapstructure:"database"`
	// Timezone names the IANA zone used to read and print local times.
	// "Local" uses the system zone.
	Timezone string `mapstructure:"timezone"`
	// MaxOccurrences caps occurrences per event in one expansion.
	MaxOccurrences int `mapstructure:"max_occurrences"`
	// Cache enables the recurrence result cache.
	Cache bool `mapstructure:"cache"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
	// DefaultCategory is assigned to new events without one.
	DefaultCategory string `mapstructure:"default_category"`

	location *time.Location
	level    slog.Level
}

// DefaultDatabasePath is calendar.db in the user's config directory, or in
// the working directory when that cannot be determined.
func DefaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "calendar.db"
	}
	return filepath.Join(dir, "wincal", "calendar.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", DefaultDatabasePath())
	v.SetDefault("timezone", "Local")
	v.SetDefault("max_occurrences", recurrence.DefaultMaxOccurrences)
	v.SetDefault("cache", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("default_category", calendar.DefaultCategory)
}

// Load reads the configuration. An explicit path must exist; without one,
// wincal.yaml is looked up in the working directory and the user config
// directory, and its absence is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("wincal")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "wincal"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes blank values to defaults and resolves the time zone
// and log level.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		c.Database = DefaultDatabasePath()
	}
	if c.MaxOccurrences <= 0 {
		c.MaxOccurrences = recurrence.DefaultMaxOccurrences
	}
	if strings.TrimSpace(c.DefaultCategory) == "" {
		c.DefaultCategory = calendar.DefaultCategory
	}

	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		tz = "Local"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.Timezone = tz
	c.location = loc

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if err := c.level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Location is the resolved time zone. Call Validate first.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Level is the resolved log level. Call Validate first.
func (c *Config) Level() slog.Level {
	return c.level
}

// EngineConfig derives the recurrence engine settings.
func (c *Config) EngineConfig() recurrence.EngineConfig {
	if c.Cache {
		cfg := recurrence.CachedEngineConfig
		cfg.MaxOccurrences = c.MaxOccurrences
		return cfg
	}
	cfg := recurrence.DefaultEngineConfig
	cfg.MaxOccurrences = c.MaxOccurrences
	return cfg
}
