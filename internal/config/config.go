package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rewired-gh/everyday/internal/models"
	"github.com/rewired-gh/everyday/internal/stats"
)

// Config represents the complete application configuration
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Display  DisplayConfig  `mapstructure:"display"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StorageConfig holds the event store configuration
type StorageConfig struct {
	DBPath             string `mapstructure:"db_path"`
	MaxEvents          int    `mapstructure:"max_events"`
	MaxEntriesPerEvent int    `mapstructure:"max_entries_per_event"`
}

// DisplayConfig holds the user's display settings. DefaultTarget is the
// cadence used for events that have no target of their own, e.g. "30d";
// empty means none.
type DisplayConfig struct {
	Unit          string `mapstructure:"unit"`
	DefaultTarget string `mapstructure:"default_target"`
}

// ReminderConfig holds due/overdue scanning configuration
type ReminderConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	DueSoonDays float64       `mapstructure:"due_soon_days"`
	TopK        int           `mapstructure:"top_k"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. A missing
// file is not an error: defaults and EVERYDAY_* variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// EVERYDAY_STORAGE_DB_PATH overrides storage.db_path, and so on
	v.SetEnvPrefix("EVERYDAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.db_path", "./data/everyday.db")
	v.SetDefault("storage.max_events", 1000)
	v.SetDefault("storage.max_entries_per_event", 5000)

	// Display defaults
	v.SetDefault("display.unit", "days")
	v.SetDefault("display.default_target", "")

	// Reminder defaults
	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.interval", "1h")
	v.SetDefault("reminder.due_soon_days", 1.0)
	v.SetDefault("reminder.top_k", 10)
	v.SetDefault("reminder.cooldown", "24h")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9464")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxEvents < 1 {
		return fmt.Errorf("storage.max_events must be at least 1")
	}
	if c.Storage.MaxEntriesPerEvent < 10 {
		return fmt.Errorf("storage.max_entries_per_event must be at least 10")
	}

	// Validate Display config
	if _, err := stats.ParseUnit(c.Display.Unit); err != nil {
		return fmt.Errorf("display.unit: %w", err)
	}
	if _, err := c.DefaultTarget(); err != nil {
		return err
	}

	// Validate Reminder config
	if c.Reminder.Interval < 1*time.Minute {
		return fmt.Errorf("reminder.interval must be at least 1 minute")
	}
	if c.Reminder.DueSoonDays < 0 {
		return fmt.Errorf("reminder.due_soon_days must not be negative")
	}
	if c.Reminder.TopK < 1 {
		return fmt.Errorf("reminder.top_k must be at least 1")
	}
	if c.Reminder.Cooldown < 0 {
		return fmt.Errorf("reminder.cooldown must not be negative")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Metrics config
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Unit returns the preferred display unit, falling back to days.
func (c *Config) Unit() stats.Unit {
	u, err := stats.ParseUnit(c.Display.Unit)
	if err != nil {
		return stats.Days
	}
	return u
}

// DefaultTarget parses display.default_target. It returns nil when unset.
func (c *Config) DefaultTarget() (*stats.TargetInterval, error) {
	raw := strings.TrimSpace(c.Display.DefaultTarget)
	if raw == "" || raw == "none" {
		return nil, nil
	}
	t, err := stats.ParseInterval(raw)
	if err != nil {
		return nil, fmt.Errorf("display.default_target: %w", err)
	}
	if err := models.ValidateTarget(t); err != nil {
		return nil, fmt.Errorf("display.default_target: %w", err)
	}
	return &t, nil
}
