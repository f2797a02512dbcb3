package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Source     SourceConfig     `mapstructure:"source"`
	Server     ServerConfig     `mapstructure:"server"`
	Progress   ProgressConfig   `mapstructure:"progress"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SourceConfig holds event-backend configuration.
type SourceConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// ProgressConfig holds progress-store configuration.
type ProgressConfig struct {
	DBPath    string `mapstructure:"db_path"`
	Namespace string `mapstructure:"namespace"`
}

// ClassifierConfig holds event-classification tuning.
type ClassifierConfig struct {
	// ImminentWindow is how far ahead of its start an event counts as
	// imminent (the source system hard-codes 24h).
	ImminentWindow time.Duration `mapstructure:"imminent_window"`
}

// NotifyConfig holds Telegram notification configuration.
type NotifyConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("POGO_EVENTS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", "https://api.pogo-events.app/graphql")
	v.SetDefault("source.poll_interval", "15m")
	v.SetDefault("source.timeout", "30s")

	v.SetDefault("server.listen", "127.0.0.1:8720")

	v.SetDefault("progress.db_path", "./data/progress.db")
	v.SetDefault("progress.namespace", "pogo_progress")

	v.SetDefault("classifier.imminent_window", "24h")

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.cooldown", "6h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if c.Source.PollInterval < 1*time.Minute {
		return fmt.Errorf("source.poll_interval must be at least 1 minute")
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be positive")
	}

	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}

	if c.Progress.DBPath == "" {
		return fmt.Errorf("progress.db_path is required")
	}
	if c.Progress.Namespace == "" {
		return fmt.Errorf("progress.namespace is required")
	}

	if c.Classifier.ImminentWindow < 1*time.Hour {
		return fmt.Errorf("classifier.imminent_window must be at least 1 hour")
	}

	if c.Notify.Enabled {
		if c.Notify.BotToken == "" {
			return fmt.Errorf("notify.bot_token is required when notifications are enabled")
		}
		if c.Notify.ChatID == "" {
			return fmt.Errorf("notify.chat_id is required when notifications are enabled")
		}
		if c.Notify.Cooldown <= 0 {
			return fmt.Errorf("notify.cooldown must be positive")
		}
	}

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
