package config

import (
	"os"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
source:
  base_url: "https://api.pogo-events.app/graphql"
  poll_interval: 15m
  timeout: 30s

server:
  listen: "127.0.0.1:8720"

progress:
  db_path: "./data/progress.db"
  namespace: "pogo_progress"

classifier:
  imminent_window: 24h

notify:
  enabled: true
  bot_token: "test_token"
  chat_id: "12345"
  cooldown: 6h

logging:
  level: "info"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Source.PollInterval != 15*time.Minute {
		t.Errorf("PollInterval = %v", cfg.Source.PollInterval)
	}
	if cfg.Classifier.ImminentWindow != 24*time.Hour {
		t.Errorf("ImminentWindow = %v", cfg.Classifier.ImminentWindow)
	}
	if !cfg.Notify.Enabled || cfg.Notify.ChatID != "12345" {
		t.Errorf("Notify = %+v", cfg.Notify)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
source:
  base_url: "https://api.pogo-events.app/graphql"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Source.PollInterval != 15*time.Minute {
		t.Errorf("default PollInterval = %v", cfg.Source.PollInterval)
	}
	if cfg.Classifier.ImminentWindow != 24*time.Hour {
		t.Errorf("default ImminentWindow = %v", cfg.Classifier.ImminentWindow)
	}
	if cfg.Progress.Namespace != "pogo_progress" {
		t.Errorf("default Namespace = %q", cfg.Progress.Namespace)
	}
	if cfg.Notify.Enabled {
		t.Error("notifications should default to disabled")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, `source: {base_url: "https://x/graphql"}`))
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Source.BaseURL = "" }},
		{"tiny poll interval", func(c *Config) { c.Source.PollInterval = time.Second }},
		{"zero timeout", func(c *Config) { c.Source.Timeout = 0 }},
		{"empty listen", func(c *Config) { c.Server.Listen = "" }},
		{"empty db path", func(c *Config) { c.Progress.DBPath = "" }},
		{"empty namespace", func(c *Config) { c.Progress.Namespace = "" }},
		{"tiny imminent window", func(c *Config) { c.Classifier.ImminentWindow = time.Minute }},
		{"notify enabled without token", func(c *Config) { c.Notify.Enabled = true; c.Notify.ChatID = "1" }},
		{"notify enabled without chat", func(c *Config) { c.Notify.Enabled = true; c.Notify.BotToken = "t" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
