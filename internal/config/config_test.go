package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	t.Setenv("HTNADMIN_HOME", "/tmp/htn-home")
	cfg := DefaultConfig()

	if cfg.UI.UsersPerPage != 50 {
		t.Errorf("expected UsersPerPage=50, got %d", cfg.UI.UsersPerPage)
	}
	if cfg.UI.ReadingsPerPage != 15 {
		t.Errorf("expected ReadingsPerPage=15, got %d", cfg.UI.ReadingsPerPage)
	}
	if cfg.Storage.DatabasePath != filepath.Join("/tmp/htn-home", "htnadmin.db") {
		t.Errorf("unexpected DatabasePath %s", cfg.Storage.DatabasePath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("HTNADMIN_API_URL", "")
	t.Setenv("HTNADMIN_DB", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://htn.example.org/api"
	cfg.UI.Theme = "dark"
	cfg.Events.Backend = EventsKafka
	cfg.Events.Kafka.Brokers = []string{"kafka:9092"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.API.BaseURL != "https://htn.example.org/api" {
		t.Errorf("expected BaseURL to round-trip, got %s", loaded.API.BaseURL)
	}
	if loaded.UI.Theme != "dark" {
		t.Errorf("expected Theme=dark, got %s", loaded.UI.Theme)
	}
	if len(loaded.Events.Kafka.Brokers) != 1 || loaded.Events.Kafka.Brokers[0] != "kafka:9092" {
		t.Errorf("unexpected brokers %v", loaded.Events.Kafka.Brokers)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UI.SearchDebounce != "300ms" {
		t.Errorf("expected default debounce, got %q", cfg.UI.SearchDebounce)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "failed to parse config") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestConfig_DurationGetters(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetRequestTimeout(); got != 0 {
		t.Errorf("default request timeout should be 0 (none), got %v", got)
	}
	if got := cfg.GetSearchDebounce(); got != 300*time.Millisecond {
		t.Errorf("GetSearchDebounce = %v", got)
	}
	if got := cfg.GetBadgePollInterval(); got != time.Minute {
		t.Errorf("GetBadgePollInterval = %v", got)
	}

	cfg.API.Timeout = "15s"
	cfg.UI.SearchDebounce = "garbage"
	cfg.UI.BadgePollInterval = "-5s"
	if got := cfg.GetRequestTimeout(); got != 15*time.Second {
		t.Errorf("GetRequestTimeout = %v", got)
	}
	if got := cfg.GetSearchDebounce(); got != 300*time.Millisecond {
		t.Errorf("invalid debounce should fall back, got %v", got)
	}
	if got := cfg.GetBadgePollInterval(); got != time.Minute {
		t.Errorf("negative interval should fall back, got %v", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad url", func(c *Config) { c.API.BaseURL = "localhost:5000" }, "api.base_url"},
		{"bad timeout", func(c *Config) { c.API.Timeout = "soon" }, "api.timeout"},
		{"page size", func(c *Config) { c.UI.UsersPerPage = 0 }, "users_per_page"},
		{"theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"s3 bucket", func(c *Config) { c.Export.S3.Enabled = true }, "export.s3.bucket"},
		{"kafka brokers", func(c *Config) { c.Events.Backend = EventsKafka }, "events.kafka.brokers"},
		{"sqs queue", func(c *Config) { c.Events.Backend = EventsSQS }, "events.sqs.queue_url"},
		{"backend", func(c *Config) { c.Events.Backend = "pigeon" }, "events.backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	c := LoggingConfig{DebugMode: false}
	if c.IsCategoryEnabled("api") {
		t.Error("production mode should disable all categories")
	}
	c.DebugMode = true
	c.Categories = map[string]bool{"api": false}
	if c.IsCategoryEnabled("api") {
		t.Error("api should be disabled")
	}
	if !c.IsCategoryEnabled("session") {
		t.Error("unlisted category should default to enabled")
	}
	if opts := (&LoggingConfig{Format: "json"}).Options(); !opts.JSONFormat {
		t.Error("json format should map to JSONFormat")
	}
}
