package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all htnadmin configuration.
type Config struct {
	// Admin API connection
	API APIConfig `yaml:"api"`

	// Local database and export paths
	Storage StorageConfig `yaml:"storage"`

	// Dashboard behavior
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// CSV export archiving
	Export ExportConfig `yaml:"export"`

	// Admin action event publishing
	Events EventsConfig `yaml:"events"`
}

// DefaultDir returns the directory holding config, database and logs.
// HTNADMIN_HOME wins over ~/.htnadmin.
func DefaultDir() string {
	if dir := os.Getenv("HTNADMIN_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".htnadmin"
	}
	return filepath.Join(home, ".htnadmin")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dir := DefaultDir()
	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:5000/api",
			Timeout:   "",
			UserAgent: "htnadmin/1.0",
		},

		Storage: StorageConfig{
			DatabasePath: filepath.Join(dir, "htnadmin.db"),
			ExportDir:    ".",
		},

		UI: UIConfig{
			Theme:             "auto",
			SearchDebounce:    "300ms",
			BadgePollInterval: "60s",
			UsersPerPage:      50,
			ReadingsPerPage:   15,
		},

		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			DebugMode: false,
			Dir:       filepath.Join(dir, "logs"),
		},

		Export: ExportConfig{
			S3: S3Config{
				Enabled: false,
				Prefix:  "exports/",
			},
		},

		Events: EventsConfig{
			Backend: EventsNone,
			Kafka: KafkaConfig{
				Topic: "htnadmin.actions",
			},
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if u := os.Getenv("HTNADMIN_API_URL"); u != "" {
		c.API.BaseURL = u
	}
	if path := os.Getenv("HTNADMIN_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
	if dir := os.Getenv("HTNADMIN_EXPORT_DIR"); dir != "" {
		c.Storage.ExportDir = dir
	}
	if lvl := os.Getenv("HTNADMIN_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
	if dbg := os.Getenv("HTNADMIN_DEBUG"); dbg != "" {
		c.Logging.DebugMode = dbg == "1" || strings.EqualFold(dbg, "true")
	}
	if bucket := os.Getenv("HTNADMIN_S3_BUCKET"); bucket != "" {
		c.Export.S3.Bucket = bucket
		c.Export.S3.Enabled = true
	}
	if brokers := os.Getenv("HTNADMIN_KAFKA_BROKERS"); brokers != "" {
		c.Events.Kafka.Brokers = splitList(brokers)
		c.Events.Backend = EventsKafka
	}
	if q := os.Getenv("HTNADMIN_SQS_QUEUE_URL"); q != "" {
		c.Events.SQS.QueueURL = q
		c.Events.Backend = EventsSQS
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetRequestTimeout returns the HTTP client timeout. Zero means no timeout.
func (c *Config) GetRequestTimeout() time.Duration {
	if c.API.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetSearchDebounce returns the search quiet period.
func (c *Config) GetSearchDebounce() time.Duration {
	d, err := time.ParseDuration(c.UI.SearchDebounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}

// GetBadgePollInterval returns the dashboard badge refresh interval.
func (c *Config) GetBadgePollInterval() time.Duration {
	d, err := time.ParseDuration(c.UI.BadgePollInterval)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid api.base_url %q (expected http(s)://host[/prefix])", c.API.BaseURL)
	}
	if c.API.Timeout != "" {
		if _, err := time.ParseDuration(c.API.Timeout); err != nil {
			return fmt.Errorf("invalid api.timeout %q: %w", c.API.Timeout, err)
		}
	}
	if c.UI.UsersPerPage <= 0 || c.UI.UsersPerPage > 200 {
		return fmt.Errorf("ui.users_per_page must be between 1 and 200, got %d", c.UI.UsersPerPage)
	}
	if c.UI.ReadingsPerPage <= 0 || c.UI.ReadingsPerPage > 200 {
		return fmt.Errorf("ui.readings_per_page must be between 1 and 200, got %d", c.UI.ReadingsPerPage)
	}
	if !c.UI.ValidTheme() {
		return fmt.Errorf("invalid ui.theme %q (valid: auto, light, dark)", c.UI.Theme)
	}
	if c.Export.S3.Enabled && c.Export.S3.Bucket == "" {
		return fmt.Errorf("export.s3.enabled requires export.s3.bucket")
	}
	return c.Events.Validate()
}
