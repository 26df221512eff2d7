package config

// APIConfig configures the admin API client.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"`   // e.g. https://htn.example.org/api
	Timeout   string `yaml:"timeout"`    // empty = no client timeout
	UserAgent string `yaml:"user_agent"` // sent on every request
}

// StorageConfig configures local persistence.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"` // SQLite file for session + action journal
	ExportDir    string `yaml:"export_dir"`    // where CSV exports are written
}
