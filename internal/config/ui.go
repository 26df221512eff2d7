package config

// UIConfig configures the dashboard.
type UIConfig struct {
	Theme             string `yaml:"theme"`               // auto, light, dark
	SearchDebounce    string `yaml:"search_debounce"`     // quiet period before a search commits
	BadgePollInterval string `yaml:"badge_poll_interval"` // pending approvals badge refresh
	UsersPerPage      int    `yaml:"users_per_page"`
	ReadingsPerPage   int    `yaml:"readings_per_page"`
}

// ValidTheme reports whether Theme is a known value.
func (u UIConfig) ValidTheme() bool {
	switch u.Theme {
	case "", "auto", "light", "dark":
		return true
	}
	return false
}
