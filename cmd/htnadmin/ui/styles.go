// Package ui provides the visual styling for the htnadmin dashboard.
// Uses the clinic palette with light/dark mode support.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"htnadmin/internal/bp"
	"htnadmin/internal/types"
)

// Color palette
var (
	// Light Mode Colors (Default)
	LightBackground = lipgloss.Color("#f4f5f6")
	LightForeground = lipgloss.Color("#101F38") // Dark Blue
	LightPrimary    = lipgloss.Color("#1565c0") // Clinic Blue
	LightAccent     = lipgloss.Color("#00897b") // Teal
	LightSecondary  = lipgloss.Color("#e1e4e8")
	LightMuted      = lipgloss.Color("#6b7280")
	LightBorder     = lipgloss.Color("#dce0e5")
	LightCard       = lipgloss.Color("#ffffff")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#141d2b")
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#64b5f6")
	DarkAccent     = lipgloss.Color("#4db6ac")
	DarkSecondary  = lipgloss.Color("#1e2a3d")
	DarkMuted      = lipgloss.Color("#8a94a6")
	DarkBorder     = lipgloss.Color("#2a3850")
	DarkCard       = lipgloss.Color("#1a2536")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e53935") // Red
	Success     = lipgloss.Color("#43a047") // Green
	Warning     = lipgloss.Color("#fb8c00") // Orange
	Info        = lipgloss.Color("#1e88e5") // Blue
	Neutral     = lipgloss.Color("#9e9e9e") // Gray
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Secondary:  LightSecondary,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
		IsDark:     false,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Secondary:  DarkSecondary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// DetectTheme auto-detects based on terminal or returns light mode
func DetectTheme() Theme {
	// Format is usually "foreground;background"
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			// 0-6 and 8 (dark grey) are likely dark backgrounds
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
			}
		}
	}

	if os.Getenv("HTNADMIN_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// ThemeNamed resolves the ui.theme config value. Anything but light or
// dark auto-detects.
func ThemeNamed(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	case "dark":
		return DarkTheme()
	}
	return DetectTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	App     lipgloss.Style
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style
	Panel   lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style

	// Interactive
	Prompt      lipgloss.Style
	Tab         lipgloss.Style
	TabActive   lipgloss.Style
	Cursor      lipgloss.Style
	FocusedForm lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Components
	Divider lipgloss.Style
	Badge   lipgloss.Style
	Card    lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		// Layout styles
		App: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		// Text styles
		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		// Interactive styles
		Prompt: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Tab: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		TabActive: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Underline(true).
			Padding(0, 1),

		Cursor: lipgloss.NewStyle().
			Background(theme.Secondary).
			Bold(true),

		FocusedForm: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(theme.Accent).
			Padding(0, 1),

		// Status styles
		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		// Component styles
		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Badge: lipgloss.NewStyle().
			Background(Destructive).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 2).
			Width(22),
	}
}

// DefaultStyles returns styles with the detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	return s.Divider.Render(strings.Repeat("─", width))
}

// Category renders text in a BP category's color.
func (s Styles) Category(c bp.Category, text string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color())).Bold(c >= bp.Stage2).Render(text)
}

// Reading renders "sys/dia" in its category color, marking implausible pairs.
func (s Styles) Reading(systolic, diastolic int) string {
	text := strconv.Itoa(systolic) + "/" + strconv.Itoa(diastolic)
	if !bp.Plausible(systolic, diastolic) {
		text += "?"
	}
	return s.Category(bp.Classify(systolic, diastolic), text)
}

// ToneColor maps a status tone to a palette color.
func ToneColor(t types.StatusTone) lipgloss.Color {
	switch t {
	case types.ToneOrange:
		return Warning
	case types.ToneBlue:
		return Info
	case types.ToneGreen:
		return Success
	case types.ToneRed:
		return Destructive
	}
	return Neutral
}

// Status renders a user status label in its tone.
func (s Styles) Status(st types.UserStatus) string {
	return lipgloss.NewStyle().Foreground(ToneColor(st.Tone())).Render(st.Label())
}

// Priority renders a call list priority.
func (s Styles) Priority(p types.Priority, title string) string {
	if title == "" {
		title = string(p)
	}
	var color lipgloss.Color
	switch p {
	case types.PriorityHigh:
		color = Destructive
	case types.PriorityMedium:
		color = Warning
	default:
		color = Info
	}
	return lipgloss.NewStyle().Foreground(color).Bold(p == types.PriorityHigh).Render(title)
}
