package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"htnadmin/internal/logging"
)

// Markdown renders notes and email previews.
type Markdown struct {
	renderer *glamour.TermRenderer
}

// NewMarkdown builds a renderer matching the theme.
func NewMarkdown(theme Theme, width int) *Markdown {
	if width <= 0 {
		width = 80
	}
	style := "light"
	if theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		logging.UI("Markdown renderer unavailable: %v", err)
		return &Markdown{}
	}
	return &Markdown{renderer: r}
}

// Render returns md rendered for the terminal, or md unchanged if rendering
// fails.
func (m *Markdown) Render(md string) string {
	if m == nil || m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		logging.UI("Markdown render failed: %v", err)
		return md
	}
	return strings.TrimRight(out, "\n")
}
