// Package ui layout constants for consistent spacing and dimensions
package ui

// Layout constants for viewport and panel sizing
const (
	ViewportHorizontalPadding = 4

	HeaderHeight    = 2
	FooterHeight    = 2
	StatusBarHeight = 1

	MinimumTerminalWidth  = 80
	MinimumTerminalHeight = 24

	BarWidth = 30
)

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
}

// NewLayoutConfig creates a layout configuration for the given terminal size
func NewLayoutConfig(width, height int) LayoutConfig {
	if width <= 0 {
		width = MinimumTerminalWidth
	}
	if height <= 0 {
		height = MinimumTerminalHeight
	}
	return LayoutConfig{
		TerminalWidth:  width,
		TerminalHeight: height,
	}
}

// ContentWidth returns the usable content width for a viewport
func (l LayoutConfig) ContentWidth() int {
	return l.TerminalWidth - ViewportHorizontalPadding
}

// ContentHeight returns the usable content height below the header and
// above the footer.
func (l LayoutConfig) ContentHeight() int {
	return l.TerminalHeight - HeaderHeight - FooterHeight - StatusBarHeight
}
