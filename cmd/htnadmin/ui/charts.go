package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Bar renders a horizontal bar of value relative to max over width cells.
func Bar(value, max, width int, color lipgloss.Color) string {
	if width <= 0 {
		width = BarWidth
	}
	n := 0
	if max > 0 && value > 0 {
		n = value * width / max
		if n == 0 {
			n = 1
		}
	}
	if n > width {
		n = width
	}
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", n)) +
		strings.Repeat(" ", width-n)
}

// BarRow is one labelled bar.
type BarRow struct {
	Label string
	Value int
	Note  string
	Color lipgloss.Color
}

// BarChart renders rows as labelled horizontal bars scaled to the largest value.
func BarChart(s Styles, title string, rows []BarRow, width int) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(s.Title.Render(title))
		sb.WriteString("\n")
	}
	if len(rows) == 0 {
		sb.WriteString(s.Muted.Render("No data"))
		sb.WriteString("\n")
		return sb.String()
	}
	labelWidth, max := 0, 0
	for _, r := range rows {
		labelWidth = maxInt(labelWidth, lipgloss.Width(r.Label))
		max = maxInt(max, r.Value)
	}
	for _, r := range rows {
		color := r.Color
		if color == "" {
			color = s.Theme.Accent
		}
		fmt.Fprintf(&sb, "%-*s %s %d", labelWidth, r.Label, Bar(r.Value, max, width, color), r.Value)
		if r.Note != "" {
			sb.WriteString(" " + s.Muted.Render(r.Note))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
