package ui

import "testing"

func TestLayoutConfig(t *testing.T) {
	l := NewLayoutConfig(0, 0)
	if l.TerminalWidth != MinimumTerminalWidth || l.TerminalHeight != MinimumTerminalHeight {
		t.Fatalf("expected minimum size fallback, got %dx%d", l.TerminalWidth, l.TerminalHeight)
	}

	l = NewLayoutConfig(140, 40)
	if got := l.ContentWidth(); got != 136 {
		t.Errorf("ContentWidth = %d, want 136", got)
	}
	if got := l.ContentHeight(); got != 35 {
		t.Errorf("ContentHeight = %d, want 35", got)
	}
}
