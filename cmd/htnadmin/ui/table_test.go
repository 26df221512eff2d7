package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestSimpleTable(t *testing.T) {
	table := NewSimpleTable("Patients", []string{"Name", "Status"})
	table.AddRow("Ana Diaz", "Active")
	table.AddRow("Ben Ortiz", "Pending Cuff")
	table.Cursor = 1

	view := table.View(DefaultStyles(), "")
	t.Logf("View:\n%q", view)

	for _, want := range []string{"Patients", "Ana Diaz", "Pending Cuff"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestSimpleTableEmpty(t *testing.T) {
	table := NewSimpleTable("", []string{"Name"})
	if got := table.View(DefaultStyles(), ""); got != "" {
		t.Errorf("empty table without placeholder rendered %q", got)
	}
	if got := table.View(DefaultStyles(), "No patients"); !strings.Contains(got, "No patients") {
		t.Errorf("placeholder missing from %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"Hypertension", 5, "Hype…"},
		{"ab", 0, "ab"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestBarScalesToMax(t *testing.T) {
	full := Bar(10, 10, 20, Success)
	if lipgloss.Width(full) != 20 {
		t.Fatalf("bar width = %d, want 20", lipgloss.Width(full))
	}
	if !strings.Contains(Bar(1, 1000, 20, Success), "█") {
		t.Errorf("a non-zero value should draw at least one cell")
	}
	if strings.Contains(Bar(0, 10, 20, Success), "█") {
		t.Errorf("zero should draw no cells")
	}
}
