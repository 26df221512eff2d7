package dashboard

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"htnadmin/cmd/htnadmin/ui"
	"htnadmin/internal/filter"
)

// picker is a checklist over a fixed set of labels. In single mode, space
// or enter picks one entry and closes.
type picker struct {
	title    string
	labels   []string
	selected func(i int) bool
	toggle   func(i int)
	single   bool
	cursor   int
	// done runs when the picker closes; changed reports whether anything was toggled.
	done    func(changed bool) tea.Cmd
	changed bool
}

// multiPicker edits a MultiSelect in place.
func multiPicker[T comparable](title string, ms *filter.MultiSelect[T], done func(changed bool) tea.Cmd) *picker {
	opts := ms.Options()
	labels := make([]string, len(opts))
	for i, o := range opts {
		labels[i] = o.Label
	}
	return &picker{
		title:    title,
		labels:   labels,
		selected: func(i int) bool { return ms.IsSelected(opts[i].Value) },
		toggle:   func(i int) { ms.Toggle(opts[i].Value) },
		done:     done,
	}
}

// singlePicker chooses one label and hands its index to pick.
func singlePicker(title string, labels []string, pick func(i int) tea.Cmd) *picker {
	chosen := -1
	return &picker{
		title:    title,
		labels:   labels,
		single:   true,
		selected: func(i int) bool { return i == chosen },
		toggle:   func(i int) { chosen = i },
		done: func(changed bool) tea.Cmd {
			if !changed || chosen < 0 {
				return nil
			}
			return pick(chosen)
		},
	}
}

func (p *picker) update(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.labels)-1 {
			p.cursor++
		}
	case " ", "x":
		if len(p.labels) == 0 {
			return nil, false
		}
		p.toggle(p.cursor)
		p.changed = true
		if p.single {
			return p.done(true), true
		}
	case "enter":
		if p.single && len(p.labels) > 0 {
			p.toggle(p.cursor)
			p.changed = true
		}
		return p.done(p.changed), true
	case "esc":
		if p.single {
			return nil, true
		}
		return p.done(p.changed), true
	}
	return nil, false
}

func (p *picker) view(s ui.Styles) string {
	var sb strings.Builder
	sb.WriteString(s.Title.Render(p.title))
	sb.WriteString("\n\n")
	for i, l := range p.labels {
		box := "[ ] "
		if p.single {
			box = "  "
		}
		if p.selected(i) {
			box = "[x] "
		}
		line := box + l
		if i == p.cursor {
			line = s.Cursor.Render(line)
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n")
	if p.single {
		sb.WriteString(s.Muted.Render("↑↓ move • enter choose • esc cancel"))
	} else {
		sb.WriteString(s.Muted.Render("↑↓ move • space toggle • enter/esc done"))
	}
	return s.FocusedForm.Render(sb.String())
}
