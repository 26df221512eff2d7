package dashboard

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"htnadmin/cmd/htnadmin/ui"
)

type fieldKind int

const (
	textField fieldKind = iota
	choiceField
	toggleField
)

// formField is one row of a form. Text fields edit freely, choice fields
// cycle with left/right, and toggles flip with space.
type formField struct {
	key     string
	label   string
	kind    fieldKind
	input   textinput.Model
	choices []string
	choice  int
	on      bool
	// shown hides the field when it returns false.
	shown func(f *form) bool
}

func textInput(key, label, placeholder string) *formField {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.CharLimit = 2000
	ti.Width = 50
	return &formField{key: key, label: label, kind: textField, input: ti}
}

func choiceInput(key, label string, choices ...string) *formField {
	return &formField{key: key, label: label, kind: choiceField, choices: choices}
}

func toggleInput(key, label string) *formField {
	return &formField{key: key, label: label, kind: toggleField}
}

func (ff *formField) when(fn func(f *form) bool) *formField {
	ff.shown = fn
	return ff
}

// form is a modal input block owned by a page.
type form struct {
	title   string
	fields  []*formField
	focus   int
	err     string
	submit  func(f *form) tea.Cmd
	preview func(f *form) string
	// onChange runs after a choice changes, e.g. to apply a template.
	onChange func(f *form, key string)
}

func newForm(title string, submit func(f *form) tea.Cmd, fields ...*formField) *form {
	f := &form{title: title, fields: fields, submit: submit}
	f.focusField(0)
	return f
}

func (f *form) field(key string) *formField {
	for _, ff := range f.fields {
		if ff.key == key {
			return ff
		}
	}
	return nil
}

// text returns a text field's value, trimmed.
func (f *form) text(key string) string {
	if ff := f.field(key); ff != nil {
		return strings.TrimSpace(ff.input.Value())
	}
	return ""
}

// setText overwrites a text field.
func (f *form) setText(key, value string) {
	if ff := f.field(key); ff != nil {
		ff.input.SetValue(value)
	}
}

// choice returns the index of a choice field.
func (f *form) choice(key string) int {
	if ff := f.field(key); ff != nil {
		return ff.choice
	}
	return 0
}

func (f *form) on(key string) bool {
	if ff := f.field(key); ff != nil {
		return ff.on
	}
	return false
}

func (f *form) visible(i int) bool {
	ff := f.fields[i]
	return ff.shown == nil || ff.shown(f)
}

func (f *form) focusField(i int) {
	for j, ff := range f.fields {
		if ff.kind == textField {
			if j == i {
				ff.input.Focus()
			} else {
				ff.input.Blur()
			}
		}
	}
	f.focus = i
}

func (f *form) move(delta int) {
	n := len(f.fields)
	for step := 1; step <= n; step++ {
		i := ((f.focus+delta*step)%n + n) % n
		if f.visible(i) {
			f.focusField(i)
			return
		}
	}
}

// update handles a key. It returns done when the form should close.
func (f *form) update(msg tea.KeyMsg) (cmd tea.Cmd, done bool) {
	cur := f.fields[f.focus]
	switch msg.String() {
	case "esc":
		return nil, true
	case "enter":
		f.err = ""
		return f.submit(f), false
	case "tab", "down":
		f.move(1)
		return nil, false
	case "shift+tab", "up":
		f.move(-1)
		return nil, false
	case "left", "right":
		if cur.kind == choiceField && len(cur.choices) > 0 {
			d := 1
			if msg.String() == "left" {
				d = -1
			}
			cur.choice = (cur.choice + d + len(cur.choices)) % len(cur.choices)
			if f.onChange != nil {
				f.onChange(f, cur.key)
			}
			return nil, false
		}
	case " ":
		if cur.kind == toggleField {
			cur.on = !cur.on
			return nil, false
		}
	}
	if cur.kind == textField {
		var cmd tea.Cmd
		cur.input, cmd = cur.input.Update(msg)
		return cmd, false
	}
	return nil, false
}

func (f *form) view(s ui.Styles) string {
	var sb strings.Builder
	sb.WriteString(s.Title.Render(f.title))
	sb.WriteString("\n\n")
	for i, ff := range f.fields {
		if !f.visible(i) {
			continue
		}
		marker := "  "
		if i == f.focus {
			marker = s.Prompt.Render("› ")
		}
		sb.WriteString(marker)
		sb.WriteString(s.Bold.Render(ff.label + ": "))
		switch ff.kind {
		case textField:
			sb.WriteString(ff.input.View())
		case choiceField:
			if len(ff.choices) > 0 {
				sb.WriteString("◂ " + ff.choices[ff.choice] + " ▸")
			}
		case toggleField:
			if ff.on {
				sb.WriteString("[x]")
			} else {
				sb.WriteString("[ ]")
			}
		}
		sb.WriteString("\n")
	}
	if f.preview != nil {
		if p := f.preview(f); p != "" {
			sb.WriteString("\n")
			sb.WriteString(p)
			sb.WriteString("\n")
		}
	}
	if f.err != "" {
		sb.WriteString("\n")
		sb.WriteString(s.Error.Render(f.err))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(s.Muted.Render("tab/↑↓ move • ←→ choose • space toggle • enter submit • esc cancel"))
	return s.FocusedForm.Render(sb.String())
}
