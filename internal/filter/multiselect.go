package filter

import (
	"fmt"
	"strings"
)

// Option is one choice in a MultiSelect.
type Option[T comparable] struct {
	Value T
	Label string
}

// MultiSelect holds a set of selected option values. An empty selection
// means no filter. The full set is always what gets sent to the server.
type MultiSelect[T comparable] struct {
	options  []Option[T]
	selected map[T]bool
	order    []T // selection order
}

// NewMultiSelect creates a selector over options, none selected.
func NewMultiSelect[T comparable](options ...Option[T]) *MultiSelect[T] {
	return &MultiSelect[T]{options: options, selected: make(map[T]bool)}
}

// SetOptions replaces the options, dropping selections that no longer exist.
func (m *MultiSelect[T]) SetOptions(options []Option[T]) {
	m.options = options
	keep := make(map[T]bool, len(m.selected))
	for _, o := range options {
		if m.selected[o.Value] {
			keep[o.Value] = true
		}
	}
	m.selected = keep
	m.prune()
}

// Options returns the available options.
func (m *MultiSelect[T]) Options() []Option[T] {
	return m.options
}

// Toggle flips v and reports whether it is now selected.
func (m *MultiSelect[T]) Toggle(v T) bool {
	if m.selected[v] {
		delete(m.selected, v)
		m.prune()
		return false
	}
	m.Select(v)
	return true
}

// Select adds v.
func (m *MultiSelect[T]) Select(v T) {
	if !m.selected[v] {
		m.selected[v] = true
		m.order = append(m.order, v)
	}
}

// prune drops deselected values from the selection order.
func (m *MultiSelect[T]) prune() {
	kept := m.order[:0]
	for _, v := range m.order {
		if m.selected[v] {
			kept = append(kept, v)
		}
	}
	m.order = kept
}

// IsSelected reports whether v is selected.
func (m *MultiSelect[T]) IsSelected(v T) bool { return m.selected[v] }

// Clear empties the selection.
func (m *MultiSelect[T]) Clear() {
	m.selected = make(map[T]bool)
	m.order = nil
}

// Len is the number of selected values.
func (m *MultiSelect[T]) Len() int { return len(m.selected) }

// Selected returns the selected values in option order. Values selected
// but absent from the options come last, in the order they were selected.
func (m *MultiSelect[T]) Selected() []T {
	out := make([]T, 0, len(m.selected))
	seen := make(map[T]bool, len(m.selected))
	for _, o := range m.options {
		if m.selected[o.Value] {
			out = append(out, o.Value)
			seen[o.Value] = true
		}
	}
	for _, v := range m.order {
		if !seen[v] {
			out = append(out, v)
		}
	}
	return out
}

// Matches reports whether v passes the filter. Everything passes an empty selection.
func (m *MultiSelect[T]) Matches(v T) bool {
	return len(m.selected) == 0 || m.selected[v]
}

// Param joins the selected values with commas using format, or returns ""
// when nothing is selected.
func (m *MultiSelect[T]) Param(format func(T) string) string {
	sel := m.Selected()
	if len(sel) == 0 {
		return ""
	}
	parts := make([]string, len(sel))
	for i, v := range sel {
		parts[i] = format(v)
	}
	return strings.Join(parts, ",")
}

// Summary describes the selection for a filter button.
func (m *MultiSelect[T]) Summary(placeholder string) string {
	switch n := len(m.selected); n {
	case 0:
		return placeholder
	case 1:
		v := m.Selected()[0]
		for _, o := range m.options {
			if o.Value == v {
				return o.Label
			}
		}
		return fmt.Sprint(v)
	default:
		return fmt.Sprintf("%d selected", n)
	}
}
