package dashboard

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"htnadmin/cmd/htnadmin/ui"
	"htnadmin/internal/filter"
)

// searchBox is a debounced search input. Committed terms arrive on the
// event channel as searchMsg for the owning page.
type searchBox struct {
	input  textinput.Model
	search *filter.Search
	active bool
}

func newSearchBox(e *env, p Page, placeholder string) *searchBox {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "/ "
	ti.PromptStyle = e.styles.Prompt
	ti.CharLimit = 100
	ti.Width = 30
	return &searchBox{
		input:  ti,
		search: filter.NewSearch(e.settings.GetSearchDebounce(), func(term string) { e.send(searchMsg{page: p, term: term}) }),
	}
}

func (b *searchBox) focus() tea.Cmd {
	b.active = true
	return b.input.Focus()
}

// update edits the term. Enter commits now, esc clears.
func (b *searchBox) update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		b.active = false
		b.input.Blur()
		b.search.Flush()
		return nil
	case "esc":
		b.active = false
		b.input.Blur()
		b.input.SetValue("")
		b.search.Clear()
		return nil
	}
	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)
	b.search.Set(b.input.Value())
	return cmd
}

func (b *searchBox) view(s ui.Styles) string {
	if !b.active && b.input.Value() == "" {
		return s.Muted.Render("/ search")
	}
	return b.input.View()
}

func (b *searchBox) stop() { b.search.Stop() }

// confirmPrompt asks a yes/no question before a destructive action.
type confirmPrompt struct {
	question string
	yes      func() tea.Cmd
}

// update returns the action on y and closes on any key.
func (c *confirmPrompt) update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		return c.yes()
	}
	return nil
}

func (c *confirmPrompt) view(s ui.Styles) string {
	return s.Warning.Render(c.question + " (y/n)")
}
