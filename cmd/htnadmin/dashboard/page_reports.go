package dashboard

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"htnadmin/cmd/htnadmin/ui"
	"htnadmin/internal/filter"
	"htnadmin/internal/types"
	"htnadmin/internal/views"
)

type reportsPage struct {
	env     *env
	reports *views.CallReports
	search  *searchBox
	picker  *picker
	form    *form
	cursor  int
	preset  int
	loaded  bool
}

func newReportsPage(e *env) *reportsPage {
	return &reportsPage{
		env:    e,
		reports:   views.NewCallReports(e.api),
		search: newSearchBox(e, PageReports, "patient name"),
		preset: -1,
	}
}

func (p *reportsPage) load() tea.Cmd {
	ctx, v := p.env.ctx, p.reports
	return p.env.loadCmd(PageReports, func() error { return v.Load(ctx) })
}

func (p *reportsPage) stop() { p.search.stop() }

func (p *reportsPage) typing() bool {
	return p.search.active || p.picker != nil || p.form != nil
}

func (p *reportsPage) help() string {
	if p.picker != nil || p.form != nil {
		return ""
	}
	return "j/k move • / patient • l list type • o outcome • t preset • y dates • x clear • enter patient"
}

func (p *reportsPage) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err == nil {
			p.loaded = true
			p.clampCursor()
		}
	case searchMsg:
		p.reports.SetNameFilter(msg.term)
		p.cursor = 0
	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil
}

func (p *reportsPage) clampCursor() {
	if n := len(p.reports.Visible()); p.cursor >= n {
		p.cursor = max(n-1, 0)
	}
}

func (p *reportsPage) handleKey(msg tea.KeyMsg) tea.Cmd {
	if p.form != nil {
		cmd, done := p.form.update(msg)
		if done {
			p.form = nil
		}
		return cmd
	}
	if p.picker != nil {
		cmd, closed := p.picker.update(msg)
		if closed {
			p.picker = nil
		}
		return cmd
	}
	if p.search.active {
		return p.search.update(msg)
	}

	switch msg.String() {
	case "/":
		return p.search.focus()
	case "j", "down":
		if p.cursor < len(p.reports.Visible())-1 {
			p.cursor++
		}
	case "k", "up":
		if p.cursor > 0 {
			p.cursor--
		}
	case "enter":
		rows := p.reports.Visible()
		if p.cursor < len(rows) {
			return openPatient(rows[p.cursor].UserID)
		}
	case "l":
		p.picker = multiPicker("List type", p.reports.ListTypes, p.pickerDone)
	case "o":
		p.picker = multiPicker("Outcome", p.reports.Outcomes, p.pickerDone)
	case "t":
		p.preset++
		if p.preset >= len(filter.AllPresets) {
			p.preset = -1
			_ = p.reports.SetDates(filter.DateRange{})
		} else {
			_ = p.reports.SetDates(filter.AllPresets[p.preset].Range(p.env.now()))
		}
		return p.load()
	case "y":
		p.form = p.datesForm()
	case "x":
		p.preset = -1
		p.reports.ListTypes.Clear()
		p.reports.Outcomes.Clear()
		_ = p.reports.SetDates(filter.DateRange{})
		p.search.input.SetValue("")
		p.reports.SetNameFilter("")
		p.cursor = 0
		return p.load()
	}
	return nil
}

func (p *reportsPage) pickerDone(changed bool) tea.Cmd {
	if !changed {
		return nil
	}
	p.cursor = 0
	return p.load()
}

func (p *reportsPage) datesForm() *form {
	d := p.reports.Dates()
	f := newForm("Date range", func(f *form) tea.Cmd {
		dates, err := filter.ParseDateRange(strings.TrimSpace(f.text("from")), strings.TrimSpace(f.text("to")))
		if err == nil {
			err = p.reports.SetDates(dates)
		}
		if err != nil {
			f.err = err.Error()
			return nil
		}
		p.preset = -1
		p.form = nil
		return p.load()
	},
		textInput("from", "From", filter.DateLayout),
		textInput("to", "To", filter.DateLayout),
	)
	if !d.From.IsZero() {
		f.setText("from", d.From.Format(filter.DateLayout))
	}
	if !d.To.IsZero() {
		f.setText("to", d.To.Format(filter.DateLayout))
	}
	return f
}

func (p *reportsPage) view(width int) string {
	s := p.env.styles
	if p.form != nil {
		return p.form.view(s)
	}
	if p.picker != nil {
		return p.picker.view(s)
	}

	var sb strings.Builder
	sb.WriteString(p.search.view(s))
	sb.WriteString("  ")
	sb.WriteString(s.Muted.Render(fmt.Sprintf("lists: %s · outcomes: %s",
		p.reports.ListTypes.Summary("all"), p.reports.Outcomes.Summary("all"))))
	if d := p.reports.Dates(); !d.IsZero() {
		sb.WriteString("  ")
		label := d.String()
		if p.preset >= 0 {
			label = filter.AllPresets[p.preset].Label()
		}
		sb.WriteString(s.Info.Render(label))
	}
	sb.WriteString("\n\n")

	if !p.loaded {
		sb.WriteString(s.Muted.Render("Loading call reports…"))
		return sb.String()
	}

	sum := p.reports.Summary()
	sb.WriteString(s.Card.Render(fmt.Sprintf("%s\n%s", s.Bold.Render(fmt.Sprint(sum.TotalAll)), s.Muted.Render("All attempts"))))
	sb.WriteString(s.Card.Render(fmt.Sprintf("%s\n%s", s.Bold.Render(fmt.Sprint(sum.TotalWeek)), s.Muted.Render("This week"))))
	sb.WriteString("\n")
	sb.WriteString(outcomeBreakdown(s, sum.ByOutcome))
	sb.WriteString("\n")

	table := ui.NewSimpleTable("", []string{"Date", "Patient", "List", "Outcome", "Admin", "Notes"})
	table.Cursor = p.cursor
	for _, a := range p.reports.Visible() {
		table.AddRow(a.CreatedAt.Display(), ui.Truncate(a.PatientName, 22), a.ListType.Label(),
			a.Outcome.Label(), ui.Truncate(a.AdminName, 16), ui.Truncate(a.Notes, max(width-100, 12)))
	}
	sb.WriteString(table.View(s, "No call attempts match these filters"))
	sb.WriteString("\n")
	sb.WriteString(s.Muted.Render(fmt.Sprintf("%d shown of %d", len(p.reports.Visible()), p.reports.Total())))
	return sb.String()
}

// outcomeBreakdown renders the per-outcome counts in the canonical outcome order.
func outcomeBreakdown(s ui.Styles, by map[types.Outcome]int) string {
	if len(by) == 0 {
		return ""
	}
	rows := make([]ui.BarRow, 0, len(by))
	for _, o := range types.AllOutcomes {
		if n, ok := by[o]; ok {
			rows = append(rows, ui.BarRow{Label: o.Label(), Value: n})
		}
	}
	var extra []string
	for o := range by {
		if !o.Valid() {
			extra = append(extra, string(o))
		}
	}
	sort.Strings(extra)
	for _, o := range extra {
		rows = append(rows, ui.BarRow{Label: o, Value: by[types.Outcome(o)]})
	}
	return ui.BarChart(s, "By outcome", rows, 20)
}
