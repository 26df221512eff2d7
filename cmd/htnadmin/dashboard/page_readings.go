package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"htnadmin/cmd/htnadmin/ui"
	"htnadmin/internal/bp"
	"htnadmin/internal/filter"
	"htnadmin/internal/logging"
	"htnadmin/internal/views"
)

type readingsPage struct {
	env      *env
	readings *views.Readings
	search   *searchBox
	picker   *picker
	form     *form
	cursor   int
	preset   int
	unions   bool
	loaded   bool
}

func newReadingsPage(e *env) *readingsPage {
	return &readingsPage{
		env:    e,
		readings:   views.NewReadings(e.api, e.settings.UI.ReadingsPerPage),
		search: newSearchBox(e, PageReadings, "patient name"),
		preset: -1,
	}
}

func (p *readingsPage) load() tea.Cmd {
	ctx, v := p.env.ctx, p.readings
	cmd := p.env.loadCmd(PageReadings, func() error { return v.Load(ctx) })
	if p.unions {
		return cmd
	}
	p.unions = true
	return tea.Batch(cmd, func() tea.Msg {
		if err := v.LoadUnions(ctx); err != nil {
			logging.UI("Union filter unavailable: %v", err)
		}
		return nil
	})
}

func (p *readingsPage) stop() { p.search.stop() }

func (p *readingsPage) typing() bool {
	return p.search.active || p.picker != nil || p.form != nil
}

func (p *readingsPage) help() string {
	if p.picker != nil || p.form != nil {
		return ""
	}
	return "j/k move • n/p page • / patient • c category • u union • t preset • y ranges • x clear • s sort • o order • enter open"
}

func (p *readingsPage) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err == nil {
			p.loaded = true
			if n := len(p.readings.Rows()); p.cursor >= n {
				p.cursor = max(n-1, 0)
			}
		}
		return nil
	case searchMsg:
		p.readings.SetUserSearch(msg.term)
		p.cursor = 0
		return p.load()
	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil
}

func (p *readingsPage) refilter() tea.Cmd {
	p.readings.FiltersChanged()
	p.cursor = 0
	return p.load()
}

func (p *readingsPage) handleKey(msg tea.KeyMsg) tea.Cmd {
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
		if p.cursor < len(p.readings.Rows())-1 {
			p.cursor++
		}
	case "k", "up":
		if p.cursor > 0 {
			p.cursor--
		}
	case "n", "right":
		pg := p.readings.Pager()
		if pg.CurrentPage() < pg.TotalPages() {
			p.readings.GoToPage(pg.CurrentPage() + 1)
			p.cursor = 0
			return p.load()
		}
	case "p", "left":
		pg := p.readings.Pager()
		if pg.CurrentPage() > 1 {
			p.readings.GoToPage(pg.CurrentPage() - 1)
			p.cursor = 0
			return p.load()
		}
	case "enter":
		rows := p.readings.Rows()
		if p.cursor < len(rows) {
			return openPatient(rows[p.cursor].UserID)
		}
	case "c":
		p.picker = multiPicker("BP category", p.readings.Categories, p.pickerDone)
	case "u":
		p.picker = multiPicker("Union", p.readings.Unions, p.pickerDone)
	case "t":
		p.preset++
		if p.preset >= len(filter.AllPresets) {
			p.preset = -1
			_ = p.readings.SetDates(filter.DateRange{})
		} else {
			_ = p.readings.SetDates(filter.AllPresets[p.preset].Range(p.env.now()))
		}
		p.cursor = 0
		return p.load()
	case "y":
		p.form = p.rangeForm()
	case "x":
		p.preset = -1
		p.search.input.SetValue("")
		p.readings.ClearFilters()
		p.cursor = 0
		return p.load()
	case "s":
		col, _ := p.readings.Sort()
		p.readings.SortBy(cycle(views.ReadingSorts, col, true))
		return p.load()
	case "o":
		col, _ := p.readings.Sort()
		p.readings.SortBy(col)
		return p.load()
	}
	return nil
}

func (p *readingsPage) pickerDone(changed bool) tea.Cmd {
	if !changed {
		return nil
	}
	return p.refilter()
}

// rangeForm edits the date and BP range filters together.
func (p *readingsPage) rangeForm() *form {
	d := p.readings.Dates()
	f := newForm("Date and BP ranges", func(f *form) tea.Cmd {
		dates, err := filter.ParseDateRange(f.text("from"), f.text("to"))
		if err != nil {
			f.err = err.Error()
			return nil
		}
		sys, err := parseRange(f.text("sys_min"), f.text("sys_max"))
		if err == nil {
			err = p.readings.SetSystolic(sys)
		}
		if err != nil {
			f.err = err.Error()
			return nil
		}
		dia, err := parseRange(f.text("dia_min"), f.text("dia_max"))
		if err == nil {
			err = p.readings.SetDiastolic(dia)
		}
		if err != nil {
			f.err = err.Error()
			return nil
		}
		if err := p.readings.SetDates(dates); err != nil {
			f.err = err.Error()
			return nil
		}
		p.preset = -1
		p.form = nil
		p.cursor = 0
		return p.load()
	},
		textInput("from", "From", filter.DateLayout),
		textInput("to", "To", filter.DateLayout),
		textInput("sys_min", "Systolic min", ""),
		textInput("sys_max", "Systolic max", ""),
		textInput("dia_min", "Diastolic min", ""),
		textInput("dia_max", "Diastolic max", ""),
	)
	if !d.From.IsZero() {
		f.setText("from", d.From.Format(filter.DateLayout))
	}
	if !d.To.IsZero() {
		f.setText("to", d.To.Format(filter.DateLayout))
	}
	q := p.readings.Query()
	setInt(f, "sys_min", q.SystolicMin)
	setInt(f, "sys_max", q.SystolicMax)
	setInt(f, "dia_min", q.DiastolicMin)
	setInt(f, "dia_max", q.DiastolicMax)
	return f
}

func setInt(f *form, key string, v *int) {
	if v != nil {
		f.setText(key, strconv.Itoa(*v))
	}
}

// parseRange reads optional integer bounds; blank leaves a bound open.
func parseRange(lo, hi string) (filter.NumericRange, error) {
	var r filter.NumericRange
	parse := func(s string) (*int, error) {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return &n, nil
	}
	var err error
	if r.Min, err = parse(lo); err != nil {
		return r, err
	}
	if r.Max, err = parse(hi); err != nil {
		return r, err
	}
	return r, nil
}

func (p *readingsPage) view(width int) string {
	s := p.env.styles
	if p.form != nil {
		return p.form.view(s)
	}
	if p.picker != nil {
		return p.picker.view(s)
	}

	var sb strings.Builder
	sb.WriteString(p.search.view(s))
	col, dir := p.readings.Sort()
	sb.WriteString("  ")
	sb.WriteString(s.Muted.Render(fmt.Sprintf("sort %s %s", col, dir)))
	if p.preset >= 0 {
		sb.WriteString("  ")
		sb.WriteString(s.Info.Render(filter.AllPresets[p.preset].Label()))
	}
	sb.WriteString("\n")
	if chips := p.readings.ActiveFilters(); len(chips) > 0 {
		for _, c := range chips {
			sb.WriteString(s.Badge.Render(c))
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if !p.loaded {
		sb.WriteString(s.Muted.Render("Loading readings…"))
		return sb.String()
	}
	table := ui.NewSimpleTable("", []string{"Date", "Patient", "BP", "HR", "Category"})
	table.Cursor = p.cursor
	for _, r := range p.readings.Rows() {
		hr := "-"
		if r.HeartRate != nil {
			hr = strconv.Itoa(*r.HeartRate)
		}
		cat := bp.Classify(r.Systolic, r.Diastolic)
		label := s.Category(cat, cat.Label())
		if !bp.Plausible(r.Systolic, r.Diastolic) {
			label += s.Muted.Render(" (check)")
		}
		table.AddRow(r.ReadingDate.Display(), ui.Truncate(r.UserName, 24), s.Reading(r.Systolic, r.Diastolic), hr, label)
	}
	sb.WriteString(table.View(s, "No readings match these filters"))
	sb.WriteString("\n")
	sb.WriteString(s.Muted.Render(p.readings.Pager().Info()))
	return sb.String()
}
