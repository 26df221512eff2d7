package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"htnadmin/cmd/htnadmin/ui"
	"htnadmin/internal/api"
	"htnadmin/internal/types"
	"htnadmin/internal/views"
)

// patientLoadedMsg reports a finished patient load. id guards against a
// load for a patient that is no longer open.
type patientLoadedMsg struct {
	id  int
	err error
}

type patientPage struct {
	env      *env
	detail   *views.PatientDetail
	viewport viewport.Model
	note     textinput.Model
	writing  bool
	picker   *picker
	ask      *confirmPrompt
	loaded   bool
}

func newPatientPage(e *env, id int) *patientPage {
	note := textinput.New()
	note.Placeholder = "Add a note (markdown)"
	note.Prompt = "✎ "
	note.CharLimit = api.MaxNoteLength
	note.Width = 60
	return &patientPage{
		env:      e,
		detail:   views.NewPatientDetail(e.api, e.recorder, id),
		viewport: viewport.New(80, 20),
		note:     note,
	}
}

func (p *patientPage) load() tea.Cmd {
	ctx, d := p.env.ctx, p.detail
	p.env.pending++
	return func() tea.Msg {
		return patientLoadedMsg{id: d.ID(), err: d.Load(ctx)}
	}
}

func (p *patientPage) typing() bool {
	return p.writing || p.picker != nil || p.ask != nil
}

func (p *patientPage) help() string {
	if p.writing {
		return "enter save • esc cancel"
	}
	if p.picker != nil || p.ask != nil {
		return ""
	}
	return "esc back • j/k scroll • n note • f flag • a approve • d deactivate • t status • [/] readings page"
}

func (p *patientPage) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case patientLoadedMsg:
		if msg.err == nil {
			p.loaded = true
		}
		return nil
	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil
}

func (p *patientPage) handleKey(msg tea.KeyMsg) tea.Cmd {
	if p.ask != nil {
		ask := p.ask
		p.ask = nil
		return ask.update(msg)
	}
	if p.picker != nil {
		cmd, closed := p.picker.update(msg)
		if closed {
			p.picker = nil
		}
		return cmd
	}
	ctx, d := p.env.ctx, p.detail
	if p.writing {
		switch msg.String() {
		case "esc":
			p.writing = false
			p.note.Blur()
			return nil
		case "enter":
			text := strings.TrimSpace(p.note.Value())
			if text == "" {
				return nil
			}
			p.writing = false
			p.note.Blur()
			p.note.SetValue("")
			return actionCmd(func() (string, error) {
				_, err := d.AddNote(ctx, text)
				return "Note added", err
			})
		}
		var cmd tea.Cmd
		p.note, cmd = p.note.Update(msg)
		return cmd
	}

	pt := d.Patient()
	switch msg.String() {
	case "n":
		p.writing = true
		return p.note.Focus()
	case "[", "]":
		pg := d.Pager()
		next := pg.CurrentPage() + 1
		if msg.String() == "[" {
			next = pg.CurrentPage() - 1
		}
		if next < 1 || next > pg.TotalPages() {
			return nil
		}
		p.env.pending++
		return func() tea.Msg {
			return patientLoadedMsg{id: d.ID(), err: d.GoToPage(ctx, next)}
		}
	case "f":
		if pt == nil {
			return nil
		}
		return actionCmd(func() (string, error) {
			flagged, err := d.ToggleFlag(ctx)
			if flagged {
				return "Patient flagged", err
			}
			return "Flag cleared", err
		})
	case "a":
		if pt == nil || !pt.Status.Allows(types.ActionApprove) {
			return nil
		}
		return actionCmd(func() (string, error) { return "Patient approved", d.Approve(ctx) })
	case "d":
		if pt == nil || !pt.Status.Allows(types.ActionDeactivate) {
			return nil
		}
		p.ask = &confirmPrompt{
			question: "Deactivate " + pt.DisplayName() + "?",
			yes: func() tea.Cmd {
				return actionCmd(func() (string, error) { return "Patient deactivated", d.Deactivate(ctx) })
			},
		}
	case "t":
		if pt == nil {
			return nil
		}
		labels := make([]string, len(types.AllUserStatuses))
		for i, st := range types.AllUserStatuses {
			labels[i] = st.Label()
		}
		p.picker = singlePicker("Set status", labels, func(i int) tea.Cmd {
			st := types.AllUserStatuses[i]
			return actionCmd(func() (string, error) { return "Status set to " + st.Label(), d.SetStatus(ctx, st) })
		})
	default:
		var cmd tea.Cmd
		p.viewport, cmd = p.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (p *patientPage) view(width int) string {
	s := p.env.styles
	if p.picker != nil {
		return p.picker.view(s)
	}
	pt := p.detail.Patient()
	if !p.loaded || pt == nil {
		return s.Muted.Render(fmt.Sprintf("Loading patient #%d…", p.detail.ID()))
	}

	p.viewport.Width = width
	p.viewport.Height = max(p.env.height-4, 8)
	p.viewport.SetContent(p.content(pt, width))

	var sb strings.Builder
	sb.WriteString(p.viewport.View())
	if p.writing {
		sb.WriteString("\n")
		sb.WriteString(p.note.View())
	}
	if p.ask != nil {
		sb.WriteString("\n")
		sb.WriteString(p.ask.view(s))
	}
	return sb.String()
}

func (p *patientPage) content(pt *types.Patient, width int) string {
	s := p.env.styles
	var sb strings.Builder

	title := pt.DisplayName()
	if pt.IsFlagged {
		title += " ⚑"
	}
	sb.WriteString(s.Title.Render(title))
	sb.WriteString("  ")
	sb.WriteString(s.Status(pt.Status))
	sb.WriteString("\n")
	field := func(label, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(&sb, "%s %s\n", s.Muted.Render(fmt.Sprintf("%-14s", label)), value)
	}
	field("Email", pt.Email)
	field("Phone", pt.Phone)
	field("Date of birth", pt.DOB)
	field("Union", pt.UnionName)
	field("Gender", pt.Gender)
	field("Joined", pt.CreatedAt.Display())
	if pt.HasHighBP != nil {
		field("Has HTN", strconv.FormatBool(*pt.HasHighBP))
	}
	if pt.OnBPMedication != nil {
		field("On BP meds", strconv.FormatBool(*pt.OnBPMedication))
	}
	if pt.Medications != "" {
		field("Medications", pt.Medications)
	}
	if pt.Avg7Day != nil {
		field("7-day avg", s.Reading(pt.Avg7Day.Systolic, pt.Avg7Day.Diastolic))
	}
	if pt.Avg30Day != nil {
		field("30-day avg", s.Reading(pt.Avg30Day.Systolic, pt.Avg30Day.Diastolic))
	}
	sb.WriteString("\n")

	readings := ui.NewSimpleTable("Readings", []string{"Date", "BP", "HR"})
	for _, r := range p.detail.Readings() {
		hr := "-"
		if r.HeartRate != nil {
			hr = strconv.Itoa(*r.HeartRate)
		}
		readings.AddRow(r.ReadingDate.Display(), s.Reading(r.Systolic, r.Diastolic), hr)
	}
	sb.WriteString(readings.View(s, "No readings yet"))
	sb.WriteString(s.Muted.Render(p.detail.Pager().Info()))
	sb.WriteString("\n\n")

	sb.WriteString(s.Title.Render("Notes"))
	sb.WriteString("\n")
	notes := p.detail.Notes()
	if len(notes) == 0 {
		sb.WriteString(s.Muted.Render("No notes"))
		sb.WriteString("\n")
	}
	for _, n := range notes {
		sb.WriteString(s.Muted.Render(n.AdminName + " · " + n.CreatedAt.Display()))
		sb.WriteString("\n")
		sb.WriteString(p.env.md.Render(n.Text))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	calls := ui.NewSimpleTable("Call history", []string{"Date", "Outcome", "Admin", "Notes"})
	for _, c := range p.detail.Calls() {
		calls.AddRow(c.CreatedAt.Display(), c.Outcome.Label(), c.AdminName, ui.Truncate(c.Notes, max(width-60, 12)))
	}
	sb.WriteString(calls.View(s, "No outreach recorded"))
	return sb.String()
}
