package dashboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"htnadmin/cmd/htnadmin/ui"
	"htnadmin/internal/calllist"
	"htnadmin/internal/types"
)

var statusFilters = []types.StatusFilter{types.FilterOpen, types.FilterClosed, types.FilterAll}

type callListPage struct {
	env    *env
	ctrl   *calllist.Controller
	form   *form
	cursor int
	loaded bool

	// templates backs the email form's template choice; index 0 is "none".
	templates []types.EmailTemplate
}

func newCallListPage(e *env) *callListPage {
	return &callListPage{
		env: e,
		ctrl: calllist.New(e.api,
			calllist.WithRecorder(e.recorder),
			calllist.WithClock(e.now)),
	}
}

func (p *callListPage) load() tea.Cmd {
	ctx, c := p.env.ctx, p.ctrl
	return p.env.loadCmd(PageCallList, func() error {
		_, err := c.Reload(ctx)
		return err
	})
}

func (p *callListPage) typing() bool { return p.form != nil }

func (p *callListPage) help() string {
	if p.form != nil {
		return "tab move • ←→ choose • space toggle • enter submit • esc cancel"
	}
	return "[/] list • v status • j/k move • l log call • e email • f follow-up • c resolve • R refresh lists • enter patient"
}

func (p *callListPage) selected() (types.CallListItem, bool) {
	items := p.ctrl.Snapshot().Items
	if p.cursor < 0 || p.cursor >= len(items) {
		return types.CallListItem{}, false
	}
	return items[p.cursor], true
}

func (p *callListPage) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err == nil {
			p.loaded = true
			if n := len(p.ctrl.Snapshot().Items); p.cursor >= n {
				p.cursor = max(n-1, 0)
			}
		}
		return nil
	case templatesMsg:
		if msg.err != nil || p.form == nil || p.form.field("template") == nil {
			return nil
		}
		p.templates = msg.templates
		choices := []string{"(none)"}
		for _, t := range msg.templates {
			choices = append(choices, t.Name)
		}
		p.form.field("template").choices = choices
		return nil
	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil
}

func (p *callListPage) switchList(lt types.ListType, st types.StatusFilter) tea.Cmd {
	ctx, c := p.env.ctx, p.ctrl
	p.cursor = 0
	return p.env.loadCmd(PageCallList, func() error {
		_, err := c.LoadList(ctx, lt, st)
		return err
	})
}

func (p *callListPage) handleKey(msg tea.KeyMsg) tea.Cmd {
	if p.form != nil {
		cmd, done := p.form.update(msg)
		if done {
			p.form = nil
		}
		return cmd
	}

	lt, st := p.ctrl.View()
	switch msg.String() {
	case "[", "]":
		return p.switchList(cycle(types.AllListTypes, lt, msg.String() == "]"), st)
	case "v":
		return p.switchList(lt, cycle(statusFilters, st, true))
	case "j", "down":
		if p.cursor < len(p.ctrl.Snapshot().Items)-1 {
			p.cursor++
		}
	case "k", "up":
		if p.cursor > 0 {
			p.cursor--
		}
	case "R":
		ctx, c := p.env.ctx, p.ctrl
		return actionCmd(func() (string, error) {
			n, err := c.Refresh(ctx, lt)
			return fmt.Sprintf("Call lists refreshed, %d added", n), err
		})
	case "enter":
		if it, ok := p.selected(); ok {
			return openPatient(it.UserID)
		}
	case "l":
		if it, ok := p.selected(); ok && calllist.Allows(it, calllist.ActionLogCall) {
			p.form = p.attemptForm(it)
		}
	case "e":
		if it, ok := p.selected(); ok && calllist.Allows(it, calllist.ActionSendEmail) {
			p.form = p.emailForm(it)
			ctx, c := p.env.ctx, p.ctrl
			return func() tea.Msg {
				tpls, err := c.EmailTemplates(ctx, it.ListType)
				return templatesMsg{templates: tpls, err: err}
			}
		}
	case "f":
		if it, ok := p.selected(); ok && calllist.Allows(it, calllist.ActionSchedule) {
			p.form = p.scheduleForm(it)
		}
	case "c":
		if it, ok := p.selected(); ok && calllist.Allows(it, calllist.ActionResolve) {
			p.form = p.closeForm(it)
		}
	}
	return nil
}

func (p *callListPage) attemptForm(it types.CallListItem) *form {
	outcomes := make([]string, len(types.AllOutcomes))
	for i, o := range types.AllOutcomes {
		outcomes[i] = o.Label()
	}
	completed := func(f *form) bool { return types.AllOutcomes[f.choice("outcome")] == types.OutcomeCompleted }

	ctx, c := p.env.ctx, p.ctrl
	return newForm("Log call: "+it.User.DisplayName(), func(f *form) tea.Cmd {
		af := calllist.AttemptForm{
			Outcome:        types.AllOutcomes[f.choice("outcome")],
			Notes:          f.text("notes"),
			FollowUpNeeded: f.on("follow_up"),
			MaterialsSent:  f.on("materials"),
			MaterialsDesc:  f.text("materials_desc"),
			ReferralMade:   f.on("referral"),
			ReferralTo:     f.text("referral_to"),
		}
		if af.FollowUpNeeded && f.text("follow_up_date") != "" {
			t, err := time.ParseInLocation(calllist.FormTimeLayout, f.text("follow_up_date"), time.Local)
			if err != nil {
				f.err = "Follow-up date must look like " + calllist.FormTimeLayout
				return nil
			}
			af.FollowUpDate = t
		}
		if err := af.Validate(); err != nil {
			f.err = errText(err)
			return nil
		}
		p.form = nil
		return func() tea.Msg {
			res, err := c.LogAttempt(ctx, it.ID, af)
			if err != nil {
				return doneMsg{err: err}
			}
			if _, ok := res.(calllist.AutoClosed); ok {
				return doneMsg{text: calllist.AutoCloseNotice, warn: true}
			}
			return doneMsg{text: "Logged " + af.Outcome.Label() + " for " + it.User.DisplayName()}
		}
	},
		choiceInput("outcome", "Outcome", outcomes...),
		textInput("notes", "Notes", ""),
		toggleInput("follow_up", "Follow-up needed").when(completed),
		textInput("follow_up_date", "Follow-up date", calllist.FormTimeLayout).
			when(func(f *form) bool { return completed(f) && f.on("follow_up") }),
		toggleInput("materials", "Materials sent").when(completed),
		textInput("materials_desc", "Materials", "").
			when(func(f *form) bool { return completed(f) && f.on("materials") }),
		toggleInput("referral", "Referral made").when(completed),
		textInput("referral_to", "Referred to", "").
			when(func(f *form) bool { return completed(f) && f.on("referral") }),
	)
}

func (p *callListPage) emailForm(it types.CallListItem) *form {
	p.templates = nil
	ctx, c := p.env.ctx, p.ctrl
	f := newForm("Email "+it.User.DisplayName(), func(f *form) tea.Cmd {
		ef := calllist.EmailForm{To: f.text("to"), Subject: f.text("subject"), Body: f.text("body")}
		if err := ef.Validate(); err != nil {
			f.err = errText(err)
			return nil
		}
		p.form = nil
		return func() tea.Msg {
			_, err := c.SendEmail(ctx, it.ID, ef)
			var ee *calllist.EmailError
			if errors.As(err, &ee) {
				return doneMsg{text: ee.Error() + " The attempt was logged.", warn: true}
			}
			if err != nil {
				return doneMsg{err: err}
			}
			return doneMsg{text: "Email sent to " + ef.To}
		}
	},
		choiceInput("template", "Template", "(none)"),
		textInput("to", "To", "patient@example.org"),
		textInput("subject", "Subject", ""),
		textInput("body", "Body", "markdown allowed"),
	)
	f.setText("to", it.User.Email)
	f.onChange = func(f *form, key string) {
		i := f.choice("template")
		if key != "template" || i == 0 || i > len(p.templates) {
			return
		}
		ef := calllist.ApplyTemplate(p.templates[i-1], it)
		f.setText("to", ef.To)
		f.setText("subject", ef.Subject)
		f.setText("body", ef.Body)
	}
	f.preview = func(f *form) string {
		body := f.text("body")
		if strings.TrimSpace(body) == "" {
			return ""
		}
		return p.env.md.Render(body)
	}
	return f
}

func (p *callListPage) scheduleForm(it types.CallListItem) *form {
	quick := make([]string, 0, len(calllist.QuickFollowUpDays)+1)
	for _, d := range calllist.QuickFollowUpDays {
		quick = append(quick, fmt.Sprintf("In %d days", d))
	}
	quick = append(quick, "Pick a date")
	custom := func(f *form) bool { return f.choice("when") == len(calllist.QuickFollowUpDays) }

	ctx, c := p.env.ctx, p.ctrl
	return newForm("Schedule follow-up: "+it.User.DisplayName(), func(f *form) tea.Cmd {
		var s calllist.Schedule
		if custom(f) {
			t, err := time.ParseInLocation(calllist.FormTimeLayout, strings.TrimSpace(f.text("date")), time.Local)
			if err != nil {
				f.err = "Date must look like " + calllist.FormTimeLayout
				return nil
			}
			s = calllist.OnDate(t)
		} else {
			s = calllist.InDays(calllist.QuickFollowUpDays[f.choice("when")])
		}
		if err := s.Validate(); err != nil {
			f.err = errText(err)
			return nil
		}
		p.form = nil
		return actionCmd(func() (string, error) {
			_, err := c.ScheduleFollowUp(ctx, it.ID, s)
			return "Follow-up scheduled " + s.String(), err
		})
	},
		choiceInput("when", "When", quick...),
		textInput("date", "Date", calllist.FormTimeLayout).when(custom),
	)
}

func (p *callListPage) closeForm(it types.CallListItem) *form {
	reasons := make([]string, len(types.ManualCloseReasons))
	for i, r := range types.ManualCloseReasons {
		reasons[i] = r.Label()
	}
	ctx, c := p.env.ctx, p.ctrl
	return newForm("Resolve: "+it.User.DisplayName(), func(f *form) tea.Cmd {
		cf := calllist.CloseForm{Reason: types.ManualCloseReasons[f.choice("reason")], Note: strings.TrimSpace(f.text("note"))}
		if err := cf.Validate(); err != nil {
			f.err = errText(err)
			return nil
		}
		p.form = nil
		return actionCmd(func() (string, error) {
			_, err := c.Close(ctx, it.ID, cf)
			return it.User.DisplayName() + " closed as " + cf.Reason.Label(), err
		})
	},
		choiceInput("reason", "Reason", reasons...),
		textInput("note", "Note", "optional"),
	)
}

func (p *callListPage) view(width int) string {
	s := p.env.styles
	if p.form != nil {
		return p.form.view(s)
	}

	snap := p.ctrl.Snapshot()
	lt, st := p.ctrl.View()
	tabs := make([]string, len(types.AllListTypes))
	for i, l := range types.AllListTypes {
		label := fmt.Sprintf("%s %d", l.Label(), snap.Summary.Count(l))
		if l == lt {
			tabs[i] = s.TabActive.Render(label)
		} else {
			tabs[i] = s.Tab.Render(label)
		}
	}
	var sb strings.Builder
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	sb.WriteString("  ")
	sb.WriteString(s.Muted.Render("status " + string(st)))
	if n := p.ctrl.OverdueCount(); n > 0 {
		sb.WriteString("  ")
		sb.WriteString(s.Warning.Render(fmt.Sprintf("%d overdue", n)))
	}
	sb.WriteString("\n\n")

	if !p.loaded {
		sb.WriteString(s.Muted.Render("Loading call list…"))
		return sb.String()
	}

	now := p.env.now()
	table := ui.NewSimpleTable("", []string{"Priority", "Patient", "Phone", "Latest BP", "Attempts", "Follow-up", "Status"})
	table.Cursor = p.cursor
	for _, it := range snap.Items {
		latest := "-"
		if it.LatestReading != nil {
			latest = s.Reading(it.LatestReading.Systolic, it.LatestReading.Diastolic)
		}
		follow := "-"
		if !it.FollowUpDate.IsZero() {
			follow = it.FollowUpDate.Display()
			if it.IsOverdue(now) {
				follow = s.Warning.Render(follow + " overdue")
			}
		}
		status := string(it.Status)
		if it.IsClosed() {
			status = s.Muted.Render("closed: " + it.CloseReason.Label())
		}
		table.AddRow(s.Priority(it.Priority, ui.Truncate(it.PriorityTitle, 24)), ui.Truncate(it.User.DisplayName(), 22),
			it.User.Phone, latest, strconv.Itoa(it.AttemptCount), follow, status)
	}
	sb.WriteString(table.View(s, "Nothing on this list"))

	if it, ok := p.selected(); ok && (it.PriorityDetail != "" || it.LastNote != nil) {
		sb.WriteString("\n")
		if it.PriorityDetail != "" {
			sb.WriteString(s.Muted.Render(it.PriorityDetail))
			sb.WriteString("\n")
		}
		if it.LastNote != nil {
			sb.WriteString(s.Muted.Render(fmt.Sprintf("Last note (%s, %s): %s", it.LastNote.AdminName, it.LastNote.Date.Display(), ui.Truncate(it.LastNote.Text, width-30))))
		}
	}
	return sb.String()
}
