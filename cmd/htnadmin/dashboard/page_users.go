package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"htnadmin/cmd/htnadmin/ui"
	"htnadmin/internal/api"
	"htnadmin/internal/logging"
	"htnadmin/internal/types"
	"htnadmin/internal/views"
)

type usersPage struct {
	env    *env
	users  *views.Users
	search *searchBox
	picker *picker
	ask    *confirmPrompt
	cursor int
	unions []types.Union
	loaded bool
}

func newUsersPage(e *env) *usersPage {
	return &usersPage{
		env:    e,
		users:   views.NewUsers(e.api, e.recorder, e.settings.UI.UsersPerPage),
		search: newSearchBox(e, PageUsers, "name, email or phone"),
	}
}

func (p *usersPage) load() tea.Cmd {
	ctx, v, client := p.env.ctx, p.users, p.env.api
	needUnions := p.unions == nil
	cmd := p.env.loadCmd(PageUsers, func() error { return v.Load(ctx) })
	if !needUnions {
		return cmd
	}
	return tea.Batch(cmd, func() tea.Msg {
		unions, err := client.Unions(ctx)
		if err != nil {
			logging.UI("Unions unavailable: %v", err)
			return nil
		}
		return unionsMsg(unions)
	})
}

func (p *usersPage) stop() { p.search.stop() }

func (p *usersPage) typing() bool {
	return p.search.active || p.picker != nil || p.ask != nil
}

func (p *usersPage) help() string {
	if p.picker != nil || p.ask != nil {
		return ""
	}
	return "[/] tab • j/k move • n/p page • / search • space select • * page • x clear • a/d/f approve/deactivate/flag • A/D bulk • t status • s/o sort • g/h/u filters • enter open"
}

func (p *usersPage) selected() (types.Patient, bool) {
	rows := p.users.Rows()
	if p.cursor < 0 || p.cursor >= len(rows) {
		return types.Patient{}, false
	}
	return rows[p.cursor], true
}

func (p *usersPage) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err == nil {
			p.loaded = true
			if n := len(p.users.Rows()); p.cursor >= n {
				p.cursor = max(n-1, 0)
			}
		}
		return nil
	case unionsMsg:
		p.unions = msg
		return nil
	case searchMsg:
		p.users.SetSearch(msg.term)
		p.cursor = 0
		return p.load()
	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil
}

func (p *usersPage) handleKey(msg tea.KeyMsg) tea.Cmd {
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
	if p.search.active {
		return p.search.update(msg)
	}

	ctx, v := p.env.ctx, p.users
	switch msg.String() {
	case "/":
		return p.search.focus()
	case "[", "]":
		p.users.SetTab(cycle(types.AllUserTabs, p.users.Tab(), msg.String() == "]"))
		p.cursor = 0
		return p.load()
	case "j", "down":
		if p.cursor < len(p.users.Rows())-1 {
			p.cursor++
		}
	case "k", "up":
		if p.cursor > 0 {
			p.cursor--
		}
	case "n", "right":
		pg := p.users.Pager()
		if pg.CurrentPage() < pg.TotalPages() {
			p.users.GoToPage(pg.CurrentPage() + 1)
			p.cursor = 0
			return p.load()
		}
	case "p", "left":
		pg := p.users.Pager()
		if pg.CurrentPage() > 1 {
			p.users.GoToPage(pg.CurrentPage() - 1)
			p.cursor = 0
			return p.load()
		}
	case "enter":
		if u, ok := p.selected(); ok {
			return openPatient(u.ID)
		}
	case " ":
		if u, ok := p.selected(); ok {
			if err := p.users.ToggleSelect(u.ID); err != nil {
				return func() tea.Msg { return doneMsg{err: err} }
			}
		}
	case "*":
		p.users.SelectPage()
	case "x":
		p.users.ClearSelection()
	case "a":
		u, ok := p.selected()
		if !ok || !u.Status.Allows(types.ActionApprove) {
			return nil
		}
		return actionCmd(func() (string, error) {
			return "Approved " + u.DisplayName(), v.Approve(ctx, u.ID)
		})
	case "d":
		u, ok := p.selected()
		if !ok || !u.Status.Allows(types.ActionDeactivate) {
			return nil
		}
		p.ask = &confirmPrompt{
			question: "Deactivate " + u.DisplayName() + "?",
			yes: func() tea.Cmd {
				return actionCmd(func() (string, error) {
					return "Deactivated " + u.DisplayName(), v.Deactivate(ctx, u.ID)
				})
			},
		}
	case "f":
		u, ok := p.selected()
		if !ok {
			return nil
		}
		return actionCmd(func() (string, error) {
			flagged, err := v.ToggleFlag(ctx, u.ID)
			if !flagged {
				return "Unflagged " + u.DisplayName(), err
			}
			return "Flagged " + u.DisplayName(), err
		})
	case "A", "D":
		ids := p.users.Selected()
		if len(ids) == 0 {
			return nil
		}
		verb, call := "Approve", v.BulkApprove
		if msg.String() == "D" {
			verb, call = "Deactivate", v.BulkDeactivate
		}
		p.ask = &confirmPrompt{
			question: fmt.Sprintf("%s %d selected users?", verb, len(ids)),
			yes: func() tea.Cmd {
				return func() tea.Msg {
					res, err := call(ctx)
					if err != nil {
						return doneMsg{err: err}
					}
					return doneMsg{text: verb + ": " + res.Summary(), warn: len(res.Skipped)+len(res.Error) > 0}
				}
			},
		}
	case "t":
		u, ok := p.selected()
		if !ok {
			return nil
		}
		labels := make([]string, len(types.AllUserStatuses))
		for i, st := range types.AllUserStatuses {
			labels[i] = st.Label()
		}
		p.picker = singlePicker("Set status for "+u.DisplayName(), labels, func(i int) tea.Cmd {
			st := types.AllUserStatuses[i]
			return actionCmd(func() (string, error) {
				return u.DisplayName() + " is now " + st.Label(), v.SetStatus(ctx, u.ID, st)
			})
		})
	case "s":
		f := p.users.Filters()
		f.Sort = cycle(views.UserSorts, f.Sort, true)
		p.users.SetFilters(f)
		return p.load()
	case "o":
		f := p.users.Filters()
		f.Dir = f.Dir.Toggle()
		p.users.SetFilters(f)
		return p.load()
	case "g":
		f := p.users.Filters()
		f.Gender = cycle(append([]string{""}, views.GenderOptions...), f.Gender, true)
		p.users.SetFilters(f)
		return p.load()
	case "h":
		f := p.users.Filters()
		switch {
		case f.HasHTN == nil:
			yes := true
			f.HasHTN = &yes
		case *f.HasHTN:
			no := false
			f.HasHTN = &no
		default:
			f.HasHTN = nil
		}
		p.users.SetFilters(f)
		return p.load()
	case "u":
		labels := []string{"All unions"}
		for _, un := range p.unions {
			labels = append(labels, un.Name)
		}
		p.picker = singlePicker("Filter by union", labels, func(i int) tea.Cmd {
			f := p.users.Filters()
			f.UnionID = 0
			if i > 0 {
				f.UnionID = p.unions[i-1].ID
			}
			p.users.SetFilters(f)
			return p.load()
		})
	}
	return nil
}

// cycle returns the element after cur in list, wrapping. An unknown cur
// starts from the first element.
func cycle[T comparable](list []T, cur T, forward bool) T {
	for i, v := range list {
		if v == cur {
			if forward {
				return list[(i+1)%len(list)]
			}
			return list[(i-1+len(list))%len(list)]
		}
	}
	return list[0]
}

func (p *usersPage) view(width int) string {
	s := p.env.styles
	if p.picker != nil {
		return p.picker.view(s)
	}

	var sb strings.Builder
	counts := p.users.Counts()
	tabs := make([]string, len(types.AllUserTabs))
	for i, t := range types.AllUserTabs {
		label := t.Label()
		if n, ok := counts[t]; ok {
			label += " " + strconv.Itoa(n)
		}
		if t == p.users.Tab() {
			tabs[i] = s.TabActive.Render(label)
		} else {
			tabs[i] = s.Tab.Render(label)
		}
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	sb.WriteString("\n")
	sb.WriteString(p.search.view(s))
	sb.WriteString("  ")
	sb.WriteString(s.Muted.Render(p.filterSummary()))
	sb.WriteString("\n\n")

	if !p.loaded {
		sb.WriteString(s.Muted.Render("Loading users…"))
		return sb.String()
	}

	table := ui.NewSimpleTable("", []string{"", "ID", "Name", "Email", "Union", "Status", "Joined"})
	table.Cursor = p.cursor
	for _, u := range p.users.Rows() {
		mark := " "
		if p.users.IsSelected(u.ID) {
			mark = "●"
		}
		name := u.DisplayName()
		if u.IsFlagged {
			name = "⚑ " + name
		}
		table.AddRow(mark, strconv.Itoa(u.ID), ui.Truncate(name, 24), ui.Truncate(u.Email, 28),
			ui.Truncate(u.UnionName, 18), s.Status(u.Status), u.CreatedAt.Date())
	}
	sb.WriteString(table.View(s, "No users match these filters"))
	sb.WriteString("\n")
	sb.WriteString(s.Muted.Render(p.users.Pager().Info()))
	if n := len(p.users.Selected()); n > 0 {
		sb.WriteString("  ")
		sb.WriteString(s.Info.Render(fmt.Sprintf("%d selected (max %d)", n, api.MaxBulkUsers)))
	}
	if p.ask != nil {
		sb.WriteString("\n")
		sb.WriteString(p.ask.view(s))
	}
	return sb.String()
}

func (p *usersPage) filterSummary() string {
	f := p.users.Filters()
	parts := []string{"sort " + f.Sort + " " + string(f.Dir)}
	if f.Gender != "" {
		parts = append(parts, "gender "+f.Gender)
	}
	if f.HasHTN != nil {
		parts = append(parts, fmt.Sprintf("has HTN %t", *f.HasHTN))
	}
	if f.UnionID != 0 {
		name := strconv.Itoa(f.UnionID)
		for _, un := range p.unions {
			if un.ID == f.UnionID {
				name = un.Name
			}
		}
		parts = append(parts, "union "+name)
	}
	return strings.Join(parts, " · ")
}
