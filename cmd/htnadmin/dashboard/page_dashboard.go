package dashboard

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"htnadmin/cmd/htnadmin/ui"
	"htnadmin/internal/views"
)

type dashboardPage struct {
	env    *env
	dash   *views.Dashboard
	loaded bool
}

func newDashboardPage(e *env) *dashboardPage {
	return &dashboardPage{env: e, dash: views.NewDashboard(e.api)}
}

func (p *dashboardPage) load() tea.Cmd {
	ctx, v := p.env.ctx, p.dash
	return p.env.loadCmd(PageDashboard, func() error {
		_, err := v.Load(ctx)
		return err
	})
}

func (p *dashboardPage) update(msg tea.Msg) tea.Cmd {
	if m, ok := msg.(loadedMsg); ok && m.err == nil {
		p.loaded = true
	}
	return nil
}

func (p *dashboardPage) typing() bool { return false }

func (p *dashboardPage) help() string { return "" }

func (p *dashboardPage) view(width int) string {
	s := p.env.styles
	if !p.loaded {
		return s.Muted.Render("Loading dashboard…")
	}
	data := p.dash.Data()
	st := data.Stats

	cards := []string{
		statCard(s, "Total Users", st.TotalUsers, ""),
		statCard(s, "Pending Approval", st.PendingApprovals, ui.Warning),
		statCard(s, "Approved", st.ApprovedUsers, ui.Success),
		statCard(s, "Deactivated", st.DeactivatedUsers, ui.Destructive),
		statCard(s, "Flagged", st.FlaggedUsers, ui.Warning),
		statCard(s, "Total Readings", st.TotalReadings, ui.Info),
		statCard(s, "Readings Today", st.ReadingsToday, ui.Info),
	}
	var sb strings.Builder
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards[:4]...))
	sb.WriteString("\n")
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards[4:]...))
	sb.WriteString("\n\n")

	rows := make([]ui.BarRow, len(data.Weekday))
	for i, d := range data.Weekday {
		rows[i] = ui.BarRow{Label: d.Day.String()[:3], Value: d.Count}
	}
	chart := ui.BarChart(s, "Readings by weekday", rows, ui.BarWidth)

	var feed strings.Builder
	feed.WriteString(s.Title.Render("Recent activity"))
	feed.WriteString("\n")
	if len(data.Activity) == 0 {
		feed.WriteString(s.Muted.Render("No recent activity"))
	}
	now := p.env.now()
	for _, a := range data.Activity {
		kind := s.Info.Render(a.Kind.String())
		if a.Kind == views.ActivityAlert {
			kind = s.Error.Render(a.Kind.String())
		}
		fmt.Fprintf(&feed, "%-20s %s %s\n", kind, ui.Truncate(a.Detail, 40), s.Muted.Render(views.TimeAgo(a.At, now)))
	}

	if width >= 110 {
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, chart, "    ", feed.String()))
	} else {
		sb.WriteString(chart)
		sb.WriteString("\n")
		sb.WriteString(feed.String())
	}
	return sb.String()
}

func statCard(s ui.Styles, label string, value int, color lipgloss.Color) string {
	num := s.Bold
	if color != "" {
		num = num.Foreground(color)
	}
	return s.Card.Render(num.Render(humanize.Comma(int64(value))) + "\n" + s.Muted.Render(label))
}
