package dashboard

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"htnadmin/cmd/htnadmin/ui"
	"htnadmin/internal/views"
)

type chartsPage struct {
	env    *env
	charts *views.Charts
	loaded bool
}

func newChartsPage(e *env) *chartsPage {
	return &chartsPage{env: e, charts: views.NewCharts(e.api)}
}

func (p *chartsPage) load() tea.Cmd {
	ctx, v := p.env.ctx, p.charts
	return p.env.loadCmd(PageCharts, func() error { return v.Load(ctx) })
}

func (p *chartsPage) typing() bool { return false }

func (p *chartsPage) help() string { return "t trend period • g growth period" }

func (p *chartsPage) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err == nil {
			p.loaded = true
		}
	case tea.KeyMsg:
		trend, growth := p.charts.Periods()
		switch msg.String() {
		case "t":
			p.charts.SetTrendPeriod(cycle(views.AllPeriods, trend, true))
		case "g":
			p.charts.SetGrowthPeriod(cycle(views.AllPeriods, growth, true))
		}
	}
	return nil
}

func (p *chartsPage) view(width int) string {
	s := p.env.styles
	if !p.loaded {
		return s.Muted.Render("Loading charts…")
	}
	trendPeriod, growthPeriod := p.charts.Periods()

	dist := p.charts.Distribution()
	distRows := make([]ui.BarRow, len(dist))
	for i, sl := range dist {
		distRows[i] = ui.BarRow{
			Label: sl.Category.Label(),
			Value: sl.Count,
			Note:  fmt.Sprintf("%d%%  %s", sl.Percent, sl.Category.Range()),
			Color: lipgloss.Color(sl.Category.Color()),
		}
	}

	trend := p.charts.Trend()
	var tb strings.Builder
	tb.WriteString(s.Title.Render("Average BP (" + trendPeriod.String() + ")"))
	tb.WriteString("\n")
	if len(trend) == 0 {
		tb.WriteString(s.Muted.Render("No data"))
		tb.WriteString("\n")
	}
	for _, t := range trend {
		fmt.Fprintf(&tb, "%-8s %s %s\n", t.Label, s.Reading(t.Systolic, t.Diastolic), s.Muted.Render(fmt.Sprintf("n=%d", t.Count)))
	}

	growth := p.charts.Growth()
	growthRows := make([]ui.BarRow, len(growth))
	for i, g := range growth {
		growthRows[i] = ui.BarRow{Label: g.Label, Value: g.Users}
	}

	barWidth := ui.BarWidth
	if width < 90 {
		barWidth = 20
	}
	var sb strings.Builder
	sb.WriteString(ui.BarChart(s, "BP category distribution", distRows, barWidth))
	sb.WriteString("\n")
	growthChart := ui.BarChart(s, "User growth ("+growthPeriod.String()+")", growthRows, barWidth)
	if width >= 110 {
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tb.String(), "    ", growthChart))
	} else {
		sb.WriteString(tb.String())
		sb.WriteString("\n")
		sb.WriteString(growthChart)
	}
	return sb.String()
}
