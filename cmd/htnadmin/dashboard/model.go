// Package dashboard is the interactive admin dashboard.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"htnadmin/cmd/htnadmin/ui"
	"htnadmin/internal/api"
	"htnadmin/internal/config"
	"htnadmin/internal/journal"
	"htnadmin/internal/logging"
	"htnadmin/internal/session"
	"htnadmin/internal/views"
)

// Config holds what the dashboard needs from the CLI.
type Config struct {
	Session  *session.Manager
	Client   *api.Client
	Recorder journal.Recorder
	Settings *config.Config
	// ConfigPath is watched for changes; empty disables hot reload.
	ConfigPath string
}

// page is one main-screen page.
type page interface {
	// load fetches the page's data.
	load() tea.Cmd
	// update handles keys and the page's own messages.
	update(msg tea.Msg) tea.Cmd
	view(width int) string
	// typing reports whether a text input, form, or picker has the keyboard.
	typing() bool
	help() string
}

// Model is the root bubbletea model.
type Model struct {
	cfg    Config
	env    *env
	cancel context.CancelFunc
	layout ui.LayoutConfig

	screen Screen
	auth   *authScreen

	spin     spinner.Model
	spinning bool

	page     Page
	prevPage Page
	pages    map[Page]page
	patient  *patientPage

	badge      int
	status     string
	statusWarn bool
	err        string

	stopPoller func()
	watcher    *config.Watcher
}

// New builds the model. The session must already be initialized.
func New(cfg Config) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	settings := cfg.Settings
	if settings == nil {
		settings = config.DefaultConfig()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = journal.Nop{}
	}
	styles := ui.NewStyles(ui.ThemeNamed(settings.UI.Theme))
	e := &env{
		ctx:      ctx,
		api:      cfg.Client,
		recorder: recorder,
		settings: settings,
		styles:   styles,
		md:       ui.NewMarkdown(styles.Theme, 76),
		events:   make(chan tea.Msg, 64),
		now:      time.Now,
		height:   20,
	}
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.Info

	m := &Model{
		cfg:    cfg,
		env:    e,
		cancel: cancel,
		layout: ui.NewLayoutConfig(0, 0),
		auth:   newAuthScreen(e, cfg.Session),
		spin:   spin,
		badge:  -1,
	}
	m.pages = map[Page]page{
		PageDashboard: newDashboardPage(e),
		PageUsers:     newUsersPage(e),
		PageReadings:  newReadingsPage(e),
		PageCharts:    newChartsPage(e),
		PageCallList:  newCallListPage(e),
		PageReports:   newReportsPage(e),
	}
	cfg.Session.OnChange(func(st session.State) { e.send(sessionMsg{state: st}) })
	m.screen = screenFor(cfg.Session.State(), len(cfg.Session.BackupCodes()) > 0)
	return m
}

// Init starts the event listener and whatever the first screen needs.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{listen(m.env.events), m.startWatcher()}
	if m.screen == ScreenMain {
		cmds = append(cmds, m.enterMain())
	} else {
		cmds = append(cmds, m.auth.enter(m.screen))
	}
	return tea.Batch(cmds...)
}

// Shutdown stops background work.
func (m *Model) Shutdown() {
	m.stopBadge()
	if m.watcher != nil {
		m.watcher.Stop()
		m.watcher = nil
	}
	m.cancel()
	for _, p := range m.pages {
		if s, ok := p.(interface{ stop() }); ok {
			s.stop()
		}
	}
}

func (m *Model) startWatcher() tea.Cmd {
	if m.cfg.ConfigPath == "" {
		return nil
	}
	w, err := config.NewWatcher(m.cfg.ConfigPath, func(c *config.Config) { m.env.send(configMsg{cfg: c}) })
	if err != nil {
		logging.UI("Config hot reload disabled: %v", err)
		return nil
	}
	if err := w.Start(m.env.ctx); err != nil {
		logging.UI("Config hot reload disabled: %v", err)
		return nil
	}
	m.watcher = w
	return nil
}

func (m *Model) startBadge() {
	m.stopBadge()
	poller := views.NewBadgePoller(m.env.api, m.env.settings.GetBadgePollInterval(), func(n int) { m.env.send(badgeMsg(n)) })
	m.stopPoller = poller.Start(m.env.ctx)
}

func (m *Model) stopBadge() {
	if m.stopPoller != nil {
		m.stopPoller()
		m.stopPoller = nil
	}
}

func (m *Model) enterMain() tea.Cmd {
	m.startBadge()
	if m.page == PagePatient && m.patient != nil {
		return m.patient.load()
	}
	return m.pages[m.page].load()
}

// switchScreen moves to the screen for st. Leaving the main screen stops
// the badge poller and forgets the open patient.
func (m *Model) switchScreen(st session.State) tea.Cmd {
	next := screenFor(st, len(m.cfg.Session.BackupCodes()) > 0)
	if next == m.screen {
		return nil
	}
	prev := m.screen
	m.screen = next
	logging.UI("Screen %d -> %d (session %s)", prev, next, st)

	if prev == ScreenMain {
		m.stopBadge()
		m.patient = nil
		m.page = PageDashboard
		m.status, m.err = "", ""
	}
	if next == ScreenMain {
		return m.enterMain()
	}
	if next == ScreenLogin && prev == ScreenMain {
		m.auth.notice = "You have been signed out."
	} else {
		m.auth.notice = ""
	}
	if next == ScreenMFASetup {
		m.auth.setup = nil
	}
	return m.auth.enter(next)
}

func (m *Model) current() page {
	if m.page == PagePatient && m.patient != nil {
		return m.patient
	}
	return m.pages[m.page]
}

func (m *Model) goTo(p Page) tea.Cmd {
	if p == m.page {
		return nil
	}
	m.page = p
	m.patient = nil
	m.status, m.err = "", ""
	return m.pages[p].load()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := m.update(msg)
	if m.env.pending > 0 && !m.spinning {
		m.spinning = true
		cmd = tea.Batch(cmd, m.spin.Tick)
	}
	return model, cmd
}

func (m *Model) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.env.pending == 0 {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case eventMsg:
		cmd := m.handleEvent(msg.inner)
		return m, tea.Batch(cmd, listen(m.env.events))

	case tea.WindowSizeMsg:
		m.layout = ui.NewLayoutConfig(msg.Width, msg.Height)
		m.env.height = m.layout.ContentHeight()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Shutdown()
			return m, tea.Quit
		}
		if m.screen != ScreenMain {
			return m, m.auth.update(m.screen, msg)
		}
		return m, m.handleMainKey(msg)

	case authMsg:
		cmd := m.auth.update(m.screen, msg)
		if msg.err == nil {
			return m, tea.Batch(cmd, m.switchScreen(msg.state))
		}
		return m, cmd

	case confirmedMsg:
		cmd := m.auth.update(m.screen, msg)
		if msg.err == nil {
			return m, tea.Batch(cmd, m.switchScreen(m.cfg.Session.State()))
		}
		return m, cmd

	case setupMsg:
		return m, m.auth.update(m.screen, msg)

	case sessionMsg:
		return m, m.switchScreen(msg.state)

	case loadedMsg:
		m.loadFinished(msg.page == m.page, msg.err)
		return m, m.pages[msg.page].update(msg)

	case patientLoadedMsg:
		current := m.patient != nil && m.patient.detail.ID() == msg.id
		m.loadFinished(current, msg.err)
		if current {
			return m, m.patient.update(msg)
		}
		return m, nil

	case doneMsg:
		if msg.err != nil {
			if !ignorable(msg.err) {
				m.err = errText(msg.err)
			}
			return m, nil
		}
		m.err = ""
		m.status, m.statusWarn = msg.text, msg.warn
		return m, nil

	case openPatientMsg:
		if m.page != PagePatient {
			m.prevPage = m.page
		}
		m.page = PagePatient
		m.patient = newPatientPage(m.env, msg.id)
		m.status, m.err = "", ""
		return m, m.patient.load()
	}

	if m.screen == ScreenMain {
		return m, m.current().update(msg)
	}
	return m, nil
}

// loadFinished settles the spinner count and the status line for a load.
// Errors from loads for pages no longer shown are still reported.
func (m *Model) loadFinished(current bool, err error) {
	if m.env.pending > 0 {
		m.env.pending--
	}
	switch {
	case !ignorable(err):
		m.err = errText(err)
	case err == nil && current:
		m.err = ""
	}
}

func (m *Model) handleEvent(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case sessionMsg:
		return m.switchScreen(msg.state)
	case badgeMsg:
		m.badge = int(msg)
		return nil
	case configMsg:
		m.applyConfig(msg.cfg)
		return nil
	case searchMsg:
		if p, ok := m.pages[msg.page]; ok {
			return p.update(msg)
		}
		return nil
	}
	return nil
}

// applyConfig re-applies the settings that can change at runtime.
func (m *Model) applyConfig(c *config.Config) {
	if err := c.Validate(); err != nil {
		m.err = "Config reload rejected: " + err.Error()
		return
	}
	old := m.env.settings
	m.env.settings = c
	if c.UI.Theme != old.UI.Theme {
		m.env.styles = ui.NewStyles(ui.ThemeNamed(c.UI.Theme))
		m.env.md = ui.NewMarkdown(m.env.styles.Theme, 76)
	}
	if c.Logging.Level != old.Logging.Level {
		logging.SetLevel(c.Logging.Level)
	}
	if c.GetBadgePollInterval() != old.GetBadgePollInterval() && m.stopPoller != nil {
		m.startBadge()
	}
	m.status, m.statusWarn = "Configuration reloaded", false
}

func (m *Model) handleMainKey(msg tea.KeyMsg) tea.Cmd {
	cur := m.current()
	if cur.typing() {
		return cur.update(msg)
	}
	key := msg.String()
	switch key {
	case "q":
		m.Shutdown()
		return tea.Quit
	case "ctrl+x":
		sm, ctx := m.cfg.Session, m.env.ctx
		return func() tea.Msg {
			sm.Logout(ctx)
			return sessionMsg{state: sm.State()}
		}
	case "r":
		m.status, m.err = "", ""
		return cur.load()
	case "esc":
		if m.page == PagePatient {
			m.patient = nil
			m.page = m.prevPage
			return m.pages[m.page].load()
		}
		return nil
	}
	if len(key) == 1 && key[0] >= '1' && key[0] <= '0'+byte(len(navPages)) {
		return m.goTo(navPages[key[0]-'1'])
	}
	return cur.update(msg)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.screen != ScreenMain {
		return m.auth.view(m.screen)
	}
	s := m.env.styles
	width := m.layout.ContentWidth()

	var sb strings.Builder
	sb.WriteString(m.headerView())
	sb.WriteString("\n")
	sb.WriteString(m.tabsView())
	if m.env.pending > 0 {
		sb.WriteString(" ")
		sb.WriteString(m.spin.View())
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.current().view(width))
	sb.WriteString("\n")

	switch {
	case m.err != "":
		sb.WriteString(s.Error.Render(m.err))
	case m.status != "" && m.statusWarn:
		sb.WriteString(s.Warning.Render(m.status))
	case m.status != "":
		sb.WriteString(s.Success.Render(m.status))
	}
	sb.WriteString("\n")
	sb.WriteString(s.Footer.Render(m.current().help() + " • 1-6 pages • r reload • ctrl+x sign out • q quit"))
	return sb.String()
}

func (m *Model) headerView() string {
	s := m.env.styles
	left := s.Header.Render("HTN Admin")
	right := m.cfg.Session.Email()
	if exp, ok := m.cfg.Session.Expiry(); ok {
		if exp.Before(m.env.now()) {
			right += " · session expired"
		} else {
			right += " · session ends " + humanize.Time(exp)
		}
	}
	gap := m.layout.TerminalWidth - lipgloss.Width(left) - lipgloss.Width(right) - 1
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + s.Muted.Render(right)
}

func (m *Model) tabsView() string {
	s := m.env.styles
	tabs := make([]string, 0, len(navPages))
	for i, p := range navPages {
		label := fmt.Sprintf("%d %s", i+1, p)
		if p == PageUsers && m.badge > 0 {
			label += " " + s.Badge.Render(fmt.Sprint(m.badge))
		}
		active := p == m.page || (m.page == PagePatient && p == m.prevPage)
		if active {
			tabs = append(tabs, s.TabActive.Render(label))
		} else {
			tabs = append(tabs, s.Tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// Run starts the dashboard and blocks until it exits.
func Run(cfg Config) error {
	m := New(cfg)
	defer m.Shutdown()
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
