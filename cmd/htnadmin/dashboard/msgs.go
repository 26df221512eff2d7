package dashboard

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"htnadmin/cmd/htnadmin/ui"
	"htnadmin/internal/api"
	"htnadmin/internal/config"
	"htnadmin/internal/journal"
	"htnadmin/internal/logging"
	"htnadmin/internal/session"
	"htnadmin/internal/types"
	"htnadmin/internal/views"
)

// Page identifies a main-screen page.
type Page int

const (
	PageDashboard Page = iota
	PageUsers
	PageReadings
	PageCharts
	PageCallList
	PageReports
	PagePatient
)

// navPages are the pages reachable from the tab bar, in key order.
var navPages = []Page{PageDashboard, PageUsers, PageReadings, PageCharts, PageCallList, PageReports}

func (p Page) String() string {
	switch p {
	case PageDashboard:
		return "Dashboard"
	case PageUsers:
		return "Users"
	case PageReadings:
		return "Readings"
	case PageCharts:
		return "Charts"
	case PageCallList:
		return "Call List"
	case PageReports:
		return "Call Reports"
	case PagePatient:
		return "Patient"
	}
	return "Unknown"
}

// Messages produced by commands.
type (
	// loadedMsg reports a finished page load. The data lives in the page.
	loadedMsg struct {
		page Page
		err  error
	}

	// doneMsg reports a finished mutation.
	doneMsg struct {
		text string
		warn bool
		err  error
	}

	// authMsg reports a finished login or MFA step.
	authMsg struct {
		state session.State
		err   error
	}

	// setupMsg carries MFA provisioning material.
	setupMsg struct {
		setup *types.MFASetup
		err   error
	}

	// confirmedMsg carries the backup codes after MFA setup.
	confirmedMsg struct {
		codes []string
		err   error
	}

	// openPatientMsg navigates to the patient screen.
	openPatientMsg struct {
		id int
	}

	// templatesMsg carries email templates for the email form.
	templatesMsg struct {
		templates []types.EmailTemplate
		err       error
	}

	// unionsMsg carries the union filter options.
	unionsMsg []types.Union
)

// Messages delivered through the event channel from background goroutines.
type (
	sessionMsg struct{ state session.State }
	badgeMsg   int
	searchMsg  struct {
		page Page
		term string
	}
	configMsg struct{ cfg *config.Config }
	eventMsg  struct{ inner tea.Msg }
)

// env is what every page shares.
type env struct {
	ctx      context.Context
	api      *api.Client
	recorder journal.Recorder
	settings *config.Config
	styles   ui.Styles
	md       *ui.Markdown
	events   chan tea.Msg
	now      func() time.Time
	// height is the content height available to pages.
	height int
	// pending counts loads whose result has not arrived; only the event
	// loop touches it.
	pending int
}

// send delivers msg to the event loop without blocking. A full channel drops it.
func (e *env) send(msg tea.Msg) {
	select {
	case e.events <- msg:
	default:
		logging.UI("Event channel full, dropped %T", msg)
	}
}

// listen waits for the next background event.
func listen(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return eventMsg{inner: <-events}
	}
}

// loadCmd runs fn off the event loop and reports it as loadedMsg.
func (e *env) loadCmd(p Page, fn func() error) tea.Cmd {
	e.pending++
	return func() tea.Msg {
		return loadedMsg{page: p, err: fn()}
	}
}

func actionCmd(fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		text, err := fn()
		return doneMsg{text: text, err: err}
	}
}

func openPatient(id int) tea.Cmd {
	return func() tea.Msg { return openPatientMsg{id: id} }
}

// errText renders err for the status line. API failures use the message
// the server or client chose for users; everything else prints as is.
func errText(err error) string {
	var (
		ae *session.AuthError
		se *api.ServerError
		ve *api.ValidationError
		ue *api.UnauthorizedError
		ne *api.NetworkError
	)
	switch {
	case errors.As(err, &ae):
		return ae.Error()
	case errors.As(err, &se), errors.As(err, &ve), errors.As(err, &ue), errors.As(err, &ne):
		return api.UserMessage(err)
	}
	return err.Error()
}

// ignorable reports errors the status line should not show.
func ignorable(err error) bool {
	return err == nil || views.IsSuperseded(err) || errors.Is(err, context.Canceled)
}
