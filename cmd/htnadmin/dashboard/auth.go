package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"htnadmin/internal/session"
	"htnadmin/internal/types"
)

// Screen is the top-level mode, driven by the session state.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenMFAVerify
	ScreenMFASetup
	ScreenBackupCodes
	ScreenMain
)

// screenFor maps a session state to the screen that serves it. A fresh MFA
// setup stays on the backup codes until they are acknowledged.
func screenFor(st session.State, pendingCodes bool) Screen {
	switch st {
	case session.MFARequired:
		return ScreenMFAVerify
	case session.MFASetupRequired:
		return ScreenMFASetup
	case session.Authenticated:
		if pendingCodes {
			return ScreenBackupCodes
		}
		return ScreenMain
	}
	return ScreenLogin
}

// authScreen is the login, MFA verify, MFA setup, and backup codes flow.
type authScreen struct {
	env     *env
	session *session.Manager

	input  textinput.Model
	setup  *types.MFASetup
	codes  []string
	busy   bool
	err    string
	notice string
}

func newAuthScreen(e *env, sm *session.Manager) *authScreen {
	ti := textinput.New()
	ti.Prompt = "│ "
	ti.CharLimit = 254
	ti.Width = 40
	ti.PromptStyle = e.styles.Prompt
	return &authScreen{env: e, session: sm, input: ti}
}

// enter prepares the input for screen s and returns any command it needs.
func (a *authScreen) enter(s Screen) tea.Cmd {
	a.err = ""
	a.busy = false
	a.input.Reset()
	switch s {
	case ScreenLogin:
		a.input.Placeholder = "admin@example.org"
		a.input.CharLimit = 254
	case ScreenMFAVerify, ScreenMFASetup:
		a.input.Placeholder = "123456"
		a.input.CharLimit = 6
	case ScreenBackupCodes:
		a.codes = a.session.BackupCodes()
		a.input.Blur()
		return nil
	}
	cmd := a.input.Focus()
	if s == ScreenMFASetup && a.setup == nil {
		a.busy = true
		return tea.Batch(cmd, a.fetchSetup())
	}
	return cmd
}

func (a *authScreen) fetchSetup() tea.Cmd {
	ctx, sm := a.env.ctx, a.session
	return func() tea.Msg {
		setup, err := sm.SetupMFA(ctx)
		return setupMsg{setup: setup, err: err}
	}
}

func (a *authScreen) update(screen Screen, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case setupMsg:
		a.busy = false
		if msg.err != nil {
			a.err = errText(msg.err)
			return nil
		}
		a.setup = msg.setup
		return nil
	case authMsg:
		a.busy = false
		if msg.err != nil {
			a.err = errText(msg.err)
		}
		return nil
	case confirmedMsg:
		a.busy = false
		if msg.err != nil {
			a.err = errText(msg.err)
		}
		return nil
	case tea.KeyMsg:
		if screen == ScreenBackupCodes {
			switch msg.String() {
			case "y", "Y", "enter":
				a.session.AcknowledgeBackupCodes()
				a.codes = nil
				a.setup = nil
				return func() tea.Msg { return sessionMsg{state: a.session.State()} }
			}
			return nil
		}
		if msg.String() == "enter" {
			if a.busy {
				return nil
			}
			return a.submit(screen)
		}
		if screen == ScreenMFASetup && msg.String() == "ctrl+r" && !a.busy {
			a.busy = true
			return a.fetchSetup()
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return cmd
	}
	return nil
}

func (a *authScreen) submit(screen Screen) tea.Cmd {
	value := strings.TrimSpace(a.input.Value())
	ctx, sm := a.env.ctx, a.session
	a.err = ""
	a.busy = true
	switch screen {
	case ScreenLogin:
		return func() tea.Msg {
			st, err := sm.Login(ctx, value)
			return authMsg{state: st, err: err}
		}
	case ScreenMFAVerify:
		return func() tea.Msg {
			err := sm.VerifyMFA(ctx, value)
			return authMsg{state: sm.State(), err: err}
		}
	case ScreenMFASetup:
		return func() tea.Msg {
			codes, err := sm.ConfirmMFASetup(ctx, value)
			return confirmedMsg{codes: codes, err: err}
		}
	}
	a.busy = false
	return nil
}

func (a *authScreen) view(screen Screen) string {
	s := a.env.styles
	var sb strings.Builder
	sb.WriteString(s.Header.Render("HTN Admin"))
	sb.WriteString("\n\n")

	switch screen {
	case ScreenLogin:
		sb.WriteString(s.Title.Render("Sign in"))
		sb.WriteString("\n")
		if a.notice != "" {
			sb.WriteString(s.Warning.Render(a.notice) + "\n")
		}
		sb.WriteString("\nEmail\n")
		sb.WriteString(a.input.View())
	case ScreenMFAVerify:
		sb.WriteString(s.Title.Render("Two-factor verification"))
		sb.WriteString("\n\n")
		method := a.session.MFAType()
		if method == "" {
			method = "authenticator app"
		}
		sb.WriteString(fmt.Sprintf("Enter the 6-digit code from your %s for %s.\n\n", method, a.session.Email()))
		sb.WriteString(a.input.View())
	case ScreenMFASetup:
		sb.WriteString(s.Title.Render("Set up two-factor authentication"))
		sb.WriteString("\n\n")
		switch {
		case a.setup != nil:
			sb.WriteString("Add this account to your authenticator app:\n\n")
			sb.WriteString(s.Bold.Render(a.setup.ProvisioningURI) + "\n\n")
			sb.WriteString("Or enter the secret manually: " + s.Bold.Render(a.setup.Secret) + "\n\n")
			sb.WriteString("Then enter the 6-digit code it shows:\n")
			sb.WriteString(a.input.View())
		case a.busy:
			sb.WriteString(s.Muted.Render("Requesting setup details..."))
		default:
			sb.WriteString(s.Muted.Render("Setup details unavailable. Press ctrl+r to retry."))
		}
	case ScreenBackupCodes:
		sb.WriteString(s.Title.Render("Save your backup codes"))
		sb.WriteString("\n\n")
		sb.WriteString("Each code signs you in once if you lose your authenticator.\n")
		sb.WriteString("They will not be shown again.\n\n")
		for _, c := range a.codes {
			sb.WriteString("  " + s.Bold.Render(c) + "\n")
		}
		sb.WriteString("\n" + s.Prompt.Render("Press y once you have saved them."))
	}

	if a.busy && screen != ScreenMFASetup {
		sb.WriteString("\n\n" + s.Muted.Render("Working..."))
	}
	if a.err != "" {
		sb.WriteString("\n\n" + s.Error.Render(a.err))
	}
	sb.WriteString("\n\n" + s.Muted.Render("enter submit • ctrl+c quit"))
	return s.Content.Render(sb.String())
}
