// Package session owns the admin's authentication state: the login and MFA
// state machine, the bearer token, and its persistence across runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"htnadmin/internal/api"
	"htnadmin/internal/logging"
	"htnadmin/internal/types"
)

// State is a node of the authentication state machine.
type State int

const (
	Anonymous State = iota
	MFASetupRequired
	MFARequired
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case MFASetupRequired:
		return "mfa_setup_required"
	case MFARequired:
		return "mfa_required"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState is the inverse of String.
func ParseState(s string) (State, error) {
	for _, st := range []State{Anonymous, MFASetupRequired, MFARequired, Authenticated} {
		if st.String() == s {
			return st, nil
		}
	}
	return Anonymous, fmt.Errorf("unknown session state %q", s)
}

// ErrInvalidState is returned when an operation is attempted from the wrong state.
var ErrInvalidState = errors.New("operation not valid in current session state")

// AuthError wraps a failed remote authentication call.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, api.UserMessage(e.Err))
}

func (e *AuthError) Unwrap() error { return e.Err }

// Authenticator is the slice of the API client the session drives.
type Authenticator interface {
	Login(ctx context.Context, email string) (*api.LoginResponse, error)
	VerifyMFA(ctx context.Context, mfaSessionToken, code string) (string, error)
	SetupMFA(ctx context.Context) (*types.MFASetup, error)
	ConfirmMFASetup(ctx context.Context, code string) error
	Logout(ctx context.Context) error
}

// Persisted is what survives a restart. Pending MFA verification is never
// persisted; only the setup-required and authenticated states are.
type Persisted struct {
	State State
	Token string
	Email string
}

// Store persists the session between runs.
type Store interface {
	LoadSession() (Persisted, bool, error)
	SaveSession(p Persisted) error
	ClearSession() error
}

var codePattern = regexp.MustCompile(`^\d{6}$`)

// Manager is the session object. It is safe for concurrent use.
type Manager struct {
	mu    sync.RWMutex
	auth  Authenticator
	store Store

	state           State
	token           string
	email           string
	mfaSessionToken string
	mfaType         string
	backupCodes     []string

	listeners []func(State)
}

// New creates a manager in the anonymous state. Call Init to restore a
// persisted session.
func New(auth Authenticator, store Store) *Manager {
	return &Manager{auth: auth, store: store}
}

// Bind makes m the token source and 401 handler for c.
func (m *Manager) Bind(c *api.Client) {
	c.SetTokenSource(m)
	c.SetUnauthorizedHandler(m.HandleUnauthorized)
}

// Init loads the persisted session, if any.
func (m *Manager) Init() (State, error) {
	p, ok, err := m.store.LoadSession()
	if err != nil {
		return Anonymous, fmt.Errorf("failed to load session: %w", err)
	}
	m.mu.Lock()
	if ok && p.Token != "" && (p.State == Authenticated || p.State == MFASetupRequired) {
		m.state, m.token, m.email = p.State, p.Token, p.Email
	} else {
		m.state, m.token, m.email = Anonymous, "", ""
	}
	st := m.state
	m.mu.Unlock()

	logging.Session("Session restored: state=%s", st)
	return st, nil
}

// OnChange registers fn to be called after every state transition.
func (m *Manager) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Token implements api.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Email returns the signed-in admin's email.
func (m *Manager) Email() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.email
}

// MFAType returns the pending verification method ("totp" or "email").
func (m *Manager) MFAType() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mfaType
}

// IsAuthenticated reports whether admin requests can be made.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == Authenticated
}

// transition sets the new state under lock, persists it, and notifies
// listeners after the lock is released.
func (m *Manager) transition(apply func()) State {
	m.mu.Lock()
	apply()
	st := m.state
	p := Persisted{State: m.state, Token: m.token, Email: m.email}
	listeners := append([]func(State){}, m.listeners...)
	m.mu.Unlock()

	var err error
	switch st {
	case Authenticated, MFASetupRequired:
		err = m.store.SaveSession(p)
	default:
		err = m.store.ClearSession()
	}
	if err != nil {
		logging.SessionWarn("Failed to persist session state %s: %v", st, err)
	}

	logging.Session("Session state -> %s", st)
	for _, fn := range listeners {
		fn(st)
	}
	return st
}

// Login submits email and moves to whichever state the server selects.
func (m *Manager) Login(ctx context.Context, email string) (State, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return m.State(), api.NewValidationError("email", "Email is required")
	}

	resp, err := m.auth.Login(ctx, email)
	if err != nil {
		logging.SessionWarn("Login failed for %s: %v", email, err)
		return m.State(), &AuthError{Op: "login", Err: err}
	}

	switch {
	case resp.MFARequired:
		return m.transition(func() {
			m.state = MFARequired
			m.token = ""
			m.email = email
			m.mfaSessionToken = resp.MFASessionToken
			m.mfaType = resp.MFAType
		}), nil
	case resp.MFASetupRequired:
		return m.transition(func() {
			m.state = MFASetupRequired
			m.token = resp.TempToken
			m.email = email
		}), nil
	case resp.SessionToken() != "":
		return m.transition(func() {
			m.state = Authenticated
			m.token = resp.SessionToken()
			m.email = email
		}), nil
	}
	return m.State(), &AuthError{Op: "login", Err: errors.New("server returned no token")}
}

// VerifyMFA completes a pending MFA challenge.
func (m *Manager) VerifyMFA(ctx context.Context, code string) error {
	m.mu.RLock()
	st, pending := m.state, m.mfaSessionToken
	m.mu.RUnlock()
	if st != MFARequired {
		return fmt.Errorf("verify MFA from %s: %w", st, ErrInvalidState)
	}
	code = strings.TrimSpace(code)
	if !codePattern.MatchString(code) {
		return api.NewValidationError("code", "Enter the 6-digit code")
	}

	token, err := m.auth.VerifyMFA(ctx, pending, code)
	if err != nil {
		return &AuthError{Op: "verify MFA", Err: err}
	}
	if token == "" {
		return &AuthError{Op: "verify MFA", Err: errors.New("server returned no token")}
	}
	m.transition(func() {
		m.state = Authenticated
		m.token = token
		m.mfaSessionToken = ""
		m.mfaType = ""
	})
	return nil
}

// SetupMFA fetches authenticator provisioning material. Step one of three.
func (m *Manager) SetupMFA(ctx context.Context) (*types.MFASetup, error) {
	if st := m.State(); st != MFASetupRequired {
		return nil, fmt.Errorf("set up MFA from %s: %w", st, ErrInvalidState)
	}
	setup, err := m.auth.SetupMFA(ctx)
	if err != nil {
		return nil, &AuthError{Op: "MFA setup", Err: err}
	}
	m.mu.Lock()
	m.backupCodes = append([]string(nil), setup.BackupCodes...)
	m.mu.Unlock()
	return setup, nil
}

// ConfirmMFASetup activates the authenticator and finalizes the session.
// Step two of three; it returns the backup codes for the caller to show.
func (m *Manager) ConfirmMFASetup(ctx context.Context, code string) ([]string, error) {
	if st := m.State(); st != MFASetupRequired {
		return nil, fmt.Errorf("confirm MFA setup from %s: %w", st, ErrInvalidState)
	}
	code = strings.TrimSpace(code)
	if !codePattern.MatchString(code) {
		return nil, api.NewValidationError("code", "Enter the 6-digit code")
	}
	if err := m.auth.ConfirmMFASetup(ctx, code); err != nil {
		return nil, &AuthError{Op: "confirm MFA setup", Err: err}
	}

	m.mu.RLock()
	codes := append([]string(nil), m.backupCodes...)
	m.mu.RUnlock()

	m.transition(func() { m.state = Authenticated })
	return codes, nil
}

// BackupCodes returns codes not yet acknowledged.
func (m *Manager) BackupCodes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.backupCodes...)
}

// AcknowledgeBackupCodes forgets the backup codes. Step three of three.
func (m *Manager) AcknowledgeBackupCodes() {
	m.mu.Lock()
	m.backupCodes = nil
	m.mu.Unlock()
}

// Logout revokes the token server-side on a best-effort basis and always
// clears local state.
func (m *Manager) Logout(ctx context.Context) {
	if m.Token() != "" {
		if err := m.auth.Logout(ctx); err != nil {
			logging.SessionDebug("Remote logout failed (ignored): %v", err)
		}
	}
	m.clear("logout")
}

// HandleUnauthorized discards the session after a 401. Repeated calls are no-ops.
func (m *Manager) HandleUnauthorized() {
	m.clear("unauthorized response")
}

func (m *Manager) clear(reason string) {
	m.mu.RLock()
	already := m.state == Anonymous && m.token == "" && m.email == ""
	m.mu.RUnlock()
	if already {
		return
	}
	logging.Session("Clearing session: %s", reason)
	m.transition(func() {
		m.state = Anonymous
		m.token = ""
		m.email = ""
		m.mfaSessionToken = ""
		m.mfaType = ""
		m.backupCodes = nil
	})
}
