package store

import (
	"database/sql"
	"errors"

	"htnadmin/internal/logging"
	"htnadmin/internal/session"
)

// =============================================================================
// SESSION PERSISTENCE
// =============================================================================

// LoadSession returns the persisted session, if any.
func (s *LocalStore) LoadSession() (session.Persisted, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var state, token, email string
	err := s.db.QueryRow(`SELECT state, token, email FROM session_state WHERE id = 1`).Scan(&state, &token, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Persisted{}, false, nil
	}
	if err != nil {
		logging.StoreError("Failed to load session: %v", err)
		return session.Persisted{}, false, err
	}

	st, err := session.ParseState(state)
	if err != nil {
		logging.StoreError("Discarding session with unknown state %q", state)
		return session.Persisted{}, false, nil
	}
	return session.Persisted{State: st, Token: token, Email: email}, true, nil
}

// SaveSession replaces the persisted session.
func (s *LocalStore) SaveSession(p session.Persisted) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO session_state (id, state, token, email, updated_at)
		 VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)`,
		p.State.String(), p.Token, p.Email,
	)
	if err != nil {
		logging.StoreError("Failed to save session: %v", err)
		return err
	}
	logging.Store("Session saved: state=%s", p.State)
	return nil
}

// ClearSession removes the persisted session.
func (s *LocalStore) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM session_state`); err != nil {
		logging.StoreError("Failed to clear session: %v", err)
		return err
	}
	return nil
}
