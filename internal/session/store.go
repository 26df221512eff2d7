package session

import "sync"

// MemoryStore keeps the session in process memory only.
type MemoryStore struct {
	mu sync.Mutex
	p  Persisted
	ok bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadSession implements Store.
func (s *MemoryStore) LoadSession() (Persisted, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p, s.ok, nil
}

// SaveSession implements Store.
func (s *MemoryStore) SaveSession(p Persisted) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p, s.ok = p, true
	return nil
}

// ClearSession implements Store.
func (s *MemoryStore) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p, s.ok = Persisted{}, false
	return nil
}
