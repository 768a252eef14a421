package auth

import "sync"

// Store holds at most one cached 2-legged AuthContext. Readers always see a
// complete value: Replace swaps the whole context under the write lock, and
// concurrent Replace calls resolve as last writer wins.
type Store struct {
	mu  sync.RWMutex
	cur *AuthContext
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns a copy of the cached context and whether one is present.
func (s *Store) Get() (AuthContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cur == nil {
		return AuthContext{}, false
	}

	return *s.cur, true
}

// Replace installs ac as the cached context.
func (s *Store) Replace(ac AuthContext) {
	next := ac

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur = &next
}

// Invalidate drops the cached context so the next read forces a new grant.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur = nil
}
