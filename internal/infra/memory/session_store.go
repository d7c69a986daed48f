package memory

import (
	"sync"
	"time"

	"trivia-session-service/internal/app"
)

type sessionEntry struct {
	session  *app.Session
	lastUsed time.Time
}

// SessionStore is an in-memory implementation of app.SessionRepository. Every
// GetOrCreate marks the session as used so idle games can be swept.
type SessionStore struct {
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		now:     time.Now,
		entries: make(map[string]*sessionEntry),
	}
}

func (s *SessionStore) GetOrCreate(gameID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[gameID]
	if !ok {
		e = &sessionEntry{session: app.NewSession(gameID)}
		s.entries[gameID] = e
	}
	e.lastUsed = s.now()
	return e.session
}

func (s *SessionStore) Get(gameID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[gameID]
	if !ok {
		return nil, false
	}
	return e.session, true
}

func (s *SessionStore) Delete(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, gameID)
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *SessionStore) Idle(olderThan time.Duration) []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-olderThan)
	var out []*app.Session
	for _, e := range s.entries {
		if !e.lastUsed.After(cutoff) {
			out = append(out, e.session)
		}
	}
	return out
}
