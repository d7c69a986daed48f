package app

import (
	"sync"
	"time"

	"trivia-session-service/internal/domain"
)

// Session is the in-process side of one game: the lock that serializes every
// state-changing call for the game, plus its ordered questions once loaded.
type Session struct {
	id        string
	createdAt time.Time

	mu        sync.Mutex
	questions []domain.Question
}

// NewSession is exported for infrastructure layers that own the session table.
func NewSession(id string) *Session {
	return &Session{id: id, createdAt: time.Now()}
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }
