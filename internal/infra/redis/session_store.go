package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"trivia-session-service/internal/app"
)

type sessionEntry struct {
	session  *app.Session
	lastUsed time.Time
}

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions and their locks stay in process; Redis only records liveness
//     (game:session:{gameID}) so operators can see which instance owns a game.
//   - The marker TTL is refreshed on every GetOrCreate, so it outlives any game
//     that keeps being played and lapses only for idle ones.
//   - Multi-instance fan-out would pair this with a pub/sub projector.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	instance string
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

func NewSessionStore(client *redis.Client, ttl time.Duration, instance string) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		instance: instance,
		now:      time.Now,
		entries:  make(map[string]*sessionEntry),
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
	// best-effort liveness marker
	if err := s.client.Set(context.Background(), s.key(gameID), s.instance, s.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("session marker write failed")
	}
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
	if _, ok := s.entries[gameID]; !ok {
		return
	}
	delete(s.entries, gameID)
	_ = s.client.Del(context.Background(), s.key(gameID)).Err()
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

// Owner reports which instance holds the session for gameID, if any.
func (s *SessionStore) Owner(ctx context.Context, gameID string) (string, error) {
	owner, err := s.client.Get(ctx, s.key(gameID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return owner, err
}

func (s *SessionStore) key(gameID string) string {
	return "game:session:" + gameID
}
