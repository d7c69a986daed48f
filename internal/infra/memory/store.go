package memory

import (
	"context"
	"sort"
	"sync"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
)

type participantKey struct {
	gameID string
	userID string
}

type answerKey struct {
	gameID     string
	userID     string
	questionID string
}

// Store is an in-memory implementation of app.Store. A single mutex stands in
// for the transactions a database would provide.
type Store struct {
	mu           sync.RWMutex
	users        map[string]domain.UserStats
	games        map[string]domain.Game
	order        map[string][]domain.GameQuestion
	participants map[participantKey]domain.Participant
	answers      map[answerKey]domain.Answer
	answerLog    map[participantKey][]answerKey
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]domain.UserStats),
		games:        make(map[string]domain.Game),
		order:        make(map[string][]domain.GameQuestion),
		participants: make(map[participantKey]domain.Participant),
		answers:      make(map[answerKey]domain.Answer),
		answerLog:    make(map[participantKey][]answerKey),
	}
}

// PutUser inserts or replaces a user record. Users are owned by the CRUD
// layer; this exists for seeding and tests.
func (s *Store) PutUser(user domain.UserStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.UserID] = user
}

func (s *Store) CreateGame(_ context.Context, game domain.Game, questions []domain.GameQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[game.ID]; ok {
		return domain.Invalid("game %s already exists", game.ID)
	}
	s.games[game.ID] = game
	s.order[game.ID] = append([]domain.GameQuestion(nil), questions...)
	return nil
}

func (s *Store) GetGame(_ context.Context, gameID string) (domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[gameID]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return game, nil
}

func (s *Store) UpdateGame(_ context.Context, game domain.Game, expected domain.GameStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.games[game.ID]
	if !ok {
		return domain.ErrGameNotFound
	}
	if current.Status != expected {
		return domain.ErrInvalidTransition
	}
	s.games[game.ID] = game
	return nil
}

func (s *Store) ListGameQuestions(_ context.Context, gameID string) ([]domain.GameQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.games[gameID]; !ok {
		return nil, domain.ErrGameNotFound
	}
	return append([]domain.GameQuestion(nil), s.order[gameID]...), nil
}

func (s *Store) GetUser(_ context.Context, userID string) (domain.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) InsertParticipant(_ context.Context, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey{p.GameID, p.UserID}
	if _, ok := s.participants[key]; ok {
		return domain.ErrAlreadyJoined
	}
	s.participants[key] = p
	return nil
}

func (s *Store) GetParticipant(_ context.Context, gameID, userID string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[participantKey{gameID, userID}]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

// ListParticipants returns the roster in join order.
func (s *Store) ListParticipants(_ context.Context, gameID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Participant
	for key, p := range s.participants {
		if key.gameID == gameID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// RecordAnswer applies the whole answer write under one lock and only
// mutates state once every check has passed.
func (s *Store) RecordAnswer(_ context.Context, a domain.Answer, totalQuestions int) (domain.Participant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pk := participantKey{a.GameID, a.UserID}
	p, ok := s.participants[pk]
	if !ok {
		return domain.Participant{}, false, domain.ErrParticipantNotFound
	}
	key := answerKey{a.GameID, a.UserID, a.QuestionID}
	if _, ok := s.answers[key]; ok {
		return domain.Participant{}, false, domain.ErrDuplicateAnswer
	}

	history := make([]domain.Answer, 0, len(s.answerLog[pk])+1)
	for _, k := range s.answerLog[pk] {
		history = append(history, s.answers[k])
	}
	history = append(history, a)
	p.Score, p.CorrectAnswers, p.QuestionsAnswered = app.Tally(history)

	completed := false
	user, hasUser := s.users[a.UserID]
	if p.QuestionsAnswered >= totalQuestions && p.CompletedAt == nil {
		if !hasUser {
			return domain.Participant{}, false, domain.ErrUserNotFound
		}
		completedAt := a.AnsweredAt
		p.CompletedAt = &completedAt
		user.ApplyCompletion(p.Score, totalQuestions)
		s.users[a.UserID] = user
		completed = true
	}

	s.answers[key] = a
	s.answerLog[pk] = append(s.answerLog[pk], key)
	s.participants[pk] = p
	return p, completed, nil
}

// ListAnswers returns a participant's answers in submission order.
func (s *Store) ListAnswers(_ context.Context, gameID, userID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.answerLog[participantKey{gameID, userID}]
	out := make([]domain.Answer, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.answers[key])
	}
	return out, nil
}
