package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/monitor"
)

// JoinPolicy decides which game statuses accept new participants.
type JoinPolicy string

const (
	JoinLobby JoinPolicy = "lobby" // waiting only
	JoinLate  JoinPolicy = "late"  // waiting or active
	JoinOpen  JoinPolicy = "open"  // any status
)

// ParseJoinPolicy maps a config value to a policy; empty means lobby.
func ParseJoinPolicy(raw string) (JoinPolicy, error) {
	switch JoinPolicy(raw) {
	case "", JoinLobby:
		return JoinLobby, nil
	case JoinLate, JoinOpen:
		return JoinPolicy(raw), nil
	}
	return "", domain.Invalid("unknown join policy %q", raw)
}

func (p JoinPolicy) allows(status domain.GameStatus) bool {
	switch p {
	case JoinOpen:
		return true
	case JoinLate:
		return status == domain.StatusWaiting || status == domain.StatusActive
	default:
		return status == domain.StatusWaiting
	}
}

// Options tune a GameService. Zero values pick production defaults.
type Options struct {
	JoinPolicy JoinPolicy
	Modes      map[domain.GameMode]domain.ModeDefaults
	Rand       *rand.Rand
	Now        func() time.Time
	Metrics    *monitor.Metrics
}

// GameService owns game lifecycle, the participant roster and answer intake.
// Every state-changing call holds the game's Session lock for its duration.
type GameService struct {
	store       Store
	bank        QuestionBank
	sessions    SessionRepository
	broadcaster Broadcaster
	selector    *QuestionSelector

	joinPolicy JoinPolicy
	modes      map[domain.GameMode]domain.ModeDefaults
	now        func() time.Time
	metrics    *monitor.Metrics
}

func NewGameService(store Store, bank QuestionBank, sessions SessionRepository, broadcaster Broadcaster, opts Options) *GameService {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	if opts.JoinPolicy == "" {
		opts.JoinPolicy = JoinLobby
	}
	if opts.Modes == nil {
		opts.Modes = domain.DefaultModes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &GameService{
		store:       store,
		bank:        bank,
		sessions:    sessions,
		broadcaster: broadcaster,
		selector:    NewQuestionSelector(bank, opts.Rand),
		joinPolicy:  opts.JoinPolicy,
		modes:       opts.Modes,
		now:         opts.Now,
		metrics:     opts.Metrics,
	}
}

// CreateGame stores a waiting game and fixes its question order. When fewer
// questions match than requested, the game is sized to what was found.
func (s *GameService) CreateGame(ctx context.Context, cfg domain.GameConfig) (domain.Game, error) {
	cfg, err := s.normalizeConfig(cfg)
	if err != nil {
		return domain.Game{}, err
	}

	questions, err := s.selector.Select(ctx, cfg.Filter, cfg.TotalQuestions)
	if err != nil {
		return domain.Game{}, err
	}
	if len(questions) == 0 {
		return domain.Game{}, domain.Invalid("no questions match the requested filter")
	}
	if len(questions) < cfg.TotalQuestions {
		log.Warn().Int("requested", cfg.TotalQuestions).Int("available", len(questions)).Msg("question pool smaller than requested")
	}

	game := domain.Game{
		ID:              uuid.NewString(),
		HostUserID:      cfg.HostUserID,
		Mode:            cfg.Mode,
		Status:          domain.StatusWaiting,
		TotalQuestions:  len(questions),
		TimePerQuestion: cfg.TimePerQuestion,
		MaxPlayers:      cfg.MaxPlayers,
		Filter:          cfg.Filter,
		CreatedAt:       s.now(),
	}

	order := make([]domain.GameQuestion, len(questions))
	for i := range questions {
		limit := questions[i].TimeLimit
		if limit <= 0 {
			limit = cfg.TimePerQuestion
			questions[i].TimeLimit = limit
		}
		order[i] = domain.GameQuestion{
			GameID:     game.ID,
			QuestionID: questions[i].ID,
			OrderIndex: i,
			TimeLimit:  limit,
		}
	}

	if err := s.store.CreateGame(ctx, game, order); err != nil {
		return domain.Game{}, fmt.Errorf("create game: %w", err)
	}

	s.metrics.GameCreated()
	log.Info().Str("gameId", game.ID).Str("mode", string(game.Mode)).Int("questions", game.TotalQuestions).Msg("game created")
	return game, nil
}

// JoinGame enrolls userID in the game.
func (s *GameService) JoinGame(ctx context.Context, gameID, userID string) (domain.Participant, error) {
	if userID == "" {
		return domain.Participant{}, domain.Invalid("userId is required")
	}

	var joined domain.Participant
	err := s.withGame(ctx, gameID, func(_ *Session, game *domain.Game) error {
		if _, err := s.store.GetUser(ctx, userID); err != nil {
			return err
		}
		if _, err := s.store.GetParticipant(ctx, gameID, userID); err == nil {
			return domain.ErrAlreadyJoined
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if !s.joinPolicy.allows(game.Status) {
			return domain.ErrGameNotJoinable
		}
		participants, err := s.store.ListParticipants(ctx, gameID)
		if err != nil {
			return err
		}
		if len(participants) >= game.MaxPlayers {
			return domain.ErrGameFull
		}

		joined = domain.Participant{GameID: gameID, UserID: userID, JoinedAt: s.now()}
		if err := s.store.InsertParticipant(ctx, joined); err != nil {
			return err
		}
		s.broadcaster.Broadcast(gameID, domain.PlayerJoinedEvent{Type: domain.EventPlayerJoined, Participant: joined}, "")
		return nil
	})
	if err != nil {
		return domain.Participant{}, err
	}

	log.Info().Str("gameId", gameID).Str("userId", userID).Msg("player joined")
	return joined, nil
}

// StartGame moves a waiting game to active and pushes the first question.
func (s *GameService) StartGame(ctx context.Context, gameID string) (domain.Game, error) {
	var started domain.Game
	err := s.withGame(ctx, gameID, func(session *Session, game *domain.Game) error {
		if game.Status != domain.StatusWaiting {
			return domain.ErrInvalidTransition
		}
		questions, err := s.questionsLocked(ctx, session)
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			return domain.ErrNoMoreQuestions
		}

		next := *game
		now := s.now()
		next.Status = domain.StatusActive
		next.StartedAt = &now
		next.CurrentQuestionIndex = 1
		if err := s.store.UpdateGame(ctx, next, domain.StatusWaiting); err != nil {
			return err
		}
		*game = next
		started = next

		s.broadcaster.Broadcast(gameID, domain.GameStartedEvent{
			Type:     domain.EventGameStarted,
			Game:     next,
			Question: questions[0].Public(0),
		}, "")
		return nil
	})
	if err != nil {
		return domain.Game{}, err
	}

	log.Info().Str("gameId", gameID).Msg("game started")
	return started, nil
}

// NextQuestion advances an active game and pushes the next question.
func (s *GameService) NextQuestion(ctx context.Context, gameID string) (domain.PublicQuestion, error) {
	var pushed domain.PublicQuestion
	err := s.withGame(ctx, gameID, func(session *Session, game *domain.Game) error {
		if game.Status != domain.StatusActive {
			return domain.ErrGameNotActive
		}
		questions, err := s.questionsLocked(ctx, session)
		if err != nil {
			return err
		}
		if game.CurrentQuestionIndex >= len(questions) {
			return domain.ErrNoMoreQuestions
		}

		next := *game
		next.CurrentQuestionIndex++
		if err := s.store.UpdateGame(ctx, next, domain.StatusActive); err != nil {
			return err
		}
		*game = next

		idx := next.CurrentQuestionIndex - 1
		pushed = questions[idx].Public(idx)
		s.broadcaster.Broadcast(gameID, domain.NextQuestionEvent{
			Type:     domain.EventNextQuestion,
			GameID:   gameID,
			Index:    next.CurrentQuestionIndex,
			Question: pushed,
		}, "")
		return nil
	})
	return pushed, err
}

// EndGame completes an active game and pushes the final standings.
func (s *GameService) EndGame(ctx context.Context, gameID string) (domain.Game, error) {
	var ended domain.Game
	err := s.withGame(ctx, gameID, func(_ *Session, game *domain.Game) error {
		if game.Status != domain.StatusActive {
			return domain.ErrInvalidTransition
		}
		if err := s.completeGameLocked(ctx, game); err != nil {
			return err
		}
		ended = *game
		return nil
	})
	return ended, err
}

// GetGameWithDetails returns the game, its roster and its public question list.
func (s *GameService) GetGameWithDetails(ctx context.Context, gameID string) (domain.GameDetails, error) {
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return domain.GameDetails{}, err
	}
	participants, err := s.store.ListParticipants(ctx, gameID)
	if err != nil {
		return domain.GameDetails{}, err
	}
	questions, err := s.loadQuestions(ctx, gameID)
	if err != nil {
		return domain.GameDetails{}, err
	}

	public := make([]domain.PublicQuestion, len(questions))
	for i, q := range questions {
		public[i] = q.Public(i)
	}
	return domain.GameDetails{Game: game, Participants: participants, Questions: public}, nil
}

// UserStats returns a user's aggregate statistics.
func (s *GameService) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	return s.store.GetUser(ctx, userID)
}

// SubmitAnswer records and scores one answer. The result, including the
// answer key, goes to the caller only; other connections see a score update.
func (s *GameService) SubmitAnswer(ctx context.Context, gameID, userID string, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	if sub.QuestionID == "" {
		return domain.AnswerResult{}, domain.Invalid("questionId is required")
	}
	if sub.TimeSpent < 0 {
		return domain.AnswerResult{}, domain.Invalid("timeSpent must not be negative")
	}

	var result domain.AnswerResult
	err := s.withGame(ctx, gameID, func(session *Session, game *domain.Game) error {
		questions, err := s.questionsLocked(ctx, session)
		if err != nil {
			return err
		}
		question, ok := findQuestion(questions, sub.QuestionID)
		if !ok {
			return domain.ErrQuestionNotFound
		}
		if game.Status != domain.StatusActive {
			return domain.ErrGameNotActive
		}

		if _, err := s.store.GetParticipant(ctx, gameID, userID); err != nil {
			return err
		}

		correct, points := Score(question, sub.SelectedAnswer)
		participant, completed, err := s.store.RecordAnswer(ctx, domain.Answer{
			GameID:         gameID,
			UserID:         userID,
			QuestionID:     question.ID,
			SelectedAnswer: sub.SelectedAnswer,
			IsCorrect:      correct,
			TimeSpent:      sub.TimeSpent,
			PointsEarned:   points,
			AnsweredAt:     s.now(),
		}, game.TotalQuestions)
		if err != nil {
			return err
		}
		s.metrics.AnswerRecorded(correct)
		if completed {
			log.Info().Str("gameId", gameID).Str("userId", userID).Int("score", participant.Score).Msg("participant completed")
		}

		result = domain.AnswerResult{
			QuestionID:    question.ID,
			IsCorrect:     correct,
			PointsEarned:  points,
			CorrectAnswer: question.CorrectAnswer,
			Explanation:   question.Explanation,
			TotalScore:    participant.Score,
			Completed:     participant.CompletedAt != nil,
		}

		s.broadcaster.Broadcast(gameID, domain.ScoreUpdateEvent{
			Type:              domain.EventScoreUpdate,
			GameID:            gameID,
			UserID:            userID,
			Score:             participant.Score,
			QuestionsAnswered: participant.QuestionsAnswered,
			Completed:         result.Completed,
		}, "")

		if result.Completed {
			return s.completeIfAllDoneLocked(ctx, game)
		}
		return nil
	})
	if err != nil {
		return domain.AnswerResult{}, err
	}
	return result, nil
}

// withGame runs fn under the game's session lock with a fresh read of the game.
// Only active games keep their session afterwards.
func (s *GameService) withGame(ctx context.Context, gameID string, fn func(*Session, *domain.Game) error) error {
	if gameID == "" {
		return domain.Invalid("gameId is required")
	}
	// don't create sessions for unknown ids
	if _, err := s.store.GetGame(ctx, gameID); err != nil {
		return err
	}

	session := s.lock(gameID)
	defer session.mu.Unlock()

	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	err = fn(session, &game)
	if game.Status != domain.StatusActive {
		s.sessions.Delete(gameID)
	}
	s.metrics.SetLiveSessions(s.sessions.Len())
	return err
}

// ReleaseIdleSessions drops sessions untouched for at least idle. A session
// whose lock is held is skipped and left for a later sweep; the next call for
// a released game builds a fresh session from the store.
func (s *GameService) ReleaseIdleSessions(idle time.Duration) int {
	released := 0
	for _, session := range s.sessions.Idle(idle) {
		if !session.mu.TryLock() {
			continue
		}
		if current, ok := s.sessions.Get(session.id); ok && current == session {
			s.sessions.Delete(session.id)
			released++
		}
		session.mu.Unlock()
	}
	s.metrics.SetLiveSessions(s.sessions.Len())
	if released > 0 {
		log.Info().Int("released", released).Msg("idle sessions released")
	}
	return released
}

// lock returns the game's current session with its mutex held. A session
// deleted while we waited is retried against the replacement.
func (s *GameService) lock(gameID string) *Session {
	for {
		session := s.sessions.GetOrCreate(gameID)
		session.mu.Lock()
		if current, ok := s.sessions.Get(gameID); ok && current == session {
			return session
		}
		session.mu.Unlock()
	}
}

func (s *GameService) questionsLocked(ctx context.Context, session *Session) ([]domain.Question, error) {
	if session.questions != nil {
		return session.questions, nil
	}
	questions, err := s.loadQuestions(ctx, session.id)
	if err != nil {
		return nil, err
	}
	session.questions = questions
	return questions, nil
}

// loadQuestions resolves the stored order against the question bank.
func (s *GameService) loadQuestions(ctx context.Context, gameID string) ([]domain.Question, error) {
	order, err := s.store.ListGameQuestions(ctx, gameID)
	if err != nil {
		return nil, err
	}
	sort.Slice(order, func(i, j int) bool { return order[i].OrderIndex < order[j].OrderIndex })

	questions := make([]domain.Question, 0, len(order))
	for _, gq := range order {
		q, err := s.bank.GetQuestion(ctx, gq.QuestionID)
		if err != nil {
			return nil, fmt.Errorf("load question %s: %w", gq.QuestionID, err)
		}
		if gq.TimeLimit > 0 {
			q.TimeLimit = gq.TimeLimit
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (s *GameService) completeIfAllDoneLocked(ctx context.Context, game *domain.Game) error {
	participants, err := s.store.ListParticipants(ctx, game.ID)
	if err != nil {
		return err
	}
	for _, p := range participants {
		if p.CompletedAt == nil {
			return nil
		}
	}
	return s.completeGameLocked(ctx, game)
}

func (s *GameService) completeGameLocked(ctx context.Context, game *domain.Game) error {
	next := *game
	now := s.now()
	next.Status = domain.StatusCompleted
	next.CompletedAt = &now
	if err := s.store.UpdateGame(ctx, next, domain.StatusActive); err != nil {
		return err
	}
	*game = next

	participants, err := s.store.ListParticipants(ctx, game.ID)
	if err != nil {
		return err
	}
	s.broadcaster.Broadcast(game.ID, domain.GameCompletedEvent{
		Type:      domain.EventGameCompleted,
		Game:      next,
		Standings: Standings(participants),
	}, "")
	log.Info().Str("gameId", game.ID).Int("participants", len(participants)).Msg("game completed")
	return nil
}

// Standings orders participants by score, then earliest completion, then user id.
func Standings(participants []domain.Participant) []domain.Participant {
	out := make([]domain.Participant, len(participants))
	copy(out, participants)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		ci, cj := out[i].CompletedAt, out[j].CompletedAt
		switch {
		case ci != nil && cj == nil:
			return true
		case ci == nil && cj != nil:
			return false
		case ci != nil && cj != nil && !ci.Equal(*cj):
			return ci.Before(*cj)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (s *GameService) normalizeConfig(cfg domain.GameConfig) (domain.GameConfig, error) {
	if cfg.HostUserID == "" {
		return cfg, domain.Invalid("hostUserId is required")
	}
	if cfg.Mode == "" {
		cfg.Mode = domain.ModeQuick
	}
	defaults, ok := s.modes[cfg.Mode]
	if !ok {
		return cfg, domain.Invalid("unknown game mode %q", cfg.Mode)
	}
	if cfg.TotalQuestions < 0 || cfg.TimePerQuestion < 0 || cfg.MaxPlayers < 0 {
		return cfg, domain.Invalid("totalQuestions, timePerQuestion and maxPlayers must not be negative")
	}
	if cfg.TotalQuestions == 0 {
		cfg.TotalQuestions = defaults.TotalQuestions
	}
	if cfg.TimePerQuestion == 0 {
		cfg.TimePerQuestion = defaults.TimePerQuestion
	}
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = defaults.MaxPlayers
	}
	return cfg, nil
}

func findQuestion(questions []domain.Question, id string) (domain.Question, bool) {
	for _, q := range questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}
