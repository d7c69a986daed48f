package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/infra/memory"
)

var errConnReset = errors.New("connection reset by peer")

// failingStore rolls back the next n answer writes with a transient error.
type failingStore struct {
	*memory.Store

	mu       sync.Mutex
	failures int
}

func (f *failingStore) RecordAnswer(ctx context.Context, a domain.Answer, totalQuestions int) (domain.Participant, bool, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return domain.Participant{}, false, errConnReset
	}
	f.mu.Unlock()
	return f.Store.RecordAnswer(ctx, a, totalQuestions)
}

func TestSubmitAnswerRetriesAfterFailedWrite(t *testing.T) {
	ctx := context.Background()
	env := newTestEnvWithStore(t, app.JoinLobby, func(s *memory.Store) app.Store {
		return &failingStore{Store: s, failures: 1}
	})
	game := env.startedGame(t, 1, "u1")
	details, _ := env.service.GetGameWithDetails(ctx, game.ID)
	q := env.question(details.Questions[0].ID)
	sub := domain.AnswerSubmission{QuestionID: q.ID, SelectedAnswer: q.CorrectAnswer, TimeSpent: 3}

	if _, err := env.service.SubmitAnswer(ctx, game.ID, "u1", sub); !errors.Is(err, errConnReset) {
		t.Fatalf("expected write failure, got %v", err)
	}
	answers, _ := env.store.ListAnswers(ctx, game.ID, "u1")
	p, _ := env.store.GetParticipant(ctx, game.ID, "u1")
	if len(answers) != 0 || p.Score != 0 || p.QuestionsAnswered != 0 || p.CompletedAt != nil {
		t.Fatalf("failed write left state behind: answers=%d participant=%+v", len(answers), p)
	}

	res, err := env.service.SubmitAnswer(ctx, game.ID, "u1", sub)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !res.Completed || res.TotalScore != q.Points {
		t.Fatalf("unexpected retry result %+v", res)
	}

	answers, _ = env.store.ListAnswers(ctx, game.ID, "u1")
	p, _ = env.store.GetParticipant(ctx, game.ID, "u1")
	if len(answers) != 1 || p.Score != answers[0].PointsEarned || p.CompletedAt == nil {
		t.Fatalf("unexpected state after retry: answers=%d participant=%+v", len(answers), p)
	}
	user, _ := env.store.GetUser(ctx, "u1")
	if user.GamesPlayed != 1 || user.TotalPoints != q.Points || user.QuestionsAnswered != 1 {
		t.Fatalf("expected completion applied once, got %+v", user)
	}
	final, _ := env.store.GetGame(ctx, game.ID)
	if final.Status != domain.StatusCompleted {
		t.Fatalf("expected game completed, got %s", final.Status)
	}
}

func TestSessionsLiveOnlyWhileActive(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, app.JoinLobby)
	env.store.PutUser(domain.UserStats{UserID: "u1"})

	game, err := env.service.CreateGame(ctx, domain.GameConfig{HostUserID: "host", Mode: domain.ModeQuick, TotalQuestions: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if env.sessions.Len() != 0 {
		t.Fatalf("waiting game should not hold a session, got %d", env.sessions.Len())
	}
	if _, err := env.service.JoinGame(ctx, game.ID, "u1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if env.sessions.Len() != 0 {
		t.Fatalf("join on a waiting game kept a session")
	}

	if _, err := env.service.StartGame(ctx, game.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, ok := env.sessions.Get(game.ID); !ok {
		t.Fatalf("active game should hold a session")
	}

	if _, err := env.service.EndGame(ctx, game.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if env.sessions.Len() != 0 {
		t.Fatalf("completed game kept its session")
	}

	// abandoned lobbies never accumulate sessions
	for i := 0; i < 5; i++ {
		if _, err := env.service.CreateGame(ctx, domain.GameConfig{HostUserID: "host", Mode: domain.ModeQuick, TotalQuestions: 1}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if env.sessions.Len() != 0 {
		t.Fatalf("expected no sessions for idle lobbies, got %d", env.sessions.Len())
	}
}

func TestReleaseIdleSessionsKeepsGamePlayable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, app.JoinLobby)
	game := env.startedGame(t, 2, "u1")

	if released := env.service.ReleaseIdleSessions(0); released != 1 {
		t.Fatalf("expected one released session, got %d", released)
	}
	if env.sessions.Len() != 0 {
		t.Fatalf("expected session table empty, got %d", env.sessions.Len())
	}

	details, _ := env.service.GetGameWithDetails(ctx, game.ID)
	q := env.question(details.Questions[0].ID)
	res, err := env.service.SubmitAnswer(ctx, game.ID, "u1", domain.AnswerSubmission{QuestionID: q.ID, SelectedAnswer: q.CorrectAnswer})
	if err != nil {
		t.Fatalf("submit after release: %v", err)
	}
	if res.TotalScore != q.Points {
		t.Fatalf("unexpected result %+v", res)
	}
	next, err := env.service.NextQuestion(ctx, game.ID)
	if err != nil {
		t.Fatalf("next after release: %v", err)
	}
	if next.OrderIndex != 1 {
		t.Fatalf("expected second question, got index %d", next.OrderIndex)
	}
	if env.sessions.Len() != 1 {
		t.Fatalf("expected the game to rebuild its session, got %d", env.sessions.Len())
	}
}

func TestReleaseIdleSessionsLeavesRecentGames(t *testing.T) {
	env := newTestEnv(t, app.JoinLobby)
	env.startedGame(t, 2, "u1")

	if released := env.service.ReleaseIdleSessions(time.Hour); released != 0 {
		t.Fatalf("expected nothing released, got %d", released)
	}
	if env.sessions.Len() != 1 {
		t.Fatalf("expected session kept, got %d", env.sessions.Len())
	}
}
