package app

import (
	"context"
	"time"

	"trivia-session-service/internal/domain"
)

// Store is the durable record store. Implementations map missing rows to the
// domain NotFound errors and unique-key violations to the matching conflicts.
type Store interface {
	// CreateGame persists a game together with its fixed question order.
	CreateGame(ctx context.Context, game domain.Game, questions []domain.GameQuestion) error
	GetGame(ctx context.Context, gameID string) (domain.Game, error)
	// UpdateGame writes game only if the stored status still equals expected,
	// otherwise it returns domain.ErrInvalidTransition.
	UpdateGame(ctx context.Context, game domain.Game, expected domain.GameStatus) error
	ListGameQuestions(ctx context.Context, gameID string) ([]domain.GameQuestion, error)

	GetUser(ctx context.Context, userID string) (domain.UserStats, error)

	InsertParticipant(ctx context.Context, p domain.Participant) error
	GetParticipant(ctx context.Context, gameID, userID string) (domain.Participant, error)
	ListParticipants(ctx context.Context, gameID string) ([]domain.Participant, error)

	// RecordAnswer appends a to the answer log, rewrites the participant's
	// totals from the full log and, once totalQuestions answers are logged,
	// stamps completion and folds the score into the user aggregate. All of it
	// commits or none of it does. completed reports whether this call made the
	// participant complete; a repeated completion never touches the aggregate.
	RecordAnswer(ctx context.Context, a domain.Answer, totalQuestions int) (p domain.Participant, completed bool, err error)
	ListAnswers(ctx context.Context, gameID, userID string) ([]domain.Answer, error)
}

// QuestionBank reads question records.
type QuestionBank interface {
	FindQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// SessionRepository abstracts where in-process game sessions live.
type SessionRepository interface {
	GetOrCreate(gameID string) *Session
	Get(gameID string) (*Session, bool)
	Delete(gameID string)
	Len() int
	// Idle lists sessions not handed out by GetOrCreate for at least olderThan.
	Idle(olderThan time.Duration) []*Session
}

// Broadcaster fans a message out to connections bound to a game.
type Broadcaster interface {
	Broadcast(gameID string, msg any, excludeConnID string) int
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string, any, string) int { return 0 }
