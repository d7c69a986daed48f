package domain

import "time"

// GameStatus only moves forward: waiting -> active -> completed.
type GameStatus string

const (
	StatusWaiting   GameStatus = "waiting"
	StatusActive    GameStatus = "active"
	StatusCompleted GameStatus = "completed"
)

// GameMode controls pacing and question count defaults.
type GameMode string

const (
	ModeQuick    GameMode = "quick"
	ModeDeepDive GameMode = "deep_dive"
	ModeTeam     GameMode = "team"
)

// ModeDefaults are applied to zero-valued fields of a GameConfig.
type ModeDefaults struct {
	TotalQuestions  int `yaml:"totalQuestions"`
	TimePerQuestion int `yaml:"timePerQuestion"` // seconds
	MaxPlayers      int `yaml:"maxPlayers"`
}

// DefaultModes is used when configuration does not override a mode.
var DefaultModes = map[GameMode]ModeDefaults{
	ModeQuick:    {TotalQuestions: 10, TimePerQuestion: 20, MaxPlayers: 10},
	ModeDeepDive: {TotalQuestions: 20, TimePerQuestion: 45, MaxPlayers: 10},
	ModeTeam:     {TotalQuestions: 15, TimePerQuestion: 30, MaxPlayers: 20},
}

// QuestionFilter narrows the question bank. Empty fields match everything.
type QuestionFilter struct {
	CultureID  string `json:"cultureId,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// Matches reports whether q satisfies every supplied filter.
func (f QuestionFilter) Matches(q Question) bool {
	if f.CultureID != "" && q.CultureID != f.CultureID {
		return false
	}
	if f.CategoryID != "" && q.CategoryID != f.CategoryID {
		return false
	}
	if f.Difficulty != "" && q.Difficulty != f.Difficulty {
		return false
	}
	return true
}

// GameConfig is the input to game creation.
type GameConfig struct {
	HostUserID      string         `json:"hostUserId"`
	Mode            GameMode       `json:"mode"`
	TotalQuestions  int            `json:"totalQuestions"`
	TimePerQuestion int            `json:"timePerQuestion"`
	MaxPlayers      int            `json:"maxPlayers"`
	Filter          QuestionFilter `json:"filter"`
}

// Game is one trivia session.
type Game struct {
	ID                   string         `json:"id"`
	HostUserID           string         `json:"hostUserId"`
	Mode                 GameMode       `json:"mode"`
	Status               GameStatus     `json:"status"`
	TotalQuestions       int            `json:"totalQuestions"`
	TimePerQuestion      int            `json:"timePerQuestion"`
	MaxPlayers           int            `json:"maxPlayers"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	Filter               QuestionFilter `json:"filter"`
	CreatedAt            time.Time      `json:"createdAt"`
	StartedAt            *time.Time     `json:"startedAt,omitempty"`
	CompletedAt          *time.Time     `json:"completedAt,omitempty"`
}

// Participant is one user's enrollment and running score within a game.
type Participant struct {
	GameID            string     `json:"gameId"`
	UserID            string     `json:"userId"`
	Score             int        `json:"score"`
	CorrectAnswers    int        `json:"correctAnswers"`
	QuestionsAnswered int        `json:"questionsAnswered"`
	JoinedAt          time.Time  `json:"joinedAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// Question is a bank record. CorrectAnswer and Explanation never leave the
// server except in a submitter's own answer result.
type Question struct {
	ID            string   `json:"id"`
	CultureID     string   `json:"cultureId,omitempty"`
	CategoryID    string   `json:"categoryId,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
	Points        int      `json:"points"`
	TimeLimit     int      `json:"timeLimit"` // seconds
}

// PublicQuestion is the wire-safe view of a Question.
type PublicQuestion struct {
	ID         string   `json:"id"`
	OrderIndex int      `json:"orderIndex"`
	Prompt     string   `json:"prompt"`
	Options    []string `json:"options"`
	Points     int      `json:"points"`
	TimeLimit  int      `json:"timeLimit"`
}

// Public strips the answer key and explanation.
func (q Question) Public(orderIndex int) PublicQuestion {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return PublicQuestion{
		ID:         q.ID,
		OrderIndex: orderIndex,
		Prompt:     q.Prompt,
		Options:    options,
		Points:     q.Points,
		TimeLimit:  q.TimeLimit,
	}
}

// GameQuestion fixes a question's position in a game. Immutable once stored.
type GameQuestion struct {
	GameID     string `json:"gameId"`
	QuestionID string `json:"questionId"`
	OrderIndex int    `json:"orderIndex"`
	TimeLimit  int    `json:"timeLimit"`
}

// Answer is an append-only log row, unique per (GameID, UserID, QuestionID).
type Answer struct {
	GameID         string    `json:"gameId"`
	UserID         string    `json:"userId"`
	QuestionID     string    `json:"questionId"`
	SelectedAnswer string    `json:"selectedAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	TimeSpent      int       `json:"timeSpent"`
	PointsEarned   int       `json:"pointsEarned"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// UserStats is the per-user aggregate updated once per completed game.
type UserStats struct {
	UserID            string `json:"userId"`
	TotalPoints       int    `json:"totalPoints"`
	CurrentStreak     int    `json:"currentStreak"`
	BestStreak        int    `json:"bestStreak"`
	QuestionsAnswered int    `json:"questionsAnswered"`
	GamesPlayed       int    `json:"gamesPlayed"`
}

// ApplyCompletion folds one completed game into the aggregate.
func (u *UserStats) ApplyCompletion(score, totalQuestions int) {
	u.TotalPoints += score
	u.QuestionsAnswered += totalQuestions
	u.GamesPlayed++
	u.CurrentStreak++
	if u.CurrentStreak > u.BestStreak {
		u.BestStreak = u.CurrentStreak
	}
}

// AnswerSubmission is the scoring input from a participant.
type AnswerSubmission struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer string `json:"selectedAnswer"`
	TimeSpent      int    `json:"timeSpent"`
}

// AnswerResult is returned only to the submitting participant.
type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	IsCorrect     bool   `json:"isCorrect"`
	PointsEarned  int    `json:"pointsEarned"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation,omitempty"`
	TotalScore    int    `json:"totalScore"`
	Completed     bool   `json:"completed"`
}

// GameDetails is the read-only aggregate view of a game.
type GameDetails struct {
	Game         Game             `json:"game"`
	Participants []Participant    `json:"participants"`
	Questions    []PublicQuestion `json:"questions"`
}
