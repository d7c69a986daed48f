package domain

// Outbound push event types.
const (
	EventPlayerJoined  = "player_joined"
	EventGameStarted   = "game_started"
	EventNextQuestion  = "next_question"
	EventScoreUpdate   = "score_update"
	EventGameCompleted = "game_completed"
)

type PlayerJoinedEvent struct {
	Type        string      `json:"type"`
	Participant Participant `json:"participant"`
}

// GameStartedEvent carries the first question's public view only.
type GameStartedEvent struct {
	Type     string         `json:"type"`
	Game     Game           `json:"game"`
	Question PublicQuestion `json:"question"`
}

type NextQuestionEvent struct {
	Type     string         `json:"type"`
	GameID   string         `json:"gameId"`
	Index    int            `json:"index"`
	Question PublicQuestion `json:"question"`
}

// ScoreUpdateEvent never carries correctness or the answer key.
type ScoreUpdateEvent struct {
	Type              string `json:"type"`
	GameID            string `json:"gameId"`
	UserID            string `json:"userId"`
	Score             int    `json:"score"`
	QuestionsAnswered int    `json:"questionsAnswered"`
	Completed         bool   `json:"completed"`
}

type GameCompletedEvent struct {
	Type      string        `json:"type"`
	Game      Game          `json:"game"`
	Standings []Participant `json:"standings"`
}
