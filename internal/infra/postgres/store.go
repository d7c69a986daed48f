package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-session-service/internal/domain"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const gameColumns = `id, host_user_id, mode, status, total_questions, time_per_question, max_players,
	current_question_index, culture_id, category_id, difficulty, created_at, started_at, completed_at`

const participantColumns = `game_id, user_id, score, correct_answers, questions_answered, joined_at, completed_at`

// Store persists games, rosters and answers in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateGame writes the game row and its fixed question order in one transaction.
func (s *Store) CreateGame(ctx context.Context, game domain.Game, questions []domain.GameQuestion) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO games (`+gameColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			game.ID, game.HostUserID, string(game.Mode), string(game.Status), game.TotalQuestions,
			game.TimePerQuestion, game.MaxPlayers, game.CurrentQuestionIndex,
			game.Filter.CultureID, game.Filter.CategoryID, game.Filter.Difficulty,
			game.CreatedAt, game.StartedAt, game.CompletedAt)
		if isUniqueViolation(err) {
			return domain.Invalid("game %s already exists", game.ID)
		}
		if err != nil {
			return fmt.Errorf("insert game: %w", err)
		}

		batch := &pgx.Batch{}
		for _, gq := range questions {
			batch.Queue(`INSERT INTO game_questions (game_id, question_id, order_index, time_limit) VALUES ($1, $2, $3, $4)`,
				game.ID, gq.QuestionID, gq.OrderIndex, gq.TimeLimit)
		}
		results := tx.SendBatch(ctx, batch)
		for range questions {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("insert game question: %w", err)
			}
		}
		return results.Close()
	})
}

func (s *Store) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id=$1`, gameID)
	game, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("get game: %w", err)
	}
	return game, nil
}

// UpdateGame writes the mutable game fields only if the stored status still equals expected.
func (s *Store) UpdateGame(ctx context.Context, game domain.Game, expected domain.GameStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE games
		SET status=$2, current_question_index=$3, started_at=$4, completed_at=$5
		WHERE id=$1 AND status=$6`,
		game.ID, string(game.Status), game.CurrentQuestionIndex, game.StartedAt, game.CompletedAt, string(expected))
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := s.GetGame(ctx, game.ID); err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

func (s *Store) ListGameQuestions(ctx context.Context, gameID string) ([]domain.GameQuestion, error) {
	if _, err := s.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT game_id, question_id, order_index, time_limit
		FROM game_questions WHERE game_id=$1 ORDER BY order_index`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list game questions: %w", err)
	}
	defer rows.Close()

	var out []domain.GameQuestion
	for rows.Next() {
		var gq domain.GameQuestion
		if err := rows.Scan(&gq.GameID, &gq.QuestionID, &gq.OrderIndex, &gq.TimeLimit); err != nil {
			return nil, fmt.Errorf("scan game question: %w", err)
		}
		out = append(out, gq)
	}
	return out, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, userID string) (domain.UserStats, error) {
	var u domain.UserStats
	err := s.pool.QueryRow(ctx, `SELECT id, total_points, current_streak, best_streak, questions_answered, games_played
		FROM users WHERE id=$1`, userID).
		Scan(&u.UserID, &u.TotalPoints, &u.CurrentStreak, &u.BestStreak, &u.QuestionsAnswered, &u.GamesPlayed)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) InsertParticipant(ctx context.Context, p domain.Participant) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO participants (`+participantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.GameID, p.UserID, p.Score, p.CorrectAnswers, p.QuestionsAnswered, p.JoinedAt, p.CompletedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyJoined
	}
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (s *Store) GetParticipant(ctx context.Context, gameID, userID string) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+participantColumns+` FROM participants
		WHERE game_id=$1 AND user_id=$2`, gameID, userID)
	p, err := scanParticipant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

// ListParticipants returns the roster in join order.
func (s *Store) ListParticipants(ctx context.Context, gameID string) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+participantColumns+` FROM participants
		WHERE game_id=$1 ORDER BY joined_at, user_id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordAnswer inserts the answer, recomputes the participant's totals from
// the log and completes the participant when due, all in one transaction.
func (s *Store) RecordAnswer(ctx context.Context, a domain.Answer, totalQuestions int) (domain.Participant, bool, error) {
	var (
		p         domain.Participant
		completed bool
	)
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO answers
			(game_id, user_id, question_id, selected_answer, is_correct, time_spent, points_earned, answered_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.GameID, a.UserID, a.QuestionID, a.SelectedAnswer, a.IsCorrect, a.TimeSpent, a.PointsEarned, a.AnsweredAt)
		if isUniqueViolation(err) {
			return domain.ErrDuplicateAnswer
		}
		if isForeignKeyViolation(err) {
			return domain.ErrParticipantNotFound
		}
		if err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}

		row := tx.QueryRow(ctx, `UPDATE participants
			SET score = t.total_score, correct_answers = t.total_correct, questions_answered = t.total_answered
			FROM (
				SELECT COALESCE(SUM(points_earned), 0) AS total_score,
				       COUNT(*) FILTER (WHERE is_correct) AS total_correct,
				       COUNT(*) AS total_answered
				FROM answers WHERE game_id=$1 AND user_id=$2
			) t
			WHERE game_id=$1 AND user_id=$2
			RETURNING `+participantColumns, a.GameID, a.UserID)
		p, err = scanParticipant(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrParticipantNotFound
		}
		if err != nil {
			return fmt.Errorf("update participant: %w", err)
		}

		if p.QuestionsAnswered < totalQuestions || p.CompletedAt != nil {
			return nil
		}
		completed, err = completeParticipant(ctx, tx, a.GameID, a.UserID, a.AnsweredAt, totalQuestions)
		if err != nil {
			return err
		}
		if completed {
			at := a.AnsweredAt
			p.CompletedAt = &at
		}
		return nil
	})
	if err != nil {
		return domain.Participant{}, false, err
	}
	return p, completed, nil
}

// ListAnswers returns a participant's answers in submission order.
func (s *Store) ListAnswers(ctx context.Context, gameID, userID string) ([]domain.Answer, error) {
	rows, err := s.pool.Query(ctx, `SELECT game_id, user_id, question_id, selected_answer, is_correct,
		time_spent, points_earned, answered_at
		FROM answers WHERE game_id=$1 AND user_id=$2 ORDER BY id`, gameID, userID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var out []domain.Answer
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.GameID, &a.UserID, &a.QuestionID, &a.SelectedAnswer, &a.IsCorrect,
			&a.TimeSpent, &a.PointsEarned, &a.AnsweredAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// completeParticipant stamps completed_at at most once and folds the final
// score into the user's aggregate within tx.
func completeParticipant(ctx context.Context, tx pgx.Tx, gameID, userID string, at time.Time, totalQuestions int) (bool, error) {
	var score int
	err := tx.QueryRow(ctx, `UPDATE participants SET completed_at=$3
		WHERE game_id=$1 AND user_id=$2 AND completed_at IS NULL
		RETURNING score`, gameID, userID, at).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("complete participant: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE users SET
		total_points = total_points + $2,
		questions_answered = questions_answered + $3,
		games_played = games_played + 1,
		current_streak = current_streak + 1,
		best_streak = GREATEST(best_streak, current_streak + 1)
		WHERE id=$1`, userID, score, totalQuestions)
	if err != nil {
		return false, fmt.Errorf("update user stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, domain.ErrUserNotFound
	}
	return true, nil
}

func scanGame(row pgx.Row) (domain.Game, error) {
	var (
		g            domain.Game
		mode, status string
	)
	err := row.Scan(&g.ID, &g.HostUserID, &mode, &status, &g.TotalQuestions, &g.TimePerQuestion,
		&g.MaxPlayers, &g.CurrentQuestionIndex, &g.Filter.CultureID, &g.Filter.CategoryID,
		&g.Filter.Difficulty, &g.CreatedAt, &g.StartedAt, &g.CompletedAt)
	g.Mode = domain.GameMode(mode)
	g.Status = domain.GameStatus(status)
	return g, err
}

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	var p domain.Participant
	err := row.Scan(&p.GameID, &p.UserID, &p.Score, &p.CorrectAnswers, &p.QuestionsAnswered,
		&p.JoinedAt, &p.CompletedAt)
	return p, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
