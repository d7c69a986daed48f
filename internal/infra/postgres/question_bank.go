package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-session-service/internal/domain"
)

const questionColumns = `id, culture_id, category_id, difficulty, prompt, options, correct_answer, explanation, points, time_limit`

// QuestionBank loads question rows from Postgres. Options are stored as JSONB.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

func (b *QuestionBank) LoadQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	row := b.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, questionID)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}

// FindQuestions returns every question matching filter, ordered by id.
func (b *QuestionBank) FindQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	rows, err := b.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions
		WHERE ($1 = '' OR culture_id = $1)
		  AND ($2 = '' OR category_id = $2)
		  AND ($3 = '' OR difficulty = $3)
		ORDER BY id`,
		filter.CultureID, filter.CategoryID, filter.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q   domain.Question
		raw []byte
	)
	err := row.Scan(&q.ID, &q.CultureID, &q.CategoryID, &q.Difficulty, &q.Prompt, &raw,
		&q.CorrectAnswer, &q.Explanation, &q.Points, &q.TimeLimit)
	if err != nil {
		return domain.Question{}, err
	}
	if err := json.Unmarshal(raw, &q.Options); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal options: %w", err)
	}
	return q, nil
}
