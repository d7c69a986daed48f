package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"trivia-session-service/internal/domain"
)

type questionModel struct {
	bun.BaseModel `bun:"table:questions"`

	ID            string   `bun:"id,pk"`
	CultureID     string   `bun:"culture_id"`
	CategoryID    string   `bun:"category_id"`
	Difficulty    string   `bun:"difficulty"`
	Prompt        string   `bun:"prompt"`
	Options       []string `bun:"options,type:jsonb"`
	CorrectAnswer string   `bun:"correct_answer"`
	Explanation   string   `bun:"explanation"`
	Points        int      `bun:"points"`
	TimeLimit     int      `bun:"time_limit"`
}

type userModel struct {
	bun.BaseModel `bun:"table:users"`

	ID string `bun:"id,pk"`
}

// Seed upserts the question bank and inserts any missing users. Existing user
// aggregates are left untouched.
func Seed(ctx context.Context, db *bun.DB, questions []domain.Question, userIDs []string) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(questions) > 0 {
			rows := make([]questionModel, 0, len(questions))
			for _, q := range questions {
				rows = append(rows, questionModel{
					ID:            q.ID,
					CultureID:     q.CultureID,
					CategoryID:    q.CategoryID,
					Difficulty:    q.Difficulty,
					Prompt:        q.Prompt,
					Options:       q.Options,
					CorrectAnswer: q.CorrectAnswer,
					Explanation:   q.Explanation,
					Points:        q.Points,
					TimeLimit:     q.TimeLimit,
				})
			}
			_, err := tx.NewInsert().Model(&rows).
				On("CONFLICT (id) DO UPDATE").
				Set("culture_id = EXCLUDED.culture_id").
				Set("category_id = EXCLUDED.category_id").
				Set("difficulty = EXCLUDED.difficulty").
				Set("prompt = EXCLUDED.prompt").
				Set("options = EXCLUDED.options").
				Set("correct_answer = EXCLUDED.correct_answer").
				Set("explanation = EXCLUDED.explanation").
				Set("points = EXCLUDED.points").
				Set("time_limit = EXCLUDED.time_limit").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("seed questions: %w", err)
			}
		}

		if len(userIDs) > 0 {
			users := make([]userModel, 0, len(userIDs))
			for _, id := range userIDs {
				users = append(users, userModel{ID: id})
			}
			if _, err := tx.NewInsert().Model(&users).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
				return fmt.Errorf("seed users: %w", err)
			}
		}
		return nil
	})
}
