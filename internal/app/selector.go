package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trivia-session-service/internal/domain"
)

// QuestionSelector draws the question set for a new game.
type QuestionSelector struct {
	bank QuestionBank

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionSelector(bank QuestionBank, rnd *rand.Rand) *QuestionSelector {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &QuestionSelector{bank: bank, rnd: rnd}
}

// Select returns up to count distinct questions matching filter, in random
// draw order. A short pool is not an error: every match is returned.
func (s *QuestionSelector) Select(ctx context.Context, filter domain.QuestionFilter, count int) ([]domain.Question, error) {
	if count <= 0 {
		return nil, domain.Invalid("question count must be positive, got %d", count)
	}

	found, err := s.bank.FindQuestions(ctx, filter)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(found))
	pool := make([]domain.Question, 0, len(found))
	for _, q := range found {
		if !filter.Matches(q) {
			continue
		}
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		pool = append(pool, q)
	}

	k := count
	if k > len(pool) {
		k = len(pool)
	}

	// partial Fisher-Yates: the first k slots are a uniform sample without replacement
	s.mu.Lock()
	for i := 0; i < k; i++ {
		j := i + s.rnd.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	s.mu.Unlock()

	return pool[:k], nil
}
