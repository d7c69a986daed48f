package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"trivia-session-service/internal/domain"
)

// QuestionLoader fetches question records from a backing store.
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.Question, error)
	FindQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
}

// QuestionRepository caches question records in Redis and falls back to a loader on miss.
// Records are stored as JSON: SET question:{questionID} {json} EX ttl
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	if q, ok := r.cached(ctx, questionID); ok {
		return q, nil
	}

	result, err, _ := r.sf.Do(questionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if q, ok := r.cached(ctx, questionID); ok {
			return q, nil
		}
		q, err := r.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}
		pipe := r.client.Pipeline()
		r.queueSet(ctx, pipe, q)
		if _, err := pipe.Exec(ctx); err != nil {
			log.Warn().Err(err).Str("questionId", questionID).Msg("question cache write failed")
		}
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

// FindQuestions asks the loader and warms the cache with every match.
func (r *QuestionRepository) FindQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	found, err := r.loader.FindQuestions(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return found, nil
	}
	pipe := r.client.Pipeline()
	for _, q := range found {
		r.queueSet(ctx, pipe, q)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Int("questions", len(found)).Msg("question cache warm failed")
	}
	return found, nil
}

func (r *QuestionRepository) cached(ctx context.Context, questionID string) (domain.Question, bool) {
	raw, err := r.client.Get(ctx, r.key(questionID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("questionId", questionID).Msg("question cache read failed")
		}
		return domain.Question{}, false
	}
	var q domain.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Question{}, false
	}
	return q, true
}

func (r *QuestionRepository) queueSet(ctx context.Context, pipe redis.Pipeliner, q domain.Question) {
	data, err := json.Marshal(q)
	if err != nil {
		return
	}
	pipe.Set(ctx, r.key(q.ID), data, r.ttlWithJitter())
}

func (r *QuestionRepository) key(questionID string) string {
	return "question:" + questionID
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
