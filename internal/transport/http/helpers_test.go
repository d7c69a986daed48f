package http

import (
	"math/rand"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/infra/memory"
	"trivia-session-service/internal/monitor"
	"trivia-session-service/internal/realtime"
)

type testServer struct {
	router   *gin.Engine
	registry *realtime.Registry
	service  *app.GameService
	store    *memory.Store
	answers  map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	metrics := monitor.NewMetrics(prometheus.NewRegistry())
	registry := realtime.NewRegistry(16, metrics)
	store := memory.NewSampleStore()
	questions := memory.SampleQuestions()
	bank := memory.NewQuestionRepository(memory.NewStaticQuestionBank(questions), time.Minute)
	service := app.NewGameService(store, bank, memory.NewSessionStore(), registry, app.Options{
		Rand:    rand.New(rand.NewSource(7)),
		Metrics: metrics,
	})
	t.Cleanup(registry.Close)

	answers := make(map[string]string, len(questions))
	for _, q := range questions {
		answers[q.ID] = q.CorrectAnswer
	}
	return &testServer{
		router:   NewRouter(NewAPI(service), NewWSHandler(registry), metrics),
		registry: registry,
		service:  service,
		store:    store,
		answers:  answers,
	}
}

