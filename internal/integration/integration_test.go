package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/infra/memory"
	"trivia-session-service/internal/infra/postgres"
	pgmigrations "trivia-session-service/internal/infra/postgres/migrations"
	infraredis "trivia-session-service/internal/infra/redis"
)

func TestGameEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateAndSeed(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	store := postgres.NewStore(pool)
	bank := infraredis.NewQuestionRepository(redisClient, postgres.NewQuestionBank(pool), 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute, "it-1")
	service := app.NewGameService(store, bank, sessions, nil, app.Options{Rand: rand.New(rand.NewSource(1))})

	game, err := service.CreateGame(ctx, domain.GameConfig{
		HostUserID:     "alice",
		Mode:           domain.ModeQuick,
		TotalQuestions: 3,
		Filter:         domain.QuestionFilter{Difficulty: "easy"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if owner, _ := sessions.Owner(ctx, game.ID); owner != "" {
		t.Fatalf("waiting game should not hold a session, got owner %q", owner)
	}

	for _, u := range []string{"alice", "bob"} {
		if _, err := service.JoinGame(ctx, game.ID, u); err != nil {
			t.Fatalf("join %s: %v", u, err)
		}
	}
	if _, err := service.JoinGame(ctx, game.ID, "alice"); !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Fatalf("expected already joined, got %v", err)
	}
	if _, err := service.StartGame(ctx, game.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if owner, err := sessions.Owner(ctx, game.ID); err != nil || owner != "it-1" {
		t.Fatalf("expected session owned by it-1, got %q (%v)", owner, err)
	}

	details, err := service.GetGameWithDetails(ctx, game.ID)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	answers := make(map[string]string)
	for _, q := range memory.SampleQuestions() {
		answers[q.ID] = q.CorrectAnswer
	}

	// Concurrent duplicates of the first answer must record exactly once.
	first := details.Questions[0].ID
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.SubmitAnswer(ctx, game.ID, "bob", domain.AnswerSubmission{QuestionID: first, SelectedAnswer: answers[first]})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrDuplicateAnswer) {
				t.Errorf("unexpected submit error: %v", err)
			}
		}()
	}
	wg.Wait()
	if accepted != 1 {
		t.Fatalf("expected one accepted answer, got %d", accepted)
	}

	for _, q := range details.Questions[1:] {
		if _, err := service.SubmitAnswer(ctx, game.ID, "bob", domain.AnswerSubmission{QuestionID: q.ID, SelectedAnswer: "nope"}); err != nil {
			t.Fatalf("bob submit: %v", err)
		}
	}
	var last domain.AnswerResult
	for _, q := range details.Questions {
		last, err = service.SubmitAnswer(ctx, game.ID, "alice", domain.AnswerSubmission{QuestionID: q.ID, SelectedAnswer: answers[q.ID]})
		if err != nil {
			t.Fatalf("alice submit: %v", err)
		}
	}
	if !last.Completed {
		t.Fatalf("expected alice to complete")
	}

	final, err := service.GetGameWithDetails(ctx, game.ID)
	if err != nil {
		t.Fatalf("final details: %v", err)
	}
	if final.Game.Status != domain.StatusCompleted || final.Game.CompletedAt == nil {
		t.Fatalf("expected completed game, got %+v", final.Game)
	}
	standings := app.Standings(final.Participants)
	if standings[0].UserID != "alice" || standings[0].Score <= standings[1].Score {
		t.Fatalf("expected alice leading, got %+v", standings)
	}
	for _, p := range final.Participants {
		answerLog, err := store.ListAnswers(ctx, game.ID, p.UserID)
		if err != nil {
			t.Fatalf("list answers: %v", err)
		}
		if score, _, _ := app.Tally(answerLog); score != p.Score {
			t.Fatalf("%s score %d does not match answer log %d", p.UserID, p.Score, score)
		}
	}

	stats, err := service.UserStats(ctx, "alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.GamesPlayed != 1 || stats.TotalPoints != standings[0].Score || stats.BestStreak != 1 {
		t.Fatalf("unexpected alice stats %+v", stats)
	}
	lastQ := details.Questions[len(details.Questions)-1].ID
	replay := domain.Answer{GameID: game.ID, UserID: "alice", QuestionID: lastQ, SelectedAnswer: answers[lastQ], IsCorrect: true, PointsEarned: 10, AnsweredAt: time.Now()}
	if _, completed, err := store.RecordAnswer(ctx, replay, 3); !errors.Is(err, domain.ErrDuplicateAnswer) || completed {
		t.Fatalf("expected replayed answer rejected, got %v (completed=%v)", err, completed)
	}
	if again, _ := service.UserStats(ctx, "alice"); again != stats {
		t.Fatalf("stats changed on repeated completion: %+v", again)
	}
	if owner, err := sessions.Owner(ctx, game.ID); err != nil || owner != "" {
		t.Fatalf("expected session released after completion, got %q (%v)", owner, err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateAndSeed(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := postgres.Seed(ctx, db, memory.SampleQuestions(), memory.SampleUserIDs); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
