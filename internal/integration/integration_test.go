package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"applicant-assessment-service/internal/app"
	"applicant-assessment-service/internal/delivery"
	"applicant-assessment-service/internal/domain"
	"applicant-assessment-service/internal/hint"
	pgstore "applicant-assessment-service/internal/infra/postgres"
	infraredis "applicant-assessment-service/internal/infra/redis"
)

func TestSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := pgstore.OpenBun(pgURL)
	defer db.Close()
	if _, err := pgstore.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgstore.NewQuestionLoader(pool)
	if err := loader.SaveBank(ctx, sampleBank()); err != nil {
		t.Fatalf("seed bank: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	results := pgstore.NewResultStore(pool)
	attempts := pgstore.NewDeliveryLog(db)
	certs, err := delivery.NewCertificateIssuer("integration", "Generator Technician Knowledge Test", "Generator Source")
	if err != nil {
		t.Fatalf("certificate issuer: %v", err)
	}
	pipeline := delivery.NewPipeline(
		results,
		attempts,
		delivery.NewRouter(map[string]string{"Austin, TX": "jbrown@generatorsource.com"}, "emett@generatorsource.com", true),
		delivery.NewRenderer(delivery.DefaultBranding()),
		infraredis.NewOutboxNotifier(redisClient, "", 0),
		certs,
		delivery.Options{},
	)

	cfg := app.ServiceConfig{Session: app.DefaultSessionConfig(), DefaultBankID: "default"}
	cfg.Session.TickInterval = time.Hour
	service := app.NewAssessmentService(
		infraredis.NewSessionStore(redisClient, 5*time.Minute),
		infraredis.NewQuestionBankRepository(redisClient, loader, 5*time.Minute),
		hint.NewGateway(nil, 0),
		pipeline,
		certs,
		cfg,
	)

	snap, err := service.CreateSession(ctx, domain.Intake{
		Applicant:    domain.Applicant{Name: "Robin", Email: "robin@example.com", Phone: "555-0100"},
		Branch:       "Austin, TX",
		SelfDeclared: domain.LevelPro,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := service.Start(ctx, snap.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i, letter := range []string{"B", "B", "A"} {
		if _, err := service.Answer(ctx, snap.ID, i, letter); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}

	outcome, err := service.Submit(ctx, snap.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Record == nil || outcome.Result.RawCorrectCount != 2 || outcome.Result.Percentage != 67 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	stored, err := results.Get(ctx, outcome.Record.RecordID)
	if err != nil {
		t.Fatalf("load stored result: %v", err)
	}
	if stored.Result.Percentage != 67 || stored.Result.MeasuredLevel != domain.LevelIntermediate {
		t.Fatalf("unexpected stored result: %+v", stored.Result)
	}

	pipeline.Wait()
	logged, err := attempts.Attempts(ctx, outcome.Record.RecordID)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(logged) != 3 {
		t.Fatalf("expected manager, oversight and applicant attempts, got %+v", logged)
	}
	n, err := redisClient.XLen(ctx, infraredis.DefaultOutboxStream).Result()
	if err != nil {
		t.Fatalf("xlen: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 outbox entries, got %d", n)
	}
}

func sampleBank() domain.QuestionBank {
	bank := domain.QuestionBank{ID: "default"}
	for i := 0; i < 3; i++ {
		bank.Questions = append(bank.Questions, domain.Question{
			Text:          fmt.Sprintf("Question %d", i+1),
			Category:      "Generators",
			Options:       []string{"Alpha", "Bravo", "Charlie"},
			CorrectLetter: "B",
		})
	}
	return bank
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "assess", "POSTGRES_PASSWORD": "assesspass", "POSTGRES_DB": "assessments"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://assess:assesspass@%s:%s/assessments?sslmode=disable", host, port.Port())
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

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
