package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"applicant-assessment-service/internal/app"
	"applicant-assessment-service/internal/config"
	"applicant-assessment-service/internal/delivery"
	"applicant-assessment-service/internal/domain"
	"applicant-assessment-service/internal/hint"
	"applicant-assessment-service/internal/infra/file"
	"applicant-assessment-service/internal/infra/memory"
	pgstore "applicant-assessment-service/internal/infra/postgres"
	redisstore "applicant-assessment-service/internal/infra/redis"
	sqlitestore "applicant-assessment-service/internal/infra/sqlite"
	"applicant-assessment-service/internal/llm"
	"applicant-assessment-service/internal/scoring"
	transport "applicant-assessment-service/internal/transport/http"
)

// storage is the durable side selected by storage.driver.
type storage struct {
	results  delivery.ResultStore
	attempts delivery.AttemptLog
	pool     *pgxpool.Pool
	closers  []func()
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStorage(ctx context.Context, cfg config.Config) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		store := memory.NewResultStore()
		log.Printf("storage: memory (results are lost on restart)")
		return &storage{results: store, attempts: store}, nil
	case config.StorageSQLite:
		store, err := sqlitestore.Open(ctx, cfg.SQLite.DSN)
		if err != nil {
			return nil, err
		}
		return &storage{results: store, attempts: store, closers: []func(){func() { store.Close() }}}, nil
	case config.StoragePostgres:
		db := pgstore.OpenBun(cfg.Postgres.URL)
		if _, err := pgstore.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &storage{
			results:  pgstore.NewResultStore(pool),
			attempts: pgstore.NewDeliveryLog(db),
			pool:     pool,
			closers:  []func(){func() { db.Close() }, pool.Close},
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func questionLoader(cfg config.Config, st *storage) (memory.QuestionBankLoader, error) {
	if cfg.Questions.Dir != "" || len(cfg.Questions.Files) > 0 {
		return file.NewQuestionLoader(cfg.Questions.Dir, cfg.Questions.Files), nil
	}
	if st != nil && st.pool != nil {
		return pgstore.NewQuestionLoader(st.pool), nil
	}
	return nil, errors.New("no question source: set questions.dir, questions.files or use the postgres driver")
}

func scoringConfig(cfg config.Config) scoring.Config {
	return scoring.Config{Ladder: cfg.Scoring.Ladder, PassThreshold: cfg.Scoring.PassThreshold}
}

func sessionConfig(cfg config.Config) (app.SessionConfig, error) {
	intake, err := domain.NewIntakeProfile(cfg.Intake.Required)
	if err != nil {
		return app.SessionConfig{}, err
	}
	defaults := app.DefaultSessionConfig()
	return app.SessionConfig{
		TimeLimit:    config.TTLDuration(cfg.Session.TimeLimit, defaults.TimeLimit),
		TickInterval: config.TTLDuration(cfg.Session.TickInterval, defaults.TickInterval),
		HintBudget:   cfg.Session.HintBudget,
		Intake:       intake,
		Scoring:      scoringConfig(cfg),
	}, nil
}

func llmConfig(cfg config.Config) llm.Config {
	out := llm.DefaultConfig()
	out.Provider = cfg.LLM.Provider
	out.Timeout = config.TTLDuration(cfg.LLM.Timeout, out.Timeout)
	if cfg.LLM.Retries > 0 {
		out.Retry.MaxAttempts = cfg.LLM.Retries
	}
	out.OpenAI.APIKey = cfg.LLM.OpenAI.APIKey
	out.OpenAI.BaseURL = cfg.LLM.OpenAI.BaseURL
	if cfg.LLM.OpenAI.Model != "" {
		out.OpenAI.Model = cfg.LLM.OpenAI.Model
	}
	out.Anthropic.APIKey = cfg.LLM.Anthropic.APIKey
	out.Anthropic.BaseURL = cfg.LLM.Anthropic.BaseURL
	if cfg.LLM.Anthropic.Model != "" {
		out.Anthropic.Model = cfg.LLM.Anthropic.Model
	}
	out.Gemini.APIKey = cfg.LLM.Gemini.APIKey
	if cfg.LLM.Gemini.Model != "" {
		out.Gemini.Model = cfg.LLM.Gemini.Model
	}
	return out
}

func hintGateway(ctx context.Context, cfg config.Config) (*hint.Gateway, error) {
	lc := llmConfig(cfg)
	provider, err := llm.NewProvider(ctx, lc)
	if errors.Is(err, llm.ErrNotConfigured) {
		log.Printf("hints: no oracle configured, lifelines will be refunded")
		return hint.NewGateway(nil, 0), nil
	}
	if err != nil {
		return nil, err
	}
	log.Printf("hints: using %s (%s)", lc.Resolved(), provider.ModelID())
	return hint.NewGateway(provider, lc.Timeout), nil
}

func notifier(cfg config.Config, client *redis.Client) (delivery.Notifier, error) {
	switch cfg.Notify.Notifier {
	case config.NotifierSMTP:
		s := cfg.Notify.SMTP
		return delivery.NewSMTPNotifier(delivery.SMTPConfig{
			Host:     s.Host,
			Port:     s.Port,
			Username: s.Username,
			Password: s.Password,
			From:     s.From,
			StartTLS: s.StartTLS,
		})
	case config.NotifierOutbox:
		if client == nil {
			return nil, errors.New("outbox notifier requires redis")
		}
		return redisstore.NewOutboxNotifier(client, cfg.Notify.Outbox.Stream, cfg.Notify.Outbox.MaxLen), nil
	default:
		return delivery.LogNotifier{}, nil
	}
}

// server holds everything the start command runs and later shuts down.
type server struct {
	handler  http.Handler
	service  *app.AssessmentService
	pipeline *delivery.Pipeline
	storage  *storage
	redis    *redis.Client
	sweep    time.Duration
}

func (s *server) Close() {
	s.pipeline.Wait()
	s.storage.Close()
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

func buildServer(ctx context.Context, cfg config.Config) (*server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var client *redis.Client
	if cfg.Redis.Addr != "" {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	srv, err := assemble(ctx, cfg, st, client)
	if err != nil {
		st.Close()
		if client != nil {
			_ = client.Close()
		}
		return nil, err
	}
	return srv, nil
}

func assemble(ctx context.Context, cfg config.Config, st *storage, client *redis.Client) (*server, error) {
	loader, err := questionLoader(cfg, st)
	if err != nil {
		return nil, err
	}
	banksTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var banks app.QuestionBankRepository
	var sessions app.SessionRepository
	if client != nil {
		banks = redisstore.NewQuestionBankRepository(client, loader, banksTTL)
		sessions = redisstore.NewSessionStore(client, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
	} else {
		banks = memory.NewQuestionBankRepository(loader, banksTTL)
		sessions = memory.NewSessionStore()
	}

	n, err := notifier(cfg, client)
	if err != nil {
		return nil, err
	}
	certs, err := delivery.NewCertificateIssuer(cfg.Certificate.Salt, cfg.Certificate.Title, cfg.Certificate.Organization)
	if err != nil {
		return nil, err
	}
	branding := delivery.DefaultBranding()
	if cfg.Certificate.Organization != "" {
		branding.Organization = cfg.Certificate.Organization
	}
	if cfg.Certificate.Title != "" {
		branding.TestTitle = cfg.Certificate.Title
	}
	pipeline := delivery.NewPipeline(
		st.results,
		st.attempts,
		delivery.NewRouter(cfg.Notify.Branches, cfg.Notify.Oversight, cfg.Notify.NotifyApplicant),
		delivery.NewRenderer(branding),
		n,
		certs,
		delivery.Options{
			NotifyTimeout: config.TTLDuration(cfg.Notify.Timeout, time.Minute),
			MaxParallel:   cfg.Notify.MaxParallel,
		},
	)

	gateway, err := hintGateway(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sessionCfg, err := sessionConfig(cfg)
	if err != nil {
		return nil, err
	}
	service := app.NewAssessmentService(sessions, banks, gateway, pipeline, certs, app.ServiceConfig{
		Session:        sessionCfg,
		DefaultBankID:  cfg.Questions.DefaultBank,
		ExpiryDelivery: config.TTLDuration(cfg.Session.ExpiryDelivery, 30*time.Second),
		Retention: app.RetentionPolicy{
			Idle:      config.TTLDuration(cfg.Session.IdleTimeout, 2*time.Hour),
			Delivered: config.TTLDuration(cfg.Session.Retention, 15*time.Minute),
		},
	})

	handler := transport.NewRouter(transport.Handlers{
		Sessions: transport.NewSessionHandler(service),
		Submit:   transport.NewSubmitHandler(pipeline, sessionCfg.Intake, sessionCfg.Scoring),
		Help:     transport.NewHelpHandler(gateway),
		WS:       transport.NewWSHandler(service),
	}, transport.RouterOptions{AllowedOrigins: cfg.Server.AllowedOrigins})

	return &server{
		handler:  handler,
		service:  service,
		pipeline: pipeline,
		storage:  st,
		redis:    client,
		sweep:    config.TTLDuration(cfg.Session.SweepInterval, time.Minute),
	}, nil
}
