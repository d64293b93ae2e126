package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"applicant-assessment-service/internal/domain"
	"applicant-assessment-service/internal/scoring"
)

const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"

	NotifierLog    = "log"
	NotifierSMTP   = "smtp"
	NotifierOutbox = "outbox"
)

type Config struct {
	Server struct {
		Port            string   `yaml:"port"`
		ShutdownTimeout string   `yaml:"shutdown_timeout"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Storage struct {
		Driver string `yaml:"driver"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		DSN string `yaml:"dsn"`
	} `yaml:"sqlite"`
	Questions struct {
		Dir         string            `yaml:"dir"`
		Files       map[string]string `yaml:"files"`
		DefaultBank string            `yaml:"default_bank"`
		TTL         string            `yaml:"ttl"`
	} `yaml:"questions"`
	Session struct {
		TimeLimit      string `yaml:"time_limit"`
		TickInterval   string `yaml:"tick_interval"`
		HintBudget     int    `yaml:"hint_budget"`
		ExpiryDelivery string `yaml:"expiry_delivery"`
		IdleTimeout    string `yaml:"idle_timeout"`
		Retention      string `yaml:"retention"`
		SweepInterval  string `yaml:"sweep_interval"`
	} `yaml:"session"`
	Intake struct {
		Required []string `yaml:"required"`
	} `yaml:"intake"`
	Scoring struct {
		PassThreshold int            `yaml:"pass_threshold"`
		Ladder        scoring.Ladder `yaml:"ladder"`
	} `yaml:"scoring"`
	LLM struct {
		Provider string `yaml:"provider"`
		Timeout  string `yaml:"timeout"`
		Retries  int    `yaml:"retries"`
		OpenAI   struct {
			APIKey  string `yaml:"api_key"`
			Model   string `yaml:"model"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"openai"`
		Anthropic struct {
			APIKey  string `yaml:"api_key"`
			Model   string `yaml:"model"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"anthropic"`
		Gemini struct {
			APIKey string `yaml:"api_key"`
			Model  string `yaml:"model"`
		} `yaml:"gemini"`
	} `yaml:"llm"`
	Notify struct {
		Notifier        string            `yaml:"notifier"`
		Branches        map[string]string `yaml:"branches"`
		Oversight       string            `yaml:"oversight"`
		NotifyApplicant bool              `yaml:"notify_applicant"`
		Timeout         string            `yaml:"timeout"`
		MaxParallel     int               `yaml:"max_parallel"`
		SMTP            struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
			From     string `yaml:"from"`
			StartTLS bool   `yaml:"starttls"`
		} `yaml:"smtp"`
		Outbox struct {
			Stream string `yaml:"stream"`
			MaxLen int64  `yaml:"max_len"`
		} `yaml:"outbox"`
	} `yaml:"notify"`
	Certificate struct {
		Salt         string `yaml:"salt"`
		Title        string `yaml:"title"`
		Organization string `yaml:"organization"`
	} `yaml:"certificate"`
}

// Default returns the settings used when a key is absent from the file.
func Default() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Server.ShutdownTimeout = "10s"
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Storage.Driver = StorageMemory
	cfg.Redis.TTL = "2h"
	cfg.SQLite.DSN = "file:assessment.db?cache=shared&mode=rwc"
	cfg.Questions.DefaultBank = "default"
	cfg.Questions.TTL = "10m"
	cfg.Session.TimeLimit = "75m"
	cfg.Session.TickInterval = "1s"
	cfg.Session.HintBudget = 3
	cfg.Session.ExpiryDelivery = "30s"
	cfg.Session.IdleTimeout = "2h"
	cfg.Session.Retention = "15m"
	cfg.Session.SweepInterval = "1m"
	cfg.Intake.Required = []string{domain.FieldName, domain.FieldEmail, domain.FieldPhone, domain.FieldBranch, domain.FieldLevel}
	cfg.Scoring.PassThreshold = scoring.DefaultPassThreshold
	cfg.Scoring.Ladder = scoring.DefaultLadder()
	cfg.LLM.Timeout = "20s"
	cfg.LLM.Retries = 2
	cfg.Notify.Notifier = NotifierLog
	cfg.Notify.Branches = map[string]string{
		"Brighton, CO":     "emett@generatorsource.com",
		"Jacksonville, FL": "chad@generatorsource.com",
		"Austin, TX":       "jbrown@generatorsource.com",
		"Pensacola, FL":    "oliver@generatorsource.com",
	}
	cfg.Notify.Oversight = "emett@generatorsource.com"
	cfg.Notify.NotifyApplicant = true
	cfg.Notify.Timeout = "1m"
	cfg.Notify.MaxParallel = 4
	cfg.Notify.SMTP.Port = 587
	cfg.Notify.SMTP.StartTLS = true
	cfg.Certificate.Title = "Generator Technician Knowledge Test"
	cfg.Certificate.Organization = "Generator Source"
	return cfg
}

// Load reads YAML config from path on top of Default, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides secrets and endpoints from the environment.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Postgres.URL, "POSTGRES_URL")
	set(&c.Redis.Addr, "REDIS_ADDR")
	set(&c.Notify.SMTP.Password, "SMTP_PASSWORD")
	set(&c.Certificate.Salt, "CERTIFICATE_SALT")
	set(&c.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.LLM.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	set(&c.LLM.Gemini.APIKey, "GEMINI_API_KEY")
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("storage.driver postgres requires postgres.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	switch c.Notify.Notifier {
	case NotifierLog:
	case NotifierSMTP:
		if c.Notify.SMTP.Host == "" || c.Notify.SMTP.From == "" {
			errs = append(errs, errors.New("notify.smtp requires host and from"))
		}
	case NotifierOutbox:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("notify.notifier outbox requires redis.addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown notify.notifier %q", c.Notify.Notifier))
	}

	if err := c.Scoring.Ladder.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring.ladder: %w", err))
	}
	if c.Scoring.PassThreshold < 0 || c.Scoring.PassThreshold > 100 {
		errs = append(errs, fmt.Errorf("scoring.pass_threshold %d out of range", c.Scoring.PassThreshold))
	}
	if _, err := domain.NewIntakeProfile(c.Intake.Required); err != nil {
		errs = append(errs, fmt.Errorf("intake.required: %w", err))
	}
	if c.Session.HintBudget < 0 {
		errs = append(errs, errors.New("session.hint_budget must not be negative"))
	}
	for key, raw := range map[string]string{
		"session.time_limit":      c.Session.TimeLimit,
		"session.tick_interval":   c.Session.TickInterval,
		"session.expiry_delivery": c.Session.ExpiryDelivery,
		"session.idle_timeout":    c.Session.IdleTimeout,
		"session.retention":       c.Session.Retention,
		"session.sweep_interval":  c.Session.SweepInterval,
		"questions.ttl":           c.Questions.TTL,
		"redis.ttl":               c.Redis.TTL,
		"llm.timeout":             c.LLM.Timeout,
		"notify.timeout":          c.Notify.Timeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(raw); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		}
	}
	return errors.Join(errs...)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
