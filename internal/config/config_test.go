package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"applicant-assessment-service/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: sqlite
session:
  hint_budget: 0
scoring:
  pass_threshold: 65
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != StorageSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Session.HintBudget != 0 {
		t.Fatalf("expected explicit zero hint budget, got %d", cfg.Session.HintBudget)
	}
	if cfg.Scoring.PassThreshold != 65 {
		t.Fatalf("expected threshold 65, got %d", cfg.Scoring.PassThreshold)
	}
	if len(cfg.Scoring.Ladder) != 4 {
		t.Fatalf("expected default ladder, got %+v", cfg.Scoring.Ladder)
	}
	if cfg.Notify.Branches["Austin, TX"] != "jbrown@generatorsource.com" {
		t.Fatalf("expected default branch table, got %+v", cfg.Notify.Branches)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadReadsLadder(t *testing.T) {
	path := writeConfig(t, `
scoring:
  ladder:
    - { min: 80, level: Master }
    - { min: 0, level: Beginner }
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Scoring.Ladder) != 2 || cfg.Scoring.Ladder[0].Level != domain.LevelMaster {
		t.Fatalf("unexpected ladder: %+v", cfg.Scoring.Ladder)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://env/db")
	t.Setenv("SMTP_PASSWORD", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(writeConfig(t, "storage:\n  driver: postgres\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Postgres.URL != "postgres://env/db" {
		t.Fatalf("expected env postgres url, got %q", cfg.Postgres.URL)
	}
	if cfg.Notify.SMTP.Password != "secret" || cfg.LLM.OpenAI.APIKey != "sk-test" {
		t.Fatalf("expected env secrets to apply")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateReportsProblems(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = StoragePostgres
	cfg.Notify.Notifier = NotifierOutbox
	cfg.Scoring.PassThreshold = 120
	cfg.Scoring.Ladder = nil
	cfg.Intake.Required = []string{"shoe_size"}
	cfg.Session.TimeLimit = "soon"

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, want := range []string{"postgres.url", "redis.addr", "pass_threshold", "scoring.ladder", "intake.required", "session.time_limit"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad input, got %v", got)
	}
	if got := TTLDuration("5s", time.Minute); got != 5*time.Second {
		t.Fatalf("expected 5s, got %v", got)
	}
}

func TestSampleConfigIsValid(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config invalid: %v", err)
	}
}
