package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"applicant-assessment-service/internal/domain"
)

const bankJSON = `[
  {"question": "What does an ATS do?", "category": "Transfer switches", "options": ["Switches load", "Cools engine"], "correct_answer_letter": "A"},
  {"question": "Which gas is produced by combustion?", "category": "Engines", "options": ["Helium", "Carbon monoxide"], "correct_answer_letter": "B"}
]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestQuestionLoaderReadsBankByID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "default.json", bankJSON)

	loader := NewQuestionLoader(dir, nil)
	bank, err := loader.LoadBank(context.Background(), "default")
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	if bank.ID != "default" || len(bank.Questions) != 2 {
		t.Fatalf("unexpected bank: %+v", bank)
	}
	if bank.Questions[1].CorrectLetter != "B" {
		t.Fatalf("unexpected question: %+v", bank.Questions[1])
	}
}

func TestQuestionLoaderExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "questions.json", bankJSON)

	loader := NewQuestionLoader("", map[string]string{"generators": path})
	bank, err := loader.LoadBank(context.Background(), "generators")
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	if bank.ID != "generators" {
		t.Fatalf("expected id to follow the registered name, got %q", bank.ID)
	}
}

func TestQuestionLoaderMissingBank(t *testing.T) {
	loader := NewQuestionLoader(t.TempDir(), nil)
	for _, id := range []string{"absent", "../etc/passwd"} {
		if _, err := loader.LoadBank(context.Background(), id); !errors.Is(err, domain.ErrQuestionBankNotFound) {
			t.Fatalf("%s: expected ErrQuestionBankNotFound, got %v", id, err)
		}
	}
}

func TestLoadFileRejectsGarbage(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.json", `"nope"`)
	if _, err := LoadFile(path); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
