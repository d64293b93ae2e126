package domain

import (
	"errors"
	"testing"
)

func TestDecodeQuestionBankAcceptsObjectAndArray(t *testing.T) {
	obj := []byte(`{"id":"default","questions":[{"question":"Q1","category":"C","options":["a","b"],"correct_answer_letter":"B"}]}`)
	bank, err := DecodeQuestionBank(obj)
	if err != nil {
		t.Fatalf("decode object: %v", err)
	}
	if bank.ID != "default" || len(bank.Questions) != 1 || bank.Questions[0].CorrectLetter != "B" {
		t.Fatalf("unexpected bank: %+v", bank)
	}

	arr := []byte(`[{"question":"Q1","category":"C","options":["a","b"],"correct_answer_letter":"A"},{"question":"","options":[]}]`)
	bank, err = DecodeQuestionBank(arr)
	if err != nil {
		t.Fatalf("decode array: %v", err)
	}
	if len(bank.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(bank.Questions))
	}
	if got := len(bank.EligibleQuestions()); got != 1 {
		t.Fatalf("expected 1 eligible question, got %d", got)
	}

	if _, err := DecodeQuestionBank([]byte(`"nope"`)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
