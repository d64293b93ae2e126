package domain

import (
	"encoding/json"
	"fmt"
)

// DecodeQuestionBank accepts either a bank object or a bare array of questions.
func DecodeQuestionBank(raw []byte) (QuestionBank, error) {
	var bank QuestionBank
	if err := json.Unmarshal(raw, &bank); err == nil {
		return bank, nil
	}
	var questions []Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return QuestionBank{}, fmt.Errorf("%w: decode question bank: %v", ErrValidation, err)
	}
	return QuestionBank{Questions: questions}, nil
}
