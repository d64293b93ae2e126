package scoring

import (
	"fmt"

	"applicant-assessment-service/internal/domain"
)

// Replay recomputes a stored result from its recorded answers and hint usage against
// a snapshot of the question bank. The returned mismatches list every numeric field
// that differs; an empty list means the stored result is reproducible.
func Replay(cfg Config, stored domain.Result, questions []domain.Question) (domain.Result, []string) {
	replayed := Score(cfg, Input{
		Questions:      questions,
		Answers:        stored.Answers,
		HintsConsumed:  stored.HintsConsumed,
		SelfDeclared:   stored.SelfDeclaredLevel,
		Applicant:      stored.Applicant,
		Branch:         stored.Branch,
		QuestionBankID: stored.QuestionBankID,
		Timestamp:      stored.Timestamp,
	})
	return replayed, Diff(stored, replayed)
}

// Diff compares the scored fields of two results.
func Diff(a, b domain.Result) []string {
	var out []string
	check := func(field string, x, y any) {
		if x != y {
			out = append(out, fmt.Sprintf("%s: %v != %v", field, x, y))
		}
	}
	check("rawCorrectCount", a.RawCorrectCount, b.RawCorrectCount)
	check("totalQuestions", a.TotalQuestions, b.TotalQuestions)
	check("hintPenalty", a.HintPenalty, b.HintPenalty)
	check("adjustedScore", a.AdjustedScore, b.AdjustedScore)
	check("percentage", a.Percentage, b.Percentage)
	check("measuredLevel", a.MeasuredLevel, b.MeasuredLevel)
	check("assessmentVerdict", a.Verdict, b.Verdict)
	check("passed", a.Passed, b.Passed)
	return out
}
