package scoring

import (
	"fmt"
	"time"

	"applicant-assessment-service/internal/domain"
)

const (
	// DefaultPassThreshold gates certificate eligibility independently of the ladder.
	DefaultPassThreshold = 70
	// NoAnswerLabel stands in for the chosen answer of a skipped question.
	NoAnswerLabel = "No Answer"
)

// Config selects the active classification scheme.
type Config struct {
	Ladder        Ladder
	PassThreshold int
}

// DefaultConfig returns the canonical ladder and the 70% pass bar.
func DefaultConfig() Config {
	return Config{Ladder: DefaultLadder(), PassThreshold: DefaultPassThreshold}
}

// Input is everything scoring needs. It is a frozen view of a session.
type Input struct {
	Questions      []domain.Question
	Answers        map[int]string
	HintsConsumed  int
	SelfDeclared   domain.SkillLevel
	Applicant      domain.Applicant
	Branch         string
	QuestionBankID string
	Timestamp      time.Time
}

// Score computes the Result for a frozen attempt. It holds no state and is safe to
// replay against a stored attempt and a snapshot of the same question bank.
func Score(cfg Config, in Input) domain.Result {
	total := len(in.Questions)
	answers := make(map[int]string, len(in.Answers))
	breakdown := make([]domain.BreakdownEntry, total)
	raw := 0

	for i, q := range in.Questions {
		chosen, answered := in.Answers[i]
		chosen = domain.NormalizeLetter(chosen)
		answered = answered && chosen != ""
		correct := answered && chosen == domain.NormalizeLetter(q.CorrectLetter)
		if correct {
			raw++
		}
		if answered {
			answers[i] = chosen
		}

		entry := domain.BreakdownEntry{
			QuestionText: q.Text,
			Category:     q.Category,
			ChosenLabel:  NoAnswerLabel,
			CorrectLabel: optionLabel(q, q.CorrectLetter),
			IsCorrect:    correct,
			Answered:     answered,
		}
		if answered {
			entry.ChosenLabel = optionLabel(q, chosen)
		}
		breakdown[i] = entry
	}

	penalty := in.HintsConsumed
	if penalty < 0 {
		penalty = 0
	}
	adjusted := raw - penalty
	if adjusted < 0 {
		adjusted = 0
	}
	pct := Percentage(adjusted, total)
	measured := cfg.Ladder.Classify(pct)

	return domain.Result{
		Applicant:         in.Applicant,
		Branch:            in.Branch,
		RawCorrectCount:   raw,
		TotalQuestions:    total,
		HintPenalty:       penalty,
		AdjustedScore:     adjusted,
		Percentage:        pct,
		MeasuredLevel:     measured,
		SelfDeclaredLevel: in.SelfDeclared,
		Verdict:           domain.CompareLevels(in.SelfDeclared, measured),
		Passed:            pct >= cfg.PassThreshold,
		Breakdown:         breakdown,
		Answers:           answers,
		HintsConsumed:     penalty,
		QuestionBankID:    in.QuestionBankID,
		Timestamp:         in.Timestamp,
	}
}

// Percentage rounds adjusted/total*100 half-up using integer arithmetic.
func Percentage(adjusted, total int) int {
	if total <= 0 {
		return 0
	}
	if adjusted < 0 {
		adjusted = 0
	}
	return clamp((adjusted*200+total)/(2*total), 0, 100)
}

func optionLabel(q domain.Question, letter string) string {
	letter = domain.NormalizeLetter(letter)
	text, ok := q.OptionText(letter)
	if !ok {
		return letter
	}
	return fmt.Sprintf("%s. %s", letter, text)
}
