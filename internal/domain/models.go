package domain

import (
	"strings"
	"time"
)

// Question is a single multiple-choice item from the question bank.
// Options are addressed by letter: the first option is "A", the second "B", and so on.
type Question struct {
	Text          string   `json:"question"`
	Category      string   `json:"category"`
	Options       []string `json:"options"`
	CorrectLetter string   `json:"correct_answer_letter"`
}

// Eligible reports whether the question may be served in a session.
func (q Question) Eligible() bool {
	return strings.TrimSpace(q.Text) != "" && len(q.Options) > 0
}

// HasOption reports whether letter addresses one of the question's options.
func (q Question) HasOption(letter string) bool {
	_, ok := q.OptionText(letter)
	return ok
}

// OptionText returns the option addressed by letter.
func (q Question) OptionText(letter string) (string, bool) {
	idx := LetterIndex(letter)
	if idx < 0 || idx >= len(q.Options) {
		return "", false
	}
	return q.Options[idx], true
}

// LetterIndex converts "A".."Z" to 0..25. Anything else yields -1.
func LetterIndex(letter string) int {
	if len(letter) != 1 {
		return -1
	}
	c := letter[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return -1
	}
	return int(c - 'A')
}

// NormalizeLetter upper-cases a single option letter.
func NormalizeLetter(letter string) string {
	return strings.ToUpper(strings.TrimSpace(letter))
}

// QuestionBank is a named, ordered collection of questions.
type QuestionBank struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// EligibleQuestions returns the questions that can be served, in bank order.
func (b QuestionBank) EligibleQuestions() []Question {
	out := make([]Question, 0, len(b.Questions))
	for _, q := range b.Questions {
		if q.Eligible() {
			out = append(out, q)
		}
	}
	return out
}

// Applicant identifies the test-taker.
type Applicant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Intake holds the fields collected before a session may start.
type Intake struct {
	Applicant      Applicant  `json:"applicant"`
	Branch         string     `json:"branch"`
	SelfDeclared   SkillLevel `json:"selfDeclaredLevel"`
	QuestionBankID string     `json:"questionBankId,omitempty"`
}

// BreakdownEntry describes how one question was answered.
type BreakdownEntry struct {
	QuestionText string `json:"question"`
	Category     string `json:"category"`
	ChosenLabel  string `json:"userAnswer"`
	CorrectLabel string `json:"correctAnswer"`
	IsCorrect    bool   `json:"isCorrect"`
	Answered     bool   `json:"answered"`
}

// Result is the scored outcome of a finalized attempt. It is never mutated after scoring.
type Result struct {
	Applicant         Applicant        `json:"applicant"`
	Branch            string           `json:"branch"`
	RawCorrectCount   int              `json:"rawCorrectCount"`
	TotalQuestions    int              `json:"totalQuestions"`
	HintPenalty       int              `json:"hintPenalty"`
	AdjustedScore     int              `json:"adjustedScore"`
	Percentage        int              `json:"percentage"`
	MeasuredLevel     SkillLevel       `json:"measuredLevel"`
	SelfDeclaredLevel SkillLevel       `json:"selfDeclaredLevel"`
	Verdict           Verdict          `json:"assessmentVerdict"`
	Passed            bool             `json:"passed"`
	Breakdown         []BreakdownEntry `json:"perQuestionBreakdown"`
	Answers           map[int]string   `json:"answers,omitempty"`
	HintsConsumed     int              `json:"hintsConsumed"`
	QuestionBankID    string           `json:"questionBankId,omitempty"`
	Timestamp         time.Time        `json:"timestamp"`
}

// StoredResult is a Result after it has been written to the durable store.
type StoredResult struct {
	RecordID  string    `json:"id"`
	Result    Result    `json:"result"`
	CreatedAt time.Time `json:"createdAt"`
}

// DeliveryStatus is the outcome of one notification send.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// DeliveryAttempt records a single recipient's notification outcome.
type DeliveryAttempt struct {
	RecordID    string         `json:"recordId"`
	Recipient   string         `json:"recipient"`
	Status      DeliveryStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	AttemptedAt time.Time      `json:"attemptedAt"`
}

// Certificate is a rendered completion artifact for a passing result.
type Certificate struct {
	Serial      string `json:"serial"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"-"`
}
