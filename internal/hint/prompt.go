package hint

import (
	"fmt"
	"strings"

	"applicant-assessment-service/internal/domain"
)

const systemPrompt = "You are an AI assistant for a power generation technician knowledge test. " +
	"Provide helpful hints or explanations related to the test questions, but NEVER give direct answers " +
	"and never name the correct option letter. Encourage the applicant to think critically. " +
	"Keep responses concise and educational, at most %d words. " +
	`Reply only with a JSON object of the form {"hint": "<text>"}.`

// DefaultAsk is used when a lifeline is spent without a typed question.
const DefaultAsk = "Explain the concept related to this question."

func lifelinePrompt(ask string, q domain.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The applicant is on this test question: %q.\n", q.Text)
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "%c. %s\n", 'A'+i, opt)
	}
	fmt.Fprintf(&b, "They ask: %q.\n", ask)
	fmt.Fprintf(&b, "Provide a concise explanation (max %d words) without giving away the answer. "+
		"Focus on concepts or relevant background.", MaxWords)
	return b.String()
}

func explainPrompt(q domain.Question, chosen string) string {
	correct := domain.NormalizeLetter(q.CorrectLetter)
	correctText, _ := q.OptionText(correct)
	chosenText, _ := q.OptionText(chosen)
	return fmt.Sprintf("The applicant answered %q with %q. The correct answer was %q. "+
		"Explain why the correct answer is correct in a concise and educational manner "+
		"(max %d words), without being condescending.",
		q.Text, chosen+". "+chosenText, correct+". "+correctText, MaxWords)
}

func askPrompt(ask, currentQuestion string) string {
	if strings.TrimSpace(currentQuestion) == "" {
		return fmt.Sprintf("The applicant asks: %q. Provide a hint or explanation without giving a direct answer.", ask)
	}
	return fmt.Sprintf("The current test question is: %q. The applicant asks: %q. "+
		"Provide a hint or explanation without giving the direct answer.", currentQuestion, ask)
}
