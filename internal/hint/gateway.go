// Package hint bounds every request to the reasoning oracle: fixed prompts,
// a structured {"hint": ...} reply, and a capped answer length.
package hint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"applicant-assessment-service/internal/domain"
	"applicant-assessment-service/internal/llm"
)

const (
	MaxWords       = 150
	MaxTokens      = 200
	MaxAnswerRunes = 1200

	// UnavailableText is shown when no oracle credential is configured.
	UnavailableText = "AI help is not configured."
	// FallbackText is shown when the oracle call fails.
	FallbackText = "Sorry, help is unavailable right now. Please try again later."
)

var (
	// ErrUnavailable means no call was attempted.
	ErrUnavailable = errors.New("hint gateway not configured")
	// ErrOracleFailed means a call was attempted and failed.
	ErrOracleFailed = errors.New("hint oracle failed")
)

var hintSchema = &llm.Schema{
	Name:        "assessment-hint",
	Description: "A short hint or explanation for a test question.",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"hint": map[string]any{"type": "string", "description": "The hint text."},
		},
		"required":             []string{"hint"},
		"additionalProperties": false,
	},
}

// Gateway is safe for concurrent use. A nil provider makes it permanently unavailable.
type Gateway struct {
	provider llm.Provider
	timeout  time.Duration
}

func NewGateway(provider llm.Provider, timeout time.Duration) *Gateway {
	return &Gateway{provider: provider, timeout: timeout}
}

// Configured reports whether an oracle is wired in.
func (g *Gateway) Configured() bool {
	return g != nil && g.provider != nil
}

// Lifeline answers an applicant's question about the current test question.
// On error the returned text is still suitable for display.
func (g *Gateway) Lifeline(ctx context.Context, ask string, q domain.Question) (string, error) {
	if strings.TrimSpace(ask) == "" {
		ask = DefaultAsk
	}
	return g.generate(ctx, lifelinePrompt(ask, q))
}

// Explain says why the correct answer is correct for a question the applicant answered.
func (g *Gateway) Explain(ctx context.Context, q domain.Question, chosen string) (string, error) {
	return g.generate(ctx, explainPrompt(q, domain.NormalizeLetter(chosen)))
}

// Ask serves the free-form help endpoint.
func (g *Gateway) Ask(ctx context.Context, ask, currentQuestion string) (string, error) {
	return g.generate(ctx, askPrompt(ask, currentQuestion))
}

func (g *Gateway) generate(ctx context.Context, prompt string) (string, error) {
	if !g.Configured() {
		return UnavailableText, ErrUnavailable
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.provider.Generate(ctx, llm.Request{
		System:    fmt.Sprintf(systemPrompt, MaxWords),
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Schema:    hintSchema,
		MaxTokens: MaxTokens,
	})
	if err != nil {
		log.Printf("hint: oracle call failed: %v", err)
		return FallbackText, fmt.Errorf("%w: %v", ErrOracleFailed, err)
	}

	text := strings.TrimSpace(gjson.GetBytes(resp.Content, "hint").String())
	if text == "" {
		log.Printf("hint: oracle returned empty hint")
		return FallbackText, fmt.Errorf("%w: empty hint", ErrOracleFailed)
	}
	return Bound(text), nil
}

// Bound trims text to MaxWords words and MaxAnswerRunes runes.
func Bound(text string) string {
	words := strings.Fields(text)
	if len(words) > MaxWords {
		text = strings.Join(words[:MaxWords], " ") + "..."
	}
	if utf8.RuneCountInString(text) > MaxAnswerRunes {
		runes := []rune(text)
		text = string(runes[:MaxAnswerRunes-3]) + "..."
	}
	return text
}
