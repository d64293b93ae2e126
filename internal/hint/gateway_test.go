package hint

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applicant-assessment-service/internal/domain"
	"applicant-assessment-service/internal/llm"
)

var question = domain.Question{
	Text:          "What does an AVR regulate?",
	Category:      "Electrical",
	Options:       []string{"Fuel flow", "Output voltage", "Coolant temperature"},
	CorrectLetter: "B",
}

func TestLifelineReturnsBoundedHint(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"hint":"Think about what the alternator produces."}`)})
	g := NewGateway(mock, 0)

	text, err := g.Lifeline(context.Background(), "", question)
	require.NoError(t, err)
	assert.Equal(t, "Think about what the alternator produces.", text)

	require.Equal(t, 1, mock.CallCount())
	call := mock.Calls[0]
	assert.Equal(t, MaxTokens, call.MaxTokens)
	require.NotNil(t, call.Schema)
	assert.Contains(t, call.System, "NEVER give direct answers")
	assert.Contains(t, call.Messages[0].Content, DefaultAsk)
	assert.Contains(t, call.Messages[0].Content, "B. Output voltage")
}

func TestExplainMentionsCorrectAnswer(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"hint":"The AVR keeps voltage steady."}`)})
	g := NewGateway(mock, 0)

	text, err := g.Explain(context.Background(), question, "a")
	require.NoError(t, err)
	assert.Equal(t, "The AVR keeps voltage steady.", text)
	assert.Contains(t, mock.Calls[0].Messages[0].Content, `"B. Output voltage"`)
	assert.Contains(t, mock.Calls[0].Messages[0].Content, `"A. Fuel flow"`)
}

func TestUnconfiguredGatewayMakesNoCall(t *testing.T) {
	g := NewGateway(nil, 0)
	assert.False(t, g.Configured())

	text, err := g.Ask(context.Background(), "help", "")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, UnavailableText, text)
}

func TestOracleFailureFallsBack(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("boom")}})
	g := NewGateway(mock, 0)

	text, err := g.Lifeline(context.Background(), "why?", question)
	assert.ErrorIs(t, err, ErrOracleFailed)
	assert.Equal(t, FallbackText, text)
}

func TestEmptyHintCountsAsFailure(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"hint":"   "}`)})
	_, err := NewGateway(mock, 0).Ask(context.Background(), "why?", "q")
	assert.ErrorIs(t, err, ErrOracleFailed)
}

func TestBoundCapsWordsAndRunes(t *testing.T) {
	long := strings.Repeat("word ", MaxWords+20)
	bounded := Bound(long)
	assert.Len(t, strings.Fields(bounded), MaxWords)

	huge := strings.Repeat("x", MaxAnswerRunes*2)
	assert.Equal(t, MaxAnswerRunes, utf8.RuneCountInString(Bound(huge)))

	assert.Equal(t, "short", Bound("short"))
}
