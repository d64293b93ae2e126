package llm

import (
	"context"
	"fmt"
)

// NewProvider builds the configured backend wrapped with logging and retry.
// It returns ErrNotConfigured when the selected backend has no API key.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	var (
		base Provider
		err  error
	)
	switch name := cfg.Resolved(); name {
	case "":
		return nil, ErrNotConfigured
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderMock:
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Resolved(), err)
	}
	return WithRetry(WithLogging(base), cfg.Retry), nil
}
