package llm

import (
	"context"
	"errors"
	"testing"
)

func TestNewProviderWithoutKeyIsNotConfigured(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := NewProvider(context.Background(), cfg); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	cfg.Provider = ProviderAnthropic
	cfg.OpenAI.APIKey = "sk-openai"
	if _, err := NewProvider(context.Background(), cfg); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected explicit provider without key to be unconfigured, got %v", err)
	}
}

func TestConfigResolvedChecksKeysInOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gemini.APIKey = "g"
	cfg.Anthropic.APIKey = "a"
	if got := cfg.Resolved(); got != ProviderAnthropic {
		t.Fatalf("expected anthropic, got %q", got)
	}
	cfg.OpenAI.APIKey = "o"
	if got := cfg.Resolved(); got != ProviderOpenAI {
		t.Fatalf("expected openai, got %q", got)
	}
}

func TestNewProviderWrapsOpenAI(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OpenAI.APIKey = "sk-test"
	p, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*RetryProvider); !ok {
		t.Fatalf("expected retry wrapper, got %T", p)
	}
	if p.ModelID() != "gpt-4o-mini" {
		t.Fatalf("unexpected model %q", p.ModelID())
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg.Provider = "cohere"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown provider to fail")
	}
}
