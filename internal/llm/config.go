package llm

import (
	"fmt"
	"os"
	"time"
)

const (
	ProviderAuto      = ""
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// Config selects and configures the oracle. An empty Provider picks the first
// backend that has a key, probing OpenAI, Anthropic, then Gemini.
type Config struct {
	Provider  string
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Gemini    GeminiConfig
	Retry     RetryConfig
	Timeout   time.Duration
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

// RetryConfig configures backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func DefaultConfig() Config {
	return Config{
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini"},
		Anthropic: AnthropicConfig{Model: "claude-haiku"},
		Gemini:    GeminiConfig{Model: "gemini-flash"},
		Retry: RetryConfig{
			MaxAttempts: 2,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     4 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 20 * time.Second,
	}
}

// ApplyEnv fills API keys from the standard environment variables when set.
func (c *Config) ApplyEnv() {
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		c.OpenAI.APIKey = k
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		c.Anthropic.APIKey = k
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		c.Gemini.APIKey = k
	}
}

// Resolved returns the backend NewProvider would build, or "" when no key is set.
func (c Config) Resolved() string {
	switch c.Provider {
	case ProviderAuto:
		switch {
		case c.OpenAI.APIKey != "":
			return ProviderOpenAI
		case c.Anthropic.APIKey != "":
			return ProviderAnthropic
		case c.Gemini.APIKey != "":
			return ProviderGemini
		}
		return ""
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return ""
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return ""
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return ""
		}
	}
	return c.Provider
}

// Validate rejects unknown provider names. A missing key is not an error:
// the hint gateway reports itself unavailable instead.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAuto, ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderMock:
	default:
		return fmt.Errorf("unknown llm provider %q", c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("llm retry attempts must be at least 1")
	}
	return nil
}
