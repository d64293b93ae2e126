package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Content: json.RawMessage(`{"hint":"ok"}`)},
	)
	resp, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"hint":"ok"}` || mock.CallCount() != 2 {
		t.Fatalf("expected success on second call, got %s after %d calls", resp.Content, mock.CallCount())
	}
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
		MockResponse{Content: json.RawMessage(`{}`)},
	)
	_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if mock.CallCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestRetryInvalidResponseOnlyOnce(t *testing.T) {
	invalid := &ErrInvalidResponse{Err: errors.New("bad")}
	mock := NewMockProvider(MockResponse{Err: invalid}, MockResponse{Err: invalid}, MockResponse{Err: invalid})
	_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
	if !errors.Is(err, invalid) {
		t.Fatalf("expected invalid response error, got %v", err)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: context.Canceled})
	_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
	if !errors.Is(err, context.Canceled) || mock.CallCount() != 1 {
		t.Fatalf("expected single cancelled call, got %v after %d calls", err, mock.CallCount())
	}
}
