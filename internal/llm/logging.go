package llm

import (
	"context"
	"log"
	"time"
)

// LoggingProvider logs latency, token usage and failures of every oracle call.
type LoggingProvider struct {
	inner Provider
}

func WithLogging(p Provider) Provider {
	return &LoggingProvider{inner: p}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		log.Printf("llm: model=%s latency=%dms error=%v", l.inner.ModelID(), elapsed, err)
		return nil, err
	}
	log.Printf("llm: model=%s latency=%dms tokens_in=%d tokens_out=%d stop=%s",
		resp.Model, elapsed, resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.StopReason)
	return resp, nil
}

func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }
