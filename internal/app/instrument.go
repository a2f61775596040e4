package app

import (
	"context"
	"errors"
	"time"

	"github.com/sonant-dev/sonant/internal/observe"
	"github.com/sonant-dev/sonant/pkg/provider/llm"
	"github.com/sonant-dev/sonant/pkg/provider/tts"
	"github.com/sonant-dev/sonant/pkg/types"
)

// instrumentedLLM wraps an LLM provider with latency and error metrics.
type instrumentedLLM struct {
	inner   llm.Provider
	metrics *observe.Metrics
}

var _ llm.Provider = (*instrumentedLLM)(nil)

func (p *instrumentedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := p.inner.Complete(ctx, req)
	p.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordResponderError(ctx, errorClass(err))
	}
	return resp, err
}

func (p *instrumentedLLM) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	start := time.Now()
	ch, err := p.inner.StreamCompletion(ctx, req)
	if err != nil {
		p.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
		p.metrics.RecordResponderError(ctx, errorClass(err))
		return nil, err
	}

	out := make(chan llm.Chunk)
	go func() {
		defer close(out)
		for chunk := range ch {
			out <- chunk
		}
		p.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	}()
	return out, nil
}

func (p *instrumentedLLM) CountTokens(messages []types.Message) (int, error) {
	return p.inner.CountTokens(messages)
}

func (p *instrumentedLLM) Capabilities() llm.ModelCapabilities {
	return p.inner.Capabilities()
}

// errorClass buckets an LLM error for the responder error counter.
func errorClass(err error) string {
	switch llm.StatusOf(err) {
	case 401, 403:
		return "auth"
	case 429:
		return "rate_limit"
	default:
		return "other"
	}
}

// instrumentedTTS wraps a speech output with latency and drop metrics.
type instrumentedTTS struct {
	inner   tts.Provider
	metrics *observe.Metrics
}

var _ tts.Provider = (*instrumentedTTS)(nil)

func (p *instrumentedTTS) Speak(ctx context.Context, text string) error {
	start := time.Now()
	err := p.inner.Speak(ctx, text)
	if errors.Is(err, tts.ErrBusy) {
		p.metrics.DroppedUtterances.Add(ctx, 1)
		return err
	}
	p.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	return err
}
