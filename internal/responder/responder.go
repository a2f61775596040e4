// Package responder turns a spoken command into a spoken reply.
//
// The responder owns the conversation history and the knowledge-grounded
// system prompt. Process is its single entry point: fetch knowledge, build the
// prompt, call the LLM, and map any failure to a polite spoken apology. It
// never returns an error — whatever happens, the caller gets text it can hand
// to the speech output.
//
// The responder is not safe for concurrent use; the session coordinator calls
// Process from its single event loop.
package responder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sonant-dev/sonant/pkg/knowledge"
	"github.com/sonant-dev/sonant/pkg/provider/llm"
	"github.com/sonant-dev/sonant/pkg/types"
)

// Spoken apologies for LLM failures mapped by HTTP status class.
const (
	apologyAuth      = "I'm sorry, I can't reach my language service right now. My credentials seem to be invalid."
	apologyRateLimit = "I'm sorry, I'm being rate limited right now. Please try again in a moment."
	apologyGeneric   = "I'm sorry, something went wrong: %s"
)

const (
	defaultMaxHistory     = 10
	defaultKnowledgeLimit = 20
)

// Option is a functional option for Responder.
type Option func(*Responder)

// WithMaxHistory sets the number of conversation turns retained. One turn is a
// user message plus the assistant reply, so the message list is capped at
// 2×n. Default: 10 turns.
func WithMaxHistory(n int) Option {
	return func(r *Responder) {
		if n > 0 {
			r.maxHistory = n
		}
	}
}

// WithKnowledgeLimit caps how many knowledge entries are injected into the
// system prompt. Default: 20.
func WithKnowledgeLimit(n int) Option {
	return func(r *Responder) {
		if n > 0 {
			r.knowledgeLimit = n
		}
	}
}

// WithPersona sets the persona paragraph at the top of the system prompt.
func WithPersona(persona string) Option {
	return func(r *Responder) {
		r.persona = persona
	}
}

// WithTemperature sets the sampling temperature for completions.
func WithTemperature(t float64) Option {
	return func(r *Responder) {
		r.temperature = t
	}
}

// WithMaxTokens caps completion length. Zero uses the provider default.
func WithMaxTokens(n int) Option {
	return func(r *Responder) {
		r.maxTokens = n
	}
}

// WithRequestTimeout bounds each LLM call. Zero (the default) disables the
// per-request deadline and relies on the caller's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(r *Responder) {
		r.requestTimeout = d
	}
}

// Responder generates assistant replies for user commands.
type Responder struct {
	llm    llm.Provider
	store  knowledge.Store
	logger *slog.Logger

	persona        string
	maxHistory     int
	knowledgeLimit int
	temperature    float64
	maxTokens      int
	requestTimeout time.Duration

	history []types.Message
}

// New constructs a Responder. store may be nil, in which case the system
// prompt carries no knowledge section.
func New(provider llm.Provider, store knowledge.Store, logger *slog.Logger, opts ...Option) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Responder{
		llm:            provider,
		store:          store,
		logger:         logger,
		persona:        defaultPersona,
		maxHistory:     defaultMaxHistory,
		knowledgeLimit: defaultKnowledgeLimit,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Process generates a reply for command. It never returns an error: LLM
// failures are mapped to spoken apologies, and a knowledge store failure
// degrades to an un-grounded prompt.
func (r *Responder) Process(ctx context.Context, command string) string {
	entries := r.fetchKnowledge(ctx)
	systemPrompt := buildSystemPrompt(r.persona, entries)

	r.history = append(r.history, types.Message{Role: types.RoleUser, Content: command})

	reqCtx := ctx
	if r.requestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, r.requestTimeout)
		defer cancel()
	}

	var (
		resp *llm.CompletionResponse
		err  error
	)
	if r.llm != nil {
		resp, err = r.llm.Complete(reqCtx, llm.CompletionRequest{
			Messages:     r.history,
			SystemPrompt: systemPrompt,
			Temperature:  r.temperature,
			MaxTokens:    r.maxTokens,
		})
	}

	var reply string
	switch {
	case r.llm == nil:
		reply = fmt.Sprintf(apologyGeneric, "no language model is configured")
		r.logger.Error("no llm provider configured")
	case err != nil:
		reply = apologyFor(err)
		r.logger.Error("completion failed", "error", err, "status", llm.StatusOf(err))
	case resp == nil || resp.Content == "":
		reply = fmt.Sprintf(apologyGeneric, "the model returned an empty response")
		r.logger.Error("completion returned no content")
	default:
		reply = resp.Content
		r.logger.Debug("completion ok",
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens)
	}

	r.history = append(r.history, types.Message{Role: types.RoleAssistant, Content: reply})
	r.evictHistory()
	return reply
}

// History returns a copy of the retained conversation messages.
func (r *Responder) History() []types.Message {
	out := make([]types.Message, len(r.history))
	copy(out, r.history)
	return out
}

// Reset discards the conversation history.
func (r *Responder) Reset() {
	r.history = nil
}

// fetchKnowledge loads active knowledge entries. Store failures are logged and
// swallowed so a broken database never blocks a reply.
func (r *Responder) fetchKnowledge(ctx context.Context) []types.KnowledgeEntry {
	if r.store == nil {
		return nil
	}
	entries, err := r.store.FetchActive(ctx, r.knowledgeLimit)
	if err != nil {
		r.logger.Warn("knowledge fetch failed, answering without grounding", "error", err)
		return nil
	}
	return entries
}

// evictHistory drops the oldest turns once the message list exceeds
// 2×maxHistory, always removing user/assistant pairs together.
func (r *Responder) evictHistory() {
	max := r.maxHistory * 2
	if len(r.history) <= max {
		return
	}
	excess := len(r.history) - max
	if excess%2 != 0 {
		excess++
	}
	r.history = append(r.history[:0], r.history[excess:]...)
}

// apologyFor maps an LLM error to a spoken apology.
func apologyFor(err error) string {
	switch llm.StatusOf(err) {
	case 401, 403:
		return apologyAuth
	case 429:
		return apologyRateLimit
	default:
		return fmt.Sprintf(apologyGeneric, err.Error())
	}
}
