package responder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	knowledgemock "github.com/sonant-dev/sonant/pkg/knowledge/mock"
	"github.com/sonant-dev/sonant/pkg/provider/llm"
	llmmock "github.com/sonant-dev/sonant/pkg/provider/llm/mock"
	"github.com/sonant-dev/sonant/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ─── happy path ──────────────────────────────────────────────────────────────

func TestProcessReturnsCompletion(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "It is noon."},
	}
	r := New(provider, nil, discardLogger())

	got := r.Process(context.Background(), "what time is it")
	if got != "It is noon." {
		t.Errorf("Process() = %q, want %q", got, "It is noon.")
	}

	if len(provider.CompleteCalls) != 1 {
		t.Fatalf("Complete called %d times, want 1", len(provider.CompleteCalls))
	}
	req := provider.CompleteCalls[0].Req
	if len(req.Messages) != 1 || req.Messages[0].Content != "what time is it" {
		t.Errorf("unexpected request messages: %+v", req.Messages)
	}
	if req.Messages[0].Role != types.RoleUser {
		t.Errorf("message role = %q, want user", req.Messages[0].Role)
	}
}

func TestProcessAppendsHistory(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "reply"},
	}
	r := New(provider, nil, discardLogger())

	r.Process(context.Background(), "first")
	r.Process(context.Background(), "second")

	hist := r.History()
	if len(hist) != 4 {
		t.Fatalf("history length = %d, want 4", len(hist))
	}
	wantRoles := []string{types.RoleUser, types.RoleAssistant, types.RoleUser, types.RoleAssistant}
	for i, m := range hist {
		if m.Role != wantRoles[i] {
			t.Errorf("history[%d].Role = %q, want %q", i, m.Role, wantRoles[i])
		}
	}

	// The second request must carry the first exchange.
	second := provider.CompleteCalls[1].Req
	if len(second.Messages) != 3 {
		t.Errorf("second request carried %d messages, want 3", len(second.Messages))
	}
}

// ─── knowledge grounding ─────────────────────────────────────────────────────

func TestProcessInjectsKnowledge(t *testing.T) {
	t.Parallel()

	store := &knowledgemock.Store{
		Entries: []types.KnowledgeEntry{
			{ID: "k1", Title: "House rules", Content: "Quiet hours start at 22:00.", Active: true},
		},
	}
	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "ok"},
	}
	r := New(provider, store, discardLogger())

	r.Process(context.Background(), "when are quiet hours")

	req := provider.CompleteCalls[0].Req
	if !strings.Contains(req.SystemPrompt, "Quiet hours start at 22:00.") {
		t.Errorf("system prompt missing knowledge entry: %q", req.SystemPrompt)
	}
	if !strings.Contains(req.SystemPrompt, "House rules") {
		t.Errorf("system prompt missing entry title: %q", req.SystemPrompt)
	}
	if len(store.FetchCalls) != 1 {
		t.Errorf("FetchActive called %d times, want 1", len(store.FetchCalls))
	}
}

func TestProcessContinuesWhenKnowledgeFails(t *testing.T) {
	t.Parallel()

	store := &knowledgemock.Store{FetchErr: errors.New("connection refused")}
	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "still works"},
	}
	r := New(provider, store, discardLogger())

	got := r.Process(context.Background(), "hello there")
	if got != "still works" {
		t.Errorf("Process() = %q, want completion despite knowledge failure", got)
	}
	if len(provider.CompleteCalls) != 1 {
		t.Error("LLM should still be called when knowledge fetch fails")
	}
}

func TestProcessEmptyKnowledgeOmitsSection(t *testing.T) {
	t.Parallel()

	store := &knowledgemock.Store{}
	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "ok"},
	}
	r := New(provider, store, discardLogger())

	r.Process(context.Background(), "hi")

	req := provider.CompleteCalls[0].Req
	if strings.Contains(req.SystemPrompt, "local knowledge") {
		t.Errorf("empty store should omit knowledge section: %q", req.SystemPrompt)
	}
}

// ─── error mapping ───────────────────────────────────────────────────────────

func TestProcessMapsAuthError(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		CompleteErr: &llm.APIError{Status: 401, Message: "invalid key"},
	}
	r := New(provider, nil, discardLogger())

	got := r.Process(context.Background(), "hello world")
	if got != apologyAuth {
		t.Errorf("Process() = %q, want auth apology", got)
	}
}

func TestProcessMapsForbiddenAsAuth(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		CompleteErr: &llm.APIError{Status: 403, Message: "forbidden"},
	}
	r := New(provider, nil, discardLogger())

	if got := r.Process(context.Background(), "hello world"); got != apologyAuth {
		t.Errorf("Process() = %q, want auth apology", got)
	}
}

func TestProcessMapsRateLimitError(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		CompleteErr: &llm.APIError{Status: 429, Message: "slow down"},
	}
	r := New(provider, nil, discardLogger())

	if got := r.Process(context.Background(), "hello world"); got != apologyRateLimit {
		t.Errorf("Process() = %q, want rate-limit apology", got)
	}
}

func TestProcessMapsGenericError(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		CompleteErr: errors.New("connection reset by peer"),
	}
	r := New(provider, nil, discardLogger())

	got := r.Process(context.Background(), "hello world")
	if !strings.Contains(got, "connection reset by peer") {
		t.Errorf("generic apology should carry the error message, got %q", got)
	}
	if !strings.HasPrefix(got, "I'm sorry") {
		t.Errorf("apology should start with an apology, got %q", got)
	}
}

func TestProcessMapsTextualRateLimit(t *testing.T) {
	t.Parallel()

	// Opaque SDK errors are classified by text scan.
	provider := &llmmock.Provider{
		CompleteErr: errors.New("upstream returned 429 Too Many Requests"),
	}
	r := New(provider, nil, discardLogger())

	if got := r.Process(context.Background(), "hello world"); got != apologyRateLimit {
		t.Errorf("Process() = %q, want rate-limit apology", got)
	}
}

func TestProcessEmptyCompletion(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: ""},
	}
	r := New(provider, nil, discardLogger())

	got := r.Process(context.Background(), "hello world")
	if !strings.HasPrefix(got, "I'm sorry") {
		t.Errorf("empty completion should produce an apology, got %q", got)
	}
}

func TestApologiesRecordedInHistory(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		CompleteErr: &llm.APIError{Status: 429, Message: "slow down"},
	}
	r := New(provider, nil, discardLogger())
	r.Process(context.Background(), "hello world")

	hist := r.History()
	if len(hist) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist))
	}
	if hist[1].Role != types.RoleAssistant || hist[1].Content != apologyRateLimit {
		t.Errorf("apology not recorded as assistant turn: %+v", hist[1])
	}
}

// ─── history eviction ────────────────────────────────────────────────────────

func TestHistoryEviction(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "r"},
	}
	r := New(provider, nil, discardLogger(), WithMaxHistory(2))

	for _, cmd := range []string{"one", "two", "three", "four"} {
		r.Process(context.Background(), cmd)
	}

	hist := r.History()
	if len(hist) != 4 {
		t.Fatalf("history length = %d, want 4 (2 turns × 2 messages)", len(hist))
	}
	// Oldest turns evicted; "three" and "four" survive.
	if hist[0].Content != "three" {
		t.Errorf("oldest retained message = %q, want %q", hist[0].Content, "three")
	}
	if hist[2].Content != "four" {
		t.Errorf("hist[2] = %q, want %q", hist[2].Content, "four")
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "r"},
	}
	r := New(provider, nil, discardLogger())
	r.Process(context.Background(), "hello")

	r.Reset()
	if got := len(r.History()); got != 0 {
		t.Errorf("history after Reset = %d messages, want 0", got)
	}
}
