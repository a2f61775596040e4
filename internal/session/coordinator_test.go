package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sonant-dev/sonant/internal/wake"
	"github.com/sonant-dev/sonant/pkg/provider/tts"
	ttsmock "github.com/sonant-dev/sonant/pkg/provider/tts/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeResponder settles commands with a canned reply after an optional delay.
type fakeResponder struct {
	mu    sync.Mutex
	calls []string
	reply string
	delay time.Duration
}

func (f *fakeResponder) Process(ctx context.Context, command string) string {
	f.mu.Lock()
	f.calls = append(f.calls, command)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.reply
}

func (f *fakeResponder) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// newTestCoordinator wires a coordinator with fast timers and starts its loop.
// speaker may be nil to exercise the no-speech-output path.
func newTestCoordinator(t *testing.T, r Responder, speaker *ttsmock.Speaker, opts ...Option) *Coordinator {
	t.Helper()
	base := []Option{
		WithAwakeTimeout(time.Second),
		WithGraceDelay(10 * time.Millisecond),
	}
	var sp tts.Provider
	if speaker != nil {
		sp = speaker
	}
	c := New(r, sp, wake.New("hey sonant"), discardLogger(), append(base, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		c.Close()
		<-done
	})
	return c
}

func waitForState(t *testing.T, c *Coordinator, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v after %v", c.State(), want, timeout)
}

// ─── full round trip ─────────────────────────────────────────────────────────

func TestWakeCommandResponseRoundTrip(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "It is noon."}
	speaker := &ttsmock.Speaker{}
	c := newTestCoordinator(t, r, speaker)

	c.OnTranscript("hey sonant", true)
	waitForState(t, c, StateAwake, time.Second)

	c.OnTranscript("what time is it", true)
	waitForState(t, c, StateIdle, time.Second)

	if got := r.Calls(); len(got) != 1 || got[0] != "what time is it" {
		t.Errorf("responder calls = %v, want [what time is it]", got)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(speaker.SpokenTexts()) > 0 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	spoken := speaker.SpokenTexts()
	if len(spoken) != 1 || spoken[0] != "It is noon." {
		t.Errorf("spoken = %v, want [It is noon.]", spoken)
	}
}

func TestWakeAndCommandInOneBreath(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "ok"}
	c := newTestCoordinator(t, r, &ttsmock.Speaker{})

	c.OnTranscript("hey sonant, what time is it", true)

	// The command settles asynchronously; poll for the responder call rather
	// than for a state (Idle is also the starting state).
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(r.Calls()) > 0 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if got := r.Calls(); len(got) != 1 || got[0] != "what time is it" {
		t.Errorf("responder calls = %v, want [what time is it]", got)
	}
	waitForState(t, c, StateIdle, time.Second)
}

// ─── wake handling ───────────────────────────────────────────────────────────

func TestDoubleWakeSuppressed(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var transitions []State
	r := &fakeResponder{reply: "ok"}
	c := newTestCoordinator(t, r, &ttsmock.Speaker{},
		WithStateListener(func(from, to State) {
			mu.Lock()
			transitions = append(transitions, to)
			mu.Unlock()
		}))

	c.OnTranscript("hey sonant", true)
	waitForState(t, c, StateAwake, time.Second)
	c.OnTranscript("hey sonant", true)
	time.Sleep(50 * time.Millisecond)

	if c.State() != StateAwake {
		t.Errorf("state = %v, want Awake after second wake", c.State())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 1 || transitions[0] != StateAwake {
		t.Errorf("transitions = %v, want exactly one into Awake", transitions)
	}
}

func TestIdleIgnoresCommands(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "ok"}
	c := newTestCoordinator(t, r, &ttsmock.Speaker{})

	c.OnTranscript("what time is it", true)
	time.Sleep(50 * time.Millisecond)

	if got := r.Calls(); len(got) != 0 {
		t.Errorf("responder called %v while idle, want none", got)
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want Idle", c.State())
	}
}

// ─── awake timeout ───────────────────────────────────────────────────────────

func TestAwakeTimeoutReturnsToIdle(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "ok"}
	c := newTestCoordinator(t, r, &ttsmock.Speaker{}, WithAwakeTimeout(60*time.Millisecond))

	c.OnTranscript("hey sonant", true)
	waitForState(t, c, StateAwake, time.Second)
	waitForState(t, c, StateIdle, time.Second)

	if got := r.Calls(); len(got) != 0 {
		t.Errorf("responder called %v, want none", got)
	}
}

func TestShortUtteranceDoesNotResetTimer(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "ok"}
	c := newTestCoordinator(t, r, &ttsmock.Speaker{}, WithAwakeTimeout(150*time.Millisecond))

	c.OnTranscript("hey sonant", true)
	waitForState(t, c, StateAwake, time.Second)

	// A sub-minimum utterance mid-window must neither be processed nor push
	// the timeout back.
	time.Sleep(75 * time.Millisecond)
	c.OnTranscript("hi", true)

	waitForState(t, c, StateIdle, 150*time.Millisecond)
	if got := r.Calls(); len(got) != 0 {
		t.Errorf("responder called %v for short utterance, want none", got)
	}
}

// ─── processing ──────────────────────────────────────────────────────────────

func TestProcessingIgnoresFurtherTranscripts(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "ok", delay: 100 * time.Millisecond}
	c := newTestCoordinator(t, r, &ttsmock.Speaker{})

	c.OnTranscript("hey sonant", true)
	waitForState(t, c, StateAwake, time.Second)
	c.OnTranscript("first command", true)
	waitForState(t, c, StateProcessing, time.Second)

	c.OnTranscript("second command", true)
	c.OnTranscript("hey sonant", true)
	waitForState(t, c, StateIdle, time.Second)

	if got := r.Calls(); len(got) != 1 || got[0] != "first command" {
		t.Errorf("responder calls = %v, want only the first command", got)
	}
}

func TestPartialTranscriptsAreNotCommands(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "ok"}
	c := newTestCoordinator(t, r, &ttsmock.Speaker{})

	c.OnTranscript("hey sonant", true)
	waitForState(t, c, StateAwake, time.Second)

	c.OnTranscript("what time is", false)
	time.Sleep(50 * time.Millisecond)

	if got := r.Calls(); len(got) != 0 {
		t.Errorf("responder called %v for a partial, want none", got)
	}
	if c.State() != StateAwake {
		t.Errorf("state = %v, want Awake", c.State())
	}
}

func TestPartialTranscriptsDoNotWake(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "ok"}
	c := newTestCoordinator(t, r, &ttsmock.Speaker{})

	// Only final transcripts drive transitions; an interim hearing of the
	// phrase must not wake the session.
	c.OnTranscript("hey sonant", false)
	time.Sleep(50 * time.Millisecond)

	if c.State() != StateIdle {
		t.Errorf("state = %v after partial wake phrase, want Idle", c.State())
	}
}

func TestNilSpeakerStillSettlesCommand(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "ok"}
	c := newTestCoordinator(t, r, nil)

	c.OnTranscript("hey sonant, what time is it", true)
	waitForState(t, c, StateProcessing, time.Second)
	waitForState(t, c, StateIdle, time.Second)

	if got := r.Calls(); len(got) != 1 {
		t.Errorf("responder calls = %v, want exactly one", got)
	}
}

// ─── outgoing event stream ───────────────────────────────────────────────────

func TestEventStreamOrder(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "It is noon."}
	c := newTestCoordinator(t, r, &ttsmock.Speaker{})

	c.Post(Event{Kind: EventReady})
	c.OnTranscript("hey sonant, what time is it", true)

	var got []Event
	timeout := time.After(2 * time.Second)
	for len(got) < 4 {
		select {
		case ev := <-c.Events():
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("received %d events %v, want 4", len(got), got)
		}
	}

	wantKinds := []EventKind{EventReady, EventWake, EventCommand, EventResponse}
	for i, want := range wantKinds {
		if got[i].Kind != want {
			t.Errorf("event %d kind = %v, want %v", i, got[i].Kind, want)
		}
	}
	if got[2].Text != "what time is it" {
		t.Errorf("command text = %q, want %q", got[2].Text, "what time is it")
	}
	if got[3].Text != "It is noon." {
		t.Errorf("response text = %q, want %q", got[3].Text, "It is noon.")
	}
}

func TestEventStreamOmitsRejectedInputs(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "ok"}
	c := newTestCoordinator(t, r, &ttsmock.Speaker{})

	// A command while idle and a too-short command while awake are both
	// rejected and must not reach the stream.
	c.OnTranscript("what time is it", true)
	c.OnTranscript("hey sonant", true)
	waitForState(t, c, StateAwake, time.Second)
	c.OnTranscript("hi", true)
	time.Sleep(50 * time.Millisecond)

	var got []Event
	for {
		select {
		case ev := <-c.Events():
			got = append(got, ev)
			continue
		default:
		}
		break
	}
	if len(got) != 1 || got[0].Kind != EventWake {
		t.Errorf("events = %v, want only the wake", got)
	}
}

func TestEventStreamClosesWhenLoopStops(t *testing.T) {
	t.Parallel()

	c := New(&fakeResponder{reply: "ok"}, nil, nil, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	cancel()
	<-done

	select {
	case _, ok := <-c.Events():
		if ok {
			t.Error("event stream delivered a value, want closed")
		}
	case <-time.After(time.Second):
		t.Error("event stream not closed after Run returned")
	}
}

// ─── wake ack ────────────────────────────────────────────────────────────────

func TestWakeAckSpoken(t *testing.T) {
	t.Parallel()

	speaker := &ttsmock.Speaker{}
	c := newTestCoordinator(t, &fakeResponder{reply: "ok"}, speaker, WithWakeAck("Yes?"))

	c.OnTranscript("hey sonant", true)
	waitForState(t, c, StateAwake, time.Second)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(speaker.SpokenTexts()) > 0 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if spoken := speaker.SpokenTexts(); len(spoken) != 1 || spoken[0] != "Yes?" {
		t.Errorf("spoken = %v, want [Yes?]", spoken)
	}
}
