// Package session implements the voice session state machine.
//
// The Coordinator runs a single-goroutine event loop: every input (wake
// detection, final transcript, responder settlement, timer expiry) is posted
// as an Event and handled sequentially, so state transitions never race. The
// lifecycle is Idle → Awake → Processing → Idle:
//
//   - Idle: only EventWake is acted on.
//   - Awake: waiting for a command; an inactivity timer falls back to Idle.
//     Transcripts shorter than the minimum command length are ignored without
//     resetting the timer.
//   - Processing: a command is in flight. Once the reply is dispatched to the
//     speech output, a short grace period absorbs the assistant hearing its
//     own voice before the session returns to Idle.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sonant-dev/sonant/internal/wake"
	"github.com/sonant-dev/sonant/pkg/provider/tts"
)

const (
	defaultAwakeTimeout  = 10 * time.Second
	defaultGraceDelay    = 2 * time.Second
	defaultMinCommandLen = 3
)

// Responder settles a command into reply text. It must not return an error;
// failures are expected to surface as spoken apologies.
type Responder interface {
	Process(ctx context.Context, command string) string
}

// Option is a functional option for Coordinator.
type Option func(*Coordinator)

// WithAwakeTimeout sets how long the session stays awake without a valid
// command. Default: 10s.
func WithAwakeTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.awakeTimeout = d
		}
	}
}

// WithGraceDelay sets the pause between dispatching a reply to the speech
// output and returning to Idle. Default: 2s.
func WithGraceDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.graceDelay = d
		}
	}
}

// WithMinCommandLength sets the minimum trimmed transcript length accepted as
// a command. Shorter transcripts are ignored and do not reset the awake
// timer. Default: 3.
func WithMinCommandLength(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.minCommandLen = n
		}
	}
}

// WithWakeAck sets a short phrase spoken when the session wakes. Empty (the
// default) disables the acknowledgement.
func WithWakeAck(text string) Option {
	return func(c *Coordinator) {
		c.wakeAck = text
	}
}

// WithStateListener registers a callback invoked from the event loop on every
// state transition. The callback must not block.
func WithStateListener(fn func(from, to State)) Option {
	return func(c *Coordinator) {
		c.stateListener = fn
	}
}

// Coordinator is the session state machine. Construct with New, feed it with
// OnTranscript or Post, and drive it with Run.
type Coordinator struct {
	responder Responder
	speaker   tts.Provider
	detector  *wake.Detector
	logger    *slog.Logger

	awakeTimeout  time.Duration
	graceDelay    time.Duration
	minCommandLen int
	wakeAck       string
	stateListener func(from, to State)

	events  chan Event
	out     chan Event
	outOnce sync.Once
	done    chan struct{}
	once    sync.Once

	mu    sync.Mutex
	state State

	// loop-owned, no locking needed
	awakeTimer *time.Timer
	graceTimer *time.Timer
	gen        int
}

// New constructs a Coordinator. detector classifies transcripts fed through
// OnTranscript; pass nil if all events are posted directly.
func New(r Responder, speaker tts.Provider, detector *wake.Detector, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		responder:     r,
		speaker:       speaker,
		detector:      detector,
		logger:        logger,
		awakeTimeout:  defaultAwakeTimeout,
		graceDelay:    defaultGraceDelay,
		minCommandLen: defaultMinCommandLen,
		events:        make(chan Event, 64),
		out:           make(chan Event, 64),
		done:          make(chan struct{}),
		state:         StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current session state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Post delivers an event to the loop. It blocks if the loop is saturated and
// becomes a no-op once the coordinator is closed.
func (c *Coordinator) Post(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// OnTranscript classifies a final transcript and posts the resulting events.
// Partial transcripts are discarded: only finals drive state transitions. A
// wake phrase match posts EventWake; if text follows the phrase in the same
// transcript it is posted as EventCommand right after, so "hey sonant what
// time is it" wakes and asks in one breath. Finals that do not contain the
// phrase post EventCommand.
func (c *Coordinator) OnTranscript(text string, isFinal bool) {
	if !isFinal {
		return
	}
	if c.detector != nil && c.detector.Match(text) {
		c.Post(Event{Kind: EventWake})
		if rest := textAfterPhrase(text, c.detector.Phrase()); rest != "" {
			c.Post(Event{Kind: EventCommand, Text: rest})
		}
		return
	}
	c.Post(Event{Kind: EventCommand, Text: text})
}

// Events returns the outgoing session event stream: Ready, Wake, Command,
// Response, and Error values emitted from the loop goroutine in handling
// order. Only accepted events appear here — a wake during Processing or a
// too-short command is never emitted. The channel is closed when Run returns.
func (c *Coordinator) Events() <-chan Event {
	return c.out
}

// Run drives the event loop until ctx is cancelled or Close is called.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.outOnce.Do(func() { close(c.out) })
	for {
		select {
		case <-ctx.Done():
			c.stopTimers()
			return ctx.Err()
		case <-c.done:
			c.stopTimers()
			return nil
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

// Close stops the event loop. Safe to call more than once.
func (c *Coordinator) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// handle applies one event. Runs on the loop goroutine only.
func (c *Coordinator) handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventReady:
		c.logger.Info("session ready, listening for wake phrase")
		c.emit(Event{Kind: EventReady})

	case EventWake:
		if c.State() != StateIdle {
			c.logger.Debug("wake ignored", "state", c.State().String())
			return
		}
		c.setState(StateAwake)
		c.startAwakeTimer()
		c.emit(Event{Kind: EventWake})
		if c.wakeAck != "" {
			c.speak(ctx, c.wakeAck)
		}

	case EventCommand:
		if c.State() != StateAwake {
			c.logger.Debug("transcript ignored", "state", c.State().String())
			return
		}
		trimmed := strings.TrimSpace(ev.Text)
		if len(trimmed) < c.minCommandLen {
			// Too short to be a command. The awake timer keeps running so
			// stray noise cannot keep the session open forever.
			c.logger.Debug("transcript below minimum command length", "text", trimmed)
			return
		}
		c.stopAwakeTimer()
		c.setState(StateProcessing)
		c.logger.Info("command accepted", "text", trimmed)
		c.emit(Event{Kind: EventCommand, Text: trimmed})
		go func() {
			reply := c.responder.Process(ctx, trimmed)
			c.Post(Event{Kind: EventResponse, Text: reply})
		}()

	case EventResponse:
		if c.State() != StateProcessing {
			c.logger.Debug("response ignored", "state", c.State().String())
			return
		}
		c.emit(Event{Kind: EventResponse, Text: ev.Text})
		c.speak(ctx, ev.Text)
		c.startGraceTimer()

	case EventError:
		c.logger.Error("pipeline error", "error", ev.Err)
		c.emit(Event{Kind: EventError, Err: ev.Err})

	case eventAwakeTimeout:
		if ev.gen == c.gen && c.State() == StateAwake {
			c.logger.Info("awake timeout, returning to idle")
			c.setState(StateIdle)
		}

	case eventGraceDone:
		if ev.gen == c.gen && c.State() == StateProcessing {
			c.setState(StateIdle)
		}
	}
}

// emit publishes an event on the outgoing stream. Runs on the loop goroutine;
// a stalled consumer drops the event rather than blocking the loop.
func (c *Coordinator) emit(ev Event) {
	select {
	case c.out <- ev:
	default:
		c.logger.Warn("event consumer not draining, dropping event", "kind", ev.Kind.String())
	}
}

// speak dispatches text to the speech output without waiting for playback.
// A busy speaker drops the utterance; a missing speaker logs the text so a
// reply is never silently lost.
func (c *Coordinator) speak(ctx context.Context, text string) {
	if c.speaker == nil {
		c.logger.Info("speech output not configured, reply text", "text", text)
		return
	}
	go func() {
		if err := c.speaker.Speak(ctx, text); err != nil {
			if errors.Is(err, tts.ErrBusy) {
				c.logger.Warn("utterance dropped, speaker busy", "text", text)
				return
			}
			if ctx.Err() == nil {
				c.logger.Error("speech output failed", "error", err)
			}
		}
	}()
}

func (c *Coordinator) setState(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()
	if from == to {
		return
	}
	c.gen++
	c.logger.Debug("state transition", "from", from.String(), "to", to.String())
	if c.stateListener != nil {
		c.stateListener(from, to)
	}
}

func (c *Coordinator) startAwakeTimer() {
	c.stopAwakeTimer()
	gen := c.gen
	c.awakeTimer = time.AfterFunc(c.awakeTimeout, func() {
		c.Post(Event{Kind: eventAwakeTimeout, gen: gen})
	})
}

func (c *Coordinator) stopAwakeTimer() {
	if c.awakeTimer != nil {
		c.awakeTimer.Stop()
		c.awakeTimer = nil
	}
}

func (c *Coordinator) startGraceTimer() {
	gen := c.gen
	if c.graceDelay == 0 {
		c.Post(Event{Kind: eventGraceDone, gen: gen})
		return
	}
	c.graceTimer = time.AfterFunc(c.graceDelay, func() {
		c.Post(Event{Kind: eventGraceDone, gen: gen})
	})
}

func (c *Coordinator) stopTimers() {
	c.stopAwakeTimer()
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
}

// textAfterPhrase returns the trimmed text following the first occurrence of
// phrase in text, matched case-insensitively.
func textAfterPhrase(text, phrase string) string {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, phrase)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(phrase):]
	return strings.TrimSpace(strings.TrimLeft(rest, ",.!?"))
}
