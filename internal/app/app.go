// Package app wires all Sonant subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the audio pipeline and session event loop, and
// Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithKnowledgeStore, WithMetrics, etc.). When an option is not provided,
// New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sonant-dev/sonant/internal/config"
	"github.com/sonant-dev/sonant/internal/observe"
	"github.com/sonant-dev/sonant/internal/responder"
	"github.com/sonant-dev/sonant/internal/session"
	"github.com/sonant-dev/sonant/internal/wake"
	"github.com/sonant-dev/sonant/pkg/audio"
	"github.com/sonant-dev/sonant/pkg/knowledge"
	knowledgepg "github.com/sonant-dev/sonant/pkg/knowledge/postgres"
	"github.com/sonant-dev/sonant/pkg/provider/llm"
	"github.com/sonant-dev/sonant/pkg/provider/stt"
	"github.com/sonant-dev/sonant/pkg/provider/tts"
	"github.com/sonant-dev/sonant/pkg/types"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	STT   stt.Provider
	LLM   llm.Provider
	TTS   tts.Provider
	Audio audio.Source
}

// App owns all subsystem lifetimes and orchestrates the Sonant voice pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	store       knowledge.Store
	detector    *wake.Detector
	preroll     *wake.PreRoll
	responder   *responder.Responder
	coordinator *session.Coordinator
	metrics     *observe.Metrics
	metricsSrv  *http.Server

	// TranscriptionAvailable is false when no STT provider could be
	// constructed; the app then runs without hearing commands.
	TranscriptionAvailable bool

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithKnowledgeStore injects a knowledge store instead of creating one from
// config.
func WithKnowledgeStore(s knowledge.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects a Metrics instance instead of using the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsServer injects a pre-built metrics server, typically constructed
// by main over the telemetry registry. When absent and MetricsAddr is set, a
// server over the default Prometheus registry is used.
func WithMetricsServer(srv *http.Server) Option {
	return func(a *App) { a.metricsSrv = srv }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if providers.LLM == nil {
		return nil, errors.New("app: no llm provider configured")
	}

	// ── 1. Knowledge store ───────────────────────────────────────────────
	a.initKnowledge(ctx)

	// ── 2. Wake detection ────────────────────────────────────────────────
	a.initWake()

	// ── 3. Responder ─────────────────────────────────────────────────────
	a.initResponder()

	// ── 4. Session coordinator ───────────────────────────────────────────
	a.initCoordinator()

	// ── 5. Metrics endpoint ──────────────────────────────────────────────
	if a.metricsSrv == nil && cfg.Server.MetricsAddr != "" {
		a.metricsSrv = observe.NewMetricsServer(cfg.Server.MetricsAddr, nil)
	}

	a.TranscriptionAvailable = providers.STT != nil && providers.Audio != nil
	if !a.TranscriptionAvailable {
		slog.Warn("transcription unavailable; running without voice input",
			"stt_configured", providers.STT != nil,
			"audio_configured", providers.Audio != nil,
		)
	}

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initKnowledge connects the PostgreSQL knowledge store unless one was
// injected. An empty or unreachable DSN disables grounding rather than failing
// startup; the responder answers without it.
func (a *App) initKnowledge(ctx context.Context) {
	if a.store != nil {
		return
	}

	dsn := a.cfg.Knowledge.PostgresDSN
	if dsn == "" {
		return
	}

	store, err := knowledgepg.NewStore(ctx, dsn)
	if err != nil {
		slog.Warn("knowledge store unavailable, answering without grounding", "err", err)
		return
	}
	a.store = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	slog.Info("knowledge store connected")
}

// initWake builds the wake detector and pre-roll buffer from config.
func (a *App) initWake() {
	var opts []wake.Option
	if a.cfg.Wake.Phonetic {
		opts = append(opts, wake.WithPhoneticMatching(a.cfg.Wake.PhoneticThreshold))
	}
	a.detector = wake.New(a.cfg.Wake.Phrase, opts...)
	a.preroll = wake.NewPreRoll(2 * time.Second)
}

// initResponder builds the responder over the (instrumented) LLM provider.
func (a *App) initResponder() {
	var provider llm.Provider
	if a.providers.LLM != nil {
		provider = &instrumentedLLM{inner: a.providers.LLM, metrics: a.metrics}
	}

	var opts []responder.Option
	rc := a.cfg.Responder
	if rc.Persona != "" {
		opts = append(opts, responder.WithPersona(rc.Persona))
	}
	if rc.MaxHistory > 0 {
		opts = append(opts, responder.WithMaxHistory(rc.MaxHistory))
	}
	if rc.Temperature != 0 {
		opts = append(opts, responder.WithTemperature(rc.Temperature))
	}
	if rc.MaxTokens > 0 {
		opts = append(opts, responder.WithMaxTokens(rc.MaxTokens))
	}
	if rc.RequestTimeout > 0 {
		opts = append(opts, responder.WithRequestTimeout(rc.RequestTimeout))
	}
	if a.cfg.Knowledge.FetchLimit > 0 {
		opts = append(opts, responder.WithKnowledgeLimit(a.cfg.Knowledge.FetchLimit))
	}

	a.responder = responder.New(provider, a.store, slog.Default(), opts...)
}

// initCoordinator builds the session state machine with metric hooks.
func (a *App) initCoordinator() {
	speaker := a.providers.TTS
	if speaker != nil {
		speaker = &instrumentedTTS{inner: speaker, metrics: a.metrics}
	}

	sc := a.cfg.Session
	opts := []session.Option{
		session.WithStateListener(func(from, to session.State) {
			a.metrics.RecordStateChange(context.Background(), from.String(), to.String())
			if from == session.StateIdle && to == session.StateAwake {
				// The buffered lead-in audio has served its purpose once the
				// phrase fires; flush it so the ring starts fresh.
				flushed := a.preroll.Drain()
				slog.Debug("pre-roll flushed on wake", "frames", len(flushed))
			}
		}),
	}
	if sc.AwakeTimeout > 0 {
		opts = append(opts, session.WithAwakeTimeout(sc.AwakeTimeout))
	}
	if sc.GraceDelay > 0 {
		opts = append(opts, session.WithGraceDelay(sc.GraceDelay))
	}
	if sc.MinCommandLength > 0 {
		opts = append(opts, session.WithMinCommandLength(sc.MinCommandLength))
	}
	if a.cfg.Wake.Ack != "" {
		opts = append(opts, session.WithWakeAck(a.cfg.Wake.Ack))
	}

	a.coordinator = session.New(a.responder, speaker, a.detector, slog.Default(), opts...)
	a.closers = append(a.closers, a.coordinator.Close)
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the session loop and the audio pipeline and blocks until ctx is
// cancelled or a pipeline component fails terminally.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	// Session event loop.
	g.Go(func() error {
		return a.coordinator.Run(ctx)
	})

	// Outgoing session events: the host-facing stream drives metrics.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-a.coordinator.Events():
				if !ok {
					return nil
				}
				a.handleEvent(ctx, ev)
			}
		}
	})

	// Metrics endpoint.
	if a.metricsSrv != nil {
		srv := a.metricsSrv
		g.Go(func() error {
			return observe.ServeMetrics(srv, slog.Default())
		})
		g.Go(func() error {
			<-ctx.Done()
			return observe.ShutdownMetrics(srv)
		})
	}

	// Audio → STT → coordinator pipeline.
	if a.TranscriptionAvailable {
		sess, frames, err := a.startPipeline(ctx)
		if err != nil {
			return fmt.Errorf("app: start pipeline: %w", err)
		}

		g.Go(func() error {
			return a.pumpAudio(ctx, sess, frames)
		})
		g.Go(func() error {
			a.pumpTranscripts(ctx, sess.Partials(), false)
			return nil
		})
		g.Go(func() error {
			a.pumpTranscripts(ctx, sess.Finals(), true)
			return nil
		})
	}

	a.coordinator.Post(session.Event{Kind: session.EventReady})
	slog.Info("app running", "wake_phrase", a.detector.Phrase())

	return g.Wait()
}

// handleEvent consumes one outgoing session event. The coordinator already
// logs its transitions; this records the counters.
func (a *App) handleEvent(ctx context.Context, ev session.Event) {
	switch ev.Kind {
	case session.EventWake:
		a.metrics.RecordWake(ctx, true)
	case session.EventCommand:
		a.metrics.RecordCommand(ctx, "accepted")
	case session.EventResponse:
		slog.Debug("response dispatched", "text", ev.Text)
	}
}

// startPipeline opens the microphone and the STT stream.
func (a *App) startPipeline(ctx context.Context) (stt.SessionHandle, <-chan types.AudioFrame, error) {
	sampleRate := a.cfg.Audio.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}
	channels := a.cfg.Audio.Channels
	if channels == 0 {
		channels = 1
	}

	frames, err := a.providers.Audio.Start(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("start audio source: %w", err)
	}
	a.closers = append(a.closers, a.providers.Audio.Stop)

	sess, err := a.providers.STT.StartStream(ctx, stt.StreamConfig{
		SampleRate: sampleRate,
		Channels:   channels,
		Language:   "en",
	})
	if err != nil {
		_ = a.providers.Audio.Stop()
		return nil, nil, fmt.Errorf("start stt stream: %w", err)
	}
	a.closers = append(a.closers, sess.Close)

	return sess, frames, nil
}

// pumpAudio forwards microphone frames to the STT session and keeps the
// pre-roll ring current. Returns when the frame channel closes or ctx is done.
func (a *App) pumpAudio(ctx context.Context, sess stt.SessionHandle, frames <-chan types.AudioFrame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				if err := a.providers.Audio.Err(); err != nil {
					a.coordinator.Post(session.Event{Kind: session.EventError, Err: err})
					return fmt.Errorf("audio source failed: %w", err)
				}
				return nil
			}
			a.preroll.Push(frame)
			if err := sess.SendAudio(frame.Data); err != nil {
				slog.Warn("stt send error", "err", err)
			}
		}
	}
}

// pumpTranscripts forwards transcripts from the STT session into the
// coordinator. Partials must still be drained so the provider never blocks,
// but only finals drive transitions; the coordinator discards the rest.
func (a *App) pumpTranscripts(ctx context.Context, ch <-chan types.Transcript, isFinal bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-ch:
			if !ok {
				return
			}
			if t.Text == "" {
				continue
			}
			if isFinal && t.Duration > 0 {
				a.metrics.STTDuration.Record(ctx, t.Duration.Seconds())
			}
			a.coordinator.OnTranscript(t.Text, isFinal)
		}
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
