// Package observe provides application-wide observability primitives for
// Sonant: OpenTelemetry metrics and structured logging helpers.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [Setup] bridges
// them into a Prometheus registry so they can be scraped via the standard
// /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Sonant metrics.
const meterName = "github.com/sonant-dev/sonant"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks LLM completion latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks speech output playback latency.
	TTSDuration metric.Float64Histogram

	// --- Counters ---

	// WakeDetections counts wake-phrase detections. Use with attribute:
	//   attribute.String("accepted", "true"|"false")
	WakeDetections metric.Int64Counter

	// Commands counts commands by outcome. Use with attribute:
	//   attribute.String("outcome", "accepted"|"too_short"|"ignored")
	Commands metric.Int64Counter

	// ResponderErrors counts responder failures by class. Use with attribute:
	//   attribute.String("class", "auth"|"rate_limit"|"other")
	ResponderErrors metric.Int64Counter

	// DroppedUtterances counts replies discarded because the speaker was busy.
	DroppedUtterances metric.Int64Counter

	// --- Gauges ---

	// SessionState tracks sessions per state. Use with attribute:
	//   attribute.String("state", ...)
	SessionState metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("sonant.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("sonant.llm.duration",
		metric.WithDescription("Latency of LLM completion."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("sonant.tts.duration",
		metric.WithDescription("Latency of speech output playback."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.WakeDetections, err = m.Int64Counter("sonant.wake.detections",
		metric.WithDescription("Total wake-phrase detections by acceptance."),
	); err != nil {
		return nil, err
	}
	if met.Commands, err = m.Int64Counter("sonant.commands",
		metric.WithDescription("Total commands by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ResponderErrors, err = m.Int64Counter("sonant.responder.errors",
		metric.WithDescription("Total responder failures by error class."),
	); err != nil {
		return nil, err
	}
	if met.DroppedUtterances, err = m.Int64Counter("sonant.tts.dropped",
		metric.WithDescription("Total replies dropped because the speaker was busy."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.SessionState, err = m.Int64UpDownCounter("sonant.session.state",
		metric.WithDescription("Sessions per lifecycle state."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordWake records a wake-phrase detection.
func (m *Metrics) RecordWake(ctx context.Context, accepted bool) {
	v := "false"
	if accepted {
		v = "true"
	}
	m.WakeDetections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("accepted", v)),
	)
}

// RecordCommand records a command outcome ("accepted", "too_short", "ignored").
func (m *Metrics) RecordCommand(ctx context.Context, outcome string) {
	m.Commands.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordResponderError records a responder failure by class
// ("auth", "rate_limit", "other").
func (m *Metrics) RecordResponderError(ctx context.Context, class string) {
	m.ResponderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("class", class)),
	)
}

// RecordStateChange moves the session-state gauge from one state to another.
func (m *Metrics) RecordStateChange(ctx context.Context, from, to string) {
	m.SessionState.Add(ctx, -1, metric.WithAttributes(attribute.String("state", from)))
	m.SessionState.Add(ctx, 1, metric.WithAttributes(attribute.String("state", to)))
}
