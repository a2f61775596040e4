package observe

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// SetupConfig configures telemetry bootstrap.
type SetupConfig struct {
	// ServiceName is the service name reported in telemetry. Default: "sonant".
	ServiceName string

	// ServiceVersion is the service version reported in telemetry.
	ServiceVersion string

	// TraceExporter is an optional span exporter. When nil, spans are recorded
	// but not exported. In production this would typically be an OTLP exporter.
	TraceExporter sdktrace.SpanExporter
}

// Telemetry holds the initialised OTel providers together with the Prometheus
// registry that Sonant's own /metrics endpoint scrapes. Sonant has no other
// HTTP surface, so the registry is private to the process rather than the
// client_golang default: hand Registry to [NewMetricsServer] and call Shutdown
// from main.
type Telemetry struct {
	// Registry gathers everything the /metrics endpoint serves: the OTel
	// instrument bridge plus Go runtime and process collectors.
	Registry *prometheus.Registry

	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// Setup initialises the OTel SDK and registers its providers as the process
// globals, so [NewMetrics] and [Tracer] pick them up. Metrics flow through a
// Prometheus exporter into the returned Telemetry's Registry.
func Setup(ctx context.Context, cfg SetupConfig) (*Telemetry, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "sonant"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exp, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}

	t := &Telemetry{Registry: reg}

	t.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exp),
	)
	otel.SetMeterProvider(t.meterProvider)

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.TraceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.TraceExporter))
	}
	t.tracerProvider = sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(t.tracerProvider)

	return t, nil
}

// Shutdown flushes and closes both providers. Call it in a defer from main.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.meterProvider.Shutdown(ctx),
		t.tracerProvider.Shutdown(ctx),
	)
}
