package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"
)

// Telemetry owns the tracer and meter providers for one process. A disabled
// or degraded instance hands out the global providers, which are no-ops
// unless something installed real ones.
type Telemetry struct {
	cfg *Config
	tp  *sdktrace.TracerProvider
	mp  *sdkmetric.MeterProvider

	mu     sync.Mutex
	health HealthStatus
}

// HealthStatus reports whether exporters were set up as configured.
type HealthStatus struct {
	Healthy  bool
	Degraded bool
	Reason   string
}

// Option overrides how New exports data.
type Option func(*options)

type options struct {
	spans  sdktrace.SpanExporter
	reader sdkmetric.Reader
}

// WithSpanExporter exports spans synchronously to exp instead of OTLP.
func WithSpanExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.spans = exp }
}

// WithMetricReader collects metrics through r instead of a periodic OTLP
// push.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(o *options) { o.reader = r }
}

// New validates cfg and builds the providers. Exporter failures do not fail
// New; they leave the instance degraded with the reason in Health.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}
	t := &Telemetry{cfg: cfg, health: HealthStatus{Healthy: true}}
	if !cfg.Enabled {
		return t, nil
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.ServiceInstanceID(uuid.NewString()),
	)

	spanOpt, err := t.spanProcessor(ctx, o.spans)
	if err != nil {
		t.degrade("trace exporter: %v", err)
	} else {
		t.tp = sdktrace.NewTracerProvider(
			spanOpt,
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
		)
	}

	reader, err := t.metricReader(ctx, o.reader)
	if err != nil {
		t.degrade("metric exporter: %v", err)
	} else if reader != nil {
		t.mp = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	}
	return t, nil
}

func (t *Telemetry) spanProcessor(ctx context.Context, injected sdktrace.SpanExporter) (sdktrace.TracerProviderOption, error) {
	if injected != nil {
		return sdktrace.WithSyncer(injected), nil
	}
	var (
		exp sdktrace.SpanExporter
		err error
	)
	switch t.cfg.Protocol {
	case ProtocolHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(t.cfg.address())}
		if t.cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err = otlptracehttp.New(ctx, opts...)
	default:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(t.cfg.address())}
		if t.cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		} else {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
		}
		exp, err = otlptracegrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, err
	}
	return sdktrace.WithBatcher(exp), nil
}

// cumulative keeps counters monotonic for Prometheus-backed collectors.
func cumulative(sdkmetric.InstrumentKind) metricdata.Temporality {
	return metricdata.CumulativeTemporality
}

func (t *Telemetry) metricReader(ctx context.Context, injected sdkmetric.Reader) (sdkmetric.Reader, error) {
	if injected != nil {
		return injected, nil
	}
	if t.cfg.MetricInterval <= 0 {
		return nil, nil
	}
	var (
		exp sdkmetric.Exporter
		err error
	)
	switch t.cfg.Protocol {
	case ProtocolHTTP:
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(t.cfg.address()),
			otlpmetrichttp.WithTemporalitySelector(cumulative),
		}
		if t.cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err = otlpmetrichttp.New(ctx, opts...)
	default:
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(t.cfg.address()),
			otlpmetricgrpc.WithTemporalitySelector(cumulative),
		}
		if t.cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		} else {
			opts = append(opts, otlpmetricgrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
		}
		exp, err = otlpmetricgrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(t.cfg.MetricInterval.Duration())), nil
}

func (t *Telemetry) degrade(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	reason := fmt.Sprintf(format, args...)
	if t.health.Reason != "" {
		reason = t.health.Reason + "; " + reason
	}
	t.health = HealthStatus{Healthy: true, Degraded: true, Reason: reason}
}

// SetGlobal installs the providers and W3C trace-context propagation as the
// otel globals, for code that calls otel.Tracer or otel.Meter directly.
func (t *Telemetry) SetGlobal() {
	if t == nil {
		return
	}
	if t.tp != nil {
		otel.SetTracerProvider(t.tp)
	}
	if t.mp != nil {
		otel.SetMeterProvider(t.mp)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
}

// TracerProvider returns the SDK provider, or the global one.
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	if t == nil || t.tp == nil {
		return otel.GetTracerProvider()
	}
	return t.tp
}

// MeterProvider returns the SDK provider, or the global one.
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	if t == nil || t.mp == nil {
		return otel.GetMeterProvider()
	}
	return t.mp
}

// LoggerProvider returns the global OTEL log provider when telemetry is
// enabled, and nil otherwise. promptgate does not export logs itself; a
// host that installs an SDK log provider receives the bridged entries.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if t == nil || !t.cfg.Enabled {
		return nil
	}
	return global.GetLoggerProvider()
}

// Health returns the current status. A nil Telemetry is unhealthy.
func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{Degraded: true, Reason: "telemetry not initialized"}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.health
}

// Shutdown flushes and stops both providers, bounded by
// telemetry.shutdown_timeout when ctx has no deadline. The instance reports
// unhealthy afterwards.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok && t.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.ShutdownTimeout.Duration())
		defer cancel()
	}

	var errs []error
	if t.tp != nil {
		if err := t.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if t.mp != nil {
		if err := t.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}

	t.mu.Lock()
	t.health.Healthy = false
	t.health.Reason = "shut down"
	t.mu.Unlock()
	return errors.Join(errs...)
}
