package telemetry

import (
	"context"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry is an enabled Telemetry whose spans and metrics stay in
// memory. It never touches the otel globals.
type TestTelemetry struct {
	*Telemetry
	spans  *tracetest.InMemoryExporter
	reader *sdkmetric.ManualReader
}

// NewTestTelemetry panics if the in-memory providers cannot be built.
func NewTestTelemetry() *TestTelemetry {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.ServiceVersion = "test"

	spans := tracetest.NewInMemoryExporter()
	reader := sdkmetric.NewManualReader()
	tel, err := New(context.Background(), cfg, WithSpanExporter(spans), WithMetricReader(reader))
	if err != nil {
		panic(fmt.Sprintf("telemetry: in-memory providers: %v", err))
	}
	return &TestTelemetry{Telemetry: tel, spans: spans, reader: reader}
}

// Spans returns the ended spans, oldest first.
func (tt *TestTelemetry) Spans() tracetest.SpanStubs {
	return tt.spans.GetSpans()
}

func (tt *TestTelemetry) span(name string) (tracetest.SpanStub, bool) {
	for _, s := range tt.Spans() {
		if s.Name == name {
			return s, true
		}
	}
	return tracetest.SpanStub{}, false
}

// AssertSpanExists fails tb unless a span called name has ended.
func (tt *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	if _, ok := tt.span(name); !ok {
		var names []string
		for _, s := range tt.Spans() {
			names = append(names, s.Name)
		}
		tb.Errorf("no span %q; have %v", name, names)
	}
}

// AssertSpanAttribute fails tb unless span name carries key with value want.
// Integers are compared as int64.
func (tt *TestTelemetry) AssertSpanAttribute(tb testing.TB, name, key string, want interface{}) {
	tb.Helper()
	s, ok := tt.span(name)
	if !ok {
		tb.Errorf("no span %q", name)
		return
	}
	for _, kv := range s.Attributes {
		if string(kv.Key) != key {
			continue
		}
		if got := kv.Value.AsInterface(); got != want {
			tb.Errorf("span %q attribute %q = %v (%T), want %v (%T)", name, key, got, got, want, want)
		}
		return
	}
	tb.Errorf("span %q has no attribute %q", name, key)
}

// Collect reads the current metric state.
func (tt *TestTelemetry) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	err := tt.reader.Collect(ctx, &rm)
	return rm, err
}

// AssertMetricExists fails tb unless an instrument called name has data.
func (tt *TestTelemetry) AssertMetricExists(tb testing.TB, ctx context.Context, name string) {
	tb.Helper()
	rm, err := tt.Collect(ctx)
	if err != nil {
		tb.Errorf("collecting metrics: %v", err)
		return
	}
	var names []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return
			}
			names = append(names, m.Name)
		}
	}
	tb.Errorf("no metric %q; have %v", name, names)
}

// SpanAttributes returns the attributes of the first span called name.
func (tt *TestTelemetry) SpanAttributes(name string) []attribute.KeyValue {
	s, _ := tt.span(name)
	return s.Attributes
}
