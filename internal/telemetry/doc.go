// Package telemetry sets up OpenTelemetry tracing and metrics export for
// promptgate.
//
// Telemetry is off by default. When telemetry.enabled is set, spans and
// metrics are pushed over OTLP (gRPC or HTTP) to telemetry.endpoint:
//
//	telemetry:
//	  enabled: true
//	  endpoint: localhost:4317
//	  protocol: grpc
//	  sample_rate: 0.25
//	  metric_interval: 30s
//
// Services take providers explicitly:
//
//	tel, err := telemetry.New(ctx, cfg)
//	...
//	defer tel.Shutdown(context.Background())
//	svc, err := compression.NewService(
//	    compression.WithTracerProvider(tel.TracerProvider()),
//	    compression.WithMeterProvider(tel.MeterProvider()),
//	)
//
// An exporter that cannot be built leaves the instance degraded rather than
// failing the command. NewTestTelemetry records everything in memory.
package telemetry
