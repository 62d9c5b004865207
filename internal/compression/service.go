package compression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptgate/internal/facts"
	"github.com/fyrsmithlabs/promptgate/internal/logging"
)

const tracerName = "github.com/fyrsmithlabs/promptgate/internal/compression"
const meterName = "compression"

// ErrEmptyPrompt is returned when there is nothing to compress.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// Service wraps Optimize with tracing, metrics and logging.
type Service struct {
	logger *logging.Logger
	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	operationCounter metric.Int64Counter
	strategyCounter  metric.Int64Counter
	compressionTime  metric.Float64Histogram
	compressionRatio metric.Float64Histogram
	truncations      metric.Int64Counter
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) ServiceOption {
	return func(s *Service) { s.tracer = tp.Tracer(tracerName) }
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) ServiceOption {
	return func(s *Service) { s.meter = mp.Meter(meterName) }
}

// NewService creates a compression service.
func NewService(opts ...ServiceOption) (*Service, error) {
	s := &Service{
		logger: logging.NewNop(),
		tracer: otel.Tracer(tracerName),
		meter:  otel.Meter(meterName),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return s, nil
}

// Optimize compresses prompt to fit budget, protecting lines that carry a
// preserve fact. It fails only on an empty prompt.
func (s *Service) Optimize(ctx context.Context, prompt string, budget Budget, preserve []facts.CriticalFact) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "compression.optimize",
		trace.WithAttributes(
			attribute.Int("prompt_length", charLen(prompt)),
			attribute.Int("target_length", budget.TargetLength()),
			attribute.Int("hard_limit", budget.HardLimit()),
			attribute.Int("preserve_count", len(preserve)),
		),
	)
	defer span.End()

	if prompt == "" {
		span.RecordError(ErrEmptyPrompt)
		return nil, ErrEmptyPrompt
	}

	start := time.Now()
	result := Optimize(prompt, budget, preserve)
	elapsed := time.Since(start).Seconds()

	s.operationCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("compressed", result.Compressed())))
	s.compressionTime.Record(ctx, elapsed)
	s.compressionRatio.Record(ctx, result.Ratio())
	for _, st := range result.StrategiesApplied {
		s.strategyCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("strategy", st.String())))
		if st == StrategyEmergencyTruncate {
			s.truncations.Add(ctx, 1)
		}
	}

	span.SetAttributes(
		attribute.Int("final_length", result.FinalLength),
		attribute.Float64("compression_ratio", result.Ratio()),
		attribute.StringSlice("strategies", result.StrategyNames()),
	)

	if result.Compressed() {
		s.logger.Debug(ctx, "prompt compressed",
			zap.Int("original_length", result.OriginalLength),
			zap.Int("final_length", result.FinalLength),
			zap.Strings("strategies", result.StrategyNames()),
		)
	}
	if result.FinalLength > budget.WarningThreshold() {
		s.logger.Warn(ctx, "compressed prompt above warning threshold",
			zap.Int("final_length", result.FinalLength),
			zap.Int("warning_threshold", budget.WarningThreshold()),
		)
	}

	return &result, nil
}

// initMetrics initializes OpenTelemetry metrics
func (s *Service) initMetrics() error {
	var err error

	s.operationCounter, err = s.meter.Int64Counter(
		"compression.operations_total",
		metric.WithDescription("Total number of prompt compression operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create operation counter: %w", err)
	}

	s.strategyCounter, err = s.meter.Int64Counter(
		"compression.strategy_total",
		metric.WithDescription("Compression strategies applied, by strategy"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create strategy counter: %w", err)
	}

	s.compressionTime, err = s.meter.Float64Histogram(
		"compression.duration_seconds",
		metric.WithDescription("Time spent compressing prompts"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1),
	)
	if err != nil {
		return fmt.Errorf("failed to create compression time histogram: %w", err)
	}

	s.compressionRatio, err = s.meter.Float64Histogram(
		"compression.ratio",
		metric.WithDescription("Original to compressed prompt length ratio"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(1.0, 1.25, 1.5, 2.0, 3.0, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create compression ratio histogram: %w", err)
	}

	s.truncations, err = s.meter.Int64Counter(
		"compression.truncations_total",
		metric.WithDescription("Prompts that needed emergency truncation"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create truncation counter: %w", err)
	}

	return nil
}
