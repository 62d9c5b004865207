package regeneration

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptgate/internal/logging"
)

const tracerName = "github.com/fyrsmithlabs/promptgate/internal/regeneration"

// Config holds the static regeneration settings. Built once from
// configuration and shared read-only.
type Config struct {
	// BaseTargetWords is the word count the per-attempt factor is applied to.
	BaseTargetWords int

	// MinContentChars is the shortest content accepted from generate.
	MinContentChars int

	Weights       SelectionWeights
	Randomization RandomizationRange

	// Seed fixes the target-length sequence. See SeedFromSubject.
	Seed uint64
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.BaseTargetWords <= 0 {
		return fmt.Errorf("%w: base_target_words must be positive, got %d", ErrInvalidConfig, c.BaseTargetWords)
	}
	if c.MinContentChars < 0 {
		return fmt.Errorf("%w: min_content_chars must not be negative, got %d", ErrInvalidConfig, c.MinContentChars)
	}
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	return c.Randomization.Validate()
}

// Regenerator runs quality-gated regeneration sessions. A Regenerator holds
// no per-session state and may run independent sessions concurrently.
type Regenerator struct {
	config  Config
	logger  *logging.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures a Regenerator.
type Option func(*Regenerator)

// WithLogger sets the regenerator logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Regenerator) { r.logger = l }
}

// WithMetrics sets the Prometheus metrics the regenerator records to.
func WithMetrics(m *Metrics) Option {
	return func(r *Regenerator) { r.metrics = m }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Regenerator) { r.tracer = tp.Tracer(tracerName) }
}

// NewRegenerator validates cfg and creates a Regenerator.
func NewRegenerator(cfg Config, opts ...Option) (*Regenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Regenerator{
		config: cfg,
		logger: logging.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// attempt tracks the state of one in-flight attempt.
type attempt struct {
	number int
	state  AttemptState
}

func (a *attempt) moveTo(to AttemptState) {
	if !a.state.CanTransitionTo(to) {
		panic(fmt.Sprintf("regeneration: invalid attempt transition %s -> %s", a.state, to))
	}
	a.state = to
}

// Run executes up to maxAttempts generate-and-score cycles.
//
// Best tracks the attempt of strictly highest selection score, the earliest
// on ties, whatever the outcome. The session ends AcceptedEarly at the first
// attempt whose bundle satisfies requirements, recorded as Accepted.
// Otherwise it ends BestOfExhausted.
// A generate error, empty content or content shorter than MinContentChars
// consumes the attempt. When every attempt fails, Run returns the session
// (outcome AllFailed) and a *GenerationFailure wrapping the last error.
//
// Attempts are never interrupted; ctx is only passed to the callbacks.
func (r *Regenerator) Run(
	ctx context.Context,
	generate GenerateFunc,
	evaluate EvaluateFunc,
	requirements RequirementSet,
	maxAttempts int,
) (*Session, error) {
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxAttempts, maxAttempts)
	}
	if generate == nil || evaluate == nil {
		return nil, ErrNilCallback
	}

	sampler, err := NewLengthSampler(r.config.BaseTargetWords, r.config.Randomization, r.config.Seed)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:           uuid.New(),
		Attempts:     []AttemptRecord{},
		Requirements: requirements,
	}
	ctx = logging.WithSessionID(ctx, session.ID.String())

	ctx, span := r.tracer.Start(ctx, "regeneration.run",
		trace.WithAttributes(
			attribute.String("session_id", session.ID.String()),
			attribute.Int("max_attempts", maxAttempts),
			attribute.StringSlice("gates", gateNames(requirements.Gates)),
		),
	)
	defer span.End()

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		a := &attempt{number: i + 1, state: AttemptStatePending}
		targetWords := sampler.Next()
		attemptCtx := logging.WithAttempt(ctx, a.number)

		a.moveTo(AttemptStateGenerating)
		content, err := generate(attemptCtx, i, targetWords)
		if err == nil {
			err = r.checkContent(content)
		}
		if err != nil {
			a.moveTo(AttemptStateGenerationFailed)
			lastErr = err
			session.Failures = append(session.Failures, AttemptFailure{
				AttemptNumber: a.number,
				TargetWords:   targetWords,
				Error:         err.Error(),
			})
			r.recordAttempt("failed", 0, false)
			r.logger.Warn(attemptCtx, "generation attempt failed",
				zap.Int("target_words", targetWords),
				zap.Error(err),
			)
			continue
		}

		a.moveTo(AttemptStateScoring)
		bundle := evaluate(attemptCtx, content)
		failing := requirements.Failing(bundle)
		if len(failing) == 0 {
			a.moveTo(AttemptStateAccepted)
		} else {
			a.moveTo(AttemptStateCandidate)
		}

		rec := AttemptRecord{
			AttemptNumber:  a.number,
			Content:        content,
			TargetWords:    targetWords,
			QualityScore:   bundle.Quality,
			SubScores:      bundle.SubScores(),
			SelectionScore: r.config.Weights.Score(bundle),
			State:          a.state,
			Bundle:         bundle,
		}
		session.Attempts = append(session.Attempts, rec)
		r.recordAttempt(string(a.state), rec.SelectionScore, true)

		r.logger.Info(attemptCtx, "attempt scored",
			zap.Int("target_words", targetWords),
			zap.Float64("quality", rec.QualityScore),
			zap.Float64("selection_score", rec.SelectionScore),
			zap.Strings("failing_gates", gateNames(failing)),
		)

		if session.Best == nil || rec.SelectionScore > session.Best.SelectionScore {
			best := rec
			session.Best = &best
		}

		if a.state == AttemptStateAccepted {
			accepted := rec
			session.Accepted = &accepted
			session.Outcome = OutcomeAcceptedEarly
			r.finish(ctx, span, session)
			return session, nil
		}
	}

	if len(session.Attempts) == 0 {
		session.Outcome = OutcomeAllFailed
		r.finish(ctx, span, session)
		failure := &GenerationFailure{Attempts: maxAttempts, Err: lastErr}
		span.RecordError(failure)
		return session, failure
	}

	session.Outcome = OutcomeBestOfExhausted
	r.finish(ctx, span, session)
	return session, nil
}

// checkContent rejects empty or too-short generated content.
func (r *Regenerator) checkContent(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ErrEmptyContent
	}
	if n := utf8.RuneCountInString(trimmed); n < r.config.MinContentChars {
		return fmt.Errorf("%w: %d < %d characters", ErrContentTooShort, n, r.config.MinContentChars)
	}
	return nil
}

func (r *Regenerator) recordAttempt(result string, score float64, scored bool) {
	if r.metrics == nil {
		return
	}
	r.metrics.AttemptsTotal.WithLabelValues(result).Inc()
	if scored {
		r.metrics.SelectionScore.Observe(score)
	}
}

func (r *Regenerator) finish(ctx context.Context, span trace.Span, s *Session) {
	fields := []zap.Field{
		zap.String("outcome", string(s.Outcome)),
		zap.Int("attempts", s.TotalAttempts()),
		zap.Int("failures", len(s.Failures)),
	}
	if s.Accepted != nil {
		fields = append(fields, zap.Int("accepted_attempt", s.Accepted.AttemptNumber))
		span.SetAttributes(attribute.Int("accepted_attempt", s.Accepted.AttemptNumber))
	}
	if s.Best != nil {
		fields = append(fields,
			zap.Int("best_attempt", s.Best.AttemptNumber),
			zap.Float64("best_selection_score", s.Best.SelectionScore),
		)
		span.SetAttributes(
			attribute.Int("best_attempt", s.Best.AttemptNumber),
			attribute.Float64("best_selection_score", s.Best.SelectionScore),
		)
	}
	span.SetAttributes(
		attribute.String("outcome", string(s.Outcome)),
		attribute.Int("attempts", s.TotalAttempts()),
	)

	switch s.Outcome {
	case OutcomeAllFailed:
		r.logger.Error(ctx, "regeneration failed on every attempt", fields...)
	case OutcomeBestOfExhausted:
		r.logger.Warn(ctx, "regeneration exhausted without meeting requirements", fields...)
	default:
		r.logger.Info(ctx, "regeneration accepted", fields...)
	}

	if r.metrics != nil {
		r.metrics.SessionsTotal.WithLabelValues(string(s.Outcome)).Inc()
		r.metrics.AttemptsPerSession.Observe(float64(s.TotalAttempts()))
	}
}

func gateNames(gs []Gate) []string {
	names := make([]string, len(gs))
	for i, g := range gs {
		names[i] = string(g)
	}
	return names
}
