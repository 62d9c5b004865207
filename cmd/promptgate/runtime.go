package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptgate/internal/compression"
	"github.com/fyrsmithlabs/promptgate/internal/config"
	"github.com/fyrsmithlabs/promptgate/internal/evaluation"
	"github.com/fyrsmithlabs/promptgate/internal/logging"
	"github.com/fyrsmithlabs/promptgate/internal/prompt"
	"github.com/fyrsmithlabs/promptgate/internal/regeneration"
	"github.com/fyrsmithlabs/promptgate/internal/retention"
	"github.com/fyrsmithlabs/promptgate/internal/scrub"
	"github.com/fyrsmithlabs/promptgate/internal/services"
	"github.com/fyrsmithlabs/promptgate/internal/telemetry"
)

// runtime holds what every command shares: configuration, logging,
// telemetry, the metrics registry and the compression/retention services.
type runtime struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	metrics   *prometheus.Registry
	budget    compression.Budget
	scrubber  *scrub.Scrubber
	services  services.Registry
}

// newRuntime loads configuration and builds the shared services.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, err
	}

	telCfg := telemetry.NewDefaultConfig()
	telCfg.ServiceVersion = version
	if err := cfg.UnmarshalSection("telemetry", telCfg); err != nil {
		return nil, err
	}
	tel, err := telemetry.New(ctx, telCfg)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	tel.SetGlobal()

	logCfg := logging.NewDefaultConfig()
	// stdout carries command output
	logCfg.Output.Stderr = true
	if err := cfg.UnmarshalSection("logging", logCfg); err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	if h := tel.Health(); !h.Healthy || h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.String("reason", h.Reason))
	}

	budget, err := compression.NewBudget(cfg.Compression.TargetLength, cfg.Compression.HardLimit, cfg.Compression.WarningThreshold)
	if err != nil {
		return nil, err
	}

	compressor, err := compression.NewService(
		compression.WithLogger(logger),
		compression.WithTracerProvider(tel.TracerProvider()),
		compression.WithMeterProvider(tel.MeterProvider()),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing compression: %w", err)
	}

	verifier, err := retention.NewVerifier(
		retention.WithMinimumRetention(cfg.Retention.MinimumRetention),
		retention.WithEnforce(!cfg.Retention.Advisory),
		retention.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing retention: %w", err)
	}

	scrubCfg := scrub.DefaultConfig()
	if err := cfg.UnmarshalSection("scrub", scrubCfg); err != nil {
		return nil, err
	}
	scrubber, err := scrub.New(scrubCfg)
	if err != nil {
		return nil, fmt.Errorf("initializing scrubber: %w", err)
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		telemetry: tel,
		metrics:   metrics,
		budget:    budget,
		scrubber:  scrubber,
		services: services.NewRegistry(services.Options{
			Compression: compressor,
			Retention:   verifier,
		}),
	}, nil
}

// close flushes telemetry and the logger.
func (r *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.telemetry.Shutdown(ctx); err != nil {
		r.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = r.logger.Sync()
}

// regenerationConfig converts the generation sections. seed is used when
// generation.seed is zero.
func regenerationConfig(cfg *config.Config, seed uint64) regeneration.Config {
	w := cfg.SelectionWeights
	if cfg.Generation.Seed != 0 {
		seed = cfg.Generation.Seed
	}
	return regeneration.Config{
		BaseTargetWords: cfg.Generation.BaseTargetWords,
		MinContentChars: cfg.Generation.MinContentLengthChars,
		Weights: regeneration.SelectionWeights{
			PatternCountBonus:      w.PatternCountBonus,
			PatternFoundBonus:      w.PatternFoundBonus,
			ForbiddenPhrasePenalty: w.ForbiddenPhrasePenalty,
			ReadabilityPassBonus:   w.ReadabilityPassBonus,
			ReadabilityFailPenalty: w.ReadabilityFailPenalty,
			ViolationPenalty:       w.ViolationPenalty,
			CrossItemPassBonus:     w.CrossItemPassBonus,
			CrossItemFailPenalty:   w.CrossItemFailPenalty,
			NearDuplicatePenalty:   w.NearDuplicatePenalty,
		},
		Randomization: regeneration.RandomizationRange{
			MinFactor: cfg.RandomizationRange.MinFactor,
			MaxFactor: cfg.RandomizationRange.MaxFactor,
		},
		Seed: seed,
	}
}

// errUnknownWeight is returned for an evaluation.weights key with no sub-score.
var errUnknownWeight = errors.New("unknown quality weight")

// evaluationConfig converts the readability and evaluation sections. A
// persona contributes voice markers and forbidden phrases; patterns come
// from research.
func evaluationConfig(cfg *config.Config, persona *prompt.Persona, patterns []string) (evaluation.Config, error) {
	ec := evaluation.Config{
		Readability: evaluation.ReadabilityLimits{
			MaxAvgSentenceWords: cfg.Readability.MaxAvgSentenceWords,
			MaxAvgWordLength:    cfg.Readability.MaxAvgWordLength,
		},
		AITells:                 cfg.Evaluation.AITells,
		AILikeThreshold:         cfg.Evaluation.AILikeThreshold,
		NearDuplicateSimilarity: cfg.Evaluation.NearDuplicateSimilarity,
		ShingleSize:             cfg.Evaluation.ShingleSize,
		Patterns:                patterns,
	}
	if persona != nil {
		ec.VoiceMarkers = persona.VoiceMarkers
		ec.ForbiddenPhrases = persona.ForbiddenPhrases
	}

	if len(cfg.Evaluation.Weights) > 0 {
		var w evaluation.QualityWeights
		for name, v := range cfg.Evaluation.Weights {
			switch name {
			case "ai_patterns":
				w.AIPatterns = v
			case "voice_authenticity":
				w.VoiceAuthenticity = v
			case "structural":
				w.Structural = v
			case "readability":
				w.Readability = v
			case "cross_item_variation":
				w.CrossItemVariation = v
			default:
				return evaluation.Config{}, fmt.Errorf("%w: %q", errUnknownWeight, name)
			}
		}
		ec.Weights = w
	}
	return ec, nil
}

// loadProfiles reads the configured persona profiles. It returns nil when
// templates.personas is unset.
func loadProfiles(cfg *config.Config) (*prompt.Profiles, error) {
	if cfg.Templates.Personas == "" {
		return nil, nil
	}
	return prompt.LoadProfiles(cfg.Templates.Personas)
}

// resolvePersona looks name up in profiles. An empty name means no persona.
func resolvePersona(profiles *prompt.Profiles, name string) (*prompt.Persona, error) {
	if name == "" {
		return nil, nil
	}
	if profiles == nil {
		return nil, fmt.Errorf("persona %q requested but templates.personas is not configured", name)
	}
	persona, ok := profiles.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown persona %q (available: %s)", name, strings.Join(profiles.Names(), ", "))
	}
	return &persona, nil
}
