// Package config provides configuration loading for promptgate.
//
// Configuration is loaded once from a YAML file with PROMPTGATE_-prefixed
// environment overrides, validated, and shared read-only afterwards. Keys
// that drive generation thresholds are required: a missing key is a
// *ConfigurationError, never a silently substituted default.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/v2"
)

// Config holds the complete promptgate configuration.
type Config struct {
	Generation         GenerationConfig       `koanf:"generation"`
	Readability        ReadabilityConfig      `koanf:"readability"`
	Requirements       map[string]bool        `koanf:"requirements"`
	SelectionWeights   SelectionWeightsConfig `koanf:"selection_weights"`
	RandomizationRange RandomizationConfig    `koanf:"randomization_range"`
	Compression        CompressionConfig      `koanf:"compression"`
	Retention          RetentionConfig        `koanf:"retention"`
	LLM                LLMConfig              `koanf:"llm"`
	Templates          TemplatesConfig        `koanf:"templates"`
	Evaluation         EvaluationConfig       `koanf:"evaluation"`
	Server             ServerConfig           `koanf:"server"`

	// raw holds the merged document for sections owned by other packages
	// (logging, telemetry). See UnmarshalSection.
	raw *koanf.Koanf
}

// GenerationConfig holds regeneration loop settings.
type GenerationConfig struct {
	MaxRegenerationAttempts int     `koanf:"max_regeneration_attempts"`
	QualityThreshold        float64 `koanf:"quality_threshold"`
	MinContentLengthChars   int     `koanf:"min_content_length_chars"`
	BaseTargetWords         int     `koanf:"base_target_words"`      // default 150
	MinVoiceAuthenticity    float64 `koanf:"min_voice_authenticity"` // default 70
	Seed                    uint64  `koanf:"seed"`                   // 0 derives the seed from the subject
}

// ReadabilityConfig holds readability limits.
type ReadabilityConfig struct {
	MaxAvgSentenceWords float64 `koanf:"max_avg_sentence_words"`
	MaxAvgWordLength    float64 `koanf:"max_avg_word_length"`
}

// SelectionWeightsConfig holds selection score bonuses and penalties.
type SelectionWeightsConfig struct {
	PatternCountBonus      float64 `koanf:"pattern_count_bonus"`
	PatternFoundBonus      float64 `koanf:"pattern_found_bonus"`
	ForbiddenPhrasePenalty float64 `koanf:"forbidden_phrase_penalty"`
	ReadabilityPassBonus   float64 `koanf:"readability_pass_bonus"`
	ReadabilityFailPenalty float64 `koanf:"readability_fail_penalty"`
	ViolationPenalty       float64 `koanf:"violation_penalty"`
	CrossItemPassBonus     float64 `koanf:"cross_item_pass_bonus"`
	CrossItemFailPenalty   float64 `koanf:"cross_item_fail_penalty"`
	NearDuplicatePenalty   float64 `koanf:"near_duplicate_penalty"`
}

// RandomizationConfig bounds the per-attempt target length factor.
type RandomizationConfig struct {
	MinFactor float64 `koanf:"min_factor"`
	MaxFactor float64 `koanf:"max_factor"`
}

// CompressionConfig holds the prompt length budget.
type CompressionConfig struct {
	TargetLength     int `koanf:"target_length"`
	HardLimit        int `koanf:"hard_limit"`
	WarningThreshold int `koanf:"warning_threshold"`
}

// RetentionConfig holds fact retention settings.
type RetentionConfig struct {
	MinimumRetention float64 `koanf:"minimum_retention"` // default 60
	Advisory         bool    `koanf:"advisory"`          // report data loss without failing
}

// LLMConfig holds LLM API client settings.
type LLMConfig struct {
	Provider          string   `koanf:"provider"` // anthropic or openai
	Model             string   `koanf:"model"`
	BaseURL           string   `koanf:"base_url"`
	APIKey            Secret   `koanf:"api_key"`
	MaxTokens         int      `koanf:"max_tokens"`
	Temperature       float64  `koanf:"temperature"`
	Timeout           Duration `koanf:"timeout"`
	RequestsPerMinute int      `koanf:"requests_per_minute"`
	MaxRetries        int      `koanf:"max_retries"`
}

// TemplatesConfig locates prompt templates and persona profiles.
type TemplatesConfig struct {
	Dir      string `koanf:"dir"`
	Personas string `koanf:"personas"`
	Watch    bool   `koanf:"watch"`
}

// EvaluationConfig tunes the default scoring oracle.
type EvaluationConfig struct {
	AITells                 []string           `koanf:"ai_tells"`
	AILikeThreshold         int                `koanf:"ai_like_threshold"`
	NearDuplicateSimilarity float64            `koanf:"near_duplicate_similarity"`
	ShingleSize             int                `koanf:"shingle_size"`
	Weights                 map[string]float64 `koanf:"weights"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// requiredKeys must be present in the loaded document.
var requiredKeys = []string{
	"generation.max_regeneration_attempts",
	"generation.quality_threshold",
	"generation.min_content_length_chars",
	"readability.max_avg_sentence_words",
	"readability.max_avg_word_length",
	"requirements",
	"selection_weights.pattern_count_bonus",
	"selection_weights.pattern_found_bonus",
	"selection_weights.forbidden_phrase_penalty",
	"selection_weights.readability_pass_bonus",
	"selection_weights.readability_fail_penalty",
	"selection_weights.violation_penalty",
	"selection_weights.cross_item_pass_bonus",
	"selection_weights.cross_item_fail_penalty",
	"selection_weights.near_duplicate_penalty",
	"randomization_range.min_factor",
	"randomization_range.max_factor",
	"compression.target_length",
	"compression.hard_limit",
	"compression.warning_threshold",
}

// ErrConfiguration is matched by every *ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports missing required keys or invalid values.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required keys: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, strings.Join(e.Invalid, "; "))
	}
	return "configuration error: " + strings.Join(parts, "; ")
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Validate validates the configuration.
//
// Returns a *ConfigurationError listing every invalid value.
func (c *Config) Validate() error {
	var invalid []string
	add := func(format string, args ...interface{}) {
		invalid = append(invalid, fmt.Sprintf(format, args...))
	}

	if c.Generation.MaxRegenerationAttempts <= 0 {
		add("generation.max_regeneration_attempts must be > 0, got %d", c.Generation.MaxRegenerationAttempts)
	}
	if c.Generation.QualityThreshold < 0 || c.Generation.QualityThreshold > 100 {
		add("generation.quality_threshold must be in [0,100], got %g", c.Generation.QualityThreshold)
	}
	if c.Generation.MinContentLengthChars < 0 {
		add("generation.min_content_length_chars must be >= 0, got %d", c.Generation.MinContentLengthChars)
	}
	if c.Generation.BaseTargetWords <= 0 {
		add("generation.base_target_words must be > 0, got %d", c.Generation.BaseTargetWords)
	}
	if c.Readability.MaxAvgSentenceWords <= 0 {
		add("readability.max_avg_sentence_words must be > 0, got %g", c.Readability.MaxAvgSentenceWords)
	}
	if c.Readability.MaxAvgWordLength <= 0 {
		add("readability.max_avg_word_length must be > 0, got %g", c.Readability.MaxAvgWordLength)
	}

	r := c.RandomizationRange
	if r.MinFactor <= 0 || r.MaxFactor < r.MinFactor {
		add("randomization_range requires 0 < min_factor <= max_factor, got min=%g max=%g", r.MinFactor, r.MaxFactor)
	}

	b := c.Compression
	if b.TargetLength <= 0 || b.TargetLength >= b.WarningThreshold || b.WarningThreshold >= b.HardLimit {
		add("compression requires 0 < target_length < warning_threshold < hard_limit, got %d/%d/%d",
			b.TargetLength, b.WarningThreshold, b.HardLimit)
	}

	if c.Retention.MinimumRetention < 0 || c.Retention.MinimumRetention > 100 {
		add("retention.minimum_retention must be in [0,100], got %g", c.Retention.MinimumRetention)
	}

	switch c.LLM.Provider {
	case "anthropic", "openai":
	default:
		add("llm.provider must be anthropic or openai, got %q", c.LLM.Provider)
	}
	if c.LLM.RequestsPerMinute <= 0 {
		add("llm.requests_per_minute must be > 0, got %d", c.LLM.RequestsPerMinute)
	}
	if c.LLM.MaxRetries < 0 {
		add("llm.max_retries must be >= 0, got %d", c.LLM.MaxRetries)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		add("server.port must be in [0,65535], got %d", c.Server.Port)
	}

	if len(invalid) > 0 {
		return &ConfigurationError{Invalid: invalid}
	}
	return nil
}

// UnmarshalSection decodes a section owned by another package (for example
// "logging" or "telemetry") over out, which should hold that package's
// defaults. Absent sections leave out untouched.
func (c *Config) UnmarshalSection(path string, out interface{}) error {
	if c.raw == nil || !c.raw.Exists(path) {
		return nil
	}
	if err := c.raw.Unmarshal(path, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", path, err)
	}
	return nil
}
