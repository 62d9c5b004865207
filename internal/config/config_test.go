package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// validYAML is a minimal document carrying every required key.
const validYAML = `generation:
  max_regeneration_attempts: 5
  quality_threshold: 60
  min_content_length_chars: 120

readability:
  max_avg_sentence_words: 22
  max_avg_word_length: 6.5

requirements:
  min_quality: true
  require_readability_pass: true
  require_human_like: false

selection_weights:
  pattern_count_bonus: 2
  pattern_found_bonus: 5
  forbidden_phrase_penalty: 15
  readability_pass_bonus: 3
  readability_fail_penalty: 5
  violation_penalty: 1.5
  cross_item_pass_bonus: 4
  cross_item_fail_penalty: 6
  near_duplicate_penalty: 2

randomization_range:
  min_factor: 0.8
  max_factor: 1.2

compression:
  target_length: 2400
  warning_threshold: 3200
  hard_limit: 4096
`

func TestParse_ValidDocument(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}

	if cfg.Generation.MaxRegenerationAttempts != 5 {
		t.Errorf("Generation.MaxRegenerationAttempts = %d, want 5", cfg.Generation.MaxRegenerationAttempts)
	}
	if cfg.Readability.MaxAvgWordLength != 6.5 {
		t.Errorf("Readability.MaxAvgWordLength = %g, want 6.5", cfg.Readability.MaxAvgWordLength)
	}
	if !cfg.Requirements["min_quality"] || cfg.Requirements["require_human_like"] {
		t.Errorf("Requirements = %v, want min_quality on and require_human_like off", cfg.Requirements)
	}
	if cfg.SelectionWeights.ViolationPenalty != 1.5 {
		t.Errorf("SelectionWeights.ViolationPenalty = %g, want 1.5", cfg.SelectionWeights.ViolationPenalty)
	}
	if cfg.Compression.HardLimit != 4096 {
		t.Errorf("Compression.HardLimit = %d, want 4096", cfg.Compression.HardLimit)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Generation.BaseTargetWords != 150 {
		t.Errorf("Generation.BaseTargetWords = %d, want 150", cfg.Generation.BaseTargetWords)
	}
	if cfg.Generation.MinVoiceAuthenticity != 70 {
		t.Errorf("Generation.MinVoiceAuthenticity = %g, want 70", cfg.Generation.MinVoiceAuthenticity)
	}
	if cfg.Retention.MinimumRetention != 60 {
		t.Errorf("Retention.MinimumRetention = %g, want 60", cfg.Retention.MinimumRetention)
	}
	if cfg.LLM.Provider != "anthropic" || cfg.LLM.BaseURL != "https://api.anthropic.com" {
		t.Errorf("LLM = %s %s, want anthropic defaults", cfg.LLM.Provider, cfg.LLM.BaseURL)
	}
	if cfg.LLM.Timeout.Duration() != 60*time.Second {
		t.Errorf("LLM.Timeout = %v, want 60s", cfg.LLM.Timeout.Duration())
	}
	if cfg.LLM.MaxRetries != 3 {
		t.Errorf("LLM.MaxRetries = %d, want 3", cfg.LLM.MaxRetries)
	}
	if cfg.Templates.Dir != "templates" {
		t.Errorf("Templates.Dir = %q, want templates", cfg.Templates.Dir)
	}
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 9090 {
		t.Errorf("Server = %s:%d, want localhost:9090", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout.Duration() != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout.Duration())
	}
}

func TestParse_ExplicitZeroKeepsValue(t *testing.T) {
	doc := validYAML + `
retention:
  minimum_retention: 0
llm:
  provider: openai
  temperature: 0
  max_retries: 0
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Retention.MinimumRetention != 0 {
		t.Errorf("Retention.MinimumRetention = %g, want explicit 0", cfg.Retention.MinimumRetention)
	}
	if cfg.LLM.Temperature != 0 || cfg.LLM.MaxRetries != 0 {
		t.Errorf("LLM temperature/max_retries = %g/%d, want explicit zeros", cfg.LLM.Temperature, cfg.LLM.MaxRetries)
	}
	if cfg.LLM.BaseURL != "https://api.openai.com" {
		t.Errorf("LLM.BaseURL = %q, want openai default", cfg.LLM.BaseURL)
	}
}

func TestParse_MissingRequiredKeys(t *testing.T) {
	tests := []struct {
		name    string
		drop    string
		wantKey string
	}{
		{"quality threshold", "  quality_threshold: 60\n", "generation.quality_threshold"},
		{"word length", "  max_avg_word_length: 6.5\n", "readability.max_avg_word_length"},
		{"single weight", "  near_duplicate_penalty: 2\n", "selection_weights.near_duplicate_penalty"},
		{"hard limit", "  hard_limit: 4096\n", "compression.hard_limit"},
		{"min factor", "  min_factor: 0.8\n", "randomization_range.min_factor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(validYAML, tt.drop, "", 1)
			_, err := Parse([]byte(doc))
			if err == nil {
				t.Fatal("Parse() error = nil, want ConfigurationError")
			}

			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error %v is not a *ConfigurationError", err)
			}
			if len(cfgErr.Missing) != 1 || cfgErr.Missing[0] != tt.wantKey {
				t.Errorf("Missing = %v, want [%s]", cfgErr.Missing, tt.wantKey)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Error("errors.Is(err, ErrConfiguration) = false")
			}
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	_, err := Parse(nil)

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Parse(nil) error = %v, want *ConfigurationError", err)
	}
	if len(cfgErr.Missing) != len(requiredKeys) {
		t.Errorf("len(Missing) = %d, want %d", len(cfgErr.Missing), len(requiredKeys))
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.Generation.MaxRegenerationAttempts = 0 },
			wantErr: "max_regeneration_attempts must be > 0",
		},
		{
			name:    "inverted randomization range",
			mutate:  func(c *Config) { c.RandomizationRange.MaxFactor = 0.5 },
			wantErr: "0 < min_factor <= max_factor",
		},
		{
			name:    "zero min factor",
			mutate:  func(c *Config) { c.RandomizationRange.MinFactor = 0 },
			wantErr: "0 < min_factor <= max_factor",
		},
		{
			name:    "warning above hard limit",
			mutate:  func(c *Config) { c.Compression.WarningThreshold = 5000 },
			wantErr: "target_length < warning_threshold < hard_limit",
		},
		{
			name:    "retention above 100",
			mutate:  func(c *Config) { c.Retention.MinimumRetention = 101 },
			wantErr: "minimum_retention must be in [0,100]",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.LLM.Provider = "cohere" },
			wantErr: "llm.provider must be anthropic or openai",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(validYAML))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want containing %q", err, tt.wantErr)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Error("validation error should match ErrConfiguration")
			}
		})
	}
}

func TestParse_EnvironmentOverride(t *testing.T) {
	t.Setenv("PROMPTGATE_GENERATION_QUALITY_THRESHOLD", "72.5")
	t.Setenv("PROMPTGATE_SELECTION_WEIGHTS_VIOLATION_PENALTY", "3")
	t.Setenv("PROMPTGATE_LLM_API_KEY", "sk-ant-test-key-value")
	t.Setenv("PROMPTGATE_LLM_TIMEOUT", "15s")

	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Generation.QualityThreshold != 72.5 {
		t.Errorf("Generation.QualityThreshold = %g, want 72.5 (from env)", cfg.Generation.QualityThreshold)
	}
	if cfg.SelectionWeights.ViolationPenalty != 3 {
		t.Errorf("SelectionWeights.ViolationPenalty = %g, want 3 (from env)", cfg.SelectionWeights.ViolationPenalty)
	}
	if cfg.LLM.APIKey.Value() != "sk-ant-test-key-value" {
		t.Error("LLM.APIKey not loaded from env")
	}
	if cfg.LLM.APIKey.String() != "[REDACTED]" {
		t.Errorf("LLM.APIKey.String() = %q, want redacted", cfg.LLM.APIKey.String())
	}
	if cfg.LLM.Timeout.Duration() != 15*time.Second {
		t.Errorf("LLM.Timeout = %v, want 15s", cfg.LLM.Timeout.Duration())
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"PROMPTGATE_GENERATION_MAX_REGENERATION_ATTEMPTS": "generation.max_regeneration_attempts",
		"PROMPTGATE_RANDOMIZATION_RANGE_MIN_FACTOR":       "randomization_range.min_factor",
		"PROMPTGATE_REQUIREMENTS_MIN_QUALITY":             "requirements.min_quality",
		"PROMPTGATE_LOGGING_FORMAT":                       "logging.format",
		"PROMPTGATE_UNKNOWN":                              "unknown",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConfig_UnmarshalSection(t *testing.T) {
	doc := validYAML + `
logging:
  format: console
telemetry:
  enabled: true
  shutdown:
    timeout: 2s
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	type shutdown struct {
		Timeout Duration `koanf:"timeout"`
	}
	type section struct {
		Enabled  bool     `koanf:"enabled"`
		Endpoint string   `koanf:"endpoint"`
		Shutdown shutdown `koanf:"shutdown"`
	}

	out := section{Endpoint: "localhost:4317"}
	if err := cfg.UnmarshalSection("telemetry", &out); err != nil {
		t.Fatalf("UnmarshalSection() error = %v", err)
	}
	if !out.Enabled || out.Shutdown.Timeout.Duration() != 2*time.Second {
		t.Errorf("section = %+v, want enabled with 2s timeout", out)
	}
	if out.Endpoint != "localhost:4317" {
		t.Errorf("Endpoint = %q, want default preserved", out.Endpoint)
	}

	untouched := section{Endpoint: "keep"}
	if err := cfg.UnmarshalSection("absent", &untouched); err != nil {
		t.Fatalf("UnmarshalSection(absent) error = %v", err)
	}
	if untouched.Endpoint != "keep" {
		t.Error("absent section modified defaults")
	}
}

func TestConfigurationError_Message(t *testing.T) {
	err := &ConfigurationError{
		Missing: []string{"generation.quality_threshold"},
		Invalid: []string{"llm.max_retries must be >= 0, got -1"},
	}
	want := "configuration error: missing required keys: generation.quality_threshold; llm.max_retries must be >= 0, got -1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
