package logging

import (
	"fmt"
	"regexp"
	"time"

	"github.com/fyrsmithlabs/promptgate/internal/config"
	"go.uber.org/zap/zapcore"
)

// Config is the logging section of config.yaml.
type Config struct {
	Level     zapcore.Level     `koanf:"level"`
	Format    string            `koanf:"format"` // json or console
	Output    OutputConfig      `koanf:"output"`
	Sampling  SamplingConfig    `koanf:"sampling"`
	Fields    map[string]string `koanf:"fields"`
	Redaction RedactionConfig   `koanf:"redaction"`
}

// OutputConfig selects the sinks. The console stream is always written.
type OutputConfig struct {
	// Stderr moves the console stream off stdout. The CLI sets it so stdout
	// carries only command results.
	Stderr bool `koanf:"stderr"`

	// OTEL also forwards entries to the telemetry log provider, when one
	// is configured.
	OTEL bool `koanf:"otel"`
}

// SamplingConfig throttles repeated debug and info entries on the console.
// Warnings and errors always pass.
type SamplingConfig struct {
	Enabled    bool            `koanf:"enabled"`
	Tick       config.Duration `koanf:"tick"`
	Initial    int             `koanf:"initial"`
	Thereafter int             `koanf:"thereafter"`
}

// RedactionConfig controls what is masked before an entry reaches any sink.
type RedactionConfig struct {
	Enabled bool `koanf:"enabled"`

	// Keys are field names whose values are always masked (case-insensitive).
	Keys []string `koanf:"keys"`

	// Patterns are extra regexps applied to messages and string fields on
	// top of the built-in credential rules.
	Patterns []string `koanf:"patterns"`
}

// NewDefaultConfig returns JSON logging at info with redaction on.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Sampling: SamplingConfig{
			Enabled:    true,
			Tick:       config.Duration(time.Second),
			Initial:    100,
			Thereafter: 10,
		},
		Fields: map[string]string{"service": "promptgate"},
		Redaction: RedactionConfig{
			Enabled: true,
			Keys:    []string{"api_key", "x-api-key", "authorization", "password", "secret", "token"},
		},
	}
}

// Validate rejects configurations NewLogger cannot build.
func (c *Config) Validate() error {
	switch c.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Format)
	}
	if c.Level < zapcore.DebugLevel || c.Level > zapcore.FatalLevel {
		return fmt.Errorf("logging.level %v is out of range", c.Level)
	}
	if c.Sampling.Enabled {
		if c.Sampling.Tick.Duration() <= 0 {
			return fmt.Errorf("logging.sampling.tick must be positive when sampling is enabled")
		}
		if c.Sampling.Initial < 1 || c.Sampling.Thereafter < 0 {
			return fmt.Errorf("logging.sampling needs initial >= 1 and thereafter >= 0, got %d/%d",
				c.Sampling.Initial, c.Sampling.Thereafter)
		}
	}
	for k, v := range c.Fields {
		if k == "" || v == "" {
			return fmt.Errorf("logging.fields entries need a key and a value, got %q=%q", k, v)
		}
	}
	for _, p := range c.Redaction.Patterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("logging.redaction.patterns: %w", err)
		}
	}
	return nil
}
