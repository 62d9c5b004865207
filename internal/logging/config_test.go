package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "console format", mutate: func(c *Config) { c.Format = "console" }},
		{
			name:    "unknown format",
			mutate:  func(c *Config) { c.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "level below debug",
			mutate:  func(c *Config) { c.Level = zapcore.Level(-5) },
			wantErr: "out of range",
		},
		{
			name:    "zero tick",
			mutate:  func(c *Config) { c.Sampling.Tick = 0 },
			wantErr: "tick must be positive",
		},
		{
			name:   "zero tick with sampling off",
			mutate: func(c *Config) { c.Sampling.Enabled = false; c.Sampling.Tick = 0 },
		},
		{
			name:    "zero initial",
			mutate:  func(c *Config) { c.Sampling.Initial = 0 },
			wantErr: "initial >= 1",
		},
		{
			name:    "empty field value",
			mutate:  func(c *Config) { c.Fields["env"] = "" },
			wantErr: "logging.fields",
		},
		{
			name:    "bad redaction pattern",
			mutate:  func(c *Config) { c.Redaction.Patterns = []string{"([a-z"} },
			wantErr: "logging.redaction.patterns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLogger_RejectsInvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "logfmt"

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid logging config")
}
