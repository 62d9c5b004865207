package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "disabled defaults", mutate: func(*Config) {}},
		{name: "disabled ignores bad values", mutate: func(c *Config) { c.Endpoint = ""; c.SampleRate = 7 }},
		{name: "enabled local grpc", mutate: func(c *Config) { c.Enabled = true }},
		{
			name:   "enabled local http with scheme",
			mutate: func(c *Config) { c.Enabled = true; c.Protocol = ProtocolHTTP; c.Endpoint = "http://127.0.0.1:4318" },
		},
		{name: "ipv6 loopback", mutate: func(c *Config) { c.Enabled = true; c.Endpoint = "[::1]:4317" }},
		{
			name:   "remote with tls",
			mutate: func(c *Config) { c.Enabled = true; c.Insecure = false; c.Endpoint = "otel.example.com:4317" },
		},
		{
			name:    "remote without tls",
			mutate:  func(c *Config) { c.Enabled = true; c.Endpoint = "otel.example.com:4317" },
			wantErr: "only allowed for loopback",
		},
		{
			name:    "localhost lookalike",
			mutate:  func(c *Config) { c.Enabled = true; c.Endpoint = "localhost.example.com:4317" },
			wantErr: "only allowed for loopback",
		},
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) { c.Enabled = true; c.Endpoint = "" },
			wantErr: "endpoint is required",
		},
		{
			name:    "unknown protocol",
			mutate:  func(c *Config) { c.Enabled = true; c.Protocol = "http/json" },
			wantErr: "telemetry.protocol",
		},
		{
			name:    "sample rate above one",
			mutate:  func(c *Config) { c.Enabled = true; c.SampleRate = 1.5 },
			wantErr: "sample_rate",
		},
		{
			name:    "missing service name",
			mutate:  func(c *Config) { c.Enabled = true; c.ServiceName = "" },
			wantErr: "service_name",
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

func TestConfig_Address(t *testing.T) {
	tests := map[string]string{
		"localhost:4317":             "localhost:4317",
		"https://collector:4318":     "collector:4318",
		"http://collector:4318/v1/x": "collector:4318",
		"[::1]:4317":                 "[::1]:4317",
		"grpc://otel.internal:4317/": "otel.internal:4317",
	}
	for in, want := range tests {
		c := &Config{Endpoint: in}
		assert.Equal(t, want, c.address(), in)
	}
}
