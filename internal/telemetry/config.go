package telemetry

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/fyrsmithlabs/promptgate/internal/config"
)

// Export protocols.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
)

// Config is the telemetry section of config.yaml.
type Config struct {
	Enabled bool `koanf:"enabled"`

	// Endpoint is the collector's host:port. A scheme is tolerated and
	// stripped.
	Endpoint string `koanf:"endpoint"`
	Protocol string `koanf:"protocol"`

	// Insecure disables TLS. Only loopback endpoints may use it.
	Insecure bool `koanf:"insecure"`

	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`

	// SampleRate is the fraction of root traces kept, 0 to 1.
	SampleRate float64 `koanf:"sample_rate"`

	// MetricInterval is how often metrics are pushed. Zero disables metric
	// export; spans are still sent.
	MetricInterval config.Duration `koanf:"metric_interval"`

	ShutdownTimeout config.Duration `koanf:"shutdown_timeout"`
}

// NewDefaultConfig returns a disabled configuration pointing at a local
// collector.
func NewDefaultConfig() *Config {
	return &Config{
		Endpoint:        "localhost:4317",
		Protocol:        ProtocolGRPC,
		Insecure:        true,
		ServiceName:     "promptgate",
		ServiceVersion:  "dev",
		SampleRate:      1,
		MetricInterval:  config.Duration(30 * time.Second),
		ShutdownTimeout: config.Duration(5 * time.Second),
	}
}

// Validate checks an enabled configuration. A disabled one is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.host() == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	if c.Protocol != ProtocolGRPC && c.Protocol != ProtocolHTTP {
		return fmt.Errorf("telemetry.protocol must be %q or %q, got %q", ProtocolGRPC, ProtocolHTTP, c.Protocol)
	}
	if c.ServiceName == "" {
		return fmt.Errorf("telemetry.service_name is required when telemetry is enabled")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be within [0, 1], got %g", c.SampleRate)
	}
	if c.Insecure && !c.loopback() {
		return fmt.Errorf("telemetry.insecure is only allowed for loopback endpoints, got %q", c.Endpoint)
	}
	return nil
}

// address returns Endpoint without a URL scheme or trailing path.
func (c *Config) address() string {
	addr := c.Endpoint
	if i := strings.Index(addr, "://"); i >= 0 {
		addr = addr[i+3:]
	}
	if i := strings.IndexByte(addr, '/'); i >= 0 {
		addr = addr[:i]
	}
	return addr
}

func (c *Config) host() string {
	addr := c.address()
	if h, _, err := net.SplitHostPort(addr); err == nil {
		return h
	}
	return strings.Trim(addr, "[]")
}

func (c *Config) loopback() bool {
	h := c.host()
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
