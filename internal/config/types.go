package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration is a time.Duration that reads from strings such as "90s" in YAML
// files and PROMPTGATE_* variables.
type Duration time.Duration

// UnmarshalText parses a Go duration string. Negative values are rejected.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration in time.Duration.String form. JSON and
// YAML encoders both pick this up.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Or returns d, or fallback when d is zero.
func (d Duration) Or(fallback time.Duration) time.Duration {
	if d == 0 {
		return fallback
	}
	return time.Duration(d)
}

const redactedMarker = "[REDACTED]"

// Secret holds a credential such as llm.api_key. It prints and serializes as
// a redaction marker; only Value exposes the raw string.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redactedMarker
}

func (s Secret) GoString() string {
	return "config.Secret(" + redactedMarker + ")"
}

// Value returns the raw credential for the one place that sends it.
func (s Secret) Value() string {
	return string(s)
}

// IsSet reports whether a credential was configured.
func (s Secret) IsSet() bool {
	return strings.TrimSpace(string(s)) != ""
}

// Hint identifies a credential in diagnostics without revealing it: the
// length plus the last four characters when the key is long enough that
// they give nothing away.
func (s Secret) Hint() string {
	n := len(s)
	if n < 20 {
		return fmt.Sprintf("%s(len=%d)", redactedMarker, n)
	}
	return fmt.Sprintf("%s(len=%d,...%s)", redactedMarker, n, s[n-4:])
}

// MarshalText keeps secrets out of `promptgate config` dumps and JSON
// responses.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the raw credential from YAML or the environment.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(strings.TrimSpace(string(text)))
	return nil
}
