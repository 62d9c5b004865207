package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte(" 1m30s ")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if d.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want 1m30s", d.Duration())
	}

	for _, bad := range []string{"-5s", "soon", ""} {
		if err := d.UnmarshalText([]byte(bad)); err == nil {
			t.Errorf("UnmarshalText(%q) should fail", bad)
		}
	}
}

func TestDuration_Or(t *testing.T) {
	if got := Duration(0).Or(time.Minute); got != time.Minute {
		t.Errorf("zero.Or() = %v, want fallback", got)
	}
	if got := Duration(2 * time.Second).Or(time.Minute); got != 2*time.Second {
		t.Errorf("Or() = %v, want configured value", got)
	}
}

func TestDuration_RoundTripsThroughYAML(t *testing.T) {
	type section struct {
		Timeout Duration `yaml:"timeout"`
	}
	out, err := yaml.Marshal(section{Timeout: Duration(45 * time.Second)})
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	if !strings.Contains(string(out), "timeout: 45s") {
		t.Errorf("yaml = %q, want timeout: 45s", out)
	}

	var back section
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if back.Timeout.Duration() != 45*time.Second {
		t.Errorf("round trip = %v", back.Timeout.Duration())
	}
}

func TestSecret_NeverPrinted(t *testing.T) {
	s := Secret("sk-ant-REDACTED")

	if got := fmt.Sprintf("%s %v %#v", s, s, s); got != "[REDACTED] [REDACTED] config.Secret([REDACTED])" {
		t.Errorf("formatted secret = %q", got)
	}

	data, err := json.Marshal(struct{ Key Secret }{s})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(data) != `{"Key":"[REDACTED]"}` {
		t.Errorf("json = %s, want redacted", data)
	}

	out, err := yaml.Marshal(map[string]Secret{"api_key": s})
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	if strings.Contains(string(out), "very-secret") {
		t.Errorf("yaml leaked secret: %s", out)
	}

	if s.Value() != "sk-ant-REDACTED" || !s.IsSet() {
		t.Error("Value()/IsSet() must expose the raw secret")
	}
	if Secret("  ").IsSet() {
		t.Error("blank secret reported as set")
	}
}

func TestSecret_Hint(t *testing.T) {
	if got := Secret("sk-ant-REDACTED").Hint(); got != "[REDACTED](len=35,...9f2c)" {
		t.Errorf("Hint() = %q", got)
	}
	if got := Secret("short").Hint(); got != "[REDACTED](len=5)" {
		t.Errorf("Hint() on short key = %q, want no suffix", got)
	}
}

func TestSecret_UnmarshalFromYAML(t *testing.T) {
	var section struct {
		APIKey Secret `yaml:"api_key"`
	}
	if err := yaml.Unmarshal([]byte("api_key: \"sk-test-key \"\n"), &section); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if section.APIKey.Value() != "sk-test-key" {
		t.Errorf("Value() = %q, want trimmed raw key", section.APIKey.Value())
	}
}
