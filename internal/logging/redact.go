package logging

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/promptgate/internal/config"
	"github.com/fyrsmithlabs/promptgate/internal/scrub"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const masked = "[REDACTED]"

// Secret logs a credential as its config.Secret hint.
func Secret(key string, s config.Secret) zap.Field {
	return zap.String(key, s.Hint())
}

// redactor masks sensitive keys and scrubs credentials out of messages and
// string fields. Prompts and model replies are logged at debug level and
// can carry pasted keys, so values are checked as well as keys.
type redactor struct {
	keys     map[string]bool
	scrubber *scrub.Scrubber
}

func newRedactor(cfg RedactionConfig) (*redactor, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	keys := make(map[string]bool, len(cfg.Keys))
	for _, k := range cfg.Keys {
		keys[strings.ToLower(k)] = true
	}

	sc := scrub.DefaultConfig()
	sc.Replacement = masked
	for i, p := range cfg.Patterns {
		sc.Rules = append(sc.Rules, scrub.Rule{ID: fmt.Sprintf("logging-pattern-%d", i+1), Pattern: p})
	}
	s, err := scrub.New(sc)
	if err != nil {
		return nil, fmt.Errorf("building log redaction rules: %w", err)
	}
	return &redactor{keys: keys, scrubber: s}, nil
}

func (r *redactor) message(msg string) string {
	return r.scrubber.Scrub(msg).Text
}

// fields returns fields with sensitive values masked. The input slice is
// not modified.
func (r *redactor) fields(in []zapcore.Field) []zapcore.Field {
	out := in
	copied := false
	for i, f := range in {
		clean, ok := r.field(f)
		if !ok {
			continue
		}
		if !copied {
			out = append([]zapcore.Field(nil), in...)
			copied = true
		}
		out[i] = clean
	}
	return out
}

func (r *redactor) field(f zapcore.Field) (zapcore.Field, bool) {
	if f.Type == zapcore.StringType && strings.HasPrefix(f.String, masked) {
		return f, false
	}
	if r.keys[strings.ToLower(f.Key)] {
		switch f.Type {
		case zapcore.SkipType, zapcore.ErrorType:
			return f, false
		}
		return zap.String(f.Key, masked), true
	}
	if f.Type != zapcore.StringType {
		return f, false
	}
	if res := r.scrubber.Scrub(f.String); res.Redacted() {
		return zap.String(f.Key, res.Text), true
	}
	return f, false
}

// redactCore applies a redactor before entries reach the wrapped sink.
type redactCore struct {
	zapcore.Core
	r *redactor
}

func redactSink(core zapcore.Core, r *redactor) zapcore.Core {
	if r == nil {
		return core
	}
	return &redactCore{Core: core, r: r}
}

func (c *redactCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactCore{Core: c.Core.With(c.r.fields(fields)), r: c.r}
}

func (c *redactCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.Message = c.r.message(ent.Message)
	return c.Core.Write(ent, c.r.fields(fields))
}
