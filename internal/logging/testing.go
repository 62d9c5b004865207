package logging

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records entries in memory. Redaction runs as in production,
// so assertions see what would have been written.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewTestLogger records every level from debug up with the default
// redaction rules.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(zapcore.DebugLevel)
	r, err := newRedactor(NewDefaultConfig().Redaction)
	if err != nil {
		panic(fmt.Sprintf("logging: default redaction rules: %v", err))
	}
	return &TestLogger{
		Logger: &Logger{zap: zap.New(redactSink(core, r))},
		logs:   logs,
	}
}

// All returns every recorded entry.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.logs.All()
}

// Messages returns the recorded messages at level, in order.
func (t *TestLogger) Messages(level zapcore.Level) []string {
	var out []string
	for _, e := range t.logs.FilterLevelExact(level).All() {
		out = append(out, e.Message)
	}
	return out
}

// Reset discards recorded entries.
func (t *TestLogger) Reset() {
	t.logs.TakeAll()
}

func (t *TestLogger) find(level zapcore.Level, msgContains string) (observer.LoggedEntry, bool) {
	for _, e := range t.logs.FilterLevelExact(level).All() {
		if strings.Contains(e.Message, msgContains) {
			return e, true
		}
	}
	return observer.LoggedEntry{}, false
}

// AssertLogged fails tb unless an entry at level contains msgContains.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	if _, ok := t.find(level, msgContains); !ok {
		tb.Errorf("no %s entry containing %q; have %v", level, msgContains, t.Messages(level))
	}
}

// AssertNotLogged fails tb if an entry at level contains msgContains.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	if _, ok := t.find(level, msgContains); ok {
		tb.Errorf("unexpected %s entry containing %q", level, msgContains)
	}
}

// AssertField fails tb unless the first entry at level containing
// msgContains has field key with value want.
func (t *TestLogger) AssertField(tb testing.TB, level zapcore.Level, msgContains, key string, want interface{}) {
	tb.Helper()
	e, ok := t.find(level, msgContains)
	if !ok {
		tb.Errorf("no %s entry containing %q", level, msgContains)
		return
	}
	got, ok := e.ContextMap()[key]
	if !ok {
		tb.Errorf("entry %q has no field %q", e.Message, key)
		return
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		tb.Errorf("entry %q field %q = %v, want %v", e.Message, key, got, want)
	}
}

// AssertNoSecrets fails tb if any recorded message or string field still
// holds something the default credential rules match.
func (t *TestLogger) AssertNoSecrets(tb testing.TB) {
	tb.Helper()
	r, _ := newRedactor(NewDefaultConfig().Redaction)
	for _, e := range t.logs.All() {
		if r.message(e.Message) != e.Message {
			tb.Errorf("credential in message %q", e.Message)
		}
		for _, f := range e.Context {
			if _, leaked := r.field(f); leaked {
				tb.Errorf("credential in field %q of %q", f.Key, e.Message)
			}
		}
	}
}
