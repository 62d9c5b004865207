package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger_Assertions(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithSessionID(context.Background(), "session-1")

	tl.Info(ctx, "attempt scored", zap.Int("attempt_number", 2))
	tl.Warn(ctx, "gate failed", zap.String("gate", "human_like"))

	tl.AssertLogged(t, zapcore.InfoLevel, "scored")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "scored")
	tl.AssertField(t, zapcore.InfoLevel, "attempt scored", "attempt_number", 2)
	tl.AssertField(t, zapcore.InfoLevel, "attempt scored", FieldSessionID, "session-1")
	tl.AssertField(t, zapcore.WarnLevel, "gate failed", "gate", "human_like")
	assert.Equal(t, []string{"gate failed"}, tl.Messages(zapcore.WarnLevel))
	tl.AssertNoSecrets(t)

	tl.Reset()
	assert.Empty(t, tl.All())
}

func TestTestLogger_RedactsLikeProduction(t *testing.T) {
	tl := NewTestLogger()

	tl.Debug(context.Background(), "llm reply",
		zap.String("authorization", "Bearer abc"),
		zap.String("reply", "token ghp_"+"abcdefghijklmnopqrstuvwxyz0123456789"),
	)

	tl.AssertField(t, zapcore.DebugLevel, "llm reply", "authorization", "[REDACTED]")
	tl.AssertField(t, zapcore.DebugLevel, "llm reply", "reply", "token [REDACTED]")
	tl.AssertNoSecrets(t)
}

type failureCounter struct {
	testing.TB
	failures int
}

func (f *failureCounter) Helper() {}

func (f *failureCounter) Errorf(string, ...interface{}) { f.failures++ }

func TestTestLogger_FlagsFailures(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "present", zap.String("reply", "api_key=abcdef123456"))

	tb := &failureCounter{TB: t}
	tl.AssertLogged(tb, zapcore.InfoLevel, "absent")
	tl.AssertNotLogged(tb, zapcore.InfoLevel, "present")
	tl.AssertField(tb, zapcore.InfoLevel, "present", "missing", 1)
	assert.Equal(t, 3, tb.failures)

	// the recorded value was already scrubbed, so nothing leaks
	tl.AssertNoSecrets(tb)
	assert.Equal(t, 3, tb.failures)
}
