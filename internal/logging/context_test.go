package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zapcore"
)

func fieldMap(ctx context.Context) map[string]interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range ContextFields(ctx) {
		f.AddTo(enc)
	}
	return enc.Fields
}

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_Correlation(t *testing.T) {
	ctx := WithSubject(context.Background(), "  aluminum 6061 ")
	ctx = WithSessionID(ctx, "0f8c2d4e-8a1b-4c7e-9d2f-3b5a6c7d8e9f")
	ctx = WithItem(ctx, 2)
	ctx = WithAttempt(ctx, 3)

	assert.Equal(t, map[string]interface{}{
		FieldSubject:   "aluminum 6061",
		FieldSessionID: "0f8c2d4e-8a1b-4c7e-9d2f-3b5a6c7d8e9f",
		FieldItem:      int64(2),
		FieldAttempt:   int64(3),
	}, fieldMap(ctx))
}

func TestWithItem_ClearsAttempt(t *testing.T) {
	ctx := WithAttempt(WithItem(context.Background(), 1), 4)
	ctx = WithItem(ctx, 2)

	c := CorrelationFrom(ctx)
	assert.Equal(t, 2, c.Item)
	assert.Zero(t, c.Attempt)
}

func TestContextFields_IgnoresInvalidValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithSubject(ctx, "   ")
	ctx = WithSubject(ctx, "bad\xffutf8")
	ctx = WithSessionID(ctx, "has spaces")
	ctx = WithRequestID(ctx, "id\n{\"admin\":true}")
	ctx = WithRequestID(ctx, strings.Repeat("a", 129))
	ctx = WithAttempt(ctx, 0)
	ctx = WithItem(ctx, -1)

	assert.Equal(t, Correlation{}, CorrelationFrom(ctx))
}

func TestWithSubject_Shortened(t *testing.T) {
	ctx := WithSubject(context.Background(), strings.Repeat("é", maxSubjectRunes+10))
	assert.Equal(t, maxSubjectRunes, len([]rune(CorrelationFrom(ctx).Subject)))
}

func TestWithRequestID_ParentUnchanged(t *testing.T) {
	parent := WithRequestID(context.Background(), "req-1")
	child := WithRequestID(parent, "req-2")

	assert.Equal(t, "req-1", CorrelationFrom(parent).RequestID)
	assert.Equal(t, "req-2", CorrelationFrom(child).RequestID)
}

func TestContextFields_Trace(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "regeneration.run")
	defer span.End()

	fields := fieldMap(ctx)
	require.Contains(t, fields, FieldTraceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), fields[FieldTraceID])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields[FieldSpanID])
}
