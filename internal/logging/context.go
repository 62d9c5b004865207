package logging

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Field names added by ContextFields.
const (
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldSubject   = "subject"
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldAttempt   = "attempt"
	FieldItem      = "item"
)

const maxSubjectRunes = 120

// idPattern matches UUIDs and the IDs echo's RequestID middleware generates.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Correlation identifies the unit of work a log entry belongs to. Zero
// values are omitted from log output.
type Correlation struct {
	Subject   string
	SessionID string
	RequestID string
	Attempt   int // 1-based regeneration attempt
	Item      int // 1-based item in a multi-item generate run
}

type correlationKey struct{}

// CorrelationFrom returns the correlation stored in ctx.
func CorrelationFrom(ctx context.Context) Correlation {
	c, _ := ctx.Value(correlationKey{}).(Correlation)
	return c
}

func withCorrelation(ctx context.Context, update func(*Correlation)) context.Context {
	c := CorrelationFrom(ctx)
	update(&c)
	return context.WithValue(ctx, correlationKey{}, c)
}

// WithSubject records what is being written about. Long subjects are
// shortened; an empty or non-UTF-8 subject leaves ctx unchanged.
func WithSubject(ctx context.Context, subject string) context.Context {
	subject = strings.TrimSpace(subject)
	if subject == "" || !utf8.ValidString(subject) {
		return ctx
	}
	if r := []rune(subject); len(r) > maxSubjectRunes {
		subject = string(r[:maxSubjectRunes])
	}
	return withCorrelation(ctx, func(c *Correlation) { c.Subject = subject })
}

// WithSessionID records the regeneration session. IDs outside
// [A-Za-z0-9_-]{1,128} are ignored.
func WithSessionID(ctx context.Context, id string) context.Context {
	if !idPattern.MatchString(id) {
		return ctx
	}
	return withCorrelation(ctx, func(c *Correlation) { c.SessionID = id })
}

// WithRequestID records the HTTP request ID. Client-supplied IDs that do
// not match the session ID format are ignored.
func WithRequestID(ctx context.Context, id string) context.Context {
	if !idPattern.MatchString(id) {
		return ctx
	}
	return withCorrelation(ctx, func(c *Correlation) { c.RequestID = id })
}

// WithAttempt records the 1-based attempt number. Values below 1 are ignored.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	if attempt < 1 {
		return ctx
	}
	return withCorrelation(ctx, func(c *Correlation) { c.Attempt = attempt })
}

// WithItem records the 1-based item number of a generate --count run.
// It resets the attempt, which belongs to the previous item.
func WithItem(ctx context.Context, item int) context.Context {
	if item < 1 {
		return ctx
	}
	return withCorrelation(ctx, func(c *Correlation) {
		c.Item = item
		c.Attempt = 0
	})
}

// ContextFields returns the trace and correlation fields for ctx.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String(FieldTraceID, sc.TraceID().String()),
			zap.String(FieldSpanID, sc.SpanID().String()),
		)
	}

	c := CorrelationFrom(ctx)
	if c.Subject != "" {
		fields = append(fields, zap.String(FieldSubject, c.Subject))
	}
	if c.SessionID != "" {
		fields = append(fields, zap.String(FieldSessionID, c.SessionID))
	}
	if c.RequestID != "" {
		fields = append(fields, zap.String(FieldRequestID, c.RequestID))
	}
	if c.Item > 0 {
		fields = append(fields, zap.Int(FieldItem, c.Item))
	}
	if c.Attempt > 0 {
		fields = append(fields, zap.Int(FieldAttempt, c.Attempt))
	}
	return fields
}
