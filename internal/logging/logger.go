package logging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"syscall"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// instrumentationName scopes entries forwarded to the OTEL log provider.
const instrumentationName = "github.com/fyrsmithlabs/promptgate"

// Logger is a zap logger whose methods take a context and prepend its
// ContextFields.
type Logger struct {
	zap *zap.Logger
}

// NewLogger builds a logger from cfg. otelProvider may be nil, in which case
// cfg.Output.OTEL is ignored.
func NewLogger(cfg *Config, otelProvider log.LoggerProvider) (*Logger, error) {
	var console zapcore.WriteSyncer = os.Stdout
	if cfg.Output.Stderr {
		console = os.Stderr
	}
	return newLogger(cfg, otelProvider, zapcore.Lock(console))
}

func newLogger(cfg *Config, otelProvider log.LoggerProvider, console zapcore.WriteSyncer) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	r, err := newRedactor(cfg.Redaction)
	if err != nil {
		return nil, err
	}

	enc := newEncoder(cfg.Format)
	quiet := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= cfg.Level && l < zapcore.WarnLevel
	})
	loud := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= cfg.Level && l >= zapcore.WarnLevel
	})

	var low zapcore.Core = redactSink(zapcore.NewCore(enc, console, quiet), r)
	if cfg.Sampling.Enabled {
		low = zapcore.NewSamplerWithOptions(low,
			cfg.Sampling.Tick.Duration(), cfg.Sampling.Initial, cfg.Sampling.Thereafter)
	}
	cores := []zapcore.Core{low, redactSink(zapcore.NewCore(enc.Clone(), console, loud), r)}

	if cfg.Output.OTEL && otelProvider != nil {
		bridge := otelzap.NewCore(instrumentationName, otelzap.WithLoggerProvider(otelProvider))
		var otelCore zapcore.Core = bridge
		if c, err := zapcore.NewIncreaseLevelCore(bridge, cfg.Level); err == nil {
			otelCore = c
		}
		cores = append(cores, redactSink(otelCore, r))
	}

	// Entries pass through a Logger method and log before reaching zap.
	z := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(zapcore.ErrorLevel))
	if len(cfg.Fields) > 0 {
		keys := make([]string, 0, len(cfg.Fields))
		for k := range cfg.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]zap.Field, len(keys))
		for i, k := range keys {
			fields[i] = zap.String(k, cfg.Fields[k])
		}
		z = z.With(fields...)
	}
	return &Logger{zap: z}, nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if format == "console" {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

func (l *Logger) log(ctx context.Context, lvl zapcore.Level, msg string, fields []zap.Field) {
	ce := l.zap.Check(lvl, msg)
	if ce == nil {
		return
	}
	ce.Write(append(ContextFields(ctx), fields...)...)
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields)
}

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...)}
}

// Named returns a child logger for one component, e.g. "regeneration".
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name)}
}

// Sync flushes buffered entries. EINVAL and ENOTTY from syncing a terminal
// or pipe are ignored.
func (l *Logger) Sync() error {
	err := l.zap.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
