// Package logging is promptgate's zap setup.
//
// Every Logger method takes a context and prepends the correlation carried
// by it: the active trace and span, the subject being written about, the
// regeneration session, the attempt number and, for generate --count runs,
// the item number.
//
//	ctx = logging.WithSubject(ctx, "aluminum 6061")
//	ctx = logging.WithSessionID(ctx, session.ID.String())
//	ctx = logging.WithAttempt(ctx, 2)
//	logger.Info(ctx, "attempt scored", zap.Float64("quality", q))
//
// Before an entry reaches the console or the OTEL bridge, fields named in
// logging.redaction.keys are masked and messages and string fields are run
// through the scrub package's credential rules. Debug and info entries on
// the console are sampled; warnings and errors never are.
//
// Tests use NewTestLogger and assert on what was recorded:
//
//	tl := logging.NewTestLogger()
//	svc, err := compression.NewService(compression.WithLogger(tl.Logger))
//	...
//	tl.AssertLogged(t, zapcore.DebugLevel, "prompt compressed")
package logging
