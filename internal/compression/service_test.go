package compression

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/promptgate/internal/logging"
	"github.com/fyrsmithlabs/promptgate/internal/telemetry"
)

func TestService_Optimize(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	logger := logging.NewTestLogger()

	svc, err := NewService(
		WithLogger(logger.Logger),
		WithTracerProvider(tel.TracerProvider()),
		WithMeterProvider(tel.MeterProvider()),
	)
	require.NoError(t, err)

	ctx := context.Background()
	budget := MustBudget(2400, 4096, 3200)
	res, err := svc.Optimize(ctx, laserCleaningPrompt(6000), budget, laserFacts)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.LessOrEqual(t, res.FinalLength, budget.HardLimit())

	tel.AssertSpanExists(t, "compression.optimize")
	tel.AssertSpanAttribute(t, "compression.optimize", "final_length", int64(res.FinalLength))
	logger.AssertLogged(t, zapcore.DebugLevel, "prompt compressed")

	tel.AssertMetricExists(t, ctx, "compression.operations_total")
	tel.AssertMetricExists(t, ctx, "compression.strategy_total")
}

func TestService_Optimize_EmptyPrompt(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)

	_, err = svc.Optimize(context.Background(), "", MustBudget(10, 30, 20), nil)
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestService_Optimize_UnderTargetNotLogged(t *testing.T) {
	logger := logging.NewTestLogger()
	svc, err := NewService(WithLogger(logger.Logger))
	require.NoError(t, err)

	res, err := svc.Optimize(context.Background(), "short prompt", MustBudget(100, 300, 200), nil)
	require.NoError(t, err)
	assert.Equal(t, "short prompt", res.Text)
	logger.AssertNotLogged(t, zapcore.DebugLevel, "prompt compressed")
}
