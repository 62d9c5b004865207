package compression

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/promptgate/internal/facts"
)

var laserFacts = []facts.CriticalFact{
	{Name: "rust oxidation", Severity: facts.SeverityCritical},
	{Name: "1064nm", Severity: facts.SeverityHigh},
	{Name: "aluminum", Severity: facts.SeverityHigh},
}

// laserCleaningPrompt builds a realistic prompt of at least minChars characters.
func laserCleaningPrompt(minChars int) string {
	var b strings.Builder
	b.WriteString("You are writing a technical description of laser cleaning for one material.\n\n")
	b.WriteString("## Critical facts\n")
	b.WriteString("1. Substrate: aluminum;\n")
	b.WriteString("2. Laser wavelength: 1064nm fiber source;\n")
	b.WriteString("3. Contaminant: rust oxidation on exposed surfaces.\n\n")
	b.WriteString("## Voice\n")
	b.WriteString("Write in order to inform a careful engineer. Please make sure that every claim is concrete.\n\n")

	i := 0
	for b.Len() < minChars {
		fmt.Fprintf(&b, "## Background notes %d\n", i)
		for j := 0; j < 6; j++ {
			fmt.Fprintf(&b, "It is very important that the reader sees how surface preparation step %d.%d "+
				"affects the finish (for example on ship hulls or bridge girders).\n", i, j)
		}
		b.WriteString("\n## Optional tips\n")
		fmt.Fprintf(&b, "Tip %d: consider mentioning regional terminology (e.g. local trade names) when it fits.\n\n", i)
		i++
	}
	return b.String()
}

func TestOptimize_UnderTargetUnchanged(t *testing.T) {
	budget := MustBudget(100, 200, 150)
	prompt := "Please make sure that the beam stays focused."

	res := Optimize(prompt, budget, nil)
	assert.Equal(t, prompt, res.Text)
	assert.Empty(t, res.StrategiesApplied)
	assert.Equal(t, res.OriginalLength, res.FinalLength)
	assert.InDelta(t, 1.0, res.Ratio(), 0.0001)
}

func TestOptimize_LaserScenario(t *testing.T) {
	prompt := laserCleaningPrompt(6000)
	require.GreaterOrEqual(t, charLen(prompt), 6000)

	budget := MustBudget(2400, 4096, 3200)
	res := Optimize(prompt, budget, laserFacts)

	assert.LessOrEqual(t, res.FinalLength, budget.HardLimit())
	assert.Equal(t, charLen(res.Text), res.FinalLength)
	assert.Less(t, res.FinalLength, res.OriginalLength)

	lowered := strings.ToLower(res.Text)
	for _, f := range laserFacts {
		assert.True(t, f.PresentIn(lowered), "fact %q lost", f.Name)
	}
	assert.Contains(t, res.StrategiesApplied, StrategyCondense)
	assert.Contains(t, res.Text, "## Critical facts")
}

func TestOptimize_HardLimitInvariant(t *testing.T) {
	budget := MustBudget(200, 500, 300)

	tests := []struct {
		name     string
		prompt   string
		preserve []facts.CriticalFact
	}{
		{name: "long prose", prompt: laserCleaningPrompt(5000), preserve: laserFacts},
		{name: "single giant line", prompt: strings.Repeat("word ", 3000)},
		{name: "every line preserved", prompt: strings.Repeat("aluminum surface cleaned thoroughly\n", 200), preserve: laserFacts},
		{name: "multibyte", prompt: strings.Repeat("ünïcödé ", 1000)},
		{name: "no facts", prompt: laserCleaningPrompt(3000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Optimize(tt.prompt, budget, tt.preserve)
			assert.LessOrEqual(t, res.FinalLength, budget.HardLimit())
			assert.LessOrEqual(t, charLen(res.Text), budget.HardLimit())
		})
	}
}

func TestOptimize_Idempotent(t *testing.T) {
	budget := MustBudget(2400, 4096, 3200)
	first := Optimize(laserCleaningPrompt(6000), budget, laserFacts)
	second := Optimize(first.Text, budget, laserFacts)

	assert.LessOrEqual(t, second.FinalLength, first.FinalLength)
	assert.LessOrEqual(t, second.FinalLength, budget.HardLimit())
}

func TestOptimize_StagesNeverGrow(t *testing.T) {
	budget := MustBudget(200, 500, 300)
	keep := newKeepSet(laserFacts)
	text := laserCleaningPrompt(4000)

	for _, st := range stages {
		out := st.apply(text, keep, budget)
		assert.LessOrEqual(t, charLen(out), charLen(text), st.strategy.String())
		text = out
	}
}

func TestOptimize_LossyStagesGated(t *testing.T) {
	// Between target and warning only lossless strategies may run.
	budget := MustBudget(100, 10000, 5000)
	prompt := strings.Repeat("Use a technical tone for the reader.\n", 20)

	res := Optimize(prompt, budget, nil)
	for _, st := range res.StrategiesApplied {
		assert.True(t, st.Lossless(), "unexpected lossy strategy %s", st)
	}
	assert.Equal(t, prompt, res.Text, "no lossless rule applies to this text")
}

func TestOptimize_StopsAtTarget(t *testing.T) {
	budget := MustBudget(60, 200, 100)
	prompt := "In order to clean, please make sure that the laser is focused on the part now."

	res := Optimize(prompt, budget, nil)
	assert.Equal(t, []Strategy{StrategyCondense}, res.StrategiesApplied)
	assert.LessOrEqual(t, res.FinalLength, budget.TargetLength())
}

func TestStrategy_String(t *testing.T) {
	assert.Equal(t, "condense", StrategyCondense.String())
	assert.Equal(t, "emergency_truncate", StrategyEmergencyTruncate.String())
	assert.Equal(t, "unknown", Strategy(0).String())
	assert.False(t, StrategyAggressiveTrim.Lossless())
}

func TestNewBudget(t *testing.T) {
	tests := []struct {
		name                  string
		target, hard, warning int
		wantErr               bool
	}{
		{name: "valid", target: 2400, hard: 4096, warning: 3200},
		{name: "zero target", target: 0, hard: 4096, warning: 3200, wantErr: true},
		{name: "warning below target", target: 2400, hard: 4096, warning: 2000, wantErr: true},
		{name: "warning equals hard", target: 2400, hard: 3200, warning: 3200, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBudget(tt.target, tt.hard, tt.warning)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidBudget)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, b.TargetLength())
			assert.Equal(t, tt.hard, b.HardLimit())
			assert.Equal(t, tt.warning, b.WarningThreshold())
		})
	}
}
