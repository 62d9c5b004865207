package regeneration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionWeights_Score(t *testing.T) {
	w := SelectionWeights{
		PatternCountBonus:      2,
		PatternFoundBonus:      5,
		ForbiddenPhrasePenalty: 10,
		ReadabilityPassBonus:   3,
		ReadabilityFailPenalty: 4,
		ViolationPenalty:       1.5,
		CrossItemPassBonus:     6,
		CrossItemFailPenalty:   7,
		NearDuplicatePenalty:   2.5,
	}

	tests := []struct {
		name   string
		bundle ScoreBundle
		want   float64
	}{
		{
			name: "all passing",
			bundle: ScoreBundle{
				Quality:      70,
				PatternCount: 3,
				PatternFound: true,
				Readability:  ReadabilityResult{Pass: true},
				CrossItem:    CrossItemResult{Pass: true},
			},
			want: 70 + 6 + 5 + 3 + 6,
		},
		{
			name: "all failing",
			bundle: ScoreBundle{
				Quality:              70,
				ForbiddenPhraseCount: 2,
				Readability:          ReadabilityResult{Violations: []string{"a", "b"}},
				CrossItem:            CrossItemResult{NearDuplicates: 2},
			},
			want: 70 - 20 - 4 - 3 - 7 - 5,
		},
		{
			name:   "zero bundle",
			bundle: ScoreBundle{},
			want:   -4 - 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, w.Score(tt.bundle), 0.0001)
		})
	}
}

func TestRequirementSet_Gates(t *testing.T) {
	passing := ScoreBundle{
		Quality:           75,
		PatternFound:      true,
		VoiceAuthenticity: 80,
		Readability:       ReadabilityResult{Pass: true},
		CrossItem:         CrossItemResult{Pass: true},
	}

	tests := []struct {
		gate   Gate
		breaks func(*ScoreBundle)
	}{
		{GateMinQuality, func(b *ScoreBundle) { b.Quality = 59.9 }},
		{GateZeroForbiddenPhrases, func(b *ScoreBundle) { b.ForbiddenPhraseCount = 1 }},
		{GateMinVoiceAuthenticity, func(b *ScoreBundle) { b.VoiceAuthenticity = 10 }},
		{GatePatternFound, func(b *ScoreBundle) { b.PatternFound = false }},
		{GateReadabilityPass, func(b *ScoreBundle) { b.Readability.Pass = false }},
		{GateCrossItemVariationPass, func(b *ScoreBundle) { b.CrossItem.Pass = false }},
		{GateHumanLike, func(b *ScoreBundle) { b.AILike = true }},
	}

	for _, tt := range tests {
		t.Run(string(tt.gate), func(t *testing.T) {
			reqs, err := NewRequirementSet(60, 70, tt.gate)
			require.NoError(t, err)
			assert.True(t, reqs.Satisfied(passing))

			broken := passing
			tt.breaks(&broken)
			assert.False(t, reqs.Satisfied(broken))
			assert.Equal(t, []Gate{tt.gate}, reqs.Failing(broken))
		})
	}
}

func TestNewRequirementSet(t *testing.T) {
	reqs, err := NewRequirementSet(60, 0, GateMinQuality, GateMinQuality, GateHumanLike)
	require.NoError(t, err)
	assert.Equal(t, []Gate{GateMinQuality, GateHumanLike}, reqs.Gates)
	assert.True(t, reqs.Has(GateHumanLike))
	assert.False(t, reqs.Has(GatePatternFound))

	_, err = NewRequirementSet(60, 0, Gate("min_vibes"))
	assert.ErrorIs(t, err, ErrUnknownGate)
}

func TestFromToggles(t *testing.T) {
	reqs, err := FromToggles(map[string]bool{
		"require_readability_pass":       true,
		"min_quality":                    true,
		"require_zero_forbidden_phrases": false,
	}, 65, 0)
	require.NoError(t, err)
	assert.Equal(t, []Gate{GateMinQuality, GateReadabilityPass}, reqs.Gates)
	assert.InDelta(t, 65, reqs.QualityThreshold, 0.001)

	_, err = FromToggles(map[string]bool{"require_magic": true}, 60, 0)
	assert.ErrorIs(t, err, ErrUnknownGate)
}

func TestParseGate(t *testing.T) {
	g, err := ParseGate(" MIN_QUALITY ")
	require.NoError(t, err)
	assert.Equal(t, GateMinQuality, g)

	_, err = ParseGate("")
	assert.ErrorIs(t, err, ErrUnknownGate)
}

func TestLengthSampler(t *testing.T) {
	r := RandomizationRange{MinFactor: 0.8, MaxFactor: 1.2}

	a, err := NewLengthSampler(100, r, 7)
	require.NoError(t, err)
	b, err := NewLengthSampler(100, r, 7)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		x, y := a.Next(), b.Next()
		assert.Equal(t, x, y, "same seed yields same sequence")
		assert.GreaterOrEqual(t, x, 80)
		assert.LessOrEqual(t, x, 120)
	}
}

func TestLengthSampler_FixedFactor(t *testing.T) {
	s, err := NewLengthSampler(150, RandomizationRange{MinFactor: 1.1, MaxFactor: 1.1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 165, s.Next())
}

func TestLengthSampler_Invalid(t *testing.T) {
	_, err := NewLengthSampler(0, RandomizationRange{MinFactor: 1, MaxFactor: 1}, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewLengthSampler(10, RandomizationRange{MinFactor: 1.5, MaxFactor: 1.0}, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSeedFromSubject(t *testing.T) {
	assert.Equal(t, SeedFromSubject("Aluminum"), SeedFromSubject("Aluminum"))
	assert.NotEqual(t, SeedFromSubject("Aluminum"), SeedFromSubject("Steel"))
}

func TestScoreBundle_SubScores(t *testing.T) {
	b := ScoreBundle{
		AIPatternScore:    90,
		VoiceAuthenticity: 70,
		StructuralAverage: 60,
		Readability:       ReadabilityResult{Score: 50},
		CrossItem:         CrossItemResult{Score: 40},
	}
	assert.Equal(t, SubScores{
		AIPatterns:         90,
		VoiceAuthenticity:  70,
		Structural:         60,
		Readability:        50,
		CrossItemVariation: 40,
	}, b.SubScores())
}
