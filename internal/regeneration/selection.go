package regeneration

import (
	"fmt"
)

// SelectionWeights are the bonuses and penalties of the selection score.
// Penalties are stored as positive numbers and subtracted.
type SelectionWeights struct {
	PatternCountBonus      float64 `json:"pattern_count_bonus" yaml:"pattern_count_bonus"`
	PatternFoundBonus      float64 `json:"pattern_found_bonus" yaml:"pattern_found_bonus"`
	ForbiddenPhrasePenalty float64 `json:"forbidden_phrase_penalty" yaml:"forbidden_phrase_penalty"`
	ReadabilityPassBonus   float64 `json:"readability_pass_bonus" yaml:"readability_pass_bonus"`
	ReadabilityFailPenalty float64 `json:"readability_fail_penalty" yaml:"readability_fail_penalty"`
	ViolationPenalty       float64 `json:"violation_penalty" yaml:"violation_penalty"`
	CrossItemPassBonus     float64 `json:"cross_item_pass_bonus" yaml:"cross_item_pass_bonus"`
	CrossItemFailPenalty   float64 `json:"cross_item_fail_penalty" yaml:"cross_item_fail_penalty"`
	NearDuplicatePenalty   float64 `json:"near_duplicate_penalty" yaml:"near_duplicate_penalty"`
}

// Validate rejects negative weights.
func (w SelectionWeights) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"pattern_count_bonus", w.PatternCountBonus},
		{"pattern_found_bonus", w.PatternFoundBonus},
		{"forbidden_phrase_penalty", w.ForbiddenPhrasePenalty},
		{"readability_pass_bonus", w.ReadabilityPassBonus},
		{"readability_fail_penalty", w.ReadabilityFailPenalty},
		{"violation_penalty", w.ViolationPenalty},
		{"cross_item_pass_bonus", w.CrossItemPassBonus},
		{"cross_item_fail_penalty", w.CrossItemFailPenalty},
		{"near_duplicate_penalty", w.NearDuplicatePenalty},
	}
	for _, n := range named {
		if n.value < 0 {
			return fmt.Errorf("%w: selection weight %s must not be negative, got %v", ErrInvalidConfig, n.name, n.value)
		}
	}
	return nil
}

// Score ranks a bundle against other attempts. The sum is additive and
// unnormalized.
func (w SelectionWeights) Score(b ScoreBundle) float64 {
	score := b.Quality
	score += float64(b.PatternCount) * w.PatternCountBonus
	if b.PatternFound {
		score += w.PatternFoundBonus
	}
	score -= float64(b.ForbiddenPhraseCount) * w.ForbiddenPhrasePenalty

	if b.Readability.Pass {
		score += w.ReadabilityPassBonus
	} else {
		score -= w.ReadabilityFailPenalty + float64(len(b.Readability.Violations))*w.ViolationPenalty
	}

	if b.CrossItem.Pass {
		score += w.CrossItemPassBonus
	} else {
		score -= w.CrossItemFailPenalty + float64(b.CrossItem.NearDuplicates)*w.NearDuplicatePenalty
	}
	return score
}
