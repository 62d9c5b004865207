package regeneration

import (
	"fmt"
	"sort"
	"strings"
)

// Gate is one boolean requirement over a ScoreBundle.
type Gate string

const (
	GateMinQuality             Gate = "min_quality"
	GateZeroForbiddenPhrases   Gate = "require_zero_forbidden_phrases"
	GateMinVoiceAuthenticity   Gate = "min_voice_authenticity"
	GatePatternFound           Gate = "require_pattern_found"
	GateReadabilityPass        Gate = "require_readability_pass"
	GateCrossItemVariationPass Gate = "require_cross_item_variation_pass"
	GateHumanLike              Gate = "require_human_like"
)

// gatePredicate reports whether a bundle passes a gate under a requirement set.
type gatePredicate func(b ScoreBundle, r RequirementSet) bool

// gates is the dispatch table for every known gate.
var gates = map[Gate]gatePredicate{
	GateMinQuality: func(b ScoreBundle, r RequirementSet) bool {
		return b.Quality >= r.QualityThreshold
	},
	GateZeroForbiddenPhrases: func(b ScoreBundle, _ RequirementSet) bool {
		return b.ForbiddenPhraseCount == 0
	},
	GateMinVoiceAuthenticity: func(b ScoreBundle, r RequirementSet) bool {
		return b.VoiceAuthenticity >= r.MinVoiceAuthenticity
	},
	GatePatternFound: func(b ScoreBundle, _ RequirementSet) bool {
		return b.PatternFound
	},
	GateReadabilityPass: func(b ScoreBundle, _ RequirementSet) bool {
		return b.Readability.Pass
	},
	GateCrossItemVariationPass: func(b ScoreBundle, _ RequirementSet) bool {
		return b.CrossItem.Pass
	},
	GateHumanLike: func(b ScoreBundle, _ RequirementSet) bool {
		return !b.AILike
	},
}

// Valid reports whether g is a known gate.
func (g Gate) Valid() bool {
	_, ok := gates[g]
	return ok
}

// ParseGate parses a gate name.
func ParseGate(s string) (Gate, error) {
	g := Gate(strings.ToLower(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownGate, s)
	}
	return g, nil
}

// RequirementSet is the conjunction of configured gates. An empty set is
// satisfied by any bundle.
type RequirementSet struct {
	Gates                []Gate  `json:"gates" yaml:"gates"`
	QualityThreshold     float64 `json:"quality_threshold" yaml:"quality_threshold"`
	MinVoiceAuthenticity float64 `json:"min_voice_authenticity" yaml:"min_voice_authenticity"`
}

// NewRequirementSet validates the gates and deduplicates them.
func NewRequirementSet(qualityThreshold, minVoiceAuthenticity float64, gs ...Gate) (RequirementSet, error) {
	seen := make(map[Gate]bool, len(gs))
	out := make([]Gate, 0, len(gs))
	for _, g := range gs {
		if !g.Valid() {
			return RequirementSet{}, fmt.Errorf("%w: %q", ErrUnknownGate, string(g))
		}
		if seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return RequirementSet{
		Gates:                out,
		QualityThreshold:     qualityThreshold,
		MinVoiceAuthenticity: minVoiceAuthenticity,
	}, nil
}

// FromToggles builds a requirement set from a gate-name to enabled map, the
// shape used in configuration files. Gates are ordered by name.
func FromToggles(toggles map[string]bool, qualityThreshold, minVoiceAuthenticity float64) (RequirementSet, error) {
	names := make([]string, 0, len(toggles))
	for name := range toggles {
		names = append(names, name)
	}
	sort.Strings(names)

	var enabled []Gate
	for _, name := range names {
		g, err := ParseGate(name)
		if err != nil {
			return RequirementSet{}, err
		}
		if toggles[name] {
			enabled = append(enabled, g)
		}
	}
	return NewRequirementSet(qualityThreshold, minVoiceAuthenticity, enabled...)
}

// Has reports whether g is configured.
func (r RequirementSet) Has(g Gate) bool {
	for _, have := range r.Gates {
		if have == g {
			return true
		}
	}
	return false
}

// Satisfied reports whether every configured gate passes.
func (r RequirementSet) Satisfied(b ScoreBundle) bool {
	return len(r.Failing(b)) == 0
}

// Failing returns the configured gates the bundle does not pass, in order.
func (r RequirementSet) Failing(b ScoreBundle) []Gate {
	var failing []Gate
	for _, g := range r.Gates {
		pred, ok := gates[g]
		if !ok || !pred(b, r) {
			failing = append(failing, g)
		}
	}
	return failing
}
