package compression

import "unicode/utf8"

// Strategy identifies one compression stage. Stages run in declaration order.
type Strategy int

const (
	// StrategyCondense replaces verbose phrasing with terser equivalents.
	StrategyCondense Strategy = iota + 1
	// StrategyBulletize rewrites enumerations as terse dash-prefixed lines.
	StrategyBulletize
	// StrategyStripExamples removes parenthetical illustrative asides.
	StrategyStripExamples
	// StrategyAggressiveTrim deduplicates and shortens lines. First lossy stage.
	StrategyAggressiveTrim
	// StrategyPruneSections drops or shrinks low-priority sections.
	StrategyPruneSections
	// StrategyEmergencyTruncate enforces the hard limit, keeping fact-bearing lines.
	StrategyEmergencyTruncate
)

// String returns the stable identifier used in logs and metrics.
func (s Strategy) String() string {
	switch s {
	case StrategyCondense:
		return "condense"
	case StrategyBulletize:
		return "bulletize"
	case StrategyStripExamples:
		return "strip_examples"
	case StrategyAggressiveTrim:
		return "aggressive_trim"
	case StrategyPruneSections:
		return "prune_sections"
	case StrategyEmergencyTruncate:
		return "emergency_truncate"
	default:
		return "unknown"
	}
}

// Lossless reports whether the strategy preserves every fact-bearing token.
func (s Strategy) Lossless() bool {
	return s == StrategyCondense || s == StrategyBulletize || s == StrategyStripExamples
}

// Result is the outcome of one compression call. Read-only after creation.
type Result struct {
	Text              string
	OriginalLength    int
	FinalLength       int
	StrategiesApplied []Strategy
}

// Ratio returns original/final length, 1.0 when nothing was removed.
func (r Result) Ratio() float64 {
	if r.FinalLength == 0 {
		return 1.0
	}
	return float64(r.OriginalLength) / float64(r.FinalLength)
}

// Compressed reports whether any strategy changed the text.
func (r Result) Compressed() bool {
	return len(r.StrategiesApplied) > 0
}

// StrategyNames returns the applied strategies as strings.
func (r Result) StrategyNames() []string {
	names := make([]string, len(r.StrategiesApplied))
	for i, s := range r.StrategiesApplied {
		names[i] = s.String()
	}
	return names
}

// charLen counts characters (runes), the unit API length limits are expressed in.
func charLen(s string) int {
	return utf8.RuneCountInString(s)
}

// truncateRunes cuts s to at most n runes without splitting a code point.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
