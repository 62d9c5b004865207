package compression

import (
	"github.com/fyrsmithlabs/promptgate/internal/facts"
)

// stage binds a strategy to its gate and its rewrite function.
type stage struct {
	strategy Strategy
	// applies reports whether the stage may run at the current running length.
	applies func(length int, b Budget) bool
	apply   func(text string, keep keepSet, b Budget) string
}

func always(int, Budget) bool { return true }

// stages is the ordered strategy dispatch table.
var stages = []stage{
	{strategy: StrategyCondense, applies: always, apply: condense},
	{strategy: StrategyBulletize, applies: always, apply: bulletize},
	{strategy: StrategyStripExamples, applies: always, apply: stripExamples},
	{
		strategy: StrategyAggressiveTrim,
		applies:  func(n int, b Budget) bool { return n > b.WarningThreshold() },
		apply:    aggressiveTrim,
	},
	{
		strategy: StrategyPruneSections,
		applies: func(n int, b Budget) bool {
			return n > b.WarningThreshold() && b.exceedsPruneThreshold(n)
		},
		apply: pruneSections,
	},
	{
		strategy: StrategyEmergencyTruncate,
		applies:  func(n int, b Budget) bool { return n > b.HardLimit() },
		apply:    emergencyTruncate,
	},
}

// Optimize compresses prompt toward the budget's target length.
//
// Strategies run in order, each only while the text is still longer than the
// target. Lines carrying a keyword of a preserve fact survive every lossy
// strategy except a hard cut of the preserved block itself, which only
// happens when preserved lines alone exceed the hard limit.
//
// The result never exceeds HardLimit, a prompt already within TargetLength is
// returned unchanged, and no strategy makes the text longer.
func Optimize(prompt string, budget Budget, preserve []facts.CriticalFact) Result {
	original := charLen(prompt)
	res := Result{
		Text:           prompt,
		OriginalLength: original,
		FinalLength:    original,
	}
	if original <= budget.TargetLength() {
		return res
	}

	keep := newKeepSet(preserve)
	text := prompt
	length := original
	for _, st := range stages {
		if length <= budget.TargetLength() || !st.applies(length, budget) {
			continue
		}
		out := st.apply(text, keep, budget)
		outLen := charLen(out)
		if out == text || outLen > length {
			continue
		}
		text, length = out, outLen
		res.StrategiesApplied = append(res.StrategiesApplied, st.strategy)
	}

	if length > budget.HardLimit() {
		text = truncateRunes(text, budget.HardLimit())
		length = budget.HardLimit()
	}

	res.Text = text
	res.FinalLength = length
	return res
}
