package compression

import (
	"errors"
	"fmt"
)

// ErrInvalidBudget is returned when budget thresholds are not strictly ordered.
var ErrInvalidBudget = errors.New("invalid compression budget")

// pruneFactor is the multiple of the target length above which whole
// low-priority sections are pruned.
const pruneFactor = 1.3

// Budget holds the character limits a compressed prompt must respect.
//
// Invariant: 0 < TargetLength < WarningThreshold < HardLimit. A Budget is
// immutable once constructed and safe to share across goroutines.
type Budget struct {
	targetLength     int
	hardLimit        int
	warningThreshold int
}

// NewBudget validates and builds a Budget. Lengths are in characters.
func NewBudget(targetLength, hardLimit, warningThreshold int) (Budget, error) {
	if targetLength <= 0 {
		return Budget{}, fmt.Errorf("%w: target length must be positive, got %d", ErrInvalidBudget, targetLength)
	}
	if warningThreshold <= targetLength {
		return Budget{}, fmt.Errorf("%w: warning threshold %d must exceed target length %d",
			ErrInvalidBudget, warningThreshold, targetLength)
	}
	if hardLimit <= warningThreshold {
		return Budget{}, fmt.Errorf("%w: hard limit %d must exceed warning threshold %d",
			ErrInvalidBudget, hardLimit, warningThreshold)
	}
	return Budget{
		targetLength:     targetLength,
		hardLimit:        hardLimit,
		warningThreshold: warningThreshold,
	}, nil
}

// MustBudget is NewBudget that panics on invalid thresholds.
func MustBudget(targetLength, hardLimit, warningThreshold int) Budget {
	b, err := NewBudget(targetLength, hardLimit, warningThreshold)
	if err != nil {
		panic(err)
	}
	return b
}

// TargetLength is the soft length compression aims for.
func (b Budget) TargetLength() int { return b.targetLength }

// HardLimit is the length the API rejects beyond. Output never exceeds it.
func (b Budget) HardLimit() int { return b.hardLimit }

// WarningThreshold is the length above which lossy strategies are allowed.
func (b Budget) WarningThreshold() int { return b.warningThreshold }

// exceedsPruneThreshold reports whether length is above 130% of the target.
func (b Budget) exceedsPruneThreshold(length int) bool {
	return float64(length) > pruneFactor*float64(b.targetLength)
}

// String implements fmt.Stringer.
func (b Budget) String() string {
	return fmt.Sprintf("target=%d warning=%d hard=%d", b.targetLength, b.warningThreshold, b.hardLimit)
}
