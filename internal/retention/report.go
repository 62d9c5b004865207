package retention

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/promptgate/internal/facts"
)

// ErrDataLoss is matched by every *DataLossError.
var ErrDataLoss = errors.New("compression lost required facts")

// ErrInvalidMinimumRetention is returned for a threshold outside [0, 100].
var ErrInvalidMinimumRetention = errors.New("minimum retention must be between 0 and 100")

// MissingFact is a tracked fact that no longer appears after compression.
type MissingFact struct {
	Fact     string         `json:"fact" yaml:"fact"`
	Severity facts.Severity `json:"severity" yaml:"severity"`
}

// Report is the outcome of one verification. Read-only after creation.
type Report struct {
	IsValid        bool          `json:"is_valid" yaml:"is_valid"`
	Present        []string      `json:"present" yaml:"present"`
	Missing        []MissingFact `json:"missing" yaml:"missing"`
	Warnings       []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	RetentionScore float64       `json:"retention_score" yaml:"retention_score"`

	// Unrendered lists facts that were not in the original prompt either.
	// They are not scored.
	Unrendered []MissingFact `json:"unrendered,omitempty" yaml:"unrendered,omitempty"`
}

// MissingBySeverity returns the names of missing facts with the given severity.
func (r *Report) MissingBySeverity(s facts.Severity) []string {
	var out []string
	for _, m := range r.Missing {
		if m.Severity == s {
			out = append(out, m.Fact)
		}
	}
	return out
}

// HasBlockingLoss reports whether a CRITICAL or HIGH fact is missing.
func (r *Report) HasBlockingLoss() bool {
	for _, m := range r.Missing {
		if m.Severity.IsBlocking() {
			return true
		}
	}
	return false
}

// DataLossError is returned by an enforcing verifier when a report is invalid.
type DataLossError struct {
	Report           *Report
	MinimumRetention float64
}

func (e *DataLossError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: retention %.1f%% (minimum %.1f%%)",
		ErrDataLoss.Error(), e.Report.RetentionScore, e.MinimumRetention)
	if crit := e.Report.MissingBySeverity(facts.SeverityCritical); len(crit) > 0 {
		fmt.Fprintf(&b, "; missing critical: %s", strings.Join(crit, ", "))
	}
	if high := e.Report.MissingBySeverity(facts.SeverityHigh); len(high) > 0 {
		fmt.Fprintf(&b, "; missing high: %s", strings.Join(high, ", "))
	}
	return b.String()
}

// Is reports whether target is ErrDataLoss.
func (e *DataLossError) Is(target error) bool {
	return target == ErrDataLoss
}
