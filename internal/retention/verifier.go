// Package retention checks that prompt compression kept the facts a prompt
// must convey.
//
// Presence is keyword containment: a fact counts as present when any of its
// representative keywords is a substring of the lower-cased text. This is a
// heuristic; a paraphrase that drops the keyword counts as a loss.
package retention

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptgate/internal/facts"
	"github.com/fyrsmithlabs/promptgate/internal/logging"
)

// DefaultMinimumRetention is the retention percentage below which a
// compressed prompt is rejected.
const DefaultMinimumRetention = 60.0

// Verifier compares compressed prompts against the facts they must carry.
// It is stateless and safe for concurrent use.
type Verifier struct {
	minimumRetention float64
	enforce          bool
	logger           *logging.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithMinimumRetention sets the minimum retention percentage.
func WithMinimumRetention(pct float64) Option {
	return func(v *Verifier) { v.minimumRetention = pct }
}

// WithEnforce controls whether an invalid report is returned as an error.
func WithEnforce(enforce bool) Option {
	return func(v *Verifier) { v.enforce = enforce }
}

// WithLogger sets the verifier logger.
func WithLogger(l *logging.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// NewVerifier creates a verifier. Enforcement is on by default.
func NewVerifier(opts ...Option) (*Verifier, error) {
	v := &Verifier{
		minimumRetention: DefaultMinimumRetention,
		enforce:          true,
		logger:           logging.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.minimumRetention < 0 || v.minimumRetention > 100 {
		return nil, fmt.Errorf("%w: got %.2f", ErrInvalidMinimumRetention, v.minimumRetention)
	}
	return v, nil
}

// MinimumRetention returns the configured threshold.
func (v *Verifier) MinimumRetention() float64 {
	return v.minimumRetention
}

// Verify checks compressed against original. Facts not found in original are
// excluded from scoring, since compression cannot lose what was never there.
// They are listed in Report.Unrendered, and a CRITICAL or HIGH one is logged
// at warn level because the prompt never asked for it.
//
// When enforcing, an invalid report is returned together with a
// *DataLossError.
func (v *Verifier) Verify(ctx context.Context, original, compressed string, set facts.FactSet) (*Report, error) {
	loweredOriginal := strings.ToLower(original)

	var tracked []facts.CriticalFact
	var absent []MissingFact
	for _, f := range set.Facts() {
		if !f.PresentIn(loweredOriginal) {
			absent = append(absent, MissingFact{Fact: f.Name, Severity: f.Severity})
			continue
		}
		tracked = append(tracked, f)
	}

	report := v.score(tracked, strings.ToLower(compressed))
	if len(absent) > 0 {
		report.Unrendered = absent
		names := make([]string, len(absent))
		var blocking []string
		for i, m := range absent {
			names[i] = m.Fact
			if m.Severity.IsBlocking() {
				blocking = append(blocking, fmt.Sprintf("%s (%s)", m.Fact, m.Severity))
			}
		}
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d fact(s) absent from original prompt, not scored: %s",
				len(absent), strings.Join(names, ", ")))
		if len(blocking) > 0 {
			v.logger.Warn(ctx, "required facts absent from original prompt",
				zap.Strings("facts", blocking))
		}
	}
	return v.finish(ctx, report)
}

// VerifyFields checks compressed against every fact in set, with no original
// to compare to.
func (v *Verifier) VerifyFields(ctx context.Context, compressed string, set facts.FactSet) (*Report, error) {
	return v.finish(ctx, v.score(set.Facts(), strings.ToLower(compressed)))
}

func (v *Verifier) score(tracked []facts.CriticalFact, lowered string) *Report {
	r := &Report{
		Present: []string{},
		Missing: []MissingFact{},
	}
	for _, f := range tracked {
		if f.PresentIn(lowered) {
			r.Present = append(r.Present, f.Name)
			continue
		}
		r.Missing = append(r.Missing, MissingFact{Fact: f.Name, Severity: f.Severity})
		if !f.Severity.IsBlocking() {
			r.Warnings = append(r.Warnings, fmt.Sprintf("medium-severity fact missing: %s", f.Name))
		}
	}

	total := len(r.Present) + len(r.Missing)
	if total == 0 {
		r.RetentionScore = 100
	} else {
		r.RetentionScore = 100 * float64(len(r.Present)) / float64(total)
	}
	r.IsValid = !r.HasBlockingLoss() && r.RetentionScore >= v.minimumRetention
	return r
}

func (v *Verifier) finish(ctx context.Context, r *Report) (*Report, error) {
	if r.IsValid {
		v.logger.Debug(ctx, "fact retention verified",
			zap.Float64("retention_score", r.RetentionScore),
			zap.Int("present", len(r.Present)),
			zap.Int("missing", len(r.Missing)),
		)
		return r, nil
	}

	v.logger.Warn(ctx, "compressed prompt lost required facts",
		zap.Float64("retention_score", r.RetentionScore),
		zap.Float64("minimum_retention", v.minimumRetention),
		zap.Strings("missing_critical", r.MissingBySeverity(facts.SeverityCritical)),
		zap.Strings("missing_high", r.MissingBySeverity(facts.SeverityHigh)),
		zap.Bool("enforce", v.enforce),
	)
	if v.enforce {
		return r, &DataLossError{Report: r, MinimumRetention: v.minimumRetention}
	}
	return r, nil
}
