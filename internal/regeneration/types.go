// Package regeneration runs a generate-then-score loop until content clears a
// configured quality bar, keeping the best candidate seen.
//
// Attempts are strictly sequential. Each attempt draws a randomized target
// word count, calls the caller's generate function, scores the returned
// content with the caller's evaluate function and ranks it by a weighted
// selection score. The loop stops at the first attempt that satisfies every
// configured requirement gate; otherwise the highest-scoring attempt is
// returned once attempts are exhausted.
package regeneration

import (
	"context"

	"github.com/google/uuid"
)

// GenerateFunc produces content for one attempt. attemptIndex is zero-based.
type GenerateFunc func(ctx context.Context, attemptIndex, targetWords int) (string, error)

// EvaluateFunc scores content. It never fails; a scorer that cannot judge
// content returns a zero bundle.
type EvaluateFunc func(ctx context.Context, content string) ScoreBundle

// ReadabilityResult is the readability verdict for one piece of content.
type ReadabilityResult struct {
	Pass       bool     `json:"pass" yaml:"pass"`
	Violations []string `json:"violations,omitempty" yaml:"violations,omitempty"`
	Score      float64  `json:"score" yaml:"score"`
}

// CrossItemResult compares content against previously accepted sibling items.
type CrossItemResult struct {
	Pass           bool    `json:"pass" yaml:"pass"`
	MaxSimilarity  float64 `json:"max_similarity" yaml:"max_similarity"`
	NearDuplicates int     `json:"near_duplicates" yaml:"near_duplicates"`
	Score          float64 `json:"score" yaml:"score"`
}

// ScoreBundle holds every dimension the scoring oracle reports for content.
// Scores are on a 0-100 scale.
type ScoreBundle struct {
	Quality              float64           `json:"quality" yaml:"quality"`
	AILike               bool              `json:"ai_like" yaml:"ai_like"`
	AIPatternScore       float64           `json:"ai_pattern_score" yaml:"ai_pattern_score"`
	IssueCount           int               `json:"issue_count" yaml:"issue_count"`
	ForbiddenPhraseCount int               `json:"forbidden_phrase_count" yaml:"forbidden_phrase_count"`
	PatternCount         int               `json:"pattern_count" yaml:"pattern_count"`
	PatternFound         bool              `json:"pattern_found" yaml:"pattern_found"`
	VoiceAuthenticity    float64           `json:"voice_authenticity" yaml:"voice_authenticity"`
	StructuralAverage    float64           `json:"structural_average" yaml:"structural_average"`
	Readability          ReadabilityResult `json:"readability" yaml:"readability"`
	CrossItem            CrossItemResult   `json:"cross_item" yaml:"cross_item"`
}

// SubScores is the per-axis breakdown kept on each attempt.
type SubScores struct {
	AIPatterns         float64 `json:"ai_patterns" yaml:"ai_patterns"`
	VoiceAuthenticity  float64 `json:"voice_authenticity" yaml:"voice_authenticity"`
	Structural         float64 `json:"structural" yaml:"structural"`
	Readability        float64 `json:"readability" yaml:"readability"`
	CrossItemVariation float64 `json:"cross_item_variation" yaml:"cross_item_variation"`
}

// SubScores extracts the per-axis breakdown from the bundle.
func (b ScoreBundle) SubScores() SubScores {
	return SubScores{
		AIPatterns:         b.AIPatternScore,
		VoiceAuthenticity:  b.VoiceAuthenticity,
		Structural:         b.StructuralAverage,
		Readability:        b.Readability.Score,
		CrossItemVariation: b.CrossItem.Score,
	}
}

// AttemptState is the lifecycle state of one attempt.
type AttemptState string

const (
	AttemptStatePending          AttemptState = "pending"
	AttemptStateGenerating       AttemptState = "generating"
	AttemptStateGenerationFailed AttemptState = "generation_failed"
	AttemptStateScoring          AttemptState = "scoring"
	AttemptStateAccepted         AttemptState = "accepted"
	AttemptStateCandidate        AttemptState = "candidate"
)

// ValidTransitions defines allowed attempt state transitions.
var ValidTransitions = map[AttemptState][]AttemptState{
	AttemptStatePending:          {AttemptStateGenerating},
	AttemptStateGenerating:       {AttemptStateGenerationFailed, AttemptStateScoring},
	AttemptStateScoring:          {AttemptStateAccepted, AttemptStateCandidate},
	AttemptStateGenerationFailed: {}, // terminal
	AttemptStateAccepted:         {}, // terminal
	AttemptStateCandidate:        {}, // terminal
}

// CanTransitionTo checks if a transition from current state to target is valid.
func (s AttemptState) CanTransitionTo(target AttemptState) bool {
	allowed, ok := ValidTransitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this is a terminal state.
func (s AttemptState) IsTerminal() bool {
	return s == AttemptStateGenerationFailed || s == AttemptStateAccepted || s == AttemptStateCandidate
}

// Outcome is the terminal state of a session.
type Outcome string

const (
	// OutcomeAcceptedEarly means an attempt satisfied every requirement gate.
	OutcomeAcceptedEarly Outcome = "accepted_early"
	// OutcomeBestOfExhausted means no attempt satisfied every gate; Best is
	// the highest-scoring attempt.
	OutcomeBestOfExhausted Outcome = "best_of_exhausted"
	// OutcomeAllFailed means every generate call failed.
	OutcomeAllFailed Outcome = "all_failed"
)

// AttemptRecord is one scored attempt. Immutable once scored.
type AttemptRecord struct {
	AttemptNumber  int          `json:"attempt_number" yaml:"attempt_number"`
	Content        string       `json:"content" yaml:"content"`
	TargetWords    int          `json:"target_words" yaml:"target_words"`
	QualityScore   float64      `json:"quality_score" yaml:"quality_score"`
	SubScores      SubScores    `json:"sub_scores" yaml:"sub_scores"`
	SelectionScore float64      `json:"selection_score" yaml:"selection_score"`
	State          AttemptState `json:"state" yaml:"state"`
	Bundle         ScoreBundle  `json:"bundle" yaml:"bundle"`
}

// AttemptFailure records an attempt whose generate call produced nothing usable.
type AttemptFailure struct {
	AttemptNumber int    `json:"attempt_number" yaml:"attempt_number"`
	TargetWords   int    `json:"target_words" yaml:"target_words"`
	Error         string `json:"error" yaml:"error"`
}

// Session is the record of one Run call. It is owned by the caller once Run
// returns.
//
// Best is always the attempt with the strictly highest selection score.
// Accepted is the attempt that satisfied every gate, set only when the
// outcome is OutcomeAcceptedEarly. The two differ when an earlier candidate
// outscored the accepted attempt.
type Session struct {
	ID           uuid.UUID        `json:"id" yaml:"id"`
	Attempts     []AttemptRecord  `json:"attempts" yaml:"attempts"`
	Failures     []AttemptFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Best         *AttemptRecord   `json:"best,omitempty" yaml:"best,omitempty"`
	Accepted     *AttemptRecord   `json:"accepted,omitempty" yaml:"accepted,omitempty"`
	Requirements RequirementSet   `json:"requirements" yaml:"requirements"`
	Outcome      Outcome          `json:"outcome" yaml:"outcome"`
}

// Winner returns the attempt a caller should keep: the accepted attempt when
// one cleared every gate, otherwise Best. It is nil when every attempt failed.
func (s *Session) Winner() *AttemptRecord {
	if s.Accepted != nil {
		return s.Accepted
	}
	return s.Best
}

// TotalAttempts returns the number of attempts consumed, failed ones included.
func (s *Session) TotalAttempts() int {
	return len(s.Attempts) + len(s.Failures)
}

// Attempt returns the scored attempt with the given 1-based number.
func (s *Session) Attempt(number int) (AttemptRecord, bool) {
	for _, a := range s.Attempts {
		if a.AttemptNumber == number {
			return a, true
		}
	}
	return AttemptRecord{}, false
}
