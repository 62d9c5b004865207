package evaluation

import (
	"fmt"

	"github.com/fyrsmithlabs/promptgate/internal/regeneration"
)

// ReadabilityLimits are the upper bounds content must stay within.
type ReadabilityLimits struct {
	MaxAvgSentenceWords float64
	MaxAvgWordLength    float64
}

// violationPenalty is subtracted from the readability score per exceeded limit.
const violationPenalty = 15.0

// Readability checks text against limits.
func Readability(text string, limits ReadabilityLimits) regeneration.ReadabilityResult {
	words := wordList(text)
	if len(words) == 0 {
		return regeneration.ReadabilityResult{Violations: []string{"no words"}}
	}

	sentences := splitSentences(text)
	sentenceCount := len(sentences)
	if sentenceCount == 0 {
		sentenceCount = 1
	}
	avgSentence := float64(len(words)) / float64(sentenceCount)
	avgWord := averageWordLength(words)

	var violations []string
	if limits.MaxAvgSentenceWords > 0 && avgSentence > limits.MaxAvgSentenceWords {
		violations = append(violations, fmt.Sprintf("average sentence length %.1f words exceeds %.1f",
			avgSentence, limits.MaxAvgSentenceWords))
	}
	if limits.MaxAvgWordLength > 0 && avgWord > limits.MaxAvgWordLength {
		violations = append(violations, fmt.Sprintf("average word length %.2f characters exceeds %.2f",
			avgWord, limits.MaxAvgWordLength))
	}

	score := sentenceShapeScore(avgSentence, len(sentences) > 0)*100 - float64(len(violations))*violationPenalty
	return regeneration.ReadabilityResult{
		Pass:       len(violations) == 0,
		Violations: violations,
		Score:      clamp(score, 0, 100),
	}
}

// sentenceShapeScore rewards 10-20 words per sentence and terminal punctuation.
func sentenceShapeScore(avgWords float64, punctuated bool) float64 {
	var score float64
	switch {
	case !punctuated:
		score = 0.3
	case avgWords >= 10 && avgWords <= 20:
		score = 1.0
	case avgWords >= 5 && avgWords < 10:
		score = 0.8
	case avgWords >= 3:
		score = 0.6
	default:
		score = 0.4
	}
	if punctuated {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
