package evaluation

import (
	"math"
	"strings"
)

// structuralScore rates how varied the text's shape is on a 0-100 scale: the
// mean of sentence-length variation, opening-word diversity and paragraph
// balance. Uniform sentences that all open the same way read as generated.
func structuralScore(text string) float64 {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return 0
	}

	parts := []float64{
		lengthVariation(sentences),
		openingDiversity(sentences),
		paragraphBalance(splitParagraphs(text)),
	}
	var sum float64
	for _, p := range parts {
		sum += p
	}
	return clamp(sum/float64(len(parts)), 0, 100)
}

// lengthVariation scores the coefficient of variation of sentence word
// counts. A CV of 0.3 or more scores 100.
func lengthVariation(sentences []string) float64 {
	if len(sentences) < 2 {
		return 50
	}
	counts := make([]float64, len(sentences))
	var mean float64
	for i, s := range sentences {
		counts[i] = float64(len(wordList(s)))
		mean += counts[i]
	}
	mean /= float64(len(counts))
	if mean == 0 {
		return 0
	}

	var variance float64
	for _, c := range counts {
		variance += (c - mean) * (c - mean)
	}
	variance /= float64(len(counts))
	cv := math.Sqrt(variance) / mean

	return clamp(cv/0.3*100, 0, 100)
}

// openingDiversity is the share of sentences with a distinct first word.
func openingDiversity(sentences []string) float64 {
	seen := make(map[string]bool, len(sentences))
	counted := 0
	for _, s := range sentences {
		words := wordList(s)
		if len(words) == 0 {
			continue
		}
		counted++
		seen[words[0]] = true
	}
	if counted == 0 {
		return 0
	}
	return float64(len(seen)) / float64(counted) * 100
}

// paragraphBalance prefers two to five paragraphs with no single paragraph
// holding most of the text.
func paragraphBalance(paragraphs []string) float64 {
	switch n := len(paragraphs); {
	case n == 0:
		return 0
	case n == 1:
		return 60
	case n > 5:
		return 70
	}

	total := 0
	largest := 0
	for _, p := range paragraphs {
		w := len(strings.Fields(p))
		total += w
		if w > largest {
			largest = w
		}
	}
	if total == 0 {
		return 0
	}
	if float64(largest)/float64(total) > 0.7 {
		return 80
	}
	return 100
}
