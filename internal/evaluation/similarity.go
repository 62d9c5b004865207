package evaluation

import "strings"

// shingles returns the set of n-word shingles of text. Text shorter than n
// words yields a single shingle of all its words.
func shingles(text string, n int) map[string]bool {
	words := wordList(text)
	set := make(map[string]bool)
	if len(words) == 0 {
		return set
	}
	if len(words) < n {
		set[strings.Join(words, " ")] = true
		return set
	}
	for i := 0; i+n <= len(words); i++ {
		set[strings.Join(words[i:i+n], " ")] = true
	}
	return set
}

// jaccard returns |a ∩ b| / |a ∪ b|, 0 when both are empty.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for s := range a {
		if b[s] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
