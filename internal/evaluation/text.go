package evaluation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// wordList returns the lower-cased words of text in order.
func wordList(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

// splitSentences splits text on terminal punctuation. Fragments of ten
// characters or fewer ("e.g.", "i.e.") stay attached to the next sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentence := strings.TrimSpace(current.String())
			if len(sentence) > 10 {
				sentences = append(sentences, sentence)
				current.Reset()
			}
		}
	}
	if rest := strings.TrimSpace(current.String()); len(rest) > 10 {
		sentences = append(sentences, rest)
	}
	return sentences
}

// splitParagraphs splits text on blank lines.
func splitParagraphs(text string) []string {
	var paragraphs []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, strings.TrimSpace(line))
	}
	flush()
	return paragraphs
}

// averageWordLength returns the mean rune length of words.
func averageWordLength(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	total := 0
	for _, w := range words {
		total += utf8.RuneCountInString(w)
	}
	return float64(total) / float64(len(words))
}

// countPhrases counts case-insensitive occurrences of each phrase in lowered.
func countPhrases(lowered string, phrases []string) (total int, found []string) {
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if n := strings.Count(lowered, p); n > 0 {
			total += n
			found = append(found, p)
		}
	}
	return total, found
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
