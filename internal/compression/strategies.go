package compression

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/promptgate/internal/facts"
)

// keepSet matches lines that carry a keyword of a fact the caller wants preserved.
type keepSet struct {
	keywords []string
}

func newKeepSet(preserve []facts.CriticalFact) keepSet {
	var ks keepSet
	seen := make(map[string]bool)
	for _, f := range preserve {
		for _, kw := range f.RepresentativeKeywords() {
			if !seen[kw] {
				seen[kw] = true
				ks.keywords = append(ks.keywords, kw)
			}
		}
	}
	return ks
}

// matches reports whether s contains any preserved keyword, case-insensitively.
func (k keepSet) matches(s string) bool {
	if len(k.keywords) == 0 {
		return false
	}
	lowered := strings.ToLower(s)
	for _, kw := range k.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// substitution is one verbose-to-terse rewrite rule.
type substitution struct {
	pattern *regexp.Regexp
	replace string
}

// condenseRules replace verbose phrasing. Each replacement is shorter than
// anything its pattern can match.
var condenseRules = []substitution{
	{regexp.MustCompile(`(?i)\bin order to\b`), "to"},
	{regexp.MustCompile(`(?i)\bdue to the fact that\b`), "because"},
	{regexp.MustCompile(`(?i)\bin spite of the fact that\b`), "although"},
	{regexp.MustCompile(`(?i)\bfor the purpose of\b`), "for"},
	{regexp.MustCompile(`(?i)\bat this point in time\b`), "now"},
	{regexp.MustCompile(`(?i)\bin the event that\b`), "if"},
	{regexp.MustCompile(`(?i)\bwith regard to\b`), "about"},
	{regexp.MustCompile(`(?i)\bin terms of\b`), "for"},
	{regexp.MustCompile(`(?i)\bprior to\b`), "before"},
	{regexp.MustCompile(`(?i)\bthe majority of\b`), "most"},
	{regexp.MustCompile(`(?i)\ba (?:large|great) number of\b`), "many"},
	{regexp.MustCompile(`(?i)\b(?:is|are) able to\b`), "can"},
	{regexp.MustCompile(`(?i)\bhas the ability to\b`), "can"},
	{regexp.MustCompile(`(?i)\bit is (?:very |extremely |really )?important (?:to note )?that[ \t]+`), ""},
	{regexp.MustCompile(`(?i)\bplease[ \t]+`), ""},
	{regexp.MustCompile(`(?i)\bmake sure (?:that |to )?`), "ensure "},
	{regexp.MustCompile(`(?i)\b(?:furthermore|moreover|additionally|in addition),[ \t]*`), ""},
	{regexp.MustCompile(`(?i)\b(?:very|really|extremely|absolutely|truly|incredibly|highly)[ \t]+`), ""},
	{regexp.MustCompile(`!{2,}`), "!"},
}

var (
	multiSpace     = regexp.MustCompile(`[ \t]{2,}`)
	listItemPrefix = regexp.MustCompile(`^\s*(?:(?i:step\s+)?\d{1,2}[.):]|[*•·▪●◦‣]|-)\s+`)
	exampleAside   = regexp.MustCompile(`(?i)\s*\((?:e\.g\.|eg\b|i\.e\.|for example|for instance|such as)[^()]*\)`)
)

// condense applies the substitution rules and collapses intra-line whitespace.
func condense(text string, _ keepSet, _ Budget) string {
	for _, rule := range condenseRules {
		text = rule.pattern.ReplaceAllString(text, rule.replace)
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		body := multiSpace.ReplaceAllString(line[indent:], " ")
		lines[i] = strings.TrimRight(line[:indent]+body, " \t")
	}
	return strings.Join(lines, "\n")
}

// bulletize rewrites list items as "- " lines without trailing separators.
func bulletize(text string, _ keepSet, _ Budget) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		loc := listItemPrefix.FindStringIndex(line)
		if loc == nil {
			continue
		}
		body := strings.TrimRight(line[loc[1]:], " \t;,")
		if body == "" {
			continue
		}
		lines[i] = "- " + body
	}
	return strings.Join(lines, "\n")
}

// stripExamples removes illustrative parenthetical asides. An aside that
// carries a preserved keyword is left in place.
func stripExamples(text string, keep keepSet, _ Budget) string {
	return exampleAside.ReplaceAllStringFunc(text, func(aside string) string {
		if keep.matches(aside) {
			return aside
		}
		return ""
	})
}

const maxLineChars = 240

// conceptKeywords are the topic words used to fingerprint near-duplicate
// instruction lines.
var conceptKeywords = []string{
	"audience", "author", "avoid", "cleaning", "contaminant", "example",
	"forbidden", "format", "laser", "length", "material", "never",
	"paragraph", "persona", "reader", "sentence", "structure", "style",
	"substrate", "surface", "technical", "tone", "voice", "word",
}

// fingerprint returns the sorted topic keywords in line, or "" when fewer than
// two match.
func fingerprint(line string) string {
	lowered := strings.ToLower(line)
	var hits []string
	for _, kw := range conceptKeywords {
		if strings.Contains(lowered, kw) {
			hits = append(hits, kw)
		}
	}
	if len(hits) < 2 {
		return ""
	}
	sort.Strings(hits)
	return strings.Join(hits, "|")
}

// aggressiveTrim drops duplicate lines, cuts overlong lines and collapses
// blank-line runs. The first non-blank line and preserved lines are never
// dropped or cut.
func aggressiveTrim(text string, keep keepSet, _ Budget) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	seenExact := make(map[string]bool)
	seenConcept := make(map[string]bool)
	baseSeen := false
	lastBlank := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if !lastBlank && len(out) > 0 {
				out = append(out, "")
			}
			lastBlank = true
			continue
		}

		protected := !baseSeen || keep.matches(trimmed)
		baseSeen = true
		key := strings.ToLower(trimmed)

		if !protected {
			if seenExact[key] {
				continue
			}
			if fp := fingerprint(trimmed); fp != "" {
				if seenConcept[fp] {
					continue
				}
				seenConcept[fp] = true
			}
			if charLen(line) > maxLineChars {
				line = cutAtWord(line, maxLineChars)
			}
		}
		seenExact[key] = true
		out = append(out, line)
		lastBlank = false
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// cutAtWord shortens line to at most limit characters, breaking at the last
// space and appending an ellipsis.
func cutAtWord(line string, limit int) string {
	cut := truncateRunes(line, limit-1)
	if idx := strings.LastIndexAny(cut, " \t"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " \t,;:") + "…"
}

// sectionKind decides what pruning does with a section.
type sectionKind int

const (
	sectionKeep sectionKind = iota
	sectionDrop
	sectionShrink
)

var (
	keepHeaderWords   = []string{"critical", "correction", "anti-pattern", "antipattern", "required", "must"}
	dropHeaderWords   = []string{"optional", "tips", "inspiration", "nice to have", "nice-to-have"}
	shrinkHeaderWords = []string{
		"example", "detail", "background", "context", "reference",
		"note", "additional", "supplementary",
	}

	markdownHeader = regexp.MustCompile(`^#{1,6}\s+\S`)
	tagHeader      = regexp.MustCompile(`^\[[A-Za-z0-9 _/-]+\]$`)
	capsHeader     = regexp.MustCompile(`^[A-Z][A-Z0-9 /&'()-]{2,}:$`)
)

const shrinkBodyLines = 3

func isSectionHeader(line string) bool {
	t := strings.TrimSpace(line)
	return markdownHeader.MatchString(t) || tagHeader.MatchString(t) || capsHeader.MatchString(t)
}

func classifyHeader(header string) sectionKind {
	h := strings.ToLower(header)
	containsAny := func(words []string) bool {
		for _, w := range words {
			if strings.Contains(h, w) {
				return true
			}
		}
		return false
	}
	switch {
	case containsAny(keepHeaderWords):
		return sectionKeep
	case containsAny(dropHeaderWords):
		return sectionDrop
	case containsAny(shrinkHeaderWords):
		return sectionShrink
	default:
		return sectionKeep
	}
}

type section struct {
	header string
	body   []string
}

func splitSections(text string) (preamble []string, sections []section) {
	for _, line := range strings.Split(text, "\n") {
		if isSectionHeader(line) {
			sections = append(sections, section{header: line})
			continue
		}
		if len(sections) == 0 {
			preamble = append(preamble, line)
			continue
		}
		last := &sections[len(sections)-1]
		last.body = append(last.body, line)
	}
	return preamble, sections
}

// pruneSections drops or shrinks low-priority sections by header keyword.
func pruneSections(text string, keep keepSet, _ Budget) string {
	preamble, sections := splitSections(text)
	if len(sections) == 0 {
		return text
	}

	out := append([]string(nil), preamble...)
	for _, s := range sections {
		switch classifyHeader(s.header) {
		case sectionKeep:
			out = append(out, s.header)
			out = append(out, s.body...)
		case sectionDrop:
			var kept []string
			for _, line := range s.body {
				if keep.matches(line) {
					kept = append(kept, line)
				}
			}
			if len(kept) > 0 {
				out = append(out, s.header)
				out = append(out, kept...)
			}
		case sectionShrink:
			out = append(out, s.header)
			n := 0
			for _, line := range s.body {
				if strings.TrimSpace(line) == "" {
					continue
				}
				if n < shrinkBodyLines || keep.matches(line) {
					out = append(out, line)
				}
				n++
			}
		}
	}
	return strings.Join(out, "\n")
}
