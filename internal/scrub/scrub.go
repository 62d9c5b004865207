// Package scrub redacts credentials from prompts before they are sent to an
// LLM provider.
//
// Prompts are assembled from research notes and template variables, either
// of which can carry pasted API keys or tokens. A Scrubber replaces every
// rule match with a fixed marker and reports what it removed without
// retaining the matched text.
package scrub

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultReplacement replaces each redacted span.
const DefaultReplacement = "[REDACTED]"

// Config configures a Scrubber.
type Config struct {
	Enabled     bool     `koanf:"enabled"`
	Replacement string   `koanf:"replacement"`
	Rules       []Rule   `koanf:"rules"`
	AllowList   []string `koanf:"allow_list"` // regexps; matching spans are kept
}

// Rule is one credential pattern.
type Rule struct {
	ID      string `koanf:"id"`
	Pattern string `koanf:"pattern"`

	// Keywords gate the rule: when set, at least one must appear
	// (case-insensitive) before the pattern is tried.
	Keywords []string `koanf:"keywords"`
}

// DefaultConfig enables the default rules.
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Replacement: DefaultReplacement,
		Rules:       DefaultRules(),
	}
}

// DefaultRules covers provider keys and generic credential assignments.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "anthropic-api-key", Pattern: `sk-ant-[A-Za-z0-9_\-]{20,}`},
		{ID: "openai-api-key", Pattern: `sk-(?:proj-)?[A-Za-z0-9_\-]{32,}`},
		{ID: "aws-access-key-id", Pattern: `(A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}`},
		{ID: "github-token", Pattern: `gh[pousr]_[A-Za-z0-9]{36}`},
		{ID: "slack-token", Pattern: `xox[baprs]-[A-Za-z0-9\-]{10,}`},
		{ID: "private-key", Pattern: `-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?:[- ]BLOCK)?-----`},
		{
			ID:       "bearer-token",
			Pattern:  `(?i)bearer\s+[A-Za-z0-9_\-\.=]{20,}`,
			Keywords: []string{"bearer"},
		},
		{
			ID:       "generic-api-key",
			Pattern:  `(?i)(?:api[_-]?key|apikey|secret|password|passwd)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`,
			Keywords: []string{"key", "secret", "pass"},
		},
	}
}

type compiledRule struct {
	id       string
	pattern  *regexp.Regexp
	keywords []string
}

// Scrubber redacts rule matches. It is immutable and safe for concurrent use.
type Scrubber struct {
	enabled     bool
	replacement string
	rules       []compiledRule
	allow       []*regexp.Regexp
}

// New compiles cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config) (*Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Scrubber{enabled: cfg.Enabled, replacement: cfg.Replacement}
	if s.replacement == "" {
		s.replacement = DefaultReplacement
	}
	if !s.enabled {
		return s, nil
	}

	for i, r := range cfg.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("scrub rule %d: id is required", i)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil || r.Pattern == "" {
			return nil, fmt.Errorf("scrub rule %s: invalid pattern %q: %v", r.ID, r.Pattern, err)
		}
		kws := make([]string, len(r.Keywords))
		for j, kw := range r.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		s.rules = append(s.rules, compiledRule{id: r.ID, pattern: re, keywords: kws})
	}
	for i, p := range cfg.AllowList {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("scrub allow_list %d: %w", i, err)
		}
		s.allow = append(s.allow, re)
	}
	return s, nil
}

// Finding locates one redacted span in the input. The matched text is never
// kept.
type Finding struct {
	RuleID string `json:"rule_id" yaml:"rule_id"`
	Start  int    `json:"start" yaml:"start"`
	End    int    `json:"end" yaml:"end"`
	Line   int    `json:"line" yaml:"line"`
}

// Result is the outcome of one Scrub call.
type Result struct {
	Text     string    `json:"-" yaml:"-"`
	Findings []Finding `json:"findings,omitempty" yaml:"findings,omitempty"`
}

// Redacted reports whether anything was removed.
func (r Result) Redacted() bool {
	return len(r.Findings) > 0
}

// RuleIDs returns the distinct rules that matched, sorted.
func (r Result) RuleIDs() []string {
	seen := map[string]bool{}
	var ids []string
	for _, f := range r.Findings {
		if !seen[f.RuleID] {
			seen[f.RuleID] = true
			ids = append(ids, f.RuleID)
		}
	}
	sort.Strings(ids)
	return ids
}

type span struct{ start, end int }

// Scrub replaces every rule match in text. Overlapping matches collapse into
// a single replacement. A nil or disabled Scrubber returns text unchanged.
func (s *Scrubber) Scrub(text string) Result {
	res := Result{Text: text}
	if s == nil || !s.enabled || text == "" {
		return res
	}

	lowered := strings.ToLower(text)
	var spans []span
	for _, r := range s.rules {
		if !r.gated(lowered) {
			continue
		}
		for _, m := range r.pattern.FindAllStringIndex(text, -1) {
			if s.allowed(text[m[0]:m[1]]) {
				continue
			}
			res.Findings = append(res.Findings, Finding{
				RuleID: r.id,
				Start:  m[0],
				End:    m[1],
				Line:   strings.Count(text[:m[0]], "\n") + 1,
			})
			spans = append(spans, span{m[0], m[1]})
		}
	}
	if len(spans) == 0 {
		return res
	}

	sort.Slice(res.Findings, func(i, j int) bool { return res.Findings[i].Start < res.Findings[j].Start })

	var b strings.Builder
	last := 0
	for _, sp := range merge(spans) {
		b.WriteString(text[last:sp.start])
		b.WriteString(s.replacement)
		last = sp.end
	}
	b.WriteString(text[last:])
	res.Text = b.String()
	return res
}

func (r compiledRule) gated(lowered string) bool {
	if len(r.keywords) == 0 {
		return true
	}
	for _, kw := range r.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func (s *Scrubber) allowed(match string) bool {
	for _, re := range s.allow {
		if re.MatchString(match) {
			return true
		}
	}
	return false
}

// merge sorts spans and joins overlapping or adjacent ones.
func merge(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	out := []span{spans[0]}
	for _, sp := range spans[1:] {
		last := &out[len(out)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		out = append(out, sp)
	}
	return out
}
