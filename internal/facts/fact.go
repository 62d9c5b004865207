// Package facts models the research facts a generation prompt must carry.
//
// A CriticalFact is a named piece of research (a pattern name, a material
// property, a visual descriptor) with a severity. Facts are collected into an
// immutable FactSet before prompt compression so the optimizer knows what to
// protect and the retention verifier knows what to look for.
package facts

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Common errors for fact construction.
var (
	ErrEmptyFactName   = errors.New("fact name cannot be empty")
	ErrUnknownSeverity = errors.New("unknown fact severity")
)

// Severity ranks how costly it is to lose a fact during compression.
type Severity int

const (
	// SeverityMedium facts are tracked for retention but never invalidate a prompt on their own.
	SeverityMedium Severity = iota + 1
	// SeverityHigh facts invalidate a compressed prompt when missing.
	SeverityHigh
	// SeverityCritical facts invalidate a compressed prompt when missing.
	SeverityCritical
)

// String returns the canonical upper-case name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityHigh:
		return "HIGH"
	case SeverityMedium:
		return "MEDIUM"
	default:
		return "UNKNOWN"
	}
}

// IsBlocking reports whether losing a fact of this severity invalidates a prompt.
func (s Severity) IsBlocking() bool {
	return s == SeverityCritical || s == SeverityHigh
}

// ParseSeverity parses a case-insensitive severity name.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return SeverityCritical, nil
	case "HIGH":
		return SeverityHigh, nil
	case "MEDIUM":
		return SeverityMedium, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if s < SeverityMedium || s > SeverityCritical {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSeverity, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CriticalFact is a named research fact that compression must not silently drop.
type CriticalFact struct {
	// Name identifies the fact, e.g. "rust oxidation" or "wavelength".
	Name string `yaml:"name" json:"name"`

	// Keywords are the representative terms searched for in prompt text.
	// When empty, Name is used.
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`

	Severity Severity `yaml:"severity" json:"severity"`
}

// Validate checks the fact for a name and a known severity.
func (f CriticalFact) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyFactName
	}
	if f.Severity < SeverityMedium || f.Severity > SeverityCritical {
		return fmt.Errorf("fact %q: %w", f.Name, ErrUnknownSeverity)
	}
	return nil
}

// RepresentativeKeywords returns the normalized search terms for the fact.
//
// Terms are lower-cased tokens longer than three characters, which keeps
// stop-words like "the" or "and" from producing false positives. A fact whose
// phrases contain no such token (e.g. "UV") falls back to the whole phrase.
func (f CriticalFact) RepresentativeKeywords() []string {
	phrases := f.Keywords
	if len(phrases) == 0 {
		phrases = []string{f.Name}
	}

	seen := make(map[string]bool)
	var out []string
	add := func(kw string) {
		if kw != "" && !seen[kw] {
			seen[kw] = true
			out = append(out, kw)
		}
	}

	for _, phrase := range phrases {
		tokens := Tokenize(phrase)
		found := false
		for _, tok := range tokens {
			if len(tok) > 3 {
				add(tok)
				found = true
			}
		}
		if !found {
			add(strings.ToLower(strings.TrimSpace(phrase)))
		}
	}
	return out
}

// PresentIn reports whether any representative keyword occurs in text.
// lowered must already be lower-cased.
func (f CriticalFact) PresentIn(lowered string) bool {
	for _, kw := range f.RepresentativeKeywords() {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Tokenize splits text into lower-cased runs of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
