package facts

import (
	"fmt"
	"sort"
	"strings"
)

// FactSet is an immutable collection of critical facts.
//
// The zero value is an empty set.
type FactSet struct {
	facts []CriticalFact
}

// NewFactSet validates and copies the given facts. Facts sharing a name
// (case-insensitive) are deduplicated; the first occurrence wins.
func NewFactSet(facts ...CriticalFact) (FactSet, error) {
	seen := make(map[string]bool, len(facts))
	out := make([]CriticalFact, 0, len(facts))
	for _, f := range facts {
		if err := f.Validate(); err != nil {
			return FactSet{}, err
		}
		key := strings.ToLower(strings.TrimSpace(f.Name))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, CriticalFact{
			Name:     strings.TrimSpace(f.Name),
			Keywords: append([]string(nil), f.Keywords...),
			Severity: f.Severity,
		})
	}
	return FactSet{facts: out}, nil
}

// MustFactSet is NewFactSet that panics on invalid input. Intended for tests
// and static fact lists.
func MustFactSet(facts ...CriticalFact) FactSet {
	set, err := NewFactSet(facts...)
	if err != nil {
		panic(err)
	}
	return set
}

// Len returns the number of facts in the set.
func (s FactSet) Len() int {
	return len(s.facts)
}

// Facts returns a copy of the facts in insertion order.
func (s FactSet) Facts() []CriticalFact {
	out := make([]CriticalFact, len(s.facts))
	for i, f := range s.facts {
		out[i] = CriticalFact{
			Name:     f.Name,
			Keywords: append([]string(nil), f.Keywords...),
			Severity: f.Severity,
		}
	}
	return out
}

// Merge returns a new set holding the facts of s followed by those of other.
func (s FactSet) Merge(other FactSet) FactSet {
	merged, err := NewFactSet(append(s.Facts(), other.Facts()...)...)
	if err != nil {
		// Both inputs were validated on construction.
		panic(fmt.Sprintf("facts: merge of validated sets failed: %v", err))
	}
	return merged
}

// Research is the upstream research output a prompt is built from.
type Research struct {
	Patterns    []string          `yaml:"patterns" json:"patterns"`
	Properties  map[string]string `yaml:"properties" json:"properties"`
	Descriptors []string          `yaml:"descriptors" json:"descriptors"`
}

// FromResearch derives a fact set from research data.
//
// Pattern names are CRITICAL, material properties are HIGH (keyed by the
// property value, which is what the prompt actually states) and visual
// descriptors are MEDIUM. Blank entries are skipped.
func FromResearch(r Research) FactSet {
	var out []CriticalFact
	for _, p := range r.Patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, CriticalFact{Name: p, Severity: SeverityCritical})
	}

	// Map iteration order is random; sort so the set is deterministic.
	keys := make([]string, 0, len(r.Properties))
	for k := range r.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := strings.TrimSpace(r.Properties[k])
		if strings.TrimSpace(k) == "" || v == "" {
			continue
		}
		out = append(out, CriticalFact{Name: k, Keywords: []string{v}, Severity: SeverityHigh})
	}

	for _, d := range r.Descriptors {
		if strings.TrimSpace(d) == "" {
			continue
		}
		out = append(out, CriticalFact{Name: d, Severity: SeverityMedium})
	}

	return MustFactSet(out...)
}
