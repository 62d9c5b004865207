package prompt

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Persona is an author voice the generator writes in.
type Persona struct {
	Name             string   `koanf:"-"`
	Description      string   `koanf:"description"`
	Instructions     string   `koanf:"instructions"`
	VoiceMarkers     []string `koanf:"voice_markers"`
	ForbiddenPhrases []string `koanf:"forbidden_phrases"`
}

// Profiles is a read-only set of personas keyed by lower-cased name.
type Profiles struct {
	personas map[string]Persona
}

// LoadProfiles reads personas from a YAML file of the form
//
//	personas:
//	  technical:
//	    description: Precise engineering voice
//	    voice_markers: ["in practice", "we measured"]
//	    forbidden_phrases: ["game-changer"]
func LoadProfiles(path string) (*Profiles, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading persona profiles: %w", err)
	}
	return ParseProfiles(content)
}

// ParseProfiles parses persona YAML content.
func ParseProfiles(content []byte) (*Profiles, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing persona profiles: %w", err)
	}

	var raw map[string]Persona
	if err := k.Unmarshal("personas", &raw); err != nil {
		return nil, fmt.Errorf("decoding persona profiles: %w", err)
	}

	p := &Profiles{personas: make(map[string]Persona, len(raw))}
	for name, persona := range raw {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return nil, fmt.Errorf("persona with empty name")
		}
		if _, dup := p.personas[key]; dup {
			return nil, fmt.Errorf("duplicate persona %q", key)
		}
		persona.Name = key
		p.personas[key] = persona
	}
	return p, nil
}

// Get returns the named persona. Names are case-insensitive.
func (p *Profiles) Get(name string) (Persona, bool) {
	if p == nil {
		return Persona{}, false
	}
	persona, ok := p.personas[strings.ToLower(strings.TrimSpace(name))]
	return persona, ok
}

// Names returns the persona names in sorted order.
func (p *Profiles) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.personas))
	for name := range p.personas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
