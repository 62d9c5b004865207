package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

var funcMap = template.FuncMap{
	"join":    strings.Join,
	"lower":   strings.ToLower,
	"upper":   strings.ToUpper,
	"trim":    strings.TrimSpace,
	"bullets": bullets,
}

// bullets renders items as a markdown list, one per line.
func bullets(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}

// Assembler renders cached templates into prompts.
type Assembler struct {
	cache *Cache
}

// NewAssembler creates an assembler over cache.
func NewAssembler(cache *Cache) *Assembler {
	return &Assembler{cache: cache}
}

// Assemble renders the named template with vars. A placeholder without a
// matching variable is an error.
func (a *Assembler) Assemble(name string, vars map[string]interface{}) (string, error) {
	tmpl, err := a.cache.Get(name)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("rendering template %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}
