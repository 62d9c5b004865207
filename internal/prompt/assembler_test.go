package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembler_Assemble(t *testing.T) {
	cache, dir := newTestCache(t)
	writeTemplate(t, dir, "description", `
Write about {{.subject}} in about {{.target_words}} words.

Key facts:
{{bullets .facts}}

Tone: {{lower .tone}}
`)

	out, err := NewAssembler(cache).Assemble("description", map[string]interface{}{
		"subject":      "Aluminum 6061",
		"target_words": 150,
		"facts":        []string{"rust oxidation", "1064nm"},
		"tone":         "TECHNICAL",
	})
	require.NoError(t, err)

	assert.Equal(t, "Write about Aluminum 6061 in about 150 words.\n\n"+
		"Key facts:\n- rust oxidation\n- 1064nm\n\nTone: technical", out)
}

func TestAssembler_MissingVariable(t *testing.T) {
	cache, dir := newTestCache(t)
	writeTemplate(t, dir, "description", "Write about {{.subject}} for {{.audience}}.")

	_, err := NewAssembler(cache).Assemble("description", map[string]interface{}{
		"subject": "copper",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audience")
}

func TestAssembler_UnknownTemplate(t *testing.T) {
	cache, _ := newTestCache(t)

	_, err := NewAssembler(cache).Assemble("nope", nil)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}
