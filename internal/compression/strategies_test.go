package compression

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/promptgate/internal/facts"
)

func keepFor(names ...string) keepSet {
	fs := make([]facts.CriticalFact, len(names))
	for i, n := range names {
		fs[i] = facts.CriticalFact{Name: n, Severity: facts.SeverityCritical}
	}
	return newKeepSet(fs)
}

func TestCondense(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "verbose phrases",
			input: "In order to clean the part, it is very important that you  remove rust!!",
			want:  "to clean the part, you remove rust!",
		},
		{
			name:  "make sure and please",
			input: "Please make sure that the beam stays focused.",
			want:  "ensure the beam stays focused.",
		},
		{
			name:  "connectives and emphasis",
			input: "Furthermore, the result is extremely clean due to the fact that heat stays low.",
			want:  "the result is clean because heat stays low.",
		},
		{
			name:  "line structure kept",
			input: "  indented   text  \nnext",
			want:  "  indented text\nnext",
		},
		{
			name:  "every is not emphasis",
			input: "every surface",
			want:  "every surface",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := condense(tt.input, keepSet{}, Budget{})
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, charLen(got), charLen(tt.input))
		})
	}
}

func TestBulletize(t *testing.T) {
	input := "1. Remove rust;\n2) Rinse,\n* Dry\n• Inspect\n   - Indented\nplain line\nStep 3: Ship"
	want := "- Remove rust\n- Rinse\n- Dry\n- Inspect\n- Indented\nplain line\n- Ship"

	got := bulletize(input, keepSet{}, Budget{})
	assert.Equal(t, want, got)
	assert.LessOrEqual(t, charLen(got), charLen(input))
}

func TestStripExamples(t *testing.T) {
	tests := []struct {
		name  string
		input string
		keep  keepSet
		want  string
	}{
		{
			name:  "removes asides",
			input: "Clean metals (e.g. steel, iron) fast (such as in shipyards).",
			want:  "Clean metals fast.",
		},
		{
			name:  "keeps aside carrying preserved keyword",
			input: "Clean metals (e.g. steel) quickly (for example aluminum sheets).",
			keep:  keepFor("aluminum"),
			want:  "Clean metals quickly (for example aluminum sheets).",
		},
		{
			name:  "plain parentheses untouched",
			input: "Use a fiber laser (1064nm).",
			want:  "Use a fiber laser (1064nm).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripExamples(tt.input, tt.keep, Budget{}))
		})
	}
}

func TestAggressiveTrim(t *testing.T) {
	long := strings.Repeat("lorem ", 60)
	baseLong := "BASE " + strings.Repeat("ipsum ", 60)

	input := strings.Join([]string{
		baseLong,
		"Use a technical tone for the reader.",
		"use a technical tone for the reader.",
		"",
		"",
		"",
		"Keep the tone technical for every reader here.",
		long,
		"Aluminum " + long,
		"Aluminum " + long,
		"",
	}, "\n")

	got := aggressiveTrim(input, keepFor("aluminum"), Budget{})
	lines := strings.Split(got, "\n")

	require.Len(t, lines, 6)
	assert.Equal(t, baseLong, lines[0], "base structure line is never cut")
	assert.Equal(t, "Use a technical tone for the reader.", lines[1])
	assert.Equal(t, "", lines[2], "blank run collapsed")
	assert.LessOrEqual(t, charLen(lines[3]), maxLineChars)
	assert.True(t, strings.HasSuffix(lines[3], "…"))
	assert.Equal(t, "Aluminum "+long, lines[4], "preserved line is not cut")
	assert.Equal(t, "Aluminum "+long, lines[5], "preserved duplicate is not dropped")
	assert.LessOrEqual(t, charLen(got), charLen(input))
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "", fingerprint("only tone here"))
	assert.Equal(t, "reader|tone", fingerprint("Tone for the READER"))
	assert.Equal(t, fingerprint("tone reader"), fingerprint("reader, then tone"))
}

func TestCutAtWord(t *testing.T) {
	line := strings.Repeat("abcd ", 100)
	got := cutAtWord(line, 50)
	assert.LessOrEqual(t, charLen(got), 50)
	assert.True(t, strings.HasSuffix(got, "abcd…"))
}

func TestPruneSections(t *testing.T) {
	input := strings.Join([]string{
		"Intro line",
		"## Critical corrections",
		"keep me",
		"## Optional tips",
		"drop me",
		"aluminum stays",
		"## Background details",
		"b1",
		"b2",
		"",
		"b3",
		"b4",
		"b5 aluminum",
		"## Voice",
		"v1",
		"INSPIRATION:",
		"gone",
	}, "\n")

	want := strings.Join([]string{
		"Intro line",
		"## Critical corrections",
		"keep me",
		"## Optional tips",
		"aluminum stays",
		"## Background details",
		"b1",
		"b2",
		"b3",
		"b5 aluminum",
		"## Voice",
		"v1",
	}, "\n")

	assert.Equal(t, want, pruneSections(input, keepFor("aluminum"), Budget{}))
}

func TestPruneSections_NoHeaders(t *testing.T) {
	input := "just\nplain\ntext"
	assert.Equal(t, input, pruneSections(input, keepSet{}, Budget{}))
}

func TestClassifyHeader(t *testing.T) {
	tests := []struct {
		header string
		want   sectionKind
	}{
		{"## Critical examples", sectionKeep},
		{"[ANTI-PATTERNS]", sectionKeep},
		{"NICE TO HAVE:", sectionDrop},
		{"### Tips", sectionDrop},
		{"# Reference material", sectionShrink},
		{"SUPPLEMENTARY NOTES:", sectionShrink},
		{"## Voice", sectionKeep},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			require.True(t, isSectionHeader(tt.header))
			assert.Equal(t, tt.want, classifyHeader(tt.header))
		})
	}
}

func TestEmergencyTruncate(t *testing.T) {
	budget := MustBudget(100, 300, 200)

	t.Run("keeps must-keep lines and fills with generic", func(t *testing.T) {
		var lines []string
		for i := 0; i < 10; i++ {
			lines = append(lines, strings.Repeat("g", 49))
		}
		lines = append(lines, "substrate is aluminum")
		text := strings.Join(lines, "\n")

		got := emergencyTruncate(text, keepFor("aluminum"), budget)
		assert.LessOrEqual(t, charLen(got), budget.HardLimit())
		assert.Contains(t, got, "substrate is aluminum")
		assert.True(t, strings.HasSuffix(got, TruncationMarker))
		assert.True(t, strings.HasPrefix(got, strings.Repeat("g", 49)), "earlier generic lines win")
	})

	t.Run("hard-cuts an oversized must-keep block", func(t *testing.T) {
		var lines []string
		for i := 0; i < 5; i++ {
			lines = append(lines, "generic filler")
			lines = append(lines, "aluminum "+strings.Repeat("x", 90))
		}
		text := strings.Join(lines, "\n")

		got := emergencyTruncate(text, keepFor("aluminum"), budget)
		assert.LessOrEqual(t, charLen(got), budget.HardLimit())
		assert.NotContains(t, got, "generic filler")
		assert.True(t, strings.HasPrefix(got, "aluminum "))
		assert.True(t, strings.HasSuffix(got, TruncationMarker))
	})

	t.Run("single line without preserve facts", func(t *testing.T) {
		text := strings.Repeat("z", 1000)
		got := emergencyTruncate(text, keepSet{}, budget)
		assert.LessOrEqual(t, charLen(got), budget.HardLimit())
		assert.True(t, strings.HasPrefix(got, "zzz"))
		assert.True(t, strings.HasSuffix(got, TruncationMarker))
	})

	t.Run("multibyte text counted in characters", func(t *testing.T) {
		text := strings.Repeat("é", 1000)
		got := emergencyTruncate(text, keepSet{}, budget)
		assert.LessOrEqual(t, charLen(got), budget.HardLimit())
	})
}
