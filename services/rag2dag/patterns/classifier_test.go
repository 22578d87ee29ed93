// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for pattern classification

package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
)

func TestClassify_KeywordSelectsPattern(t *testing.T) {
	tests := []struct {
		name  string
		query string
		files []string
		want  datatypes.PatternType
	}{
		{
			name:  "compare keyword",
			query: "compare these two contracts",
			files: []string{"a.pdf", "b.pdf"},
			want:  datatypes.PatternMultiDocumentCompare,
		},
		{
			name:  "summarize keyword",
			query: "summarize the findings in this report",
			files: []string{"report.pdf"},
			want:  datatypes.PatternSummarizeThenExtract,
		},
		{
			name:  "refine keyword",
			query: "refine and polish this draft",
			files: []string{"draft.md"},
			want:  datatypes.PatternIterativeRefine,
		},
		{
			name:  "classify keyword",
			query: "classify these emails by urgency",
			files: []string{"inbox.eml"},
			want:  datatypes.PatternClassifyRoute,
		},
		{
			name:  "question words",
			query: "what does clause 4 mean and why does it matter",
			files: []string{"contract.pdf"},
			want:  datatypes.PatternSingleDocumentQA,
		},
		{
			name:  "batch phrasing",
			query: "give me an overview of each file",
			files: []string{"a.pdf", "b.pdf", "c.pdf"},
			want:  datatypes.PatternBatchSummarize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.query, tt.files)
			assert.Equal(t, tt.want, got.Type)
		})
	}
}

func TestClassify_FallbackWhenNothingMatches(t *testing.T) {
	got := Classify("zzzz qqqq", nil)
	assert.Equal(t, DefaultPatternType, got.Type)
}

func TestClassify_EmptyQueryFallsBack(t *testing.T) {
	got := Classify("", nil)
	assert.Equal(t, DefaultPatternType, got.Type)
}

func TestClassify_CaseInsensitive(t *testing.T) {
	lower := Classify("compare the versions", []string{"a.pdf"})
	upper := Classify("COMPARE The Versions", []string{"a.pdf"})
	assert.Equal(t, lower.Type, upper.Type)
	assert.Equal(t, datatypes.PatternMultiDocumentCompare, upper.Type)
}

func TestClassify_FileExtensionsOnlyNeverOutweighKeyword(t *testing.T) {
	// One keyword match is worth two extension hints, so a single
	// keyword should not be displaced by file hints alone.
	got := Classify("compare them", []string{"a.txt", "b.txt"})
	assert.Equal(t, datatypes.PatternMultiDocumentCompare, got.Type)
}

func TestClassify_TieBreakPrefersLowerComplexity(t *testing.T) {
	// Both patterns score zero on keywords; only file hints apply.
	// Every pattern hints pdf, so all tie and the lowest complexity
	// entry must win.
	got := Classify("", []string{"doc.pdf"})
	assert.Equal(t, datatypes.PatternSingleDocumentQA, got.Type)
}

func TestClassify_Deterministic(t *testing.T) {
	query := "summarize and extract the key points"
	files := []string{"a.pdf", "b.md"}
	first := Classify(query, files)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first.Type, Classify(query, files).Type)
	}
}

func TestClassify_ExtensionWithoutDotIgnored(t *testing.T) {
	// Files without extensions contribute nothing.
	got := Classify("", []string{"README", "Makefile"})
	assert.Equal(t, DefaultPatternType, got.Type)
}

func TestScore_WeightsKeywordsDouble(t *testing.T) {
	p, ok := Lookup(datatypes.PatternMultiDocumentCompare)
	require.True(t, ok)

	keywordOnly := Score(p, "compare", nil)
	hintOnly := Score(p, "", []string{"a.pdf"})
	assert.Equal(t, 2, keywordOnly)
	assert.Equal(t, 1, hintOnly)
}

func TestCatalog_ReturnsCopy(t *testing.T) {
	c := Catalog()
	require.NotEmpty(t, c)
	c[0].Name = "mutated"
	assert.NotEqual(t, "mutated", Catalog()[0].Name)
}

func TestLookup_UnknownType(t *testing.T) {
	_, ok := Lookup(datatypes.PatternType("nope"))
	assert.False(t, ok)
}
