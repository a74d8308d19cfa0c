package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestAssembleContext_ShortChunksVerbatim(t *testing.T) {
	chunks := []RetrievedChunk{
		{Text: "Cells are the basic unit of life.", Metadata: map[string]any{"chapter": "Cell Biology", "section": "Cell Structure"}},
		{Text: "DNA is a double helix.", Metadata: map[string]any{"chapter": 3}},
		{Text: "Enzymes lower activation energy."},
	}

	got := AssembleContext(chunks, 600)

	want := "[Source 1 - Chapter Cell Biology - Section Cell Structure]\n" +
		"Cells are the basic unit of life.\n\n" +
		"[Source 2 - Chapter 3]\n" +
		"DNA is a double helix.\n\n" +
		"[Source 3]\n" +
		"Enzymes lower activation energy."
	assert.Equal(t, want, got)
}

func TestAssembleContext_Truncates(t *testing.T) {
	text := strings.Repeat("a", 25)
	got := AssembleContext([]RetrievedChunk{{Text: text}}, 10)

	body := strings.TrimPrefix(got, "[Source 1]\n")
	assert.Equal(t, strings.Repeat("a", 10)+"...", body)
	assert.LessOrEqual(t, len(body), 10+3)
}

func TestAssembleContext_ExactLimitNotTruncated(t *testing.T) {
	text := strings.Repeat("b", 10)
	got := AssembleContext([]RetrievedChunk{{Text: text}}, 10)
	assert.Equal(t, "[Source 1]\n"+text, got)
}

func TestAssembleContext_CountsRunes(t *testing.T) {
	got := AssembleContext([]RetrievedChunk{{Text: "ñññññ"}}, 3)
	assert.Equal(t, "[Source 1]\nñññ...", got)
}

func TestAssembleContext_NoLimit(t *testing.T) {
	text := strings.Repeat("c", 2000)
	got := AssembleContext([]RetrievedChunk{{Text: text}}, 0)
	assert.Equal(t, "[Source 1]\n"+text, got)
}

func TestAssembleContext_KeepsOrderAndDuplicates(t *testing.T) {
	chunks := []RetrievedChunk{
		{Text: "same", RelevanceScore: 0.2},
		{Text: "same", RelevanceScore: 0.9},
	}
	got := AssembleContext(chunks, 100)
	assert.Equal(t, "[Source 1]\nsame\n\n[Source 2]\nsame", got)
}

func TestAssembleContext_Empty(t *testing.T) {
	assert.Equal(t, "", AssembleContext(nil, 100))
}

func TestSummarize(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := Summarize([]RetrievedChunk{
		{Text: long, RelevanceScore: 0.5, Metadata: map[string]any{"section": "Overview"}},
		{Text: "short", RelevanceScore: 0.4},
	})

	assert.Len(t, got, 2)
	assert.Equal(t, strings.Repeat("x", 147)+"...", got[0].TextPreview)
	assert.Len(t, []rune(got[0].TextPreview), 150)
	assert.Equal(t, "Overview", got[0].Section)
	assert.Empty(t, got[0].Chapter)
	assert.Equal(t, "short", got[1].TextPreview)
}

func TestSummarize_PreviewBoundary(t *testing.T) {
	exact := strings.Repeat("é", 150)
	got := Summarize([]RetrievedChunk{{Text: exact}, {Text: exact + "z"}})

	assert.Equal(t, exact, got[0].TextPreview)
	assert.Equal(t, strings.Repeat("é", 147)+"...", got[1].TextPreview)
	assert.LessOrEqual(t, utf8.RuneCountInString(got[1].TextPreview), 150)
}

func TestNormalizeScore(t *testing.T) {
	assert.InDelta(t, 0.8, NormalizeScore(ScoreDistance, 0.2), 1e-9)
	assert.InDelta(t, 0.8, NormalizeScore(ScoreSimilarity, 0.8), 1e-9)
	assert.Equal(t, 0.0, NormalizeScore(ScoreDistance, 1.4))
	assert.Equal(t, 1.0, NormalizeScore(ScoreSimilarity, 1.0000001))
}

func TestMetaString(t *testing.T) {
	meta := map[string]any{"page": float64(12), "ratio": 0.5, "chapter": " Genetics ", "nil": nil}
	assert.Equal(t, "12", MetaString(meta, "page"))
	assert.Equal(t, "0.5", MetaString(meta, "ratio"))
	assert.Equal(t, "Genetics", MetaString(meta, "chapter"))
	assert.Equal(t, "", MetaString(meta, "nil"))
	assert.Equal(t, "", MetaString(nil, "chapter"))
}
