package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSections(t *testing.T) {
	answer := `**INTRODUCTION (approximately 200-250 words):**
Photosynthesis converts light into chemical energy.

**LEARNING PATHWAYS (3 recommendations):**
Here is what to read next:
1. Cellular Respiration: the reverse process
2. Chloroplast Structure: where it happens
3. Carbon Cycle: global impact

**MCQ QUESTION:**
Question: Where does the Calvin cycle occur?
A) Stroma
B) Thylakoid
C) Nucleus
D) Cytoplasm
Correct Answer: A - It runs in the stroma.`

	got := ParseSections(answer)

	assert.Equal(t, "Photosynthesis converts light into chemical energy.", got.Introduction)
	assert.Equal(t, []string{
		"1. Cellular Respiration: the reverse process",
		"2. Chloroplast Structure: where it happens",
		"3. Carbon Cycle: global impact",
	}, got.LearningPathways)
	assert.Contains(t, got.MCQQuestion, "Question: Where does the Calvin cycle occur?")
	assert.Contains(t, got.MCQQuestion, "Correct Answer: A")
}

func TestParseSections_ShortHeaders(t *testing.T) {
	got := ParseSections("**INTRODUCTION**\n\nIntro text\n\n**MCQ QUESTION**\n\nQuestion: Q?")

	assert.Equal(t, "Intro text", got.Introduction)
	assert.Empty(t, got.LearningPathways)
	assert.NotNil(t, got.LearningPathways)
	assert.Equal(t, "Question: Q?", got.MCQQuestion)
}

func TestParseSections_NoHeaders(t *testing.T) {
	got := ParseSections("Error: Request timed out.")

	assert.Empty(t, got.Introduction)
	assert.Empty(t, got.MCQQuestion)
	assert.Empty(t, got.LearningPathways)
}
