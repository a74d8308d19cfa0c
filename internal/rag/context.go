package rag

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkCharLimit = 600
	previewChars          = 150
	ellipsis              = "..."
)

// AssembleContext formats chunks, in the order given, into one block of
// labelled sources. Text longer than limit characters is cut to limit and
// marked with "..."; limit <= 0 disables the cut.
func AssembleContext(chunks []RetrievedChunk, limit int) string {
	var b strings.Builder
	for i, c := range chunks {
		b.WriteString("[Source ")
		b.WriteString(strconv.Itoa(i + 1))
		if ch := c.Chapter(); ch != "" {
			b.WriteString(" - Chapter ")
			b.WriteString(ch)
		}
		if sec := c.Section(); sec != "" {
			b.WriteString(" - Section ")
			b.WriteString(sec)
		}
		b.WriteString("]\n")
		b.WriteString(truncateChars(c.Text, limit))
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// Summarize builds the source list returned with an answer.
func Summarize(chunks []RetrievedChunk) []SourceSummary {
	out := make([]SourceSummary, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, SourceSummary{
			RelevanceScore: c.RelevanceScore,
			TextPreview:    preview(c.Text),
			Chapter:        c.Chapter(),
			Section:        c.Section(),
		})
	}
	return out
}

// preview keeps the marker inside the previewChars budget.
func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewChars {
		return s
	}
	return truncateChars(s, previewChars-len(ellipsis))
}

// truncateChars counts runes so multi-byte text is never split mid-character.
func truncateChars(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + ellipsis
		}
		n++
	}
	return s
}
