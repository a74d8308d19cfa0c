package ingest

import (
	"regexp"
	"strings"
)

const (
	DefaultChunkWords = 500
	// Pages with this many words or fewer are treated as layout noise.
	minPageWords = 10
)

var (
	sentenceEnd    = regexp.MustCompile(`[.!?]+`)
	chapterHeading = regexp.MustCompile(`(?i)\bchapter\s+(\d{1,3})\b`)
)

// Chunk is a passage ready for embedding.
type Chunk struct {
	Text    string
	Page    int
	Chapter string
	Words   int
}

// DetectChapter returns "Chapter N" for the first chapter heading in text.
func DetectChapter(text string) string {
	m := chapterHeading.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return "Chapter " + m[1]
}

// ChunkPages splits pages into passages of at most size words, breaking on
// sentence boundaries. The current chapter carries across pages until the
// next heading.
func ChunkPages(pages []Page, size int) []Chunk {
	if size <= 0 {
		size = DefaultChunkWords
	}
	var out []Chunk
	chapter := ""
	for _, p := range pages {
		if ch := DetectChapter(p.Text); ch != "" {
			chapter = ch
		}
		words := strings.Fields(p.Text)
		if len(words) <= minPageWords {
			continue
		}
		if len(words) <= size {
			out = append(out, Chunk{Text: p.Text, Page: p.Number, Chapter: chapter, Words: len(words)})
			continue
		}
		for _, text := range splitSentences(p.Text, size) {
			out = append(out, Chunk{Text: text, Page: p.Number, Chapter: chapter, Words: len(strings.Fields(text))})
		}
	}
	return out
}

func splitSentences(text string, size int) []string {
	var (
		out   []string
		buf   strings.Builder
		count int
	)
	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			out = append(out, s)
		}
		buf.Reset()
		count = 0
	}
	for _, sentence := range sentenceEnd.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		n := len(strings.Fields(sentence))
		if count+n > size && count > 0 {
			flush()
		}
		buf.WriteString(sentence)
		buf.WriteString(". ")
		count += n
	}
	flush()
	return out
}
