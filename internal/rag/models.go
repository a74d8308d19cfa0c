package rag

import (
	"fmt"
	"strings"
)

// NoContextAnswer is returned when a query is empty or retrieval finds nothing.
const NoContextAnswer = "No relevant context found."

type Outcome string

const (
	OutcomeAnswered         Outcome = "answered"
	OutcomeNoContext        Outcome = "no_context"
	OutcomeFailed           Outcome = "failed"
	OutcomeGenerationFailed Outcome = "generation_failed"
)

type RetrievalMode string

const (
	// ModeVector embeds the query in the service and searches by vector.
	ModeVector RetrievalMode = "vector"
	// ModeText hands the raw query to the store, which embeds or matches it itself.
	ModeText RetrievalMode = "text"
)

// RetrievedChunk is one search hit. RelevanceScore is normalized to [0,1],
// higher meaning closer.
type RetrievedChunk struct {
	ID             string         `json:"id,omitempty"`
	Text           string         `json:"text"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	RelevanceScore float64        `json:"relevance_score"`
}

func (c RetrievedChunk) Chapter() string { return MetaString(c.Metadata, "chapter") }

func (c RetrievedChunk) Section() string { return MetaString(c.Metadata, "section") }

// SourceSummary is what callers see about a chunk that fed the answer.
type SourceSummary struct {
	RelevanceScore float64 `json:"relevance_score"`
	TextPreview    string  `json:"text_preview"`
	Chapter        string  `json:"chapter,omitempty"`
	Section        string  `json:"section,omitempty"`
}

type AskRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK,omitempty"`
	// Lang is "", "auto" or a language code/name for the answer.
	Lang string `json:"lang,omitempty"`
}

type AnswerResult struct {
	Query    string          `json:"query"`
	Answer   string          `json:"answer"`
	Sources  []SourceSummary `json:"sources"`
	TimingMS float64         `json:"timing_ms"`
	Outcome  Outcome         `json:"outcome"`
	Database string          `json:"database,omitempty"`
}

// Record is a full stored tuple, used for bulk export and upsert.
type Record struct {
	ID       string         `json:"id"`
	Vector   []float32      `json:"values"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchQuery carries the raw text and, in vector mode, its embedding.
type SearchQuery struct {
	Text   string
	Vector []float32
}

// MetaString renders a metadata value as text, or "" when absent.
func MetaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	v, ok := meta[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
