package store

import (
	"context"
	"strings"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
)

type demoEntry struct {
	key     string
	content string
	chapter string
	section string
}

var demoKnowledge = []demoEntry{
	{
		key:     "photosynthesis",
		content: "Photosynthesis is the process by which plants convert sunlight, carbon dioxide, and water into glucose and oxygen. This process occurs primarily in the chloroplasts of plant cells, specifically in the chlorophyll-containing thylakoids. The process consists of two main stages: the light-dependent reactions (photo reactions) and the light-independent reactions (Calvin cycle).",
		chapter: "Plant Biology",
		section: "Energy Production",
	},
	{
		key:     "dna",
		content: "DNA (Deoxyribonucleic acid) is the hereditary material in humans and almost all other organisms. It consists of two strands that form a double helix, with each strand made up of nucleotides containing a phosphate group, a sugar (deoxyribose), and one of four nitrogenous bases (A, T, G, C). DNA stores genetic information through the sequence of these bases.",
		chapter: "Genetics",
		section: "Molecular Genetics",
	},
	{
		key:     "cell",
		content: "Cells are the basic structural and functional units of all living organisms. There are two main types: prokaryotic cells (without a membrane-bound nucleus) and eukaryotic cells (with a membrane-bound nucleus). Eukaryotic cells contain organelles like mitochondria, endoplasmic reticulum, and Golgi apparatus that perform specific functions.",
		chapter: "Cell Biology",
		section: "Cell Structure",
	},
	{
		key:     "mitosis",
		content: "Mitosis is the process of cell division that results in two genetically identical diploid daughter cells. It consists of several phases: prophase, metaphase, anaphase, and telophase. During mitosis, chromosomes condense and align at the cell's center before being separated and distributed to daughter cells.",
		chapter: "Cell Biology",
		section: "Cell Division",
	},
	{
		key:     "evolution",
		content: "Evolution is the change in heritable traits of biological populations over successive generations. It occurs through mechanisms such as natural selection, genetic drift, mutation, and gene flow. Charles Darwin's theory of natural selection explains how organisms with favorable traits are more likely to survive and reproduce.",
		chapter: "Evolution",
		section: "Evolutionary Theory",
	},
	{
		key:     "enzyme",
		content: "Enzymes are biological catalysts that speed up chemical reactions in living organisms. They are typically proteins that lower the activation energy required for reactions to occur. Enzymes are highly specific, often working with only one or a few substrates, and their activity can be affected by factors like temperature, pH, and inhibitors.",
		chapter: "Biochemistry",
		section: "Molecular Biology",
	},
}

const (
	demoMaxResults    = 3
	demoKeyScore      = 1.0
	demoContentScore  = 0.5
	demoFallbackScore = 0.1
)

// DemoStore matches query text against a small built-in table. It needs no
// database or embedder and always returns at least one chunk.
type DemoStore struct{}

func NewDemoStore() *DemoStore { return &DemoStore{} }

func (DemoStore) Name() string { return "demo" }

func (DemoStore) Search(_ context.Context, q rag.SearchQuery, k int) ([]rag.RetrievedChunk, error) {
	if k <= 0 {
		return []rag.RetrievedChunk{}, nil
	}
	if k > demoMaxResults {
		k = demoMaxResults
	}
	topic := strings.ToLower(strings.TrimSpace(q.Text))

	var hits []rag.RetrievedChunk
	for _, e := range demoKnowledge {
		if strings.Contains(topic, e.key) || (topic != "" && strings.Contains(e.key, topic)) {
			hits = append(hits, e.chunk(demoKeyScore))
		}
	}
	if len(hits) == 0 {
		for _, e := range demoKnowledge {
			if mentionsAny(strings.ToLower(e.content), strings.Fields(topic)) {
				hits = append(hits, e.chunk(demoContentScore))
			}
		}
	}
	if len(hits) == 0 {
		hits = append(hits, demoKnowledge[0].chunk(demoFallbackScore))
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (e demoEntry) chunk(score float64) rag.RetrievedChunk {
	return rag.RetrievedChunk{
		ID:   "demo-" + e.key,
		Text: e.content,
		Metadata: map[string]any{
			"chapter":      e.chapter,
			"section":      e.section,
			"content_type": "demo",
		},
		RelevanceScore: score,
	}
}

func mentionsAny(content string, words []string) bool {
	for _, w := range words {
		w = strings.Trim(w, "?!.,;:\"'()")
		if len(w) < 3 {
			continue
		}
		if strings.Contains(content, w) {
			return true
		}
	}
	return false
}

var _ rag.VectorStore = DemoStore{}
