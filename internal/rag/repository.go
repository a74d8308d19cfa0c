package rag

import "context"

// VectorStore is the read path used by the orchestrator.
type VectorStore interface {
	// Search returns at most k chunks ordered by descending relevance.
	Search(ctx context.Context, q SearchQuery, k int) ([]RetrievedChunk, error)
	// Name labels the backend in results and errors.
	Name() string
}

type Exporter interface {
	Export(ctx context.Context) ([]Record, error)
}

type Upserter interface {
	Upsert(ctx context.Context, records []Record) error
}

type Counter interface {
	Count(ctx context.Context) (int, error)
}

type ScoreKind int

const (
	// ScoreSimilarity is passed through unchanged.
	ScoreSimilarity ScoreKind = iota
	// ScoreDistance is a cosine distance and becomes 1 - d.
	ScoreDistance
)

// NormalizeScore turns a backend score into a relevance in [0,1].
func NormalizeScore(kind ScoreKind, v float64) float64 {
	if kind == ScoreDistance {
		v = 1 - v
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
