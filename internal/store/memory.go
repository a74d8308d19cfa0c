package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
)

// MemoryStore is an in-process store ranked by cosine similarity. It backs
// tests and small local collections.
type MemoryStore struct {
	embedder rag.Embedder

	mu      sync.RWMutex
	order   []string
	records map[string]rag.Record
}

func NewMemoryStore(embedder rag.Embedder) *MemoryStore {
	return &MemoryStore{
		embedder: embedder,
		records:  make(map[string]rag.Record),
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Upsert(_ context.Context, records []rag.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record[%d] has empty id", i)
		}
		if _, ok := s.records[r.ID]; !ok {
			s.order = append(s.order, r.ID)
		}
		s.records[r.ID] = r
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, q rag.SearchQuery, k int) ([]rag.RetrievedChunk, error) {
	if k <= 0 {
		return []rag.RetrievedChunk{}, nil
	}
	vec, err := queryVector(ctx, q, s.embedder, 0)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]rag.RetrievedChunk, 0, len(s.order))
	for _, id := range s.order {
		r := s.records[id]
		if len(r.Vector) != len(vec) {
			s.mu.RUnlock()
			return nil, fmt.Errorf("record %s has dimension %d, query has %d", id, len(r.Vector), len(vec))
		}
		out = append(out, rag.RetrievedChunk{
			ID:             r.ID,
			Text:           r.Text,
			Metadata:       r.Metadata,
			RelevanceScore: rag.NormalizeScore(rag.ScoreSimilarity, cosine(vec, r.Vector)),
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].RelevanceScore > out[j].RelevanceScore })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *MemoryStore) Export(context.Context) ([]rag.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rag.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out, nil
}

func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var (
	_ rag.VectorStore = (*MemoryStore)(nil)
	_ rag.Exporter    = (*MemoryStore)(nil)
	_ rag.Upserter    = (*MemoryStore)(nil)
	_ rag.Counter     = (*MemoryStore)(nil)
)
