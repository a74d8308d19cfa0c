package store

import (
	"context"
	"testing"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(&stubEmbedder{vec: []float32{1, 0}})

	require.NoError(t, s.Upsert(ctx, []rag.Record{
		{ID: "x", Vector: []float32{1, 0}, Text: "exact"},
		{ID: "y", Vector: []float32{0, 1}, Text: "orthogonal"},
		{ID: "z", Vector: []float32{1, 1}, Text: "diagonal"},
	}))
	require.NoError(t, s.Upsert(ctx, []rag.Record{{ID: "x", Vector: []float32{1, 0}, Text: "exact v2"}}))

	got, err := s.Search(ctx, rag.SearchQuery{Text: "anything"}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "exact v2", got[0].Text)
	assert.InDelta(t, 1.0, got[0].RelevanceScore, 1e-9)
	assert.Equal(t, "z", got[1].ID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := s.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, []string{all[0].ID, all[1].ID, all[2].ID})

	_, err = s.Search(ctx, rag.SearchQuery{Vector: []float32{1, 0, 0}}, 1)
	assert.Error(t, err)
}

func TestDemoStore(t *testing.T) {
	ctx := context.Background()
	s := NewDemoStore()

	got, err := s.Search(ctx, rag.SearchQuery{Text: "What is photosynthesis?"}, 4)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Plant Biology", got[0].Chapter())
	assert.Equal(t, 1.0, got[0].RelevanceScore)

	got, err = s.Search(ctx, rag.SearchQuery{Text: "chromosomes"}, 4)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "Cell Division", got[0].Section())
	assert.Equal(t, 0.5, got[0].RelevanceScore)

	got, err = s.Search(ctx, rag.SearchQuery{Text: "quasar"}, 4)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "demo-photosynthesis", got[0].ID)

	got, err = s.Search(ctx, rag.SearchQuery{Text: "cell mitosis dna"}, 5)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
