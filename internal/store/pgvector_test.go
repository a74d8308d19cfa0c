package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPgvector(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"pgvector/pgvector:pg17",
		postgres.WithDatabase("textbooks"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPgStore_RoundTrip(t *testing.T) {
	pool := startPgvector(t)
	ctx := context.Background()

	s := NewPgStore(pool, &stubEmbedder{vec: []float32{1, 0, 0}}, PgConfig{Subject: "biology"}, nil)
	require.NoError(t, s.EnsureSchema(ctx))

	records := []rag.Record{
		{ID: "p1", Vector: []float32{1, 0, 0}, Text: "Chlorophyll absorbs light.", Metadata: map[string]any{"chapter": "Plant Biology", "page": 12}},
		{ID: "p2", Vector: []float32{0.8, 0.6, 0}, Text: "Stomata regulate gas exchange.", Metadata: map[string]any{"chapter": "Plant Biology"}},
		{ID: "p3", Vector: []float32{0, 0, 1}, Text: "Mitochondria make ATP."},
	}
	require.NoError(t, s.Upsert(ctx, records))

	other := NewPgStore(pool, nil, PgConfig{Subject: "physics", Dimension: 3}, nil)
	require.NoError(t, other.Upsert(ctx, []rag.Record{{ID: "f1", Vector: []float32{1, 0, 0}, Text: "Force equals mass times acceleration."}}))

	got, err := s.Search(ctx, rag.SearchQuery{Text: "photosynthesis"}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.InDelta(t, 1.0, got[0].RelevanceScore, 1e-6)
	assert.InDelta(t, 0.8, got[1].RelevanceScore, 1e-6)
	assert.Equal(t, "Plant Biology", got[0].Chapter())
	assert.Equal(t, "12", rag.MetaString(got[0].Metadata, "page"))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	exported, err := s.Export(ctx)
	require.NoError(t, err)
	require.Len(t, exported, 3)
	assert.Equal(t, "p2", exported[1].ID)
	assert.InDeltaSlice(t, []float32{0.8, 0.6, 0}, exported[1].Vector, 1e-6)

	err = s.Upsert(ctx, []rag.Record{{ID: "bad", Vector: []float32{1, 2}}})
	assert.ErrorContains(t, err, "dimension 2")
}

func TestPgStore_EnsureIndexDimensionMismatch(t *testing.T) {
	s := NewPgStore(nil, nil, PgConfig{Subject: "biology", Dimension: 384}, nil)

	err := s.EnsureIndex(context.Background(), 768)
	assert.ErrorContains(t, err, "expects dimension 384, got 768")
}

func TestPgStore_EnsureIndexAdoptsDimension(t *testing.T) {
	pool := startPgvector(t)
	ctx := context.Background()

	s := NewPgStore(pool, nil, PgConfig{Subject: "biology"}, nil)
	require.NoError(t, s.EnsureIndex(ctx, 3))
	require.NoError(t, s.Upsert(ctx, []rag.Record{
		{ID: "m1", Vector: []float32{0, 1, 0}, Text: "Meiosis halves the chromosome count.", Metadata: map[string]any{"chapter": "unknown"}},
	}))

	err := s.Upsert(ctx, []rag.Record{{ID: "m2", Vector: []float32{1, 0}}})
	assert.ErrorContains(t, err, "store expects 3")

	got, err := s.Search(ctx, rag.SearchQuery{Vector: []float32{0, 1, 0}}, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)

	assert.NoError(t, s.EnsureIndex(ctx, 3))
}
