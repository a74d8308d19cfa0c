package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

type PgConfig struct {
	Subject   string
	Dimension int
}

// PgStore keeps chunk text and metadata in textbook_chunk and the vectors in
// textbook_chunk_embedding, scoped by subject.
type PgStore struct {
	pool     *pgxpool.Pool
	embedder rag.Embedder
	cfg      PgConfig
	logger   *zap.Logger
}

func NewPgStore(pool *pgxpool.Pool, embedder rag.Embedder, cfg PgConfig, logger *zap.Logger) *PgStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Subject == "" {
		cfg.Subject = rag.DefaultSubject
	}
	if cfg.Dimension == 0 && embedder != nil {
		cfg.Dimension = embedder.Dimension()
	}
	return &PgStore{
		pool:     pool,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "pg_store")),
	}
}

func (s *PgStore) Name() string { return "pgvector" }

func (s *PgStore) EnsureSchema(ctx context.Context) error {
	if s.cfg.Dimension <= 0 {
		return fmt.Errorf("pgvector schema needs a vector dimension")
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS textbook_chunk (
			id         TEXT PRIMARY KEY,
			subject    TEXT NOT NULL,
			content    TEXT NOT NULL,
			metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS textbook_chunk_embedding (
			chunk_id  TEXT PRIMARY KEY REFERENCES textbook_chunk(id) ON DELETE CASCADE,
			embedding vector(%d) NOT NULL
		)`, s.cfg.Dimension),
		`CREATE INDEX IF NOT EXISTS textbook_chunk_subject_idx ON textbook_chunk (subject)`,
		`CREATE INDEX IF NOT EXISTS textbook_chunk_embedding_hnsw_idx
			ON textbook_chunk_embedding USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// EnsureIndex lets the store act as a migration target. A store built without
// a dimension adopts the incoming one.
func (s *PgStore) EnsureIndex(ctx context.Context, dimension int) error {
	if s.cfg.Dimension == 0 {
		s.cfg.Dimension = dimension
	}
	if s.cfg.Dimension != dimension {
		return fmt.Errorf("pgvector store expects dimension %d, got %d", s.cfg.Dimension, dimension)
	}
	return s.EnsureSchema(ctx)
}

// Search ranks by cosine distance and reports 1 - distance.
func (s *PgStore) Search(ctx context.Context, q rag.SearchQuery, k int) ([]rag.RetrievedChunk, error) {
	if k <= 0 {
		return []rag.RetrievedChunk{}, nil
	}
	vec, err := queryVector(ctx, q, s.embedder, s.cfg.Dimension)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.content, c.metadata, e.embedding <=> $2 AS distance
		FROM textbook_chunk c
		JOIN textbook_chunk_embedding e ON e.chunk_id = c.id
		WHERE c.subject = $1
		ORDER BY e.embedding <=> $2
		LIMIT $3
	`, s.cfg.Subject, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var out []rag.RetrievedChunk
	for rows.Next() {
		var (
			c        rag.RetrievedChunk
			distance float64
		)
		if err := rows.Scan(&c.ID, &c.Text, &c.Metadata, &distance); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.RelevanceScore = rag.NormalizeScore(rag.ScoreDistance, distance)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PgStore) Upsert(ctx context.Context, records []rag.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record[%d] has empty id", i)
		}
		if s.cfg.Dimension > 0 && len(r.Vector) != s.cfg.Dimension {
			return fmt.Errorf("record %s has dimension %d, store expects %d", r.ID, len(r.Vector), s.cfg.Dimension)
		}
		meta := r.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		batch.Queue(`
			INSERT INTO textbook_chunk (id, subject, content, metadata)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET subject = EXCLUDED.subject, content = EXCLUDED.content, metadata = EXCLUDED.metadata
		`, r.ID, s.cfg.Subject, r.Text, meta)
		batch.Queue(`
			INSERT INTO textbook_chunk_embedding (chunk_id, embedding)
			VALUES ($1, $2)
			ON CONFLICT (chunk_id) DO UPDATE SET embedding = EXCLUDED.embedding
		`, r.ID, pgvector.NewVector(r.Vector))
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	s.logger.Debug("upserted chunks", zap.Int("count", len(records)))
	return nil
}

// Export loads every record of the subject into memory.
func (s *PgStore) Export(ctx context.Context) ([]rag.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.content, c.metadata, e.embedding::text
		FROM textbook_chunk c
		JOIN textbook_chunk_embedding e ON e.chunk_id = c.id
		WHERE c.subject = $1
		ORDER BY c.id
	`, s.cfg.Subject)
	if err != nil {
		return nil, fmt.Errorf("export chunks: %w", err)
	}
	defer rows.Close()

	var out []rag.Record
	for rows.Next() {
		var (
			r   rag.Record
			raw string
			vec pgvector.Vector
		)
		if err := rows.Scan(&r.ID, &r.Text, &r.Metadata, &raw); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := vec.Scan(raw); err != nil {
			return nil, fmt.Errorf("parse vector for %s: %w", r.ID, err)
		}
		r.Vector = vec.Slice()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PgStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM textbook_chunk WHERE subject = $1`, s.cfg.Subject).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

var (
	_ rag.VectorStore = (*PgStore)(nil)
	_ rag.Exporter    = (*PgStore)(nil)
	_ rag.Upserter    = (*PgStore)(nil)
	_ rag.Counter     = (*PgStore)(nil)
)
