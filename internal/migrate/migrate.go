// Package migrate copies every vector from one store into another, typically
// a local pgvector or Chroma collection into a Pinecone index.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBatchSize = 100
	dateLayout       = "2006-01-02 15:04:05"
)

var ErrNoVectors = errors.New("source has no vectors")

// Target is a store that can prepare an index of a given dimension and accept
// records.
type Target interface {
	rag.VectorStore
	rag.Upserter
	EnsureIndex(ctx context.Context, dimension int) error
}

type Options struct {
	BatchSize int
	// IndexName is recorded in the artifact; it defaults to the target name.
	IndexName string
	// Pause is the minimum spacing between batch uploads.
	Pause time.Duration
	// OnBatch is called after each batch with its size.
	OnBatch func(n int)
	Logger  *zap.Logger
	Now     func() time.Time
}

// Result is also the JSON artifact later read by deployment tooling.
type Result struct {
	IndexName    string `json:"pinecone_index_name"`
	Dimension    int    `json:"vector_dimension"`
	MigratedAt   string `json:"migration_date"`
	TotalVectors int    `json:"total_vectors"`

	TestMatches int `json:"-"`
}

func Run(ctx context.Context, source rag.Exporter, target Target, opts Options) (*Result, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.IndexName == "" {
		opts.IndexName = target.Name()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger.With(zap.String("component", "migrate"), zap.String("index", opts.IndexName))

	records, err := source.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoVectors
	}
	log.Info("exported vectors", zap.Int("count", len(records)))

	dim, err := commonDimension(records)
	if err != nil {
		return nil, err
	}

	if err := target.EnsureIndex(ctx, dim); err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	var limiter *rate.Limiter
	if opts.Pause > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Pause), 1)
	}

	for start := 0; start < len(records); start += opts.BatchSize {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("wait for batch %d: %w", start, err)
			}
		}
		end := min(start+opts.BatchSize, len(records))
		batch := make([]rag.Record, 0, end-start)
		for _, r := range records[start:end] {
			r.Metadata = normalizeMetadata(r.Metadata)
			batch = append(batch, r)
		}
		if err := target.Upsert(ctx, batch); err != nil {
			return nil, fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}
		if opts.OnBatch != nil {
			opts.OnBatch(len(batch))
		}
		log.Debug("uploaded batch", zap.Int("from", start), zap.Int("to", end))
	}

	matches, err := target.Search(ctx, rag.SearchQuery{Vector: records[0].Vector}, 3)
	if err != nil {
		return nil, fmt.Errorf("test query: %w", err)
	}
	if len(matches) == 0 {
		// Serverless indexes can lag behind their upserts.
		log.Warn("test query returned no matches yet")
	}

	res := &Result{
		IndexName:    opts.IndexName,
		Dimension:    dim,
		MigratedAt:   opts.Now().Format(dateLayout),
		TotalVectors: len(records),
		TestMatches:  len(matches),
	}
	log.Info("migration complete", zap.Int("vectors", res.TotalVectors), zap.Int("dimension", dim))
	return res, nil
}

func commonDimension(records []rag.Record) (int, error) {
	dim := len(records[0].Vector)
	if dim == 0 {
		return 0, fmt.Errorf("record %s has no vector", records[0].ID)
	}
	for _, r := range records[1:] {
		if len(r.Vector) != dim {
			return 0, fmt.Errorf("record %s has dimension %d, expected %d", r.ID, len(r.Vector), dim)
		}
	}
	return dim, nil
}

// normalizeMetadata keeps scalar values only and fills the fields every
// chunk is expected to carry.
func normalizeMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta)+5)
	for k, v := range meta {
		switch t := v.(type) {
		case string, bool, int, int32, int64, float32, float64:
			out[k] = t
		case []string:
			out[k] = t
		case nil:
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	for key, def := range map[string]string{"chapter": "unknown", "section": "unknown", "content_type": "content"} {
		if rag.MetaString(out, key) == "" {
			out[key] = def
		}
	}
	for _, key := range []string{"word_count", "char_count"} {
		out[key] = toInt(out[key])
	}
	return out
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float32:
		return int(t)
	case float64:
		return int(t)
	default:
		return 0
	}
}

// WriteArtifact writes the result as indented JSON.
func WriteArtifact(path string, res *Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	return nil
}
