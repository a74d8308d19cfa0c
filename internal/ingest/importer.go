package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"go.uber.org/zap"
)

const DefaultBatchSize = 100

type Options struct {
	Subject    string
	ChunkWords int
	BatchSize  int
	// Dimension, when set, must match the embedder output.
	Dimension int
	Logger    *zap.Logger
	NewID     func() string
}

// Importer embeds chunks and writes them in batches.
type Importer struct {
	embedder rag.Embedder
	sink     rag.Upserter
	opts     Options
	logger   *zap.Logger
}

func NewImporter(embedder rag.Embedder, sink rag.Upserter, opts Options) (*Importer, error) {
	if opts.Subject == "" {
		opts.Subject = rag.DefaultSubject
	}
	if opts.ChunkWords <= 0 {
		opts.ChunkWords = DefaultChunkWords
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Dimension > 0 && embedder.Dimension() != opts.Dimension {
		return nil, &rag.ConfigurationError{
			Key:    "EMBEDDING_DIM",
			Reason: fmt.Sprintf("embedder produces %d dimensions, store expects %d", embedder.Dimension(), opts.Dimension),
		}
	}
	return &Importer{
		embedder: embedder,
		sink:     sink,
		opts:     opts,
		logger:   opts.Logger.With(zap.String("component", "importer")),
	}, nil
}

// ImportPages chunks, embeds and stores the pages of one source document and
// returns the number of chunks written.
func (im *Importer) ImportPages(ctx context.Context, source string, pages []Page) (int, error) {
	chunks := ChunkPages(pages, im.opts.ChunkWords)
	if len(chunks) == 0 {
		return 0, nil
	}
	contentType := strings.TrimPrefix(strings.ToLower(filepath.Ext(source)), ".")

	written := 0
	batch := make([]rag.Record, 0, im.opts.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := im.sink.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("store chunks of %s: %w", source, err)
		}
		written += len(batch)
		im.logger.Info("chunks imported", zap.String("source", source), zap.Int("total", written))
		batch = make([]rag.Record, 0, im.opts.BatchSize)
		return nil
	}

	for _, c := range chunks {
		vec, err := im.embedder.Embed(ctx, c.Text)
		if err != nil {
			return written, fmt.Errorf("embed chunk of %s page %d: %w", source, c.Page, err)
		}
		meta := map[string]any{
			"subject":      im.opts.Subject,
			"source":       filepath.Base(source),
			"page":         c.Page,
			"word_count":   c.Words,
			"char_count":   len([]rune(c.Text)),
			"content_type": contentType,
		}
		if c.Chapter != "" {
			meta["chapter"] = c.Chapter
		}
		batch = append(batch, rag.Record{
			ID:       im.opts.NewID(),
			Vector:   vec,
			Text:     c.Text,
			Metadata: meta,
		})
		if len(batch) == im.opts.BatchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}

// ImportFile loads and imports one file.
func (im *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	pages, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	return im.ImportPages(ctx, path, pages)
}
