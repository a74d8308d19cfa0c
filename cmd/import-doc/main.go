// Command import-doc loads textbook files (or crawls an online edition),
// embeds the chunks and writes them to the configured vector store.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/app"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/config"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/ingest"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/logging"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/store"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	pathFlag := flag.String("path", "", "file or directory of .pdf/.md/.txt/.html textbooks")
	baseURLFlag := flag.String("base-url", "", "crawl an online textbook starting at this URL")
	maxPagesFlag := flag.Int("max-pages", 50, "page limit for --base-url")
	chunkWords := flag.Int("chunk-words", ingest.DefaultChunkWords, "target words per chunk")
	flag.Parse()

	if *pathFlag == "" && *baseURLFlag == "" {
		return fmt.Errorf("use --path, --base-url, or both")
	}

	cfg, err := config.Read()
	if err != nil {
		return err
	}
	if err := cfg.ValidateRetrieval(); err != nil {
		return err
	}
	if cfg.RAG.VectorStore == "demo" {
		return &rag.ConfigurationError{Key: "RAG_VECTOR_STORE", Reason: "the demo store is read-only"}
	}
	logger, err := logging.New(cfg.Log.Level, "console")
	if err != nil {
		return &rag.ConfigurationError{Key: "LOG_LEVEL", Err: err}
	}
	defer func() { _ = logger.Sync() }()

	emb, closeEmb, err := app.NewEmbedder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeEmb()

	vs, closeStore, err := app.NewVectorStore(ctx, cfg, emb, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if pg, ok := vs.(*store.PgStore); ok {
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	sink, ok := vs.(rag.Upserter)
	if !ok {
		return fmt.Errorf("%s store does not accept writes", vs.Name())
	}

	importer, err := ingest.NewImporter(emb, sink, ingest.Options{
		Subject:    cfg.RAG.Subject,
		ChunkWords: *chunkWords,
		BatchSize:  cfg.Migration.BatchSize,
		Dimension:  cfg.Embedding.Dimension,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	total := 0
	if *pathFlag != "" {
		n, err := importPath(ctx, importer, *pathFlag, logger)
		total += n
		if err != nil {
			return err
		}
	}
	if *baseURLFlag != "" {
		client := &http.Client{Timeout: 30 * time.Second}
		_, err := ingest.Crawl(ctx, client, *baseURLFlag, *maxPagesFlag, logger,
			func(ctx context.Context, pageURL, title, text string) error {
				n, err := importer.ImportPages(ctx, pageURL, []ingest.Page{{Number: 1, Text: text}})
				total += n
				logger.Info("page imported", zap.String("title", title), zap.Int("chunks", n))
				return err
			})
		if err != nil {
			return err
		}
	}

	fmt.Printf("✅ Imported %d chunks into %s\n", total, vs.Name())
	return nil
}

func importPath(ctx context.Context, importer *ingest.Importer, root string, logger *zap.Logger) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !ingest.IsSupported(path) {
			return nil
		}
		logger.Info("importing file", zap.String("path", path))
		n, err := importer.ImportFile(ctx, path)
		total += n
		return err
	})
	return total, err
}
