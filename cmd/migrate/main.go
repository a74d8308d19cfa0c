// Command migrate copies the local vector collection into Pinecone (or a
// pgvector database) and writes pinecone_config.json describing the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/app"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/config"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/db"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/logging"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/metrics"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/migrate"
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
	cfg, err := config.Read()
	if err != nil {
		return err
	}

	source := flag.String("source", cfg.Migration.Source, "vector source: chroma or pgvector")
	target := flag.String("target", cfg.Migration.Target, "vector target: pinecone or pgvector")
	artifact := flag.String("out", cfg.Migration.ArtifactPath, "path of the JSON artifact")
	metricsOut := flag.String("metrics-out", "", "write Prometheus metrics to this textfile when done")
	batch := flag.Int("batch", cfg.Migration.BatchSize, "vectors per upsert")
	pause := flag.Duration("pause", 100*time.Millisecond, "pause between batches")
	flag.Parse()

	cfg.Migration.Source = *source
	cfg.Migration.Target = *target
	cfg.Migration.BatchSize = *batch
	if err := cfg.ValidateMigration(*target); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, "console")
	if err != nil {
		return &rag.ConfigurationError{Key: "LOG_LEVEL", Err: err}
	}
	defer func() { _ = logger.Sync() }()

	exporter, closeSource, err := openSource(ctx, cfg, *source, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	dst, indexName, closeTarget, err := openTarget(ctx, cfg, *target, logger)
	if err != nil {
		return err
	}
	defer closeTarget()

	collector := metrics.NewCollector("tutor", logger)
	fmt.Printf("🚀 Migrating %s vectors to %s %q\n", *source, *target, indexName)

	res, err := migrate.Run(ctx, exporter, dst, migrate.Options{
		BatchSize: *batch,
		IndexName: indexName,
		Pause:     *pause,
		OnBatch: func(n int) {
			collector.AddMigrated(n)
			fmt.Print(".")
		},
		Logger: logger,
	})
	fmt.Println()
	if *metricsOut != "" {
		if werr := collector.WriteTextfile(*metricsOut); werr != nil {
			logger.Warn("write metrics textfile failed", zap.String("path", *metricsOut), zap.Error(werr))
		}
	}
	if err != nil {
		fmt.Printf("⚠️  %.0f vectors were written before the failure\n", collector.MigratedTotal())
		return err
	}

	if err := migrate.WriteArtifact(*artifact, res); err != nil {
		return err
	}
	fmt.Printf("✅ %.0f of %d vectors (dimension %d) migrated to %q; test query matched %d\n",
		collector.MigratedTotal(), res.TotalVectors, res.Dimension, res.IndexName, res.TestMatches)
	fmt.Printf("📝 Wrote %s\n", *artifact)
	return nil
}

func openTarget(ctx context.Context, cfg *config.Config, name string, logger *zap.Logger) (migrate.Target, string, func(), error) {
	switch name {
	case "pinecone":
		pc, err := app.NewPineconeStore(cfg, nil, logger)
		if err != nil {
			return nil, "", nil, err
		}
		return pc, pc.IndexName(), func() {}, nil
	case "pgvector":
		pool, err := db.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return nil, "", nil, err
		}
		pg := store.NewPgStore(pool, nil, store.PgConfig{Subject: cfg.RAG.Subject}, logger)
		return pg, pg.Name(), pool.Close, nil
	default:
		return nil, "", nil, &rag.ConfigurationError{Key: "MIGRATION_TARGET", Reason: fmt.Sprintf("unsupported value %q", name), Err: rag.ErrUnknownProvider}
	}
}

func openSource(ctx context.Context, cfg *config.Config, name string, logger *zap.Logger) (rag.Exporter, func(), error) {
	switch name {
	case "chroma":
		return store.NewChromaStore(store.ChromaConfig{
			BaseURL:    cfg.Chroma.URL,
			Tenant:     cfg.Chroma.Tenant,
			Database:   cfg.Chroma.Database,
			Collection: cfg.Chroma.Collection,
		}, nil, logger), func() {}, nil
	case "pgvector":
		pool, err := db.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPgStore(pool, nil, store.PgConfig{Subject: cfg.RAG.Subject}, logger), pool.Close, nil
	default:
		return nil, nil, &rag.ConfigurationError{Key: "MIGRATION_SOURCE", Reason: fmt.Sprintf("unsupported value %q", name), Err: rag.ErrUnknownProvider}
	}
}
