// Package app turns a Config into wired components. Every cmd binary goes
// through it so provider selection lives in one place.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/config"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/db"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/llm"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/metrics"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/store"
	"go.uber.org/zap"
)

const metricsNamespace = "tutor"

// Components is the fully wired application.
type Components struct {
	Store     rag.VectorStore
	Embedder  rag.Embedder
	Generator rag.Generator
	Service   *rag.Service
	Words     *rag.WordService
	// Counter is nil when the store cannot count its vectors.
	Counter rag.Counter
	// Metrics is nil when metrics are disabled.
	Metrics *metrics.Collector

	closers []func()
}

// Close releases pools and model sessions in reverse order of creation.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Components{}

	if cfg.NeedsEmbedder() {
		emb, closeFn, err := NewEmbedder(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		c.Embedder = emb
		c.closers = append(c.closers, closeFn)
	}

	vs, closeFn, err := NewVectorStore(ctx, cfg, c.Embedder, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Store = vs
	c.closers = append(c.closers, closeFn)
	if counter, ok := vs.(rag.Counter); ok {
		c.Counter = counter
	}

	gen, err := NewGenerator(ctx, cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Generator = gen
	checkGenerator(ctx, gen, logger)

	opts := []rag.Option{rag.WithLogger(logger)}
	if cfg.Server.MetricsEnabled {
		c.Metrics = metrics.NewCollector(metricsNamespace, logger)
		opts = append(opts, rag.WithRecorder(c.Metrics))
	}
	c.Service = NewService(cfg, vs, c.Embedder, gen, opts...)
	c.Words = rag.NewWordService(gen, cfg.RAG.Subject, logger)
	return c, nil
}

// NewService applies the retrieval settings. The demo store matches text, so
// it always runs in text mode.
func NewService(cfg *config.Config, vs rag.VectorStore, emb rag.Embedder, gen rag.Generator, opts ...rag.Option) *rag.Service {
	mode := rag.RetrievalMode(cfg.RAG.RetrievalMode)
	if cfg.RAG.VectorStore == "demo" {
		mode = rag.ModeText
	}
	return rag.NewService(vs, emb, gen, rag.ServiceConfig{
		TopK:           cfg.RAG.TopK,
		ChunkCharLimit: cfg.RAG.ChunkCharLimit,
		Mode:           mode,
		Subject:        cfg.RAG.Subject,
		Language:       cfg.RAG.Language,
	}, opts...)
}

func NewEmbedder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (rag.Embedder, func(), error) {
	switch cfg.Embedding.Provider {
	case "hugot":
		e, err := llm.NewHugotEmbedder(llm.HugotConfig{
			ModelName: cfg.Embedding.Model,
			ModelDir:  cfg.Embedding.ModelDir,
			Dimension: cfg.Embedding.Dimension,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init hugot embedder: %w", err)
		}
		return e, func() {
			if err := e.Close(); err != nil {
				logger.Warn("close embedder", zap.Error(err))
			}
		}, nil
	case "gemini":
		g, err := llm.NewGeminiClient(ctx, geminiConfig(cfg, cfg.Embedding.Dimension), logger)
		if err != nil {
			return nil, nil, err
		}
		return g, func() {}, nil
	default:
		return nil, nil, &rag.ConfigurationError{Key: "EMBEDDING_PROVIDER", Reason: fmt.Sprintf("unsupported value %q", cfg.Embedding.Provider), Err: rag.ErrUnknownProvider}
	}
}

func NewVectorStore(ctx context.Context, cfg *config.Config, emb rag.Embedder, logger *zap.Logger) (rag.VectorStore, func(), error) {
	noop := func() {}
	switch cfg.RAG.VectorStore {
	case "pgvector":
		pool, err := db.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPgStore(pool, emb, store.PgConfig{
			Subject:   cfg.RAG.Subject,
			Dimension: cfg.Embedding.Dimension,
		}, logger), pool.Close, nil
	case "pinecone":
		s, err := store.NewPineconeStore(pineconeConfig(cfg), emb, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case "chroma":
		return store.NewChromaStore(chromaConfig(cfg), emb, logger), noop, nil
	case "memory":
		return store.NewMemoryStore(emb), noop, nil
	case "demo":
		return store.NewDemoStore(), noop, nil
	default:
		return nil, nil, &rag.ConfigurationError{Key: "RAG_VECTOR_STORE", Reason: fmt.Sprintf("unsupported value %q", cfg.RAG.VectorStore), Err: rag.ErrUnknownProvider}
	}
}

// NewGenerator falls back to the static generator when a hosted provider has
// no key and the fallback is allowed.
func NewGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (rag.Generator, error) {
	switch cfg.LLM.Provider {
	case "ollama":
		return llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL: cfg.Ollama.URL,
			Model:   cfg.Ollama.Model,
			Timeout: cfg.LLM.Timeout,
		}, logger), nil
	case "groq":
		if cfg.Groq.APIKey == "" && cfg.LLM.AllowStaticFallback {
			logger.Warn("GROQ_API_KEY not set, using static answers")
			return llm.NewStaticGenerator(), nil
		}
		return llm.NewChatClient(llm.ChatConfig{
			Provider:  "Groq",
			APIKey:    cfg.Groq.APIKey,
			BaseURL:   cfg.Groq.BaseURL,
			Model:     cfg.Groq.Model,
			WordModel: cfg.Groq.WordModel,
			Timeout:   cfg.LLM.Timeout,
		}, logger)
	case "gemini":
		if cfg.Gemini.APIKey == "" && cfg.LLM.AllowStaticFallback {
			logger.Warn("GOOGLE_API_KEY not set, using static answers")
			return llm.NewStaticGenerator(), nil
		}
		return llm.NewGeminiClient(ctx, geminiConfig(cfg, 0), logger)
	case "static":
		return llm.NewStaticGenerator(), nil
	default:
		return nil, &rag.ConfigurationError{Key: "LLM_PROVIDER", Reason: fmt.Sprintf("unsupported value %q", cfg.LLM.Provider), Err: rag.ErrUnknownProvider}
	}
}

type modelChecker interface {
	CheckModel(ctx context.Context) (bool, error)
}

// checkGenerator warns when a local model is missing. It never fails startup.
func checkGenerator(ctx context.Context, gen rag.Generator, logger *zap.Logger) {
	mc, ok := gen.(modelChecker)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	found, err := mc.CheckModel(ctx)
	switch {
	case err != nil:
		logger.Warn("could not check available models", zap.Error(err))
	case !found:
		logger.Warn("configured model not found; pull it before asking questions")
	}
}

func geminiConfig(cfg *config.Config, dim int) llm.GeminiConfig {
	return llm.GeminiConfig{
		APIKey:         cfg.Gemini.APIKey,
		ChatModel:      cfg.Gemini.ChatModel,
		EmbeddingModel: cfg.Gemini.EmbeddingModel,
		EmbedDim:       dim,
		Timeout:        cfg.LLM.Timeout,
	}
}

func pineconeConfig(cfg *config.Config) store.PineconeConfig {
	return store.PineconeConfig{
		APIKey:    cfg.Pinecone.APIKey,
		Index:     cfg.Pinecone.Index,
		BaseURL:   cfg.Pinecone.Host,
		Namespace: cfg.Pinecone.Namespace,
		Cloud:     cfg.Pinecone.Cloud,
		Region:    cfg.Pinecone.Region,
	}
}

func chromaConfig(cfg *config.Config) store.ChromaConfig {
	return store.ChromaConfig{
		BaseURL:    cfg.Chroma.URL,
		Tenant:     cfg.Chroma.Tenant,
		Database:   cfg.Chroma.Database,
		Collection: cfg.Chroma.Collection,
	}
}

// NewPineconeStore is used by the migration tool, which needs the concrete
// type for index management.
func NewPineconeStore(cfg *config.Config, emb rag.Embedder, logger *zap.Logger) (*store.PineconeStore, error) {
	return store.NewPineconeStore(pineconeConfig(cfg), emb, logger)
}
