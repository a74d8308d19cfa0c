package llm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"go.uber.org/zap"
)

type HugotConfig struct {
	ModelName string `yaml:"model_name"`
	ModelDir  string `yaml:"model_dir"`
	Dimension int    `yaml:"dimension"`
}

// HugotEmbedder runs a sentence-transformers model in-process with the
// pure Go backend. The default model produces 384-dimensional vectors.
type HugotEmbedder struct {
	cfg      HugotConfig
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	logger   *zap.Logger

	mu sync.Mutex
}

func NewHugotEmbedder(cfg HugotConfig, logger *zap.Logger) (*HugotEmbedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if cfg.ModelDir == "" {
		cfg.ModelDir = "./models"
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = 384
	}
	logger = logger.With(zap.String("component", "hugot_embedder"))

	modelPath, err := prepareModel(cfg, logger)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return &HugotEmbedder{
		cfg:      cfg,
		session:  session,
		pipeline: pipeline,
		logger:   logger,
	}, nil
}

// prepareModel downloads the model on first use and returns its local path.
func prepareModel(cfg HugotConfig, logger *zap.Logger) (string, error) {
	modelPath := filepath.Join(cfg.ModelDir, strings.ReplaceAll(cfg.ModelName, "/", "_"))
	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat model directory: %w", err)
	}

	if err := os.MkdirAll(cfg.ModelDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}
	logger.Info("downloading embedding model", zap.String("model", cfg.ModelName), zap.String("dir", cfg.ModelDir))
	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = "onnx/model.onnx"
	downloaded, err := hugot.DownloadModel(cfg.ModelName, cfg.ModelDir, opts)
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	return downloaded, nil
}

func (e *HugotEmbedder) Dimension() int { return e.cfg.Dimension }

func (e *HugotEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := normalizeWhitespace(text)
	if clean == "" {
		return nil, fmt.Errorf("empty text for embedding")
	}

	e.mu.Lock()
	result, err := e.pipeline.RunPipeline([]string{clean})
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding generated")
	}

	embedding := result.Embeddings[0]
	if len(embedding) != e.cfg.Dimension {
		return nil, fmt.Errorf("unexpected embedding size %d (expected %d)", len(embedding), e.cfg.Dimension)
	}
	return embedding, nil
}

func (e *HugotEmbedder) Close() error {
	return e.session.Destroy()
}

var _ rag.Embedder = (*HugotEmbedder)(nil)
