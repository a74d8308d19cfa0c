package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const geminiProvider = "Gemini"

type GeminiConfig struct {
	APIKey         string        `yaml:"api_key"`
	ChatModel      string        `yaml:"chat_model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	EmbedDim       int           `yaml:"embed_dim"`
	Timeout        time.Duration `yaml:"timeout"`
	// BaseURL overrides the API endpoint.
	BaseURL string `yaml:"base_url"`
}

// GeminiClient is both an embedder and a generator.
type GeminiClient struct {
	cfg    GeminiConfig
	client *genai.Client
	logger *zap.Logger
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, rag.MissingCredential("GOOGLE_API_KEY or GEMINI_API_KEY", "gemini provider")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gemini-2.5-flash"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "models/text-embedding-004"
	}
	if cfg.EmbedDim == 0 {
		cfg.EmbedDim = 768
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{
		cfg:    cfg,
		client: c,
		logger: logger.With(zap.String("component", "gemini")),
	}, nil
}

func (g *GeminiClient) Dimension() int { return g.cfg.EmbedDim }

func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	clean := normalizeWhitespace(text)
	if clean == "" {
		return nil, fmt.Errorf("empty text for embedding")
	}

	resp, err := g.client.Models.EmbedContent(
		ctx,
		g.cfg.EmbeddingModel,
		genai.Text(clean),
		&genai.EmbedContentConfig{
			OutputDimensionality: genai.Ptr(int32(g.cfg.EmbedDim)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed error: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	values := resp.Embeddings[0].Values
	if len(values) != g.cfg.EmbedDim {
		return nil, fmt.Errorf("unexpected embedding size %d (expected %d)", len(values), g.cfg.EmbedDim)
	}

	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out, nil
}

func (g *GeminiClient) Generate(ctx context.Context, req rag.GenerationRequest) (string, error) {
	s := rag.SamplingFor(req.Task)
	ctx, cancel := context.WithTimeout(ctx, s.EffectiveTimeout(g.cfg.Timeout))
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(s.Temperature)),
		TopP:            genai.Ptr(float32(s.TopP)),
		TopK:            genai.Ptr(float32(s.TopK)),
		MaxOutputTokens: int32(s.MaxTokens),
	}
	if sys := strings.TrimSpace(req.System); sys != "" {
		cfg.SystemInstruction = genai.Text(sys)[0]
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.ChatModel, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", geminiError(err)
	}
	if resp == nil {
		return "", malformedError(geminiProvider, fmt.Errorf("empty response"))
	}

	txt := strings.TrimSpace(resp.Text())
	if txt == "" {
		return "", malformedError(geminiProvider, fmt.Errorf("model returned empty text"))
	}
	return txt, nil
}

func geminiError(err error) *rag.GenerationError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusError(geminiProvider, apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return statusError(geminiProvider, apiErrPtr.Code, apiErrPtr.Message)
	}
	return transportError(geminiProvider, err)
}

var _ rag.Embedder = (*GeminiClient)(nil)
var _ rag.Generator = (*GeminiClient)(nil)
