package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"go.uber.org/zap"
)

const ollamaProvider = "Ollama"

type OllamaConfig struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// OllamaClient talks to a local Ollama server over its REST API.
type OllamaClient struct {
	cfg    OllamaConfig
	client *http.Client
	logger *zap.Logger
}

func NewOllamaClient(cfg OllamaConfig, logger *zap.Logger) *OllamaClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2:1b"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &OllamaClient{
		cfg:    cfg,
		client: &http.Client{},
		logger: logger.With(zap.String("component", "ollama")),
	}
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

func (c *OllamaClient) Generate(ctx context.Context, req rag.GenerationRequest) (string, error) {
	s := rag.SamplingFor(req.Task)
	ctx, cancel := context.WithTimeout(ctx, s.EffectiveTimeout(c.cfg.Timeout))
	defer cancel()

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  c.cfg.Model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
		Options: ollamaOptions{
			Temperature: s.Temperature,
			TopP:        s.TopP,
			TopK:        s.TopK,
			NumPredict:  s.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", transportError(ollamaProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", statusError(ollamaProvider, resp.StatusCode, "")
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return "", transportError(ollamaProvider, ctx.Err())
		}
		return "", malformedError(ollamaProvider, err)
	}
	if strings.TrimSpace(out.Response) == "" {
		return "No response generated", nil
	}
	return out.Response, nil
}

// CheckModel lists the server's models and reports whether the configured
// one is installed. A missing model is only logged.
func (c *OllamaClient) CheckModel(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("connect to ollama at %s: %w", c.cfg.BaseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("ollama API returned status %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false, fmt.Errorf("decode ollama tags: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name == c.cfg.Model {
			return true, nil
		}
		names = append(names, m.Name)
	}
	c.logger.Warn("model not found in ollama",
		zap.String("model", c.cfg.Model),
		zap.Strings("available", names),
	)
	return false, nil
}

var _ rag.Generator = (*OllamaClient)(nil)
