package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// ChatConfig configures any OpenAI-compatible chat completions endpoint.
// The defaults point at Groq.
type ChatConfig struct {
	Provider  string        `yaml:"provider"`
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	WordModel string        `yaml:"word_model"`
	Timeout   time.Duration `yaml:"timeout"`
}

type ChatClient struct {
	cfg    ChatConfig
	client openai.Client
	logger *zap.Logger
}

func NewChatClient(cfg ChatConfig, logger *zap.Logger) (*ChatClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, rag.MissingCredential("GROQ_API_KEY", "chat completion provider")
	}
	if cfg.Provider == "" {
		cfg.Provider = "Groq"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1/"
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3-70b-8192"
	}
	if cfg.WordModel == "" {
		cfg.WordModel = cfg.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	)
	return &ChatClient{
		cfg:    cfg,
		client: client,
		logger: logger.With(zap.String("component", "chat_client"), zap.String("provider", cfg.Provider)),
	}, nil
}

func (c *ChatClient) Generate(ctx context.Context, req rag.GenerationRequest) (string, error) {
	s := rag.SamplingFor(req.Task)
	ctx, cancel := context.WithTimeout(ctx, s.EffectiveTimeout(c.cfg.Timeout))
	defer cancel()

	model := c.cfg.Model
	if req.Task == rag.TaskDefineWord {
		model = c.cfg.WordModel
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(s.Temperature),
		TopP:        openai.Float(s.TopP),
		MaxTokens:   openai.Int(int64(s.MaxTokens)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", statusError(c.cfg.Provider, apiErr.StatusCode, apiErr.Message)
		}
		if isDecodeError(err) {
			return "", malformedError(c.cfg.Provider, err)
		}
		return "", transportError(c.cfg.Provider, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", malformedError(c.cfg.Provider, fmt.Errorf("no choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}

var _ rag.Generator = (*ChatClient)(nil)
