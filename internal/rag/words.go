package rag

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

type WordResult struct {
	Word        string  `json:"word"`
	Context     string  `json:"context"`
	Explanation string  `json:"explanation"`
	TimingMS    float64 `json:"responseTime"`
	Outcome     Outcome `json:"outcome"`
}

// WordService explains single terms. It does no retrieval.
type WordService struct {
	generator Generator
	subject   string
	logger    *zap.Logger
	now       func() time.Time
}

func NewWordService(generator Generator, subject string, logger *zap.Logger) *WordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}
	return &WordService{
		generator: generator,
		subject:   subject,
		logger:    logger.With(zap.String("component", "word_service")),
		now:       time.Now,
	}
}

// Explain returns an *InputError for an empty word. Generation failures are
// reported in the explanation text, like Service.Ask does for answers.
func (s *WordService) Explain(ctx context.Context, word, usage string) (*WordResult, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, &InputError{Field: "word", Err: ErrEmptyQuery}
	}
	usage = strings.TrimSpace(usage)
	if usage == "" {
		usage = s.subject
	}

	start := s.now()
	text, err := s.generator.Generate(ctx, GenerationRequest{
		Task:    TaskDefineWord,
		System:  wordSystemInstruction,
		Prompt:  BuildWordPrompt(word, usage),
		Query:   word,
		Subject: usage,
	})
	outcome := OutcomeAnswered
	if err != nil {
		s.logger.Warn("word explanation failed", zap.String("word", word), zap.Error(err))
		text = generationMessage(err)
		outcome = OutcomeGenerationFailed
	}
	return &WordResult{
		Word:        word,
		Context:     usage,
		Explanation: strings.TrimSpace(text),
		TimingMS:    elapsedMS(start, s.now()),
		Outcome:     outcome,
	}, nil
}
