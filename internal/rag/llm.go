package rag

import (
	"context"
	"time"
)

// Embedder maps text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

type Task string

const (
	TaskExplainTopic Task = "explain_topic"
	TaskDefineWord   Task = "define_word"
)

// GenerationRequest is one blocking call to a model. Query, Subject and
// Chunks are informational; hosted providers only read System and Prompt.
type GenerationRequest struct {
	Task    Task
	System  string
	Prompt  string
	Query   string
	Subject string
	Chunks  []RetrievedChunk
}

// Generator returns generated text or a *GenerationError.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// Sampling holds the fixed decoding parameters for a task.
type Sampling struct {
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int
	// Timeout caps the provider timeout when non-zero.
	Timeout time.Duration
}

func SamplingFor(task Task) Sampling {
	s := Sampling{Temperature: 0.3, TopP: 0.9, TopK: 40, MaxTokens: 1000}
	if task == TaskDefineWord {
		s.MaxTokens = 400
		s.Timeout = 15 * time.Second
	}
	return s
}

// EffectiveTimeout picks the tighter of the provider timeout and the task cap.
func (s Sampling) EffectiveTimeout(provider time.Duration) time.Duration {
	if s.Timeout > 0 && (provider <= 0 || s.Timeout < provider) {
		return s.Timeout
	}
	return provider
}
