package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultTopK = 4

// Recorder receives per-stage timings and final outcomes.
type Recorder interface {
	ObserveStage(stage string, d time.Duration)
	ObserveOutcome(outcome Outcome)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStage(string, time.Duration) {}
func (nopRecorder) ObserveOutcome(Outcome)             {}

type ServiceConfig struct {
	TopK           int
	ChunkCharLimit int
	Mode           RetrievalMode
	Subject        string
	// Language is used when a request does not name one; "auto" detects.
	Language string
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// Service runs one retrieval-augmented answer per call. It keeps no state
// between requests.
type Service struct {
	store     VectorStore
	embedder  Embedder
	generator Generator
	cfg       ServiceConfig
	logger    *zap.Logger
	recorder  Recorder
	now       func() time.Time
}

// NewService wires the pipeline. embedder may be nil in text mode.
func NewService(store VectorStore, embedder Embedder, generator Generator, cfg ServiceConfig, opts ...Option) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.ChunkCharLimit == 0 {
		cfg.ChunkCharLimit = DefaultChunkCharLimit
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeVector
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	s := &Service{
		store:     store,
		embedder:  embedder,
		generator: generator,
		cfg:       cfg,
		logger:    zap.NewNop(),
		recorder:  nopRecorder{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "rag_service"))
	return s
}

func (s *Service) Subject() string { return s.cfg.Subject }

func (s *Service) Database() string { return s.store.Name() }

// Ask never returns an error: every failure is folded into the result.
func (s *Service) Ask(ctx context.Context, req AskRequest) *AnswerResult {
	q := strings.TrimSpace(req.Query)
	if q == "" {
		s.recorder.ObserveOutcome(OutcomeNoContext)
		return s.noContext(req.Query, 0)
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	start := s.now()
	chunks, err := s.retrieve(ctx, q, topK)
	s.recorder.ObserveStage("retrieve", s.now().Sub(start))
	if err != nil {
		s.logger.Warn("retrieval failed", zap.String("query", q), zap.Error(err))
		s.recorder.ObserveOutcome(OutcomeFailed)
		return &AnswerResult{
			Query:    q,
			Answer:   err.Error(),
			Sources:  []SourceSummary{},
			TimingMS: elapsedMS(start, s.now()),
			Outcome:  OutcomeFailed,
			Database: s.store.Name(),
		}
	}
	if len(chunks) == 0 {
		s.recorder.ObserveOutcome(OutcomeNoContext)
		return s.noContext(q, elapsedMS(start, s.now()))
	}

	prompts := PromptBuilder{
		Subject:  s.cfg.Subject,
		Language: ResolveLanguage(req.Lang, q, s.cfg.Language),
	}
	contextText := AssembleContext(chunks, s.cfg.ChunkCharLimit)

	genStart := s.now()
	answer, err := s.generator.Generate(ctx, GenerationRequest{
		Task:    TaskExplainTopic,
		System:  prompts.SystemInstruction(),
		Prompt:  prompts.Build(q, contextText),
		Query:   q,
		Subject: s.cfg.Subject,
		Chunks:  chunks,
	})
	s.recorder.ObserveStage("generate", s.now().Sub(genStart))

	outcome := OutcomeAnswered
	if err != nil {
		outcome = OutcomeGenerationFailed
		answer = generationMessage(err)
		s.logger.Warn("generation failed", zap.String("query", q), zap.Error(err))
	}

	res := &AnswerResult{
		Query:    q,
		Answer:   answer,
		Sources:  Summarize(chunks),
		TimingMS: elapsedMS(start, s.now()),
		Outcome:  outcome,
		Database: s.store.Name(),
	}
	s.recorder.ObserveOutcome(outcome)
	s.logger.Info("answered",
		zap.String("outcome", string(outcome)),
		zap.Int("chunks", len(chunks)),
		zap.Float64("timing_ms", res.TimingMS),
	)
	return res
}

func (s *Service) retrieve(ctx context.Context, q string, topK int) ([]RetrievedChunk, error) {
	query := SearchQuery{Text: q}
	if s.cfg.Mode == ModeVector {
		if s.embedder == nil {
			return nil, &RetrievalError{Backend: "embedder", Err: errors.New("vector mode requires an embedder")}
		}
		vec, err := s.embedder.Embed(ctx, q)
		if err != nil {
			return nil, &RetrievalError{Backend: "embedder", Err: err}
		}
		query.Vector = vec
	}

	chunks, err := s.store.Search(ctx, query, topK)
	if err != nil {
		var re *RetrievalError
		if errors.As(err, &re) {
			return nil, re
		}
		return nil, &RetrievalError{Backend: s.store.Name(), Err: err}
	}
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks, nil
}

func (s *Service) noContext(query string, timing float64) *AnswerResult {
	return &AnswerResult{
		Query:    query,
		Answer:   NoContextAnswer,
		Sources:  []SourceSummary{},
		TimingMS: timing,
		Outcome:  OutcomeNoContext,
		Database: s.store.Name(),
	}
}

// generationMessage keeps the "Error" marker even for errors that did not
// come from a provider adapter.
func generationMessage(err error) string {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return (&GenerationError{Kind: GenerationTimeout, Err: err}).Error()
	}
	return (&GenerationError{Kind: GenerationTransport, Err: err}).Error()
}

func elapsedMS(start, end time.Time) float64 {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
