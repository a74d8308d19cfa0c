package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	chunks []RetrievedChunk
	err    error
	calls  int
	last   SearchQuery
	lastK  int
}

func (f *fakeStore) Search(_ context.Context, q SearchQuery, k int) ([]RetrievedChunk, error) {
	f.calls++
	f.last = q
	f.lastK = k
	return f.chunks, f.err
}

func (f *fakeStore) Name() string { return "fake" }

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

type fakeGenerator struct {
	answer string
	err    error
	calls  int
	last   GenerationRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req GenerationRequest) (string, error) {
	f.calls++
	f.last = req
	return f.answer, f.err
}

type countingRecorder struct {
	stages   map[string]int
	outcomes map[Outcome]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{stages: map[string]int{}, outcomes: map[Outcome]int{}}
}

func (r *countingRecorder) ObserveStage(stage string, _ time.Duration) { r.stages[stage]++ }
func (r *countingRecorder) ObserveOutcome(o Outcome)                   { r.outcomes[o]++ }

func plantChunks() []RetrievedChunk {
	long := strings.Repeat("Chlorophyll absorbs light energy in the thylakoid membranes. ", 8)
	return []RetrievedChunk{
		{ID: "a", Text: long, Metadata: map[string]any{"chapter": "Plant Biology"}, RelevanceScore: 0.91},
		{ID: "b", Text: "The Calvin cycle fixes carbon dioxide into sugars.", Metadata: map[string]any{"chapter": "Plant Biology"}, RelevanceScore: 0.85},
		{ID: "c", Text: "Light-dependent reactions produce ATP and NADPH.", Metadata: map[string]any{"chapter": "Plant Biology"}, RelevanceScore: 0.77},
	}
}

func TestAsk_EmptyQueryMakesNoCalls(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		store := &fakeStore{chunks: plantChunks()}
		emb := &fakeEmbedder{}
		gen := &fakeGenerator{answer: "unused"}
		svc := NewService(store, emb, gen, ServiceConfig{})

		res := svc.Ask(context.Background(), AskRequest{Query: q})

		require.NotNil(t, res)
		assert.Equal(t, NoContextAnswer, res.Answer)
		assert.Empty(t, res.Sources)
		assert.Equal(t, OutcomeNoContext, res.Outcome)
		assert.Zero(t, store.calls)
		assert.Zero(t, emb.calls)
		assert.Zero(t, gen.calls)
	}
}

func TestAsk_ZeroChunksIsNoContext(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{answer: "unused"}
	svc := NewService(store, &fakeEmbedder{}, gen, ServiceConfig{})

	res := svc.Ask(context.Background(), AskRequest{Query: "What is a quasar?"})

	assert.Equal(t, NoContextAnswer, res.Answer)
	assert.Empty(t, res.Sources)
	assert.Equal(t, OutcomeNoContext, res.Outcome)
	assert.Equal(t, 1, store.calls)
	assert.Zero(t, gen.calls)
}

func TestAsk_Photosynthesis(t *testing.T) {
	store := &fakeStore{chunks: plantChunks()}
	emb := &fakeEmbedder{}
	gen := &fakeGenerator{answer: "**INTRODUCTION**\nPlants make sugar."}
	rec := newCountingRecorder()
	svc := NewService(store, emb, gen, ServiceConfig{TopK: 3}, WithRecorder(rec))

	res := svc.Ask(context.Background(), AskRequest{Query: "What is photosynthesis?"})

	require.Len(t, res.Sources, 3)
	for i, src := range res.Sources {
		assert.LessOrEqual(t, len([]rune(src.TextPreview)), 150)
		assert.Equal(t, "Plant Biology", src.Chapter)
		if i > 0 {
			assert.GreaterOrEqual(t, res.Sources[i-1].RelevanceScore, src.RelevanceScore)
		}
	}
	assert.True(t, strings.HasSuffix(res.Sources[0].TextPreview, "..."))
	assert.NotEmpty(t, res.Answer)
	assert.GreaterOrEqual(t, res.TimingMS, 0.0)
	assert.Equal(t, OutcomeAnswered, res.Outcome)
	assert.Equal(t, "fake", res.Database)

	assert.Equal(t, 1, emb.calls)
	assert.Equal(t, 3, store.lastK)
	assert.Len(t, store.last.Vector, 3)
	assert.Equal(t, TaskExplainTopic, gen.last.Task)
	assert.Contains(t, gen.last.Prompt, "provide a comprehensive response about: What is photosynthesis?")
	assert.Contains(t, gen.last.Prompt, "[Source 1 - Chapter Plant Biology]")
	assert.Equal(t, 1, rec.stages["retrieve"])
	assert.Equal(t, 1, rec.stages["generate"])
	assert.Equal(t, 1, rec.outcomes[OutcomeAnswered])
}

func TestAsk_RetrievalErrorIsSurfaced(t *testing.T) {
	store := &fakeStore{err: errors.New("collection biology_textbook does not exist")}
	gen := &fakeGenerator{}
	svc := NewService(store, &fakeEmbedder{}, gen, ServiceConfig{})

	res := svc.Ask(context.Background(), AskRequest{Query: "mitosis"})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Answer, "collection biology_textbook does not exist")
	assert.Contains(t, res.Answer, "Error:")
	assert.Empty(t, res.Sources)
	assert.Zero(t, gen.calls)
}

func TestAsk_EmbedderErrorIsRetrievalFailure(t *testing.T) {
	store := &fakeStore{chunks: plantChunks()}
	svc := NewService(store, &fakeEmbedder{err: errors.New("model not loaded")}, &fakeGenerator{}, ServiceConfig{})

	res := svc.Ask(context.Background(), AskRequest{Query: "mitosis"})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Answer, "model not loaded")
	assert.Zero(t, store.calls)
}

func TestAsk_GenerationFailureBecomesAnswer(t *testing.T) {
	store := &fakeStore{chunks: plantChunks()}
	gen := &fakeGenerator{err: &GenerationError{Provider: "Groq", Kind: GenerationStatus, StatusCode: 503}}
	svc := NewService(store, &fakeEmbedder{}, gen, ServiceConfig{})

	res := svc.Ask(context.Background(), AskRequest{Query: "photosynthesis"})

	assert.Equal(t, "Error: Groq API returned status 503", res.Answer)
	assert.Equal(t, OutcomeGenerationFailed, res.Outcome)
	assert.Len(t, res.Sources, 3)
}

func TestAsk_PlainGenerationErrorKeepsMarker(t *testing.T) {
	gen := &fakeGenerator{err: context.DeadlineExceeded}
	svc := NewService(&fakeStore{chunks: plantChunks()}, &fakeEmbedder{}, gen, ServiceConfig{})

	res := svc.Ask(context.Background(), AskRequest{Query: "photosynthesis"})

	assert.True(t, strings.HasPrefix(res.Answer, "Error:"))
	assert.Contains(t, res.Answer, "timed out")
}

func TestAsk_TextModeSkipsEmbedder(t *testing.T) {
	store := &fakeStore{chunks: plantChunks()}
	emb := &fakeEmbedder{}
	svc := NewService(store, emb, &fakeGenerator{answer: "ok"}, ServiceConfig{Mode: ModeText})

	res := svc.Ask(context.Background(), AskRequest{Query: "  photosynthesis  "})

	assert.Equal(t, OutcomeAnswered, res.Outcome)
	assert.Zero(t, emb.calls)
	assert.Equal(t, "photosynthesis", store.last.Text)
	assert.Nil(t, store.last.Vector)
}

func TestAsk_CapsStoreResultsAtTopK(t *testing.T) {
	store := &fakeStore{chunks: plantChunks()}
	svc := NewService(store, &fakeEmbedder{}, &fakeGenerator{answer: "ok"}, ServiceConfig{})

	res := svc.Ask(context.Background(), AskRequest{Query: "photosynthesis", TopK: 2})

	assert.Len(t, res.Sources, 2)
	assert.Equal(t, 2, store.lastK)
}

func TestAsk_LanguageLine(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	svc := NewService(&fakeStore{chunks: plantChunks()}, &fakeEmbedder{}, gen, ServiceConfig{})

	svc.Ask(context.Background(), AskRequest{Query: "fotosíntesis", Lang: "es"})
	assert.Contains(t, gen.last.Prompt, "Write the entire response in Spanish")

	svc.Ask(context.Background(), AskRequest{Query: "photosynthesis", Lang: "en"})
	assert.NotContains(t, gen.last.Prompt, "Write the entire response in")
}
