package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"go.uber.org/zap"
)

// PineconeConfig configures the Pinecone store.
//
// Either BaseURL (the index data-plane host) or Index must be set; with only
// Index the host is resolved through the controller API.
type PineconeConfig struct {
	APIKey    string        `yaml:"api_key"`
	Index     string        `yaml:"index"`
	BaseURL   string        `yaml:"host"`
	Namespace string        `yaml:"namespace"`
	Timeout   time.Duration `yaml:"timeout"`
	Cloud     string        `yaml:"cloud"`
	Region    string        `yaml:"region"`

	ControllerBaseURL string `yaml:"controller_base_url"` // Default: https://api.pinecone.io

	// Metadata field that holds the chunk text.
	TextField string `yaml:"text_field"` // Default: "text"

	// ReadyPollInterval is how often EnsureIndex checks a new index.
	ReadyPollInterval time.Duration `yaml:"-"`
}

var errIndexNotFound = errors.New("pinecone index not found")

// PineconeStore talks to Pinecone's REST API. Scores are cosine similarities
// and pass through unchanged.
type PineconeStore struct {
	cfg      PineconeConfig
	embedder rag.Embedder
	logger   *zap.Logger
	client   *http.Client

	mu      sync.RWMutex
	baseURL string
}

func NewPineconeStore(cfg PineconeConfig, embedder rag.Embedder, logger *zap.Logger) (*PineconeStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, rag.MissingCredential("PINECONE_API_KEY", "pinecone vector store")
	}
	if cfg.Index == "" {
		cfg.Index = "biology-vectors"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Cloud == "" {
		cfg.Cloud = "aws"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.ControllerBaseURL == "" {
		cfg.ControllerBaseURL = "https://api.pinecone.io"
	}
	if cfg.TextField == "" {
		cfg.TextField = "text"
	}
	if cfg.ReadyPollInterval == 0 {
		cfg.ReadyPollInterval = time.Second
	}

	return &PineconeStore{
		cfg:      cfg,
		embedder: embedder,
		logger:   logger.With(zap.String("component", "pinecone_store")),
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
	}, nil
}

func (s *PineconeStore) Name() string { return "pinecone-cloud" }

func (s *PineconeStore) IndexName() string { return s.cfg.Index }

type pineconeIndex struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

func (s *PineconeStore) controller(ctx context.Context, method, path string, in, out any) error {
	endpoint := strings.TrimRight(strings.TrimSpace(s.cfg.ControllerBaseURL), "/") + path
	return s.send(ctx, method, endpoint, in, out)
}

func (s *PineconeStore) describeIndex(ctx context.Context) (*pineconeIndex, error) {
	var idx pineconeIndex
	if err := s.controller(ctx, http.MethodGet, "/indexes/"+url.PathEscape(s.cfg.Index), nil, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

func (s *PineconeStore) ensureBaseURL(ctx context.Context) error {
	s.mu.RLock()
	if s.baseURL != "" {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	idx, err := s.describeIndex(ctx)
	if err != nil {
		return err
	}
	host := strings.TrimSpace(idx.Host)
	if host == "" {
		return fmt.Errorf("pinecone controller returned empty host for index %q", s.cfg.Index)
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}

	s.mu.Lock()
	s.baseURL = strings.TrimRight(host, "/")
	s.mu.Unlock()
	return nil
}

// EnsureIndex creates a serverless cosine index of the given dimension when
// it does not exist and waits until it reports ready.
func (s *PineconeStore) EnsureIndex(ctx context.Context, dimension int) error {
	idx, err := s.describeIndex(ctx)
	switch {
	case err == nil:
		if idx.Dimension != 0 && idx.Dimension != dimension {
			return fmt.Errorf("pinecone index %q has dimension %d, need %d", s.cfg.Index, idx.Dimension, dimension)
		}
		s.logger.Info("index already exists", zap.String("index", s.cfg.Index))
	case errors.Is(err, errIndexNotFound):
		s.logger.Info("creating index", zap.String("index", s.cfg.Index), zap.Int("dimension", dimension))
		create := map[string]any{
			"name":      s.cfg.Index,
			"dimension": dimension,
			"metric":    "cosine",
			"spec": map[string]any{
				"serverless": map[string]string{"cloud": s.cfg.Cloud, "region": s.cfg.Region},
			},
		}
		if err := s.controller(ctx, http.MethodPost, "/indexes", create, nil); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	default:
		return err
	}

	ticker := time.NewTicker(s.cfg.ReadyPollInterval)
	defer ticker.Stop()
	for {
		idx, err := s.describeIndex(ctx)
		if err != nil && !errors.Is(err, errIndexNotFound) {
			return err
		}
		if err == nil && idx.Status.Ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for index %q: %w", s.cfg.Index, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *PineconeStore) doJSON(ctx context.Context, method, path string, in, out any) error {
	if err := s.ensureBaseURL(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	baseURL := s.baseURL
	s.mu.RUnlock()
	return s.send(ctx, method, baseURL+path, in, out)
}

func (s *PineconeStore) send(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		return fmt.Errorf("%w: %s", errIndexNotFound, s.cfg.Index)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pinecone request failed: method=%s url=%s status=%d body=%s", method, endpoint, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type pineconeVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *PineconeStore) Upsert(ctx context.Context, records []rag.Record) error {
	if len(records) == 0 {
		return nil
	}
	vectors := make([]pineconeVector, 0, len(records))
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record[%d] has empty id", i)
		}
		if len(r.Vector) == 0 {
			return fmt.Errorf("record %s has no vector", r.ID)
		}
		meta := copyMeta(r.Metadata, "")
		meta[s.cfg.TextField] = r.Text
		vectors = append(vectors, pineconeVector{ID: r.ID, Values: r.Vector, Metadata: meta})
	}

	req := struct {
		Vectors   []pineconeVector `json:"vectors"`
		Namespace string           `json:"namespace,omitempty"`
	}{
		Vectors:   vectors,
		Namespace: strings.TrimSpace(s.cfg.Namespace),
	}
	return s.doJSON(ctx, http.MethodPost, "/vectors/upsert", req, nil)
}

func (s *PineconeStore) Search(ctx context.Context, q rag.SearchQuery, k int) ([]rag.RetrievedChunk, error) {
	if k <= 0 {
		return []rag.RetrievedChunk{}, nil
	}
	vec, err := queryVector(ctx, q, s.embedder, 0)
	if err != nil {
		return nil, err
	}

	req := struct {
		Vector          []float32 `json:"vector"`
		TopK            int       `json:"topK"`
		Namespace       string    `json:"namespace,omitempty"`
		IncludeMetadata bool      `json:"includeMetadata"`
	}{
		Vector:          vec,
		TopK:            k,
		Namespace:       strings.TrimSpace(s.cfg.Namespace),
		IncludeMetadata: true,
	}

	var resp struct {
		Matches []struct {
			ID       string         `json:"id"`
			Score    float64        `json:"score"`
			Metadata map[string]any `json:"metadata,omitempty"`
		} `json:"matches"`
	}
	if err := s.doJSON(ctx, http.MethodPost, "/query", req, &resp); err != nil {
		return nil, err
	}

	out := make([]rag.RetrievedChunk, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		text, _ := m.Metadata[s.cfg.TextField].(string)
		out = append(out, rag.RetrievedChunk{
			ID:             m.ID,
			Text:           text,
			Metadata:       copyMeta(m.Metadata, s.cfg.TextField),
			RelevanceScore: rag.NormalizeScore(rag.ScoreSimilarity, m.Score),
		})
	}
	return out, nil
}

func (s *PineconeStore) Count(ctx context.Context) (int, error) {
	req := struct {
		Namespace string `json:"namespace,omitempty"`
	}{
		Namespace: strings.TrimSpace(s.cfg.Namespace),
	}

	var resp struct {
		TotalVectorCount int `json:"totalVectorCount"`
		Namespaces       map[string]struct {
			VectorCount int `json:"vectorCount"`
		} `json:"namespaces"`
	}
	if err := s.doJSON(ctx, http.MethodPost, "/describe_index_stats", req, &resp); err != nil {
		return 0, err
	}

	if ns := strings.TrimSpace(s.cfg.Namespace); ns != "" && resp.Namespaces != nil {
		if st, ok := resp.Namespaces[ns]; ok {
			return st.VectorCount, nil
		}
	}
	return resp.TotalVectorCount, nil
}

var (
	_ rag.VectorStore = (*PineconeStore)(nil)
	_ rag.Upserter    = (*PineconeStore)(nil)
	_ rag.Counter     = (*PineconeStore)(nil)
)
