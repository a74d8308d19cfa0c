package store

import (
	"bytes"
	"context"
	"encoding/json"
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

type ChromaConfig struct {
	BaseURL    string        `yaml:"url"`
	Tenant     string        `yaml:"tenant"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
	// PageSize bounds each /get call during Export.
	PageSize int `yaml:"page_size"`
}

// ChromaStore uses the Chroma v2 HTTP API. Chroma returns cosine distances,
// which are reported as 1 - distance.
type ChromaStore struct {
	cfg      ChromaConfig
	embedder rag.Embedder
	client   *http.Client
	logger   *zap.Logger

	mu           sync.RWMutex
	collectionID string
}

func NewChromaStore(cfg ChromaConfig, embedder rag.Embedder, logger *zap.Logger) *ChromaStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	if cfg.Tenant == "" {
		cfg.Tenant = "default_tenant"
	}
	if cfg.Database == "" {
		cfg.Database = "default_database"
	}
	if cfg.Collection == "" {
		cfg.Collection = "biology_textbook"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &ChromaStore{
		cfg:      cfg,
		embedder: embedder,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger.With(zap.String("component", "chroma_store")),
	}
}

func (s *ChromaStore) Name() string { return "chromadb" }

func (s *ChromaStore) collectionsPath() string {
	return fmt.Sprintf("/api/v2/tenants/%s/databases/%s/collections",
		url.PathEscape(s.cfg.Tenant), url.PathEscape(s.cfg.Database))
}

func (s *ChromaStore) resolveCollection(ctx context.Context) (string, error) {
	s.mu.RLock()
	id := s.collectionID
	s.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	var coll struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	path := s.collectionsPath() + "/" + url.PathEscape(s.cfg.Collection)
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &coll); err != nil {
		return "", fmt.Errorf("get collection %q: %w", s.cfg.Collection, err)
	}
	if coll.ID == "" {
		return "", fmt.Errorf("collection %q has no id", s.cfg.Collection)
	}

	s.mu.Lock()
	s.collectionID = coll.ID
	s.mu.Unlock()
	return coll.ID, nil
}

func (s *ChromaStore) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chroma request failed: method=%s path=%s status=%d body=%s", method, path, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *ChromaStore) Search(ctx context.Context, q rag.SearchQuery, k int) ([]rag.RetrievedChunk, error) {
	if k <= 0 {
		return []rag.RetrievedChunk{}, nil
	}
	vec, err := queryVector(ctx, q, s.embedder, 0)
	if err != nil {
		return nil, err
	}
	id, err := s.resolveCollection(ctx)
	if err != nil {
		return nil, err
	}

	req := map[string]any{
		"query_embeddings": [][]float32{vec},
		"n_results":        k,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	var resp struct {
		IDs       [][]string         `json:"ids"`
		Documents [][]*string        `json:"documents"`
		Metadatas [][]map[string]any `json:"metadatas"`
		Distances [][]float64        `json:"distances"`
	}
	if err := s.doJSON(ctx, http.MethodPost, s.collectionsPath()+"/"+id+"/query", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return []rag.RetrievedChunk{}, nil
	}

	ids := resp.IDs[0]
	out := make([]rag.RetrievedChunk, 0, len(ids))
	for i, cid := range ids {
		c := rag.RetrievedChunk{ID: cid}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) && resp.Documents[0][i] != nil {
			c.Text = *resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			c.Metadata = resp.Metadatas[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			c.RelevanceScore = rag.NormalizeScore(rag.ScoreDistance, resp.Distances[0][i])
		}
		out = append(out, c)
	}
	return out, nil
}

// Export pages through the whole collection and returns it in one slice.
func (s *ChromaStore) Export(ctx context.Context) ([]rag.Record, error) {
	id, err := s.resolveCollection(ctx)
	if err != nil {
		return nil, err
	}

	var out []rag.Record
	for offset := 0; ; offset += s.cfg.PageSize {
		req := map[string]any{
			"include": []string{"embeddings", "documents", "metadatas"},
			"limit":   s.cfg.PageSize,
			"offset":  offset,
		}
		var resp struct {
			IDs        []string         `json:"ids"`
			Embeddings [][]float32      `json:"embeddings"`
			Documents  []*string        `json:"documents"`
			Metadatas  []map[string]any `json:"metadatas"`
		}
		if err := s.doJSON(ctx, http.MethodPost, s.collectionsPath()+"/"+id+"/get", req, &resp); err != nil {
			return nil, fmt.Errorf("export page at offset %d: %w", offset, err)
		}
		for i, rid := range resp.IDs {
			r := rag.Record{ID: rid}
			if i < len(resp.Embeddings) {
				r.Vector = resp.Embeddings[i]
			}
			if i < len(resp.Documents) && resp.Documents[i] != nil {
				r.Text = *resp.Documents[i]
			}
			if i < len(resp.Metadatas) {
				r.Metadata = resp.Metadatas[i]
			}
			out = append(out, r)
		}
		if len(resp.IDs) < s.cfg.PageSize {
			break
		}
	}
	s.logger.Info("exported collection", zap.String("collection", s.cfg.Collection), zap.Int("records", len(out)))
	return out, nil
}

func (s *ChromaStore) Upsert(ctx context.Context, records []rag.Record) error {
	if len(records) == 0 {
		return nil
	}
	id, err := s.resolveCollection(ctx)
	if err != nil {
		return err
	}
	req := struct {
		IDs        []string         `json:"ids"`
		Embeddings [][]float32      `json:"embeddings"`
		Documents  []string         `json:"documents"`
		Metadatas  []map[string]any `json:"metadatas"`
	}{}
	for _, r := range records {
		req.IDs = append(req.IDs, r.ID)
		req.Embeddings = append(req.Embeddings, r.Vector)
		req.Documents = append(req.Documents, r.Text)
		req.Metadatas = append(req.Metadatas, r.Metadata)
	}
	return s.doJSON(ctx, http.MethodPost, s.collectionsPath()+"/"+id+"/upsert", req, nil)
}

func (s *ChromaStore) Count(ctx context.Context) (int, error) {
	id, err := s.resolveCollection(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.doJSON(ctx, http.MethodGet, s.collectionsPath()+"/"+id+"/count", nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

var (
	_ rag.VectorStore = (*ChromaStore)(nil)
	_ rag.Exporter    = (*ChromaStore)(nil)
	_ rag.Upserter    = (*ChromaStore)(nil)
	_ rag.Counter     = (*ChromaStore)(nil)
)
