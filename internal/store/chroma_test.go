package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromaBase = "/api/v2/tenants/default_tenant/databases/default_database/collections"

func newChromaServer(t *testing.T, lookups *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(chromaBase+"/biology_textbook", func(w http.ResponseWriter, r *http.Request) {
		lookups.Add(1)
		_, _ = w.Write([]byte(`{"id":"coll-1","name":"biology_textbook"}`))
	})
	mux.HandleFunc(chromaBase+"/coll-1/query", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(2), req["n_results"])
		_, _ = w.Write([]byte(`{
			"ids": [["a", "b"]],
			"documents": [["Mitosis has four phases.", null]],
			"metadatas": [[{"chapter": "Cell Biology", "section": "Cell Division"}, null]],
			"distances": [[0.2, 0.35]]
		}`))
	})
	mux.HandleFunc(chromaBase+"/coll-1/get", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Limit  int `json:"limit"`
			Offset int `json:"offset"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Offset {
		case 0:
			_, _ = w.Write([]byte(`{"ids":["a","b"],"embeddings":[[1,0],[0,1]],"documents":["A","B"],"metadatas":[{"page":1},{"page":2}]}`))
		default:
			_, _ = w.Write([]byte(`{"ids":["c"],"embeddings":[[0.5,0.5]],"documents":["C"],"metadatas":[null]}`))
		}
	})
	mux.HandleFunc(chromaBase+"/coll-1/count", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`3`))
	})
	return httptest.NewServer(mux)
}

func TestChromaStore_SearchConvertsDistances(t *testing.T) {
	var lookups atomic.Int32
	srv := newChromaServer(t, &lookups)
	defer srv.Close()

	s := NewChromaStore(ChromaConfig{BaseURL: srv.URL}, nil, nil)
	got, err := s.Search(context.Background(), rag.SearchQuery{Vector: []float32{1, 0}}, 2)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.InDelta(t, 0.8, got[0].RelevanceScore, 1e-9)
	assert.InDelta(t, 0.65, got[1].RelevanceScore, 1e-9)
	assert.Equal(t, "Mitosis has four phases.", got[0].Text)
	assert.Equal(t, "Cell Division", got[0].Section())
	assert.Empty(t, got[1].Text)

	_, err = s.Search(context.Background(), rag.SearchQuery{Vector: []float32{1, 0}}, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(1), lookups.Load())
}

func TestChromaStore_ExportPages(t *testing.T) {
	var lookups atomic.Int32
	srv := newChromaServer(t, &lookups)
	defer srv.Close()

	s := NewChromaStore(ChromaConfig{BaseURL: srv.URL, PageSize: 2}, nil, nil)
	got, err := s.Export(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, []float32{1, 0}, got[0].Vector)
	assert.Equal(t, "C", got[2].Text)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestChromaStore_MissingCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"NotFoundError"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewChromaStore(ChromaConfig{BaseURL: srv.URL}, nil, nil)
	_, err := s.Search(context.Background(), rag.SearchQuery{Vector: []float32{1}}, 3)
	assert.ErrorContains(t, err, `get collection "biology_textbook"`)
}
