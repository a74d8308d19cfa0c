package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBookServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/book/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<h1>Biology</h1>
			<a href="cell-structure.html">Cells</a>
			<a href="/book/genetics.html#top">Genes</a>
			<a href="https://elsewhere.test/x">External</a>
			<a href="figure.png">Figure</a>
			<a href="missing.html">Missing</a>`))
	})
	mux.HandleFunc("/book/cell-structure.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<p>Cells have membranes.</p><a href="/book/">Home</a>`))
	})
	mux.HandleFunc("/book/genetics.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<p>Genes carry traits.</p>`))
	})
	mux.HandleFunc("/book/missing.html", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func TestCrawl(t *testing.T) {
	srv := newBookServer()
	defer srv.Close()

	got := map[string]string{}
	visited, err := Crawl(context.Background(), srv.Client(), srv.URL+"/book/", 10, nil,
		func(_ context.Context, _, title, text string) error {
			got[title] = text
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, 4, visited)
	assert.Equal(t, map[string]string{
		"Overview":       "Biology Cells Genes External Figure Missing",
		"cell structure": "Cells have membranes. Home",
		"genetics":       "Genes carry traits.",
	}, got)
}

func TestCrawl_LimitAndStop(t *testing.T) {
	srv := newBookServer()
	defer srv.Close()

	visited, err := Crawl(context.Background(), srv.Client(), srv.URL+"/book/", 1, nil,
		func(context.Context, string, string, string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, visited)

	stop := errors.New("disk full")
	_, err = Crawl(context.Background(), srv.Client(), srv.URL+"/book/", 10, nil,
		func(context.Context, string, string, string) error { return stop })
	assert.ErrorIs(t, err, stop)
}
