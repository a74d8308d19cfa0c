package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lenEmbedder struct{ calls int }

func (e *lenEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	return []float32{float32(len(text)), 1}, nil
}

func (e *lenEmbedder) Dimension() int { return 2 }

func sentences(n int, word string) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%s %s %s %s %s. ", word, word, word, word, word)
	}
	return b.String()
}

func TestCleanText(t *testing.T) {
	in := "Cell   membranes\n\n regulate ★ transport\xff of ions (Na+) at 37°C…"
	assert.Equal(t, "Cell membranes regulate transport of ions (Na+) at 37°C", CleanText(in))
}

func TestExtractHTMLText(t *testing.T) {
	got := ExtractHTMLText(`<html><head><style>p{}</style><script>var x=1</script></head>
		<body><nav>Home</nav><h1>Osmosis</h1><p>Water crosses membranes.</p><p>x</p></body></html>`)
	assert.Equal(t, "Osmosis\nWater crosses membranes.", got)
}

func TestChunkPages(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: "Contents"},
		{Number: 2, Text: "Chapter 3 Cell Structure. " + sentences(4, "cell")},
		{Number: 3, Text: sentences(30, "mitosis")},
		{Number: 4, Text: "CHAPTER 4 Genetics " + sentences(3, "gene")},
	}

	chunks := ChunkPages(pages, 50)

	require.Len(t, chunks, 5)
	assert.Equal(t, 2, chunks[0].Page)
	assert.Equal(t, "Chapter 3", chunks[0].Chapter)

	for _, c := range chunks[1:4] {
		assert.Equal(t, 3, c.Page)
		assert.Equal(t, "Chapter 3", c.Chapter)
		assert.LessOrEqual(t, c.Words, 50)
		assert.True(t, strings.HasSuffix(c.Text, "."))
	}
	assert.Equal(t, 50, chunks[1].Words)

	assert.Equal(t, "Chapter 4", chunks[4].Chapter)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("  Enzymes   lower\tactivation energy.  "), 0o600))
	htm := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(htm, []byte("<p>Ribosomes</p><p>translate mRNA</p>"), 0o600))
	empty := filepath.Join(dir, "empty.md")
	require.NoError(t, os.WriteFile(empty, []byte("\n\n"), 0o600))

	pages, err := LoadFile(txt)
	require.NoError(t, err)
	assert.Equal(t, []Page{{Number: 1, Text: "Enzymes lower activation energy."}}, pages)

	pages, err = LoadFile(htm)
	require.NoError(t, err)
	assert.Equal(t, "Ribosomes translate mRNA", pages[0].Text)

	pages, err = LoadFile(empty)
	require.NoError(t, err)
	assert.Empty(t, pages)

	assert.True(t, IsSupported("Biology.PDF"))
	assert.False(t, IsSupported("figure.png"))
	_, err = LoadFile(filepath.Join(dir, "figure.png"))
	assert.Error(t, err)
}

func TestImporter(t *testing.T) {
	ctx := context.Background()
	emb := &lenEmbedder{}
	mem := store.NewMemoryStore(nil)
	n := 0
	im, err := NewImporter(emb, mem, Options{
		ChunkWords: 50,
		BatchSize:  2,
		NewID:      func() string { n++; return fmt.Sprintf("id-%d", n) },
	})
	require.NoError(t, err)

	written, err := im.ImportPages(ctx, "/books/biology.pdf", []Page{
		{Number: 7, Text: "Chapter 2 " + sentences(30, "photosynthesis")},
	})
	require.NoError(t, err)
	// 47 + 50 + 50 + 10 words
	assert.Equal(t, 4, written)
	assert.Equal(t, 4, emb.calls)

	records, err := mem.Export(ctx)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "id-1", records[0].ID)
	meta := records[0].Metadata
	assert.Equal(t, "biology", meta["subject"])
	assert.Equal(t, "biology.pdf", meta["source"])
	assert.Equal(t, 7, meta["page"])
	assert.Equal(t, "Chapter 2", meta["chapter"])
	assert.Equal(t, "pdf", meta["content_type"])
	assert.Equal(t, len([]rune(records[0].Text)), meta["char_count"])

	_, err = NewImporter(emb, mem, Options{Dimension: 384})
	var ce *rag.ConfigurationError
	assert.ErrorAs(t, err, &ce)
}
