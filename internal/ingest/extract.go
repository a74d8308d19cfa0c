// Package ingest turns textbook files into embedded chunk records.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	pdf "github.com/dslipak/pdf"
	"golang.org/x/net/html"
)

// Page is the text of one PDF page, or a whole non-PDF file as page 1.
type Page struct {
	Number int
	Text   string
}

var (
	spaceRun   = regexp.MustCompile(`\s+`)
	strayChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.,;:!?'\-()\[\]/+=<>%°′″∝≈≠≤≥∞∫∂∇×·]`)
)

// IsSupported reports whether LoadFile can read path.
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".md", ".txt", ".html", ".htm":
		return true
	}
	return false
}

// LoadFile reads a supported file into cleaned pages. Empty pages are dropped.
func LoadFile(path string) ([]Page, error) {
	var raw []Page
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err := extractPDFPages(path)
		if err != nil {
			return nil, fmt.Errorf("read pdf %s: %w", path, err)
		}
		raw = pages
	case ".html", ".htm":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = []Page{{Number: 1, Text: ExtractHTMLText(string(data))}}
	case ".md", ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = []Page{{Number: 1, Text: string(data)}}
	default:
		return nil, fmt.Errorf("unsupported file type %s", path)
	}

	out := make([]Page, 0, len(raw))
	for _, p := range raw {
		p.Text = CleanText(p.Text)
		if p.Text != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func extractPDFPages(path string) ([]Page, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	var pages []Page
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not abort the book.
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}

// CleanText drops invalid UTF-8, symbols outside the scientific set, and
// collapses whitespace.
func CleanText(s string) string {
	s = sanitizeUTF8(s)
	s = strayChars.ReplaceAllString(s, "")
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// ExtractHTMLText returns visible text, one node per line, skipping scripts
// and styles.
func ExtractHTMLText(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	var lines []string
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, skip bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "nav", "footer":
				skip = true
			}
		}
		if n.Type == html.TextNode && !skip {
			if t := strings.TrimSpace(n.Data); len(t) > 1 {
				lines = append(lines, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, skip)
		}
	}
	walk(doc, false)
	return strings.Join(lines, "\n")
}

// sanitizeUTF8 removes invalid bytes, which Postgres rejects with 22021.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		b.WriteRune(r)
		s = s[size:]
	}
	return b.String()
}
