package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var skippedAssets = map[string]bool{
	".css": true, ".js": true, ".png": true, ".jpg": true, ".jpeg": true, ".svg": true, ".gif": true, ".pdf": true,
}

// PageFunc receives the cleaned text of each crawled page.
type PageFunc func(ctx context.Context, pageURL, title, text string) error

// Crawl walks same-host links breadth first from baseURL, visiting at most
// maxPages pages. Fetch failures are logged and skipped; a PageFunc error
// stops the crawl.
func Crawl(ctx context.Context, client *http.Client, baseURL string, maxPages int, logger *zap.Logger, fn PageFunc) (int, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid base url: %w", err)
	}

	visited := make(map[string]bool)
	queue := []string{base.String()}
	pages := 0

	for len(queue) > 0 && pages < maxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		pages++

		body, err := fetch(ctx, client, current)
		if err != nil {
			logger.Warn("crawl fetch failed", zap.String("url", current), zap.Error(err))
			continue
		}

		if text := CleanText(ExtractHTMLText(body)); text != "" {
			if err := fn(ctx, current, urlToTitle(current, base), text); err != nil {
				return pages, err
			}
		}

		for _, link := range extractLinks(body, base) {
			if !visited[link] {
				queue = append(queue, link)
			}
		}
	}
	return pages, nil
}

func fetch(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func urlToTitle(raw string, base *url.URL) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if strings.TrimSuffix(u.Path, "/") == strings.TrimSuffix(base.Path, "/") {
		return "Overview"
	}
	last := path.Base(strings.TrimSuffix(u.Path, "/"))
	last = strings.SplitN(last, ".", 2)[0]
	return strings.TrimSpace(strings.ReplaceAll(last, "-", " "))
}

func extractLinks(htmlStr string, base *url.URL) []string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				h := strings.TrimSpace(a.Val)
				if h == "" || strings.HasPrefix(h, "#") {
					continue
				}
				u, err := url.Parse(h)
				if err != nil {
					continue
				}
				u = base.ResolveReference(u)
				if u.Host != base.Host || skippedAssets[strings.ToLower(path.Ext(u.Path))] {
					continue
				}
				link := u.Scheme + "://" + u.Host + u.Path
				if !seen[link] {
					seen[link] = true
					out = append(out, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}
