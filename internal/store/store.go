// Package store holds the vector store backends used for retrieval and
// migration.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
)

var ErrNoQueryVector = errors.New("store needs a query vector or an embedder")

// queryVector returns the caller's vector, or embeds the text when the store
// was built with its own embedder.
func queryVector(ctx context.Context, q rag.SearchQuery, emb rag.Embedder, dim int) ([]float32, error) {
	vec := q.Vector
	if len(vec) == 0 {
		if emb == nil {
			return nil, ErrNoQueryVector
		}
		var err error
		vec, err = emb.Embed(ctx, q.Text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
	}
	if dim > 0 && len(vec) != dim {
		return nil, fmt.Errorf("query vector has dimension %d, store expects %d", len(vec), dim)
	}
	return vec, nil
}

func copyMeta(meta map[string]any, drop string) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		if k == drop {
			continue
		}
		out[k] = v
	}
	return out
}
