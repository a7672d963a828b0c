// Package search embeds a query and runs similarity retrieval against the
// vector store.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/predoc-io/predoc/internal/models"
	"github.com/predoc-io/predoc/internal/vectorstore"
)

const defaultTopK = 5

// VectorSearcher is the retrieval slice of the vector store.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, topK int, collection, partition string) ([]vectorstore.Hit, error)
}

// Searcher answers text queries over an ingested collection.
type Searcher struct {
	embedder models.Embedder
	store    VectorSearcher
}

// New builds a searcher from the query embedder and the store.
func New(embedder models.Embedder, store VectorSearcher) *Searcher {
	return &Searcher{embedder: embedder, store: store}
}

// Search embeds the query and returns up to topK hits, best first. A topK
// below one uses the default.
func (s *Searcher) Search(ctx context.Context, query string, topK int, collection, partition string) ([]vectorstore.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if topK < 1 {
		topK = defaultTopK
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	return s.store.Search(ctx, vectors[0], topK, collection, partition)
}
