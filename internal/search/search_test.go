package search

import (
	"context"
	"testing"

	"github.com/predoc-io/predoc/internal/vectorstore"
)

type fakeEmbedder struct {
	dim int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}

func (f *fakeEmbedder) Dim() int { return f.dim }

type fakeVectorSearcher struct {
	lastTopK       int
	lastCollection string
	hits           []vectorstore.Hit
}

func (f *fakeVectorSearcher) Search(_ context.Context, vector []float32, topK int, collection, partition string) ([]vectorstore.Hit, error) {
	f.lastTopK = topK
	f.lastCollection = collection
	return f.hits, nil
}

func TestSearch(t *testing.T) {
	store := &fakeVectorSearcher{hits: []vectorstore.Hit{{Chunk: "result", Score: 0.9}}}
	s := New(&fakeEmbedder{dim: 4}, store)

	hits, err := s.Search(context.Background(), "what is attention", 3, "papers", "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Chunk != "result" {
		t.Errorf("hits = %+v", hits)
	}
	if store.lastTopK != 3 || store.lastCollection != "papers" {
		t.Errorf("store called with topK=%d collection=%s", store.lastTopK, store.lastCollection)
	}
}

func TestSearchDefaultTopK(t *testing.T) {
	store := &fakeVectorSearcher{}
	s := New(&fakeEmbedder{dim: 4}, store)
	if _, err := s.Search(context.Background(), "query", 0, "papers", ""); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if store.lastTopK != defaultTopK {
		t.Errorf("topK = %d, want default %d", store.lastTopK, defaultTopK)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	s := New(&fakeEmbedder{dim: 4}, &fakeVectorSearcher{})
	if _, err := s.Search(context.Background(), "   ", 5, "papers", ""); err == nil {
		t.Fatal("want error for empty query, got nil")
	}
}
