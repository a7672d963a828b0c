package models

import (
	"sync"

	"github.com/predoc-io/predoc/internal/config"
	"github.com/predoc-io/predoc/internal/logging"
	"github.com/predoc-io/predoc/internal/storage"
)

// Loader lazily constructs the heavyweight model clients and hands out
// shared instances. Construction happens at most once per model no matter
// how many workers ask concurrently.
type Loader struct {
	cfg config.ModelsConfig

	mu       sync.Mutex
	parser   *LayoutParser
	sentence *SentenceChunker
	llm      *LLMChunker
	embedder *HTTPEmbedder
}

// NewLoader returns an empty loader; models are built on first use.
func NewLoader(cfg config.ModelsConfig) *Loader {
	return &Loader{cfg: cfg}
}

// GetParser returns the shared layout parser, pointing its artifact
// uploads at backend. An existing instance is retargeted rather than
// rebuilt.
func (l *Loader) GetParser(backend storage.Backend) *LayoutParser {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.parser == nil {
		logging.Op().Info("initializing layout parser", "endpoint", l.cfg.ParserEndpoint)
		l.parser = NewLayoutParser(l.cfg, backend)
	} else if backend != nil {
		l.parser.SetStorage(backend)
	}
	return l.parser
}

// GetChunker returns the chunker for the given strategy. "semantic_api"
// selects the LLM chunker when a chat API is configured; anything else,
// including an unconfigured API, gets sentence chunking.
func (l *Loader) GetChunker(strategy string) Chunker {
	l.mu.Lock()
	defer l.mu.Unlock()
	if strategy == "semantic_api" && l.cfg.ChunkAPIBase != "" {
		if l.llm == nil {
			logging.Op().Info("initializing llm chunker", "model", l.cfg.ChunkModel)
			l.llm = NewLLMChunker(l.cfg)
		}
		return l.llm
	}
	if l.sentence == nil {
		l.sentence = NewSentenceChunker()
	}
	return l.sentence
}

// Embedder returns the shared embedding client.
func (l *Loader) Embedder() *HTTPEmbedder {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.embedder == nil {
		logging.Op().Info("initializing embedder",
			"endpoint", l.cfg.EmbedderEndpoint, "dim", l.cfg.EmbeddingDim)
		l.embedder = NewHTTPEmbedder(l.cfg)
	}
	return l.embedder
}

// PreloadAll eagerly constructs every model so the first task does not
// pay the setup cost.
func (l *Loader) PreloadAll(backend storage.Backend) {
	l.GetParser(backend)
	l.GetChunker(l.cfg.ChunkStrategy)
	l.Embedder()
}

// ClearCache drops all constructed instances; the next Get rebuilds.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.parser = nil
	l.sentence = nil
	l.llm = nil
	l.embedder = nil
}
