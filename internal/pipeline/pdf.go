package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/predoc-io/predoc/internal/logging"
	"github.com/predoc-io/predoc/internal/metrics"
	"github.com/predoc-io/predoc/internal/schema"
	"github.com/predoc-io/predoc/internal/storage"
	"github.com/predoc-io/predoc/internal/taskerr"
	"github.com/predoc-io/predoc/internal/vectorstore"
)

// PDFPipeline is the default ingestion flow: fetch the PDF, run layout
// parsing, chunk, embed, insert. A document whose extracted text already
// sits in the preprocessed bucket skips the fetch and parse stages
// entirely and is chunked from the cached text.
type PDFPipeline struct {
	deps Deps
}

// NewPDFPipeline builds the default pipeline.
func NewPDFPipeline(deps Deps) Pipeline {
	return &PDFPipeline{deps: deps}
}

func (p *PDFPipeline) Process(ctx context.Context, task *schema.Task) ([]string, [][]float32, error) {
	doc := &task.Document

	text, err := p.sourceText(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil, taskerr.Newf(taskerr.KindParseEmpty, "document %s produced no text", doc.FileName)
	}

	chunker := p.deps.Loader.GetChunker(p.deps.ChunkStrategy)
	chunkStart := time.Now()
	chunks, err := chunker.Chunk(ctx, text)
	if err != nil {
		return nil, nil, taskerr.New(taskerr.KindChunker, err)
	}
	metrics.RecordStage("chunk", time.Since(chunkStart))
	if len(chunks) == 0 {
		logging.Op().Warn("document too short to chunk, nothing to store",
			"task", task.TaskID, "file", doc.FileName)
		return nil, nil, nil
	}

	embedStart := time.Now()
	embeddings, err := p.deps.Loader.Embedder().Embed(ctx, chunks)
	if err != nil {
		return nil, nil, taskerr.New(taskerr.KindEmbedder, err)
	}
	metrics.RecordStage("embed", time.Since(embedStart))
	if len(embeddings) != len(chunks) {
		return nil, nil, taskerr.Newf(taskerr.KindEmbedder,
			"got %d embeddings for %d chunks", len(embeddings), len(chunks))
	}
	return chunks, embeddings, nil
}

func (p *PDFPipeline) StoreEmbeddings(ctx context.Context, task *schema.Task, chunks []string, embeddings [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	collection := task.DestinationCollection
	if collection == "" {
		collection = p.deps.Collection
	}
	rows := vectorstore.PrepareRows(chunks, embeddings, task.Document.Metadata())
	return p.deps.Store.Insert(ctx, collection, p.deps.Partition, rows)
}

// sourceText returns the document's marked-up text, from the preprocessed
// cache when available and through download+parse otherwise. The per-task
// temp directory is removed on every path.
func (p *PDFPipeline) sourceText(ctx context.Context, doc *schema.Document) (string, error) {
	stem := doc.Stem()
	cacheKey := stem + "/text.txt"

	cached, err := p.deps.Storage.Exists(ctx, cacheKey, "")
	if err != nil {
		return "", taskerr.New(taskerr.KindStorageUnavailable, fmt.Errorf("probe cache %s: %w", cacheKey, err))
	}

	tmpDir, err := os.MkdirTemp("", "predoc-*")
	if err != nil {
		return "", taskerr.New(taskerr.KindStorageUnavailable, err)
	}
	defer os.RemoveAll(tmpDir)

	if cached {
		logging.Op().Info("using cached preprocessed text", "file", doc.FileName, "object", cacheKey)
		metrics.RecordCacheHit()
		local := filepath.Join(tmpDir, "text.txt")
		if _, err := p.deps.Storage.Download(ctx, cacheKey, local, ""); err != nil {
			return "", taskerr.New(taskerr.KindStorageUnavailable, fmt.Errorf("download cache %s: %w", cacheKey, err))
		}
		data, err := os.ReadFile(local)
		if err != nil {
			return "", taskerr.New(taskerr.KindStorageUnavailable, err)
		}
		return string(data), nil
	}

	local := filepath.Join(tmpDir, filepath.Base(doc.FileName))
	if _, err := p.deps.Storage.Download(ctx, doc.FileName, local, doc.Bucket); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", taskerr.New(taskerr.KindNotFound, fmt.Errorf("document %s: %w", doc.FileName, err))
		}
		return "", taskerr.New(taskerr.KindStorageUnavailable, fmt.Errorf("download %s: %w", doc.FileName, err))
	}

	parser := p.deps.Loader.GetParser(p.deps.Storage)
	parseStart := time.Now()
	text, err := parser.Parse(ctx, local, tmpDir)
	if err != nil {
		return "", taskerr.New(taskerr.KindParser, err)
	}
	metrics.RecordStage("parse", time.Since(parseStart))
	return text, nil
}
