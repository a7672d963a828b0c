// Package models holds the inference units the pipeline invokes — parser,
// chunkers, embedder — and the loader that shares them across workers. The
// units' inner quality (layout detection, OCR, LLM output, embedding
// vectors) is not this service's contract; the marker and artifact
// bookkeeping around them is.
package models

import "context"

// Parser extracts marked-up text from a PDF. Artifacts (figure/table/
// formula crops, content index, full text) are uploaded to the
// preprocessed bucket as a side effect.
type Parser interface {
	Parse(ctx context.Context, pdfPath, outDir string) (string, error)
}

// Chunker splits parsed text into retrieval-sized chunks. Byte content is
// preserved apart from re-segmentation; markers may move across chunk
// boundaries but are never discarded.
type Chunker interface {
	Chunk(ctx context.Context, text string) ([]string, error)
}

// Embedder turns chunks into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
}
