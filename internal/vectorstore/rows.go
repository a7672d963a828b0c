package vectorstore

import (
	"regexp"
	"strconv"
)

// Row is one chunk/vector record as the collection ingests it.
type Row struct {
	Embedding []float32
	Chunk     string
	Metadata  map[string]any
	Page      int64
}

var pageMarkerRe = regexp.MustCompile(`\[PAGE\]\[(\d+)\]\[PAGE\]`)

// PrepareRows pairs chunks with embeddings and resolves the page column.
// The page number carries forward across rows within one batch: a chunk
// without a marker belongs to the page the previous chunk ended on, and the
// batch starts at page 1. All [PAGE][n][PAGE] markers are stripped from the
// chunk text; intra-page layout markers are left in place. The metadata
// object is repeated across rows.
func PrepareRows(chunks []string, embeddings [][]float32, metadata map[string]any) []Row {
	rows := make([]Row, 0, len(chunks))
	page := int64(1)
	for i := range chunks {
		text := chunks[i]
		if matches := pageMarkerRe.FindAllStringSubmatch(text, -1); len(matches) > 0 {
			if n, err := strconv.ParseInt(matches[len(matches)-1][1], 10, 64); err == nil {
				page = n
			}
			text = pageMarkerRe.ReplaceAllString(text, "")
		}
		rows = append(rows, Row{
			Embedding: embeddings[i],
			Chunk:     text,
			Metadata:  metadata,
			Page:      page,
		})
	}
	return rows
}
