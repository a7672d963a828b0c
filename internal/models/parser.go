package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/predoc-io/predoc/internal/config"
	"github.com/predoc-io/predoc/internal/logging"
	"github.com/predoc-io/predoc/internal/storage"
)

// layoutBlock is one detected element on a page, top-to-bottom order.
// Text blocks carry OCR output; figure/table/formula blocks carry the
// cropped PNG.
type layoutBlock struct {
	Kind  string `json:"kind"`
	Text  string `json:"text,omitempty"`
	Image []byte `json:"image,omitempty"`
	BBox  [4]int `json:"bbox"`
}

type layoutPage struct {
	Number int           `json:"number"`
	Blocks []layoutBlock `json:"blocks"`
}

type layoutResponse struct {
	Pages []layoutPage `json:"pages"`
}

// indexEntry is one row of the per-paper content_index.json.
type indexEntry struct {
	Type          string `json:"type"`
	ID            int    `json:"id"`
	Page          int    `json:"page"`
	BBox          [4]int `json:"bbox"`
	ImagePath     string `json:"image_path"`
	ContextMarker string `json:"context_marker"`
}

var referenceHeadingRe = regexp.MustCompile(
	`(?i)^\s*(参考文献|参考书目|引用文献|References?|Bibliography)[\s.:：]*$`)
var referenceShortRe = regexp.MustCompile(`(?i)\b(refs?|biblio)\b`)

// detectReferences reports whether a text block is a reference-section
// heading; parsing stops there since citations add noise to retrieval.
func detectReferences(text string) bool {
	if referenceHeadingRe.MatchString(strings.TrimSpace(text)) {
		return true
	}
	return runeLen(text) < 20 && referenceShortRe.MatchString(text)
}

// LayoutParser sends PDFs to a layout-analysis inference service and turns
// its per-page blocks into marked-up text. It owns the bookkeeping that is
// this service's contract: per-paper element counters, inline
// [/kind][id][/kind] and [PAGE][n][PAGE] markers, artifact uploads and the
// content index. The detection/OCR quality behind the endpoint is not.
type LayoutParser struct {
	endpoint string
	httpc    *http.Client

	mu      sync.Mutex
	storage storage.Backend
}

// NewLayoutParser builds a parser against the configured inference
// endpoint. A nil storage skips artifact uploads.
func NewLayoutParser(cfg config.ModelsConfig, backend storage.Backend) *LayoutParser {
	return &LayoutParser{
		endpoint: strings.TrimRight(cfg.ParserEndpoint, "/"),
		httpc:    &http.Client{Timeout: 10 * time.Minute},
		storage:  backend,
	}
}

// SetStorage swaps the upload target. The loader calls this when a shared
// parser instance is handed to a pipeline with a different backend.
func (p *LayoutParser) SetStorage(backend storage.Backend) {
	p.mu.Lock()
	p.storage = backend
	p.mu.Unlock()
}

func (p *LayoutParser) backend() storage.Backend {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.storage
}

// Parse runs layout analysis on the PDF and returns the concatenated
// per-page text, each page prefixed with its [PAGE][n][PAGE] marker.
// Figures, tables and formulas are replaced inline by context markers;
// their crops, the content index and the full text are written under
// outDir/<stem>/ and uploaded to the preprocessed bucket.
func (p *LayoutParser) Parse(ctx context.Context, pdfPath, outDir string) (string, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("pdf not accessible: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	paperDir := filepath.Join(outDir, stem)

	pages, err := p.analyze(ctx, pdfPath)
	if err != nil {
		return "", err
	}

	counters := map[string]int{"figure": 1, "table": 1, "formula": 1}
	var contentIndex []indexEntry
	var pageTexts []string

	for _, page := range pages {
		blocks, foundReferences, err := p.processPage(ctx, page, stem, paperDir, counters, &contentIndex)
		if err != nil {
			return "", err
		}
		if foundReferences {
			logging.Op().Info("reference section detected, stopping parse", "page", page.Number, "paper", stem)
			break
		}
		if len(blocks) > 0 {
			pageTexts = append(pageTexts,
				fmt.Sprintf("[PAGE][%d][PAGE]\n%s", page.Number, strings.Join(blocks, "\n\n")))
		}
	}

	if err := p.saveArtifact(ctx, contentIndex, filepath.Join(paperDir, "content_index.json"), stem+"/content_index.json"); err != nil {
		return "", err
	}

	parsed := strings.Join(pageTexts, "\n\n")
	if err := p.saveArtifact(ctx, parsed, filepath.Join(paperDir, "text.txt"), stem+"/text.txt"); err != nil {
		return "", err
	}

	return cleanText(parsed), nil
}

func (p *LayoutParser) processPage(
	ctx context.Context,
	page layoutPage,
	stem, paperDir string,
	counters map[string]int,
	contentIndex *[]indexEntry,
) ([]string, bool, error) {
	var blocks []string
	for _, block := range page.Blocks {
		switch block.Kind {
		case "figure", "table", "formula":
			id := counters[block.Kind]
			counters[block.Kind]++

			fileName := fmt.Sprintf("%s_%d.png", block.Kind, id)
			localPath := filepath.Join(paperDir, block.Kind+"s", fileName)
			if err := p.saveArtifact(ctx, block.Image, localPath, stem+"/"+fileName); err != nil {
				return nil, false, err
			}

			marker := fmt.Sprintf("[/%s][%d][/%s]", block.Kind, id, block.Kind)
			*contentIndex = append(*contentIndex, indexEntry{
				Type:          block.Kind,
				ID:            id,
				Page:          page.Number,
				BBox:          block.BBox,
				ImagePath:     localPath,
				ContextMarker: marker,
			})
			blocks = append(blocks, marker)
		case "text":
			if detectReferences(block.Text) {
				return nil, true, nil
			}
			blocks = append(blocks, strings.TrimSpace(block.Text))
		}
	}
	return blocks, false, nil
}

// saveArtifact writes content locally and mirrors it to the preprocessed
// bucket. Accepts raw bytes, strings, or anything JSON-marshalable.
func (p *LayoutParser) saveArtifact(ctx context.Context, content any, localPath, objectName string) error {
	var data []byte
	switch v := content.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		var err error
		if data, err = json.MarshalIndent(v, "", "  "); err != nil {
			return fmt.Errorf("marshal %s: %w", objectName, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", localPath, err)
	}

	if backend := p.backend(); backend != nil {
		if _, err := backend.Upload(ctx, localPath, objectName, ""); err != nil {
			return fmt.Errorf("upload %s: %w", objectName, err)
		}
	}
	return nil
}

func (p *LayoutParser) analyze(ctx context.Context, pdfPath string) ([]layoutPage, error) {
	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.endpoint+"/v1/layout", bytes.NewReader(pdf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("layout service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("layout service status %d: %s", resp.StatusCode, msg)
	}

	var parsed layoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode layout response: %w", err)
	}
	return parsed.Pages, nil
}
