package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/predoc-io/predoc/internal/config"
)

// HTTPEmbedder computes dense vectors through an embedding inference
// service. The vector dimension is fixed per deployment and must match
// the collection schema.
type HTTPEmbedder struct {
	endpoint string
	dim      int
	httpc    *http.Client
}

// NewHTTPEmbedder builds an embedder against the configured endpoint.
func NewHTTPEmbedder(cfg config.ModelsConfig) *HTTPEmbedder {
	return &HTTPEmbedder{
		endpoint: strings.TrimRight(cfg.EmbedderEndpoint, "/"),
		dim:      cfg.EmbeddingDim,
		httpc:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// Dim returns the dimension of the vectors this embedder produces.
func (e *HTTPEmbedder) Dim() int { return e.dim }

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns one vector per input text, in order. Inputs that are
// empty or whitespace-only are skipped before the call; an all-blank
// batch yields an empty result without touching the service.
func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Texts: kept})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.endpoint+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding service status %d: %s", resp.StatusCode, msg)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(parsed.Embeddings) != len(kept) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors",
			len(kept), len(parsed.Embeddings))
	}
	return parsed.Embeddings, nil
}
