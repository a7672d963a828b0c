package models

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/predoc-io/predoc/internal/config"
	"github.com/predoc-io/predoc/internal/storage"
)

func TestDetectReferences(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"References", true},
		{"REFERENCES:", true},
		{"Bibliography", true},
		{"参考文献", true},
		{"see refs", true},
		{"The references in this section are discussed at length.", false},
		{"Introduction", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := detectReferences(tt.text); got != tt.want {
			t.Errorf("detectReferences(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func layoutServer(t *testing.T, pages []layoutPage) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/layout" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(layoutResponse{Pages: pages})
	}))
}

func TestLayoutParserParse(t *testing.T) {
	pages := []layoutPage{
		{Number: 1, Blocks: []layoutBlock{
			{Kind: "text", Text: "Introduction. This section covers the topic in detail."},
			{Kind: "figure", Image: []byte("png-bytes"), BBox: [4]int{10, 20, 110, 220}},
			{Kind: "text", Text: "More discussion follows the figure."},
		}},
		{Number: 2, Blocks: []layoutBlock{
			{Kind: "text", Text: "References"},
			{Kind: "text", Text: "[1] Some citation that must not appear."},
		}},
		{Number: 3, Blocks: []layoutBlock{
			{Kind: "text", Text: "Past the cutoff, must not appear either."},
		}},
	}
	srv := layoutServer(t, pages)
	defer srv.Close()

	base := t.TempDir()
	backend, err := storage.NewLocalStorage(base, storage.Buckets{PDF: "pdf", Preprocessed: "prep"})
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	pdfPath := filepath.Join(t.TempDir(), "paper1.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	outDir := t.TempDir()

	p := NewLayoutParser(config.ModelsConfig{ParserEndpoint: srv.URL}, backend)
	text, err := p.Parse(context.Background(), pdfPath, outDir)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !strings.Contains(text, "[PAGE][1][PAGE]") {
		t.Errorf("page marker missing from %q", text)
	}
	if !strings.Contains(text, "[/figure][1][/figure]") {
		t.Errorf("figure marker missing from %q", text)
	}
	if !strings.Contains(text, "Introduction.") || !strings.Contains(text, "More discussion") {
		t.Errorf("page text missing from %q", text)
	}
	if strings.Contains(text, "citation") || strings.Contains(text, "Past the cutoff") {
		t.Errorf("reference cutoff leaked text: %q", text)
	}

	// Local artifacts.
	crop := filepath.Join(outDir, "paper1", "figures", "figure_1.png")
	if _, err := os.Stat(crop); err != nil {
		t.Errorf("figure crop not written: %v", err)
	}
	indexData, err := os.ReadFile(filepath.Join(outDir, "paper1", "content_index.json"))
	if err != nil {
		t.Fatalf("content index not written: %v", err)
	}
	var entries []indexEntry
	if err := json.Unmarshal(indexData, &entries); err != nil {
		t.Fatalf("content index invalid: %v", err)
	}
	if len(entries) != 1 || entries[0].Type != "figure" || entries[0].ID != 1 || entries[0].Page != 1 {
		t.Errorf("content index = %+v, want one figure entry for page 1", entries)
	}
	if entries[0].ContextMarker != "[/figure][1][/figure]" {
		t.Errorf("context marker = %q", entries[0].ContextMarker)
	}

	// Uploaded mirrors in the preprocessed bucket.
	for _, object := range []string{"paper1/figure_1.png", "paper1/content_index.json", "paper1/text.txt"} {
		ok, err := backend.Exists(context.Background(), object, "")
		if err != nil {
			t.Fatalf("Exists(%s): %v", object, err)
		}
		if !ok {
			t.Errorf("object %s not uploaded", object)
		}
	}
}

func TestLayoutParserNilStorage(t *testing.T) {
	srv := layoutServer(t, []layoutPage{
		{Number: 1, Blocks: []layoutBlock{{Kind: "text", Text: "Standalone parse without uploads."}}},
	})
	defer srv.Close()

	pdfPath := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}

	p := NewLayoutParser(config.ModelsConfig{ParserEndpoint: srv.URL}, nil)
	text, err := p.Parse(context.Background(), pdfPath, t.TempDir())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(text, "Standalone parse") {
		t.Errorf("text = %q", text)
	}
}

func TestLayoutParserMissingPDF(t *testing.T) {
	p := NewLayoutParser(config.ModelsConfig{ParserEndpoint: "http://127.0.0.1:1"}, nil)
	if _, err := p.Parse(context.Background(), "/does/not/exist.pdf", t.TempDir()); err == nil {
		t.Fatal("want error for missing pdf, got nil")
	}
}
