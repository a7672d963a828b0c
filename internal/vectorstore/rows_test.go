package vectorstore

import (
	"strings"
	"testing"
)

func vec(v float32) []float32 { return []float32{v, v, v} }

func TestPrepareRows_PageExtraction(t *testing.T) {
	chunks := []string{
		"[PAGE][1][PAGE]intro text",
		"continues without marker",
		"middle [PAGE][2][PAGE] and [PAGE][3][PAGE] end",
		"tail text",
	}
	embeddings := [][]float32{vec(1), vec(2), vec(3), vec(4)}
	md := map[string]any{"title": "Doc A"}

	rows := PrepareRows(chunks, embeddings, md)
	if len(rows) != 4 {
		t.Fatalf("rows = %d", len(rows))
	}

	wantPages := []int64{1, 1, 3, 3}
	for i, want := range wantPages {
		if rows[i].Page != want {
			t.Errorf("row %d page = %d, want %d", i, rows[i].Page, want)
		}
	}

	for i, r := range rows {
		if strings.Contains(r.Chunk, "[PAGE]") {
			t.Errorf("row %d chunk still contains page marker: %q", i, r.Chunk)
		}
	}
	if rows[0].Chunk != "intro text" {
		t.Errorf("row 0 chunk = %q", rows[0].Chunk)
	}
	if rows[2].Chunk != "middle  and  end" {
		t.Errorf("row 2 chunk = %q", rows[2].Chunk)
	}
}

func TestPrepareRows_DefaultPageIsOne(t *testing.T) {
	rows := PrepareRows([]string{"no markers here"}, [][]float32{vec(1)}, nil)
	if rows[0].Page != 1 {
		t.Errorf("page = %d, want 1", rows[0].Page)
	}
	if rows[0].Chunk != "no markers here" {
		t.Errorf("chunk = %q", rows[0].Chunk)
	}
}

func TestPrepareRows_LayoutMarkersKept(t *testing.T) {
	chunk := "see [/figure][2][/figure] and [/table][1][/table] [PAGE][4][PAGE]"
	rows := PrepareRows([]string{chunk}, [][]float32{vec(1)}, nil)
	if !strings.Contains(rows[0].Chunk, "[/figure][2][/figure]") {
		t.Errorf("figure marker stripped: %q", rows[0].Chunk)
	}
	if !strings.Contains(rows[0].Chunk, "[/table][1][/table]") {
		t.Errorf("table marker stripped: %q", rows[0].Chunk)
	}
	if rows[0].Page != 4 {
		t.Errorf("page = %d", rows[0].Page)
	}
}

func TestPrepareRows_MetadataRepeated(t *testing.T) {
	md := map[string]any{"title": "T"}
	rows := PrepareRows([]string{"a", "b"}, [][]float32{vec(1), vec(2)}, md)
	for i, r := range rows {
		if r.Metadata["title"] != "T" {
			t.Errorf("row %d metadata = %v", i, r.Metadata)
		}
	}
}

func TestPrepareRows_Empty(t *testing.T) {
	rows := PrepareRows(nil, nil, nil)
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}
