package models

import (
	"strings"
	"testing"
)

func TestExtractMarkers(t *testing.T) {
	text := "[PAGE][1][PAGE]\nHello world. [/figure][2][/figure] More text."

	markers, clean := extractMarkers(text)
	if len(markers) != 2 {
		t.Fatalf("got %d markers, want 2", len(markers))
	}
	if markers[0].text != "[PAGE][1][PAGE]" || markers[0].pos != 0 {
		t.Errorf("marker 0 = %+v, want [PAGE][1][PAGE] at 0", markers[0])
	}
	if markers[1].text != "[/figure][2][/figure]" {
		t.Errorf("marker 1 = %q, want [/figure][2][/figure]", markers[1].text)
	}
	if want := "\nHello world.  More text."; clean != want {
		t.Errorf("clean = %q, want %q", clean, want)
	}
	if markers[1].pos != len("\nHello world. ") {
		t.Errorf("marker 1 pos = %d, want %d", markers[1].pos, len("\nHello world. "))
	}
	if combinedMarkerRe.MatchString(clean) {
		t.Errorf("clean text still contains a marker: %q", clean)
	}
}

func TestReconstructChunksRoundTrip(t *testing.T) {
	text := "[PAGE][1][PAGE]\nFirst part of the text. [/table][3][/table] Second part here. [PAGE][2][PAGE]\nThird part."
	markers, clean := extractMarkers(text)

	// Split the clean text arbitrarily; reinsertion at recorded offsets
	// must rebuild the original byte stream.
	mid := len(clean) / 2
	chunks := []string{clean[:mid], clean[mid:]}

	rebuilt := reconstructChunks(chunks, markers)
	if got := strings.Join(rebuilt, ""); got != text {
		t.Errorf("round trip = %q, want %q", got, text)
	}
}

func TestReconstructChunksLeftoverMarkers(t *testing.T) {
	markers := []marker{{text: "[PAGE][9][PAGE]", pos: 100}}
	out := reconstructChunks([]string{"short"}, markers)
	if len(out) != 2 {
		t.Fatalf("got %d chunks, want marker appended as trailing chunk", len(out))
	}
	if out[1] != "[PAGE][9][PAGE]" {
		t.Errorf("trailing chunk = %q, want the leftover marker", out[1])
	}
}

func TestReconstructChunksNoMarkers(t *testing.T) {
	chunks := []string{"one", "two"}
	out := reconstructChunks(chunks, nil)
	if len(out) != 2 || out[0] != "one" || out[1] != "two" {
		t.Errorf("got %v, want chunks unchanged", out)
	}
}
