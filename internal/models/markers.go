package models

import "regexp"

// Synthetic tokens the parser embeds in text: page boundaries and replaced
// layout elements. Chunkers pull them out before splitting so chunk sizing
// sees prose only, then weave them back at their original offsets.
var combinedMarkerRe = regexp.MustCompile(
	`\[/(table|formula|figure)\]\[\d+\]\[/(?:table|formula|figure)\]|\[PAGE\]\[\d+\]\[PAGE\]`)

type marker struct {
	text string
	pos  int // byte offset into the cleaned text
}

// extractMarkers removes all markers from text and records each one's
// offset in the cleaned result.
func extractMarkers(text string) ([]marker, string) {
	var markers []marker
	var clean []byte
	last := 0

	for _, loc := range combinedMarkerRe.FindAllStringIndex(text, -1) {
		clean = append(clean, text[last:loc[0]]...)
		markers = append(markers, marker{text: text[loc[0]:loc[1]], pos: len(clean)})
		last = loc[1]
	}
	clean = append(clean, text[last:]...)
	return markers, string(clean)
}

// reconstructChunks re-inserts markers into the chunk stream at the offset
// they were extracted from. A marker landing exactly on a chunk boundary
// goes to the following chunk; markers past the end of the stream are
// appended as trailing chunks so none is ever dropped.
func reconstructChunks(chunks []string, markers []marker) []string {
	out := make([]string, 0, len(chunks))
	pos := 0

	for _, chunk := range chunks {
		start := pos
		end := pos + len(chunk)
		rebuilt := chunk

		for len(markers) > 0 && markers[0].pos < end {
			m := markers[0]
			markers = markers[1:]
			rel := m.pos - start
			if rel < 0 {
				rel = 0
			}
			rebuilt = rebuilt[:rel] + m.text + rebuilt[rel:]
			start -= len(m.text) // keep rel offsets relative to original chunk bytes
		}

		out = append(out, rebuilt)
		pos += len(chunk)
	}

	for _, m := range markers {
		out = append(out, m.text)
	}
	return out
}
