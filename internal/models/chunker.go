package models

import (
	"context"
)

// splitFunc turns one section of marker-free text into chunks.
type splitFunc func(ctx context.Context, section string) ([]string, error)

// chunkText is the shared chunking pipeline: pull markers out, section the
// prose, split each section, then weave the markers back in. Text shorter
// than minChunkLength yields no chunks.
func chunkText(ctx context.Context, text string, split splitFunc) ([]string, error) {
	if runeLen(text) < minChunkLength {
		return nil, nil
	}

	markers, clean := extractMarkers(text)
	sections := splitIntoSections(clean)

	var chunks []string
	for _, section := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parts, err := split(ctx, section)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, parts...)
	}

	return reconstructChunks(chunks, markers), nil
}
