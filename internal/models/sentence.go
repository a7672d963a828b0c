package models

import (
	"context"
)

// SentenceChunker builds chunks by grouping sentences, 7–10 per chunk
// depending on section length. It needs no external service and is the
// fallback for the LLM chunker.
type SentenceChunker struct{}

// NewSentenceChunker returns the sentence-grouping chunker.
func NewSentenceChunker() *SentenceChunker {
	return &SentenceChunker{}
}

func (c *SentenceChunker) Chunk(ctx context.Context, text string) ([]string, error) {
	return chunkText(ctx, text, c.splitSection)
}

func (c *SentenceChunker) splitSection(_ context.Context, section string) ([]string, error) {
	sentences := splitIntoSentences(section)
	if len(sentences) <= 3 {
		return []string{section}, nil
	}

	perChunk := len(sentences) / 2
	if perChunk < 7 {
		perChunk = 7
	}
	if perChunk > 10 {
		perChunk = 10
	}

	var chunks []string
	var current string
	for i, sentence := range sentences {
		current += sentence
		if (i+1)%perChunk == 0 || i == len(sentences)-1 {
			chunks = append(chunks, current)
			current = ""
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks, nil
}
