package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/predoc-io/predoc/internal/config"
	"github.com/predoc-io/predoc/internal/logging"
)

const chunkBreakToken = "[CHUNK_BREAK]"

const chunkSystemPrompt = `You split documents into semantically coherent chunks for retrieval.
Insert the literal token [CHUNK_BREAK] between chunks. Reproduce the input
text exactly: do not add, remove, reorder or rewrite any characters other
than inserting the break tokens.`

const chunkPromptTemplate = `Split the following text (%d characters) into
semantically coherent chunks by inserting [CHUNK_BREAK] tokens at topic
boundaries. Return the full text with tokens inserted and nothing else.

%s`

var thinkTagRe = regexp.MustCompile(`(?is)<think>.*?</think>`)
var blankRunRe = regexp.MustCompile(`\n\s*\n`)

// LLMChunker splits text at topic boundaries via an OpenAI-compatible chat
// completions API. Any failure — transport, empty output, or output that
// does not reproduce the input within a 5% length tolerance — falls back
// to sentence chunking; the LLM is an optimization, never a dependency.
type LLMChunker struct {
	apiBase  string
	apiKey   string
	model    string
	httpc    *http.Client
	fallback *SentenceChunker
}

// NewLLMChunker builds a chunker against the configured chat API.
func NewLLMChunker(cfg config.ModelsConfig) *LLMChunker {
	return &LLMChunker{
		apiBase:  strings.TrimRight(cfg.ChunkAPIBase, "/"),
		apiKey:   cfg.ChunkAPIKey,
		model:    cfg.ChunkModel,
		httpc:    &http.Client{Timeout: 120 * time.Second},
		fallback: NewSentenceChunker(),
	}
}

func (c *LLMChunker) Chunk(ctx context.Context, text string) ([]string, error) {
	return chunkText(ctx, text, c.splitSection)
}

func (c *LLMChunker) splitSection(ctx context.Context, section string) ([]string, error) {
	if runeLen(section) < minChunkLength {
		return []string{section}, nil
	}

	response, err := c.complete(ctx, section)
	if err != nil {
		logging.Op().Warn("llm chunking failed, falling back to sentence chunks", "error", err)
		return c.fallback.splitSection(ctx, section)
	}

	cleaned := stripThinking(response)
	var chunks []string
	for _, part := range strings.Split(cleaned, chunkBreakToken) {
		if part = strings.TrimSpace(part); part != "" {
			chunks = append(chunks, part)
		}
	}

	if len(chunks) <= 1 {
		logging.Op().Warn("llm returned a single chunk, falling back to sentence chunks")
		return c.fallback.splitSection(ctx, section)
	}

	// The model must reproduce the input; tolerate 5% drift from trimming.
	rebuilt := 0
	for _, chunk := range chunks {
		rebuilt += runeLen(chunk)
	}
	original := runeLen(strings.TrimSpace(section))
	if original > 0 {
		ratio := float64(rebuilt) / float64(original)
		if ratio < 0.95 || ratio > 1.05 {
			logging.Op().Warn("llm chunk output diverged from input, falling back",
				"original_len", original, "rebuilt_len", rebuilt)
			return c.fallback.splitSection(ctx, section)
		}
	}
	return chunks, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *LLMChunker) complete(ctx context.Context, section string) (string, error) {
	prompt := fmt.Sprintf("%s\n\n"+chunkPromptTemplate, chunkSystemPrompt, runeLen(section), section)

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat api status %d: %s", resp.StatusCode, msg)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("model %s returned empty result", c.model)
	}
	return parsed.Choices[0].Message.Content, nil
}

// stripThinking removes reasoning-model <think> spans and collapses the
// blank runs they leave behind.
func stripThinking(text string) string {
	cleaned := thinkTagRe.ReplaceAllString(text, "")
	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimLeft(cleaned, " \t\n")
}
