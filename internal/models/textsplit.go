package models

import (
	"regexp"
	"strings"
)

const (
	maxSectionLength = 1500
	minSectionLength = 300
	minChunkLength   = 100
)

// Control and zero-width characters, keeping \t and \n so paragraph
// structure survives into sectioning.
var controlCharRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F-\x9F\x{200B}-\x{200D}\x{FEFF}]`)

// cleanText strips control and zero-width characters and trims whitespace.
func cleanText(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(controlCharRe.ReplaceAllString(text, ""))
}

var paragraphSplitRe = regexp.MustCompile(`\n\s*\n`)

// sentenceEnd reports whether r terminates a sentence.
func sentenceEnd(r rune) bool {
	switch r {
	case '。', '！', '？', '.', '!', '?':
		return true
	}
	return false
}

// splitIntoSentences splits text after sentence-ending punctuation.
func splitIntoSentences(text string) []string {
	var sentences []string
	var current []rune
	for _, r := range text {
		current = append(current, r)
		if sentenceEnd(r) {
			if s := strings.TrimSpace(string(current)); s != "" {
				sentences = append(sentences, s)
			}
			current = current[:0]
		}
	}
	if s := strings.TrimSpace(string(current)); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// splitIntoSections groups paragraphs into sections sized for one model
// call: at most maxSectionLength runes, merging trailing fragments shorter
// than minSectionLength into their neighbour.
func splitIntoSections(text string) []string {
	paragraphs := paragraphSplitRe.Split(text, -1)

	var sections []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n\n"))
			current = nil
			currentLen = 0
		}
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		paraLen := runeLen(para)
		switch {
		case paraLen > maxSectionLength:
			flush()
			sections = append(sections, splitLongParagraph(para, maxSectionLength)...)
		case currentLen+paraLen+2 > maxSectionLength && len(current) > 0:
			if currentLen >= minSectionLength {
				flush()
				current = []string{para}
				currentLen = paraLen
			} else {
				current = append(current, para)
				currentLen += paraLen + 2
			}
		default:
			current = append(current, para)
			currentLen += paraLen + 2
		}
	}

	if len(current) > 0 {
		final := strings.Join(current, "\n\n")
		if runeLen(final) < minSectionLength && len(sections) > 0 {
			sections[len(sections)-1] += "\n\n" + final
		} else {
			sections = append(sections, final)
		}
	}
	return sections
}

// splitLongParagraph cuts an oversized paragraph at sentence boundaries.
func splitLongParagraph(para string, maxLen int) []string {
	sentences := splitIntoSentences(para)

	var sections []string
	var current []string
	currentLen := 0

	for _, sentence := range sentences {
		sentLen := runeLen(sentence)
		if currentLen+sentLen > maxLen && len(current) > 0 {
			sections = append(sections, strings.Join(current, ""))
			current = []string{sentence}
			currentLen = sentLen
		} else {
			current = append(current, sentence)
			currentLen += sentLen
		}
	}
	if len(current) > 0 {
		sections = append(sections, strings.Join(current, ""))
	}
	return sections
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
