package services

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

type TextChunker interface {
	Chunk(text string, maxRunes int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// Chunk splits reference text into pieces of at most maxRunes runes. Blocks are
// separated by blank lines; an oversized block is split on lines, and an
// oversized line on sentence boundaries. Each new chunk starts with the last
// overlap runes of the previous one.
func (tc *textChunker) Chunk(text string, maxRunes int, overlap int) []string {
	if maxRunes <= 0 {
		maxRunes = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxRunes {
		overlap = maxRunes / 4
	}

	acc := &chunkAccumulator{maxRunes: maxRunes, overlap: overlap}

	for _, block := range strings.Split(normalizeNewlines(text), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if utf8.RuneCountInString(block) <= maxRunes {
			acc.add(block, "\n\n")
			continue
		}

		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if utf8.RuneCountInString(line) <= maxRunes {
				acc.add(line, "\n")
				continue
			}
			for _, piece := range splitLongLine(line, maxRunes) {
				acc.add(piece, " ")
			}
		}
	}

	return acc.finish()
}

type chunkAccumulator struct {
	maxRunes int
	overlap  int
	current  strings.Builder
	runes    int
	chunks   []string
}

func (a *chunkAccumulator) add(piece, sep string) {
	pieceRunes := utf8.RuneCountInString(piece)

	if a.runes > 0 && a.runes+len(sep)+pieceRunes > a.maxRunes {
		a.flush()
		if tail := lastRunes(a.chunks[len(a.chunks)-1], a.overlap); tail != "" && utf8.RuneCountInString(tail)+len(sep)+pieceRunes <= a.maxRunes {
			a.write(tail)
		}
	}

	if a.runes > 0 {
		a.write(sep)
	}
	a.write(piece)
}

func (a *chunkAccumulator) write(s string) {
	a.current.WriteString(s)
	a.runes += utf8.RuneCountInString(s)
}

func (a *chunkAccumulator) flush() {
	if a.runes == 0 {
		return
	}
	a.chunks = append(a.chunks, a.current.String())
	a.current.Reset()
	a.runes = 0
}

func (a *chunkAccumulator) finish() []string {
	a.flush()
	return a.chunks
}

// splitLongLine breaks a line on sentence punctuation, hard-cutting any
// sentence still longer than maxRunes.
func splitLongLine(line string, maxRunes int) []string {
	var pieces []string
	for _, sentence := range splitSentences(line) {
		runes := []rune(sentence)
		for len(runes) > maxRunes {
			pieces = append(pieces, string(runes[:maxRunes]))
			runes = runes[maxRunes:]
		}
		if len(runes) > 0 {
			pieces = append(pieces, string(runes))
		}
	}
	return pieces
}

func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' || r == ';' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func lastRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return strings.TrimSpace(string(runes[len(runes)-n:]))
}

func normalizeNewlines(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}
