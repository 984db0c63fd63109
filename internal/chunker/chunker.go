// Package chunker splits extracted document text into bounded-size,
// overlapping chunks suitable for embedding.
package chunker

import (
	"strings"

	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkSplitter = (*Splitter)(nil)

// Config configures the splitter behavior
type Config struct {
	// MaxChunkSize is the maximum characters per chunk
	MaxChunkSize int

	// Overlap is the character overlap between consecutive chunks
	Overlap int

	// PreserveSentences tries to break at sentence boundaries
	PreserveSentences bool

	// PreserveParagraphs tries to break at paragraph boundaries
	PreserveParagraphs bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxChunkSize:       1000,
		Overlap:            200,
		PreserveSentences:  true,
		PreserveParagraphs: true,
	}
}

// Splitter splits text into overlapping chunks
type Splitter struct {
	config Config
}

// New creates a splitter with the given config
func New(config Config) *Splitter {
	return &Splitter{config: config}
}

// Split normalizes whitespace and splits the text into chunks in document
// order. Empty input yields no chunks.
func (s *Splitter) Split(text string) []string {
	content := normalizeWhitespace(text)
	if content == "" {
		return nil
	}

	if len(content) <= s.config.MaxChunkSize {
		return []string{content}
	}

	var chunks []string
	start := 0

	for start < len(content) {
		end := start + s.config.MaxChunkSize
		if end > len(content) {
			end = len(content)
		}

		if end < len(content) {
			if breakPoint := s.findBreakPoint(content, start, end); breakPoint > start {
				end = breakPoint
			}
		}

		chunks = append(chunks, content[start:end])

		if end >= len(content) {
			break
		}

		// Move start with overlap, ensuring we always advance
		nextStart := end - s.config.Overlap
		if nextStart <= start {
			nextStart = start + 1
		}
		start = nextStart
	}

	return chunks
}

// findBreakPoint finds a good break point near maxEnd, preferring paragraph
// then sentence then word boundaries.
func (s *Splitter) findBreakPoint(content string, start, maxEnd int) int {
	searchStart := maxEnd - 100
	if searchStart < start {
		searchStart = start
	}

	searchContent := content[searchStart:maxEnd]

	if s.config.PreserveParagraphs {
		if idx := strings.LastIndex(searchContent, "\n\n"); idx != -1 {
			return searchStart + idx + 2
		}
	}

	if s.config.PreserveSentences {
		sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
		bestIdx := -1

		for _, ender := range sentenceEnders {
			if idx := strings.LastIndex(searchContent, ender); idx != -1 {
				endPos := idx + len(ender)
				if endPos > bestIdx {
					bestIdx = endPos
				}
			}
		}

		if bestIdx > 0 {
			return searchStart + bestIdx
		}
	}

	if idx := strings.LastIndex(searchContent, " "); idx != -1 {
		return searchStart + idx + 1
	}

	return maxEnd
}

// normalizeWhitespace normalizes line endings, collapses repeated spaces,
// and trims excess blank lines.
func normalizeWhitespace(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		for strings.Contains(line, "  ") {
			line = strings.ReplaceAll(line, "  ", " ")
		}
		lines[i] = strings.TrimSpace(line)
	}
	content = strings.Join(lines, "\n")

	for strings.Contains(content, "\n\n\n") {
		content = strings.ReplaceAll(content, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(content)
}
