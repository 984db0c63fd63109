package chunker

import (
	"strings"
	"testing"
)

func TestSplitShortText(t *testing.T) {
	s := New(DefaultConfig())

	chunks := s.Split("A short paragraph that fits in one chunk.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := New(DefaultConfig())

	if chunks := s.Split(""); chunks != nil {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
	if chunks := s.Split("   \n\n  "); chunks != nil {
		t.Errorf("expected no chunks for whitespace text, got %d", len(chunks))
	}
}

func TestSplitLongText(t *testing.T) {
	cfg := Config{MaxChunkSize: 100, Overlap: 20, PreserveSentences: true}
	s := New(cfg)

	sentence := "This is a sentence with some words in it. "
	text := strings.Repeat(sentence, 20)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if len(chunk) > cfg.MaxChunkSize {
			t.Errorf("chunk %d exceeds max size: %d chars", i, len(chunk))
		}
		if chunk == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestSplitPrefersSentenceBoundaries(t *testing.T) {
	cfg := Config{MaxChunkSize: 80, Overlap: 10, PreserveSentences: true}
	s := New(cfg)

	text := "First sentence here. Second sentence follows. Third one too. " +
		"Fourth sentence now. Fifth sentence arrives. Sixth sentence ends."

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// First chunk should end at a sentence boundary, not mid-word
	first := strings.TrimSpace(chunks[0])
	if !strings.HasSuffix(first, ".") {
		t.Errorf("expected first chunk to end at a sentence boundary, got %q", first)
	}
}

func TestSplitNormalizesWhitespace(t *testing.T) {
	s := New(DefaultConfig())

	chunks := s.Split("Hello    world\r\nwith\r  messy\n\n\n\nwhitespace")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if strings.Contains(chunks[0], "  ") {
		t.Error("repeated spaces should be collapsed")
	}
	if strings.Contains(chunks[0], "\r") {
		t.Error("carriage returns should be normalized")
	}
	if strings.Contains(chunks[0], "\n\n\n") {
		t.Error("excess blank lines should be trimmed")
	}
}

func TestSplitAlwaysAdvances(t *testing.T) {
	// Degenerate config where overlap >= max size must still terminate
	cfg := Config{MaxChunkSize: 10, Overlap: 10}
	s := New(cfg)

	chunks := s.Split(strings.Repeat("x", 100))
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if len(chunks) > 200 {
		t.Errorf("suspiciously many chunks (%d), splitter may not be advancing", len(chunks))
	}
}
