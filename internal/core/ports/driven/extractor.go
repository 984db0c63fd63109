package driven

import (
	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// TextExtractor turns a PDF byte stream into paginated text
type TextExtractor interface {
	// Extract returns the extracted pages in order. It returns
	// domain.ErrInvalidInput when the data is not a readable PDF or
	// contains no extractable text.
	Extract(data []byte) ([]domain.Page, error)
}

// ChunkSplitter splits extracted text into bounded-size chunks with
// positional metadata
type ChunkSplitter interface {
	// Split returns the chunk texts in document order. Positions are
	// implied by slice index.
	Split(text string) []string
}
