// Package extract turns uploaded PDF byte streams into paginated text.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TextExtractor = (*PDFExtractor)(nil)

// PDFExtractor extracts plain text from PDF documents
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDFExtractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract returns the extracted pages in order. Pages that yield no text are
// skipped; a document with no extractable text at all is invalid input.
func (e *PDFExtractor) Extract(data []byte) ([]domain.Page, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open PDF: %v", domain.ErrInvalidInput, err)
	}

	var pages []domain.Page
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no extractable text", domain.ErrInvalidInput)
	}

	return pages, nil
}
