package domain

import (
	"strings"
	"time"
	"unicode"
)

// DocumentStatus tracks a document through the processing pipeline
type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents an uploaded source document
type Document struct {
	ID            string         `json:"id"`
	Slug          string         `json:"slug"` // Stable, human-readable, immutable across retrains
	Title         string         `json:"title"`
	OwnerID       string         `json:"owner_id"`
	Status        DocumentStatus `json:"status"`
	SourceFileRef string         `json:"source_file_ref"` // Path in the file store
	FileSizeBytes int64          `json:"file_size_bytes"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	QuizGenerated bool           `json:"quiz_generated"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CanStartProcessing reports whether a processing run may begin for the
// given mode. Allowed transitions:
//
//	uploaded -> processing
//	failed   -> processing (retry or retrain)
//	ready    -> processing (retrain only)
func (d *Document) CanStartProcessing(mode ProcessMode) bool {
	switch d.Status {
	case DocumentStatusUploaded, DocumentStatusFailed:
		return true
	case DocumentStatusReady:
		return mode == ProcessModeRetrain
	default:
		return false
	}
}

// Slugify derives a URL-safe slug from a document title: lowercase,
// non-alphanumeric runs collapsed to single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		} else {
			pendingHyphen = true
		}
	}
	return b.String()
}

// Chunk represents a bounded span of a document's extracted text plus its
// embedding vector. Chunk indices for a document are contiguous 0..N-1.
type Chunk struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	DocumentSlug string    `json:"document_slug"`
	Index        int       `json:"index"`
	Text         string    `json:"text"`
	Embedding    []float32 `json:"embedding,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Page is a single page of extracted text
type Page struct {
	Number int    `json:"number"` // 1-based
	Text   string `json:"text"`
}

// DocumentWithChunks combines a document with its chunks
type DocumentWithChunks struct {
	Document *Document `json:"document"`
	Chunks   []*Chunk  `json:"chunks"`
}
