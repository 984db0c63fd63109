package driven

import (
	"context"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// DocumentStore handles document persistence (PostgreSQL)
type DocumentStore interface {
	// Save creates or updates a document
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// GetBySlug retrieves a document by its stable slug
	GetBySlug(ctx context.Context, slug string) (*domain.Document, error)

	// ListByOwner retrieves all documents for an owner with pagination
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error)

	// UpdateStatus sets the processing status and error message for a document.
	// An empty errorMessage clears any previously recorded error.
	UpdateStatus(ctx context.Context, slug string, status domain.DocumentStatus, errorMessage string) error

	// SetQuizGenerated flags the document as having a generated quiz
	SetQuizGenerated(ctx context.Context, slug string, generated bool) error

	// UpdateSourceFile updates the source file reference and size.
	// Used by retrain when a new upload replaces the original file.
	UpdateSourceFile(ctx context.Context, slug string, fileRef string, sizeBytes int64) error

	// Count returns total document count
	Count(ctx context.Context) (int, error)
}

// ChunkStore handles chunk persistence (PostgreSQL)
type ChunkStore interface {
	// SaveBatch saves multiple chunks in a transaction
	SaveBatch(ctx context.Context, chunks []*domain.Chunk) error

	// GetByDocument retrieves all chunks for a document, ordered by index
	GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error)

	// CountBySlug returns the chunk count for a document slug
	CountBySlug(ctx context.Context, slug string) (int, error)

	// SampleBySlug returns up to n chunks for a document slug, chosen
	// uniformly at random without replacement
	SampleBySlug(ctx context.Context, slug string, n int) ([]*domain.Chunk, error)

	// DeleteBySlug deletes all chunks for a document slug and returns the
	// number of chunks removed
	DeleteBySlug(ctx context.Context, slug string) (int, error)
}

// ProcessingLogStore persists append-only processing log entries
type ProcessingLogStore interface {
	// Append writes a single log entry. Entries are write-once.
	Append(ctx context.Context, entry *domain.ProcessingLogEntry) error

	// ListBySlug retrieves all entries for a document slug in append order
	ListBySlug(ctx context.Context, slug string) ([]*domain.ProcessingLogEntry, error)
}
