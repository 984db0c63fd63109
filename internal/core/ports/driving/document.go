package driving

import (
	"context"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// UploadRequest carries a new source document
type UploadRequest struct {
	Title       string `json:"title"`
	OwnerID     string `json:"owner_id"`
	Data        []byte `json:"-"`
	ContentType string `json:"content_type"`
}

// DocumentService provides document lifecycle and read access
type DocumentService interface {
	// Upload stores the source file and creates the document record in
	// status uploaded. The slug is derived from the title and made unique.
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)

	// ReplaceFile uploads a new source file for an existing document,
	// updating its file reference and size. The slug stays stable; the
	// caller follows up with a retrain run to rebuild chunks.
	ReplaceFile(ctx context.Context, slug string, data []byte, contentType string) (*domain.Document, error)

	// GetBySlug retrieves a document by its stable slug
	GetBySlug(ctx context.Context, slug string) (*domain.Document, error)

	// GetWithChunks retrieves a document with its chunks
	GetWithChunks(ctx context.Context, slug string) (*domain.DocumentWithChunks, error)

	// ListByOwner retrieves all documents for an owner
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error)

	// Count returns the total number of documents
	Count(ctx context.Context) (int, error)
}
