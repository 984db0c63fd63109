package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driving"
)

// Ensure DocumentService implements the driving interface
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService provides document lifecycle and read access
type DocumentService struct {
	documentStore driven.DocumentStore
	chunkStore    driven.ChunkStore
	fileStore     driven.FileStore
	logger        *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(documentStore driven.DocumentStore, chunkStore driven.ChunkStore, fileStore driven.FileStore, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		documentStore: documentStore,
		chunkStore:    chunkStore,
		fileStore:     fileStore,
		logger:        logger,
	}
}

// Upload stores the source file and creates the document record
func (s *DocumentService) Upload(ctx context.Context, req driving.UploadRequest) (*domain.Document, error) {
	if req.Title == "" || req.OwnerID == "" || len(req.Data) == 0 {
		return nil, fmt.Errorf("%w: title, owner, and file data are required", domain.ErrInvalidInput)
	}

	slug, err := s.uniqueSlug(ctx, req.Title)
	if err != nil {
		return nil, err
	}

	fileRef := sourceFilePath(slug)
	if err := s.fileStore.Upload(ctx, fileRef, req.Data, req.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store source file: %w", err)
	}

	doc := &domain.Document{
		ID:            domain.NewID(),
		Slug:          slug,
		Title:         req.Title,
		OwnerID:       req.OwnerID,
		Status:        domain.DocumentStatusUploaded,
		SourceFileRef: fileRef,
		FileSizeBytes: int64(len(req.Data)),
	}
	if err := s.documentStore.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	s.logger.Info("document uploaded",
		"slug", slug,
		"owner_id", req.OwnerID,
		"size_bytes", doc.FileSizeBytes,
	)
	return doc, nil
}

// ReplaceFile uploads a new source file for an existing document
func (s *DocumentService) ReplaceFile(ctx context.Context, slug string, data []byte, contentType string) (*domain.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file data is required", domain.ErrInvalidInput)
	}

	doc, err := s.documentStore.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	fileRef := sourceFilePath(slug)
	if err := s.fileStore.Upload(ctx, fileRef, data, contentType); err != nil {
		return nil, fmt.Errorf("failed to store source file: %w", err)
	}
	if err := s.documentStore.UpdateSourceFile(ctx, slug, fileRef, int64(len(data))); err != nil {
		return nil, fmt.Errorf("failed to update source file reference: %w", err)
	}

	doc.SourceFileRef = fileRef
	doc.FileSizeBytes = int64(len(data))
	return doc, nil
}

// uniqueSlug derives a slug from the title, appending a short suffix when
// the slug is already taken
func (s *DocumentService) uniqueSlug(ctx context.Context, title string) (string, error) {
	slug := domain.Slugify(title)
	if slug == "" {
		return "", fmt.Errorf("%w: title yields an empty slug", domain.ErrInvalidInput)
	}

	_, err := s.documentStore.GetBySlug(ctx, slug)
	if errors.Is(err, domain.ErrNotFound) {
		return slug, nil
	}
	if err != nil {
		return "", err
	}
	return slug + "-" + strings.ToLower(domain.GenerateID()[:6]), nil
}

func sourceFilePath(slug string) string {
	return "documents/" + slug + ".pdf"
}

// GetBySlug retrieves a document by its stable slug
func (s *DocumentService) GetBySlug(ctx context.Context, slug string) (*domain.Document, error) {
	return s.documentStore.GetBySlug(ctx, slug)
}

// GetWithChunks retrieves a document together with its chunks in index order
func (s *DocumentService) GetWithChunks(ctx context.Context, slug string) (*domain.DocumentWithChunks, error) {
	doc, err := s.documentStore.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunkStore.GetByDocument(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	return &domain.DocumentWithChunks{
		Document: doc,
		Chunks:   chunks,
	}, nil
}

// ListByOwner retrieves all documents for an owner with pagination
func (s *DocumentService) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.documentStore.ListByOwner(ctx, ownerID, limit, offset)
}

// Count returns the total number of documents
func (s *DocumentService) Count(ctx context.Context) (int, error) {
	return s.documentStore.Count(ctx)
}
