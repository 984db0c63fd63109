package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `id, slug, title, owner_id, status, source_file_ref, file_size_bytes, error_message, quiz_generated, created_at, updated_at`

// Save creates or updates a document
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (id, slug, title, owner_id, status, source_file_ref, file_size_bytes, error_message, quiz_generated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			status = EXCLUDED.status,
			source_file_ref = EXCLUDED.source_file_ref,
			file_size_bytes = EXCLUDED.file_size_bytes,
			error_message = EXCLUDED.error_message,
			quiz_generated = EXCLUDED.quiz_generated,
			updated_at = EXCLUDED.updated_at
	`

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	doc.UpdatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Slug,
		doc.Title,
		doc.OwnerID,
		doc.Status,
		doc.SourceFileRef,
		doc.FileSizeBytes,
		doc.ErrorMessage,
		doc.QuizGenerated,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return s.scanDocument(s.db.QueryRowContext(ctx, query, id))
}

// GetBySlug retrieves a document by its stable slug
func (s *DocumentStore) GetBySlug(ctx context.Context, slug string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE slug = $1`
	return s.scanDocument(s.db.QueryRowContext(ctx, query, slug))
}

// ListByOwner retrieves all documents for an owner with pagination
func (s *DocumentStore) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := s.scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateStatus sets the processing status and error message.
// An empty errorMessage clears any previously recorded error.
func (s *DocumentStore) UpdateStatus(ctx context.Context, slug string, status domain.DocumentStatus, errorMessage string) error {
	query := `
		UPDATE documents
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE slug = $1
	`

	result, err := s.db.ExecContext(ctx, query, slug, status, errorMessage)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

// SetQuizGenerated flags the document as having a generated quiz
func (s *DocumentStore) SetQuizGenerated(ctx context.Context, slug string, generated bool) error {
	query := `UPDATE documents SET quiz_generated = $2, updated_at = NOW() WHERE slug = $1`

	result, err := s.db.ExecContext(ctx, query, slug, generated)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

// UpdateSourceFile updates the source file reference and size
func (s *DocumentStore) UpdateSourceFile(ctx context.Context, slug string, fileRef string, sizeBytes int64) error {
	query := `
		UPDATE documents
		SET source_file_ref = $2, file_size_bytes = $3, updated_at = NOW()
		WHERE slug = $1
	`

	result, err := s.db.ExecContext(ctx, query, slug, fileRef, sizeBytes)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

// Count returns total document count
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *DocumentStore) scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	err := row.Scan(
		&doc.ID,
		&doc.Slug,
		&doc.Title,
		&doc.OwnerID,
		&doc.Status,
		&doc.SourceFileRef,
		&doc.FileSizeBytes,
		&doc.ErrorMessage,
		&doc.QuizGenerated,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
