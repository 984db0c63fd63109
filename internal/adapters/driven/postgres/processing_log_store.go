package postgres

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ProcessingLogStore = (*ProcessingLogStore)(nil)

// ProcessingLogStore implements driven.ProcessingLogStore using PostgreSQL
type ProcessingLogStore struct {
	db *DB
}

// NewProcessingLogStore creates a new ProcessingLogStore
func NewProcessingLogStore(db *DB) *ProcessingLogStore {
	return &ProcessingLogStore{db: db}
}

// Append writes a single log entry. Entries are write-once.
func (s *ProcessingLogStore) Append(ctx context.Context, entry *domain.ProcessingLogEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO processing_logs (id, document_slug, stage, level, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.DocumentSlug,
		entry.Stage,
		entry.Level,
		entry.Message,
		metadataJSON,
		entry.CreatedAt,
	)
	return err
}

// ListBySlug retrieves all entries for a document slug in append order
func (s *ProcessingLogStore) ListBySlug(ctx context.Context, slug string) ([]*domain.ProcessingLogEntry, error) {
	query := `
		SELECT id, document_slug, stage, level, message, metadata, created_at
		FROM processing_logs
		WHERE document_slug = $1
		ORDER BY created_at, id
	`

	rows, err := s.db.QueryContext(ctx, query, slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.ProcessingLogEntry
	for rows.Next() {
		var entry domain.ProcessingLogEntry
		var metadataJSON []byte
		err := rows.Scan(
			&entry.ID,
			&entry.DocumentSlug,
			&entry.Stage,
			&entry.Level,
			&entry.Message,
			&metadataJSON,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, err
			}
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
