package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore using PostgreSQL.
// Embeddings are stored inline as float arrays.
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// SaveBatch saves multiple chunks in a transaction
func (s *ChunkStore) SaveBatch(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO chunks (id, document_id, document_slug, position, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				position = EXCLUDED.position,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			_, err = stmt.ExecContext(ctx,
				chunk.ID,
				chunk.DocumentID,
				chunk.DocumentSlug,
				chunk.Index,
				chunk.Text,
				pq.Array(chunk.Embedding),
				chunk.CreatedAt,
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// GetByDocument retrieves all chunks for a document, ordered by index
func (s *ChunkStore) GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	query := `
		SELECT id, document_id, document_slug, position, content, embedding, created_at
		FROM chunks
		WHERE document_id = $1
		ORDER BY position
	`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunks(rows)
}

// CountBySlug returns the chunk count for a document slug
func (s *ChunkStore) CountBySlug(ctx context.Context, slug string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE document_slug = $1`, slug).Scan(&count)
	return count, err
}

// SampleBySlug returns up to n chunks chosen uniformly at random
func (s *ChunkStore) SampleBySlug(ctx context.Context, slug string, n int) ([]*domain.Chunk, error) {
	query := `
		SELECT id, document_id, document_slug, position, content, embedding, created_at
		FROM chunks
		WHERE document_slug = $1
		ORDER BY random()
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, slug, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunks(rows)
}

// DeleteBySlug deletes all chunks for a document slug and reports how many
// were removed
func (s *ChunkStore) DeleteBySlug(ctx context.Context, slug string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_slug = $1`, slug)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

func scanChunks(rows *sql.Rows) ([]*domain.Chunk, error) {
	var chunks []*domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var embedding pq.Float32Array
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.DocumentSlug,
			&chunk.Index,
			&chunk.Text,
			&embedding,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		chunk.Embedding = []float32(embedding)
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}
