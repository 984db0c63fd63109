package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.QuizAttemptStore = (*QuizAttemptStore)(nil)

// QuizAttemptStore implements driven.QuizAttemptStore using PostgreSQL
type QuizAttemptStore struct {
	db *DB
}

// NewQuizAttemptStore creates a new QuizAttemptStore
func NewQuizAttemptStore(db *DB) *QuizAttemptStore {
	return &QuizAttemptStore{db: db}
}

// Save persists a new attempt. Attempts are immutable once created.
func (s *QuizAttemptStore) Save(ctx context.Context, attempt *domain.QuizAttempt) error {
	questionIDsJSON, err := json.Marshal(attempt.QuestionIDs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO quiz_attempts (id, document_slug, user_id, score, quiz_size, question_ids, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.DocumentSlug,
		NullString(attempt.UserID),
		attempt.Score,
		attempt.QuizSize,
		questionIDsJSON,
		attempt.CompletedAt,
	)
	return err
}

// Aggregate returns attempt statistics for a document slug
func (s *QuizAttemptStore) Aggregate(ctx context.Context, slug string) (*domain.AttemptAggregate, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(AVG(score), 0),
			COALESCE(AVG(quiz_size), 0),
			COUNT(*) FILTER (WHERE user_id IS NULL),
			MAX(completed_at)
		FROM quiz_attempts
		WHERE document_slug = $1
	`

	var agg domain.AttemptAggregate
	var lastAttempt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, slug).Scan(
		&agg.TotalAttempts,
		&agg.AverageScore,
		&agg.AverageQuizSize,
		&agg.AnonymousCount,
		&lastAttempt,
	)
	if err != nil {
		return nil, err
	}
	agg.LastAttemptAt = TimePtr(lastAttempt)
	return &agg, nil
}
