package driven

import (
	"context"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// QuizBankStore handles question-bank persistence (PostgreSQL)
type QuizBankStore interface {
	// Save creates or updates a bank record
	Save(ctx context.Context, bank *domain.QuizBank) error

	// GetLatestBySlug retrieves the most recently generated bank for a
	// document slug
	GetLatestBySlug(ctx context.Context, slug string) (*domain.QuizBank, error)

	// GetLatestCompletedBySlug retrieves the most recent completed bank
	// for a document slug, skipping generating and failed banks
	GetLatestCompletedBySlug(ctx context.Context, slug string) (*domain.QuizBank, error)

	// SaveQuestions persists all questions for a bank in a transaction
	SaveQuestions(ctx context.Context, bankID string, questions []*domain.QuizQuestion) error

	// GetQuestions retrieves all questions for a bank
	GetQuestions(ctx context.Context, bankID string) ([]*domain.QuizQuestion, error)

	// SampleQuestions returns up to n questions for a bank, chosen uniformly
	// at random without replacement
	SampleQuestions(ctx context.Context, bankID string, n int) ([]*domain.QuizQuestion, error)
}

// QuizAttemptStore handles attempt persistence (PostgreSQL)
type QuizAttemptStore interface {
	// Save persists a new attempt. Attempts are immutable once created.
	Save(ctx context.Context, attempt *domain.QuizAttempt) error

	// Aggregate returns attempt statistics for a document slug
	Aggregate(ctx context.Context, slug string) (*domain.AttemptAggregate, error)
}
