package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.QuizBankStore = (*QuizBankStore)(nil)

// QuizBankStore implements driven.QuizBankStore using PostgreSQL
type QuizBankStore struct {
	db *DB
}

// NewQuizBankStore creates a new QuizBankStore
func NewQuizBankStore(db *DB) *QuizBankStore {
	return &QuizBankStore{db: db}
}

// Save creates or updates a bank record
func (s *QuizBankStore) Save(ctx context.Context, bank *domain.QuizBank) error {
	query := `
		INSERT INTO quiz_banks (id, document_id, document_slug, bank_size, quiz_size, status, error_message, generated_at, generated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			bank_size = EXCLUDED.bank_size,
			quiz_size = EXCLUDED.quiz_size,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message
	`

	_, err := s.db.ExecContext(ctx, query,
		bank.ID,
		bank.DocumentID,
		bank.DocumentSlug,
		bank.BankSize,
		bank.QuizSize,
		bank.Status,
		bank.ErrorMessage,
		bank.GeneratedAt,
		bank.GeneratedBy,
	)
	return err
}

// GetLatestBySlug retrieves the most recently generated bank for a slug
func (s *QuizBankStore) GetLatestBySlug(ctx context.Context, slug string) (*domain.QuizBank, error) {
	query := `
		SELECT id, document_id, document_slug, bank_size, quiz_size, status, error_message, generated_at, generated_by
		FROM quiz_banks
		WHERE document_slug = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`
	return s.getBank(ctx, query, slug)
}

// GetLatestCompletedBySlug retrieves the most recent completed bank for a
// slug. Generating and failed banks are skipped so a failed regeneration
// never shadows a servable bank.
func (s *QuizBankStore) GetLatestCompletedBySlug(ctx context.Context, slug string) (*domain.QuizBank, error) {
	query := `
		SELECT id, document_id, document_slug, bank_size, quiz_size, status, error_message, generated_at, generated_by
		FROM quiz_banks
		WHERE document_slug = $1 AND status = $2
		ORDER BY generated_at DESC
		LIMIT 1
	`
	return s.getBank(ctx, query, slug, string(domain.QuizBankStatusCompleted))
}

func (s *QuizBankStore) getBank(ctx context.Context, query string, args ...any) (*domain.QuizBank, error) {
	var bank domain.QuizBank
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&bank.ID,
		&bank.DocumentID,
		&bank.DocumentSlug,
		&bank.BankSize,
		&bank.QuizSize,
		&bank.Status,
		&bank.ErrorMessage,
		&bank.GeneratedAt,
		&bank.GeneratedBy,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bank, nil
}

// SaveQuestions persists all questions for a bank in a transaction
func (s *QuizBankStore) SaveQuestions(ctx context.Context, bankID string, questions []*domain.QuizQuestion) error {
	if len(questions) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO quiz_questions (id, bank_id, question, options, correct_answer_index)
			VALUES ($1, $2, $3, $4, $5)
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, q := range questions {
			optionsJSON, err := json.Marshal(q.Options)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, q.ID, bankID, q.Question, optionsJSON, q.CorrectAnswerIndex); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetQuestions retrieves all questions for a bank
func (s *QuizBankStore) GetQuestions(ctx context.Context, bankID string) ([]*domain.QuizQuestion, error) {
	query := `
		SELECT id, bank_id, question, options, correct_answer_index
		FROM quiz_questions
		WHERE bank_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, bankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// SampleQuestions returns up to n questions chosen uniformly at random
// without replacement
func (s *QuizBankStore) SampleQuestions(ctx context.Context, bankID string, n int) ([]*domain.QuizQuestion, error) {
	query := `
		SELECT id, bank_id, question, options, correct_answer_index
		FROM quiz_questions
		WHERE bank_id = $1
		ORDER BY random()
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, bankID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func scanQuestions(rows *sql.Rows) ([]*domain.QuizQuestion, error) {
	var questions []*domain.QuizQuestion
	for rows.Next() {
		var q domain.QuizQuestion
		var optionsJSON []byte
		if err := rows.Scan(&q.ID, &q.BankID, &q.Question, &optionsJSON, &q.CorrectAnswerIndex); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
			return nil, err
		}
		questions = append(questions, &q)
	}
	return questions, rows.Err()
}
