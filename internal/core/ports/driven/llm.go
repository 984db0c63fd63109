package driven

import (
	"context"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// QuestionGenerator produces quiz questions from document chunks via a
// large language model. Calls are fallible and have provider-side latency
// variance; callers batch requests to stay within per-call limits.
type QuestionGenerator interface {
	// GenerateQuestions asks the model for count multiple-choice questions
	// grounded on the given chunk texts. The model may return fewer
	// questions than requested.
	GenerateQuestions(ctx context.Context, chunks []string, count int) ([]*domain.GeneratedQuestion, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}
