package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// GenerateQuizRequest asks for a question bank to be generated
type GenerateQuizRequest struct {
	DocumentSlug string `json:"document_slug"`

	// RequestedQuestionCount overrides the chunk-derived default when set.
	// Must be in [1, 100].
	RequestedQuestionCount *int `json:"requested_question_count,omitempty"`

	CallerID  string           `json:"caller_id"`
	Privilege domain.Privilege `json:"privilege"`
}

// GenerateQuizResponse reports a completed generation
type GenerateQuizResponse struct {
	Success      bool `json:"success"`
	NumQuestions int  `json:"num_questions"`
}

// ServedQuestion is a question as served to quiz takers: the correct answer
// index is withheld.
type ServedQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// QuizResponse is the payload returned by GetQuiz
type QuizResponse struct {
	Questions   []*ServedQuestion `json:"questions"`
	QuestionIDs []string          `json:"question_ids"`
	QuizSize    int               `json:"quiz_size"`
	BankSize    int               `json:"bank_size"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// RecordAttemptRequest submits a scored attempt
type RecordAttemptRequest struct {
	DocumentSlug string   `json:"document_slug"`
	UserID       *string  `json:"user_id,omitempty"` // nil for anonymous
	Score        int      `json:"score"`
	QuestionIDs  []string `json:"question_ids,omitempty"`
}

// AttemptResponse is the persisted attempt
type AttemptResponse struct {
	AttemptID      string    `json:"attempt_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	CompletedAt    time.Time `json:"completed_at"`
}

// QuizStatistics aggregates attempts for a document
type QuizStatistics struct {
	DocumentSlug    string     `json:"document_slug"`
	BankSize        int        `json:"bank_size"`
	TotalAttempts   int        `json:"total_attempts"`
	AverageScore    float64    `json:"average_score"`
	AverageQuizSize float64    `json:"average_quiz_size"`
	LastAttemptAt   *time.Time `json:"last_attempt_at,omitempty"`
}

// QuizService generates, serves, and scores quizzes
type QuizService interface {
	// GenerateQuiz samples chunks, invokes the LLM in batches of at most 20
	// questions, and persists the resulting bank. Enforces the 7-day
	// regeneration cooldown for non-privileged callers.
	GenerateQuiz(ctx context.Context, req GenerateQuizRequest) (*GenerateQuizResponse, error)

	// GetQuiz returns the full bank for privileged callers or wantAll, or a
	// uniform random sample of quiz-size questions otherwise
	GetQuiz(ctx context.Context, slug string, wantAll bool, privilege domain.Privilege) (*QuizResponse, error)

	// RecordAttempt persists a scored attempt. Anonymous attempts allowed.
	RecordAttempt(ctx context.Context, req RecordAttemptRequest) (*AttemptResponse, error)

	// GetStatistics aggregates attempt counts and averages for a document.
	// Requires the bank to exist.
	GetStatistics(ctx context.Context, slug string) (*QuizStatistics, error)
}
