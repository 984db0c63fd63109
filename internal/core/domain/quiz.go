package domain

import "time"

// RegenerationCooldown is the minimum time between successive quiz
// generations for non-privileged callers.
const RegenerationCooldown = 7 * 24 * time.Hour

// DefaultQuizSize is the number of questions served per attempt.
// Admin callers receive the full bank instead of a sample.
const DefaultQuizSize = 10

const (
	MinQuestionCount = 10
	MaxQuestionCount = 100
	// MaxQuestionsPerBatch caps a single LLM generation call
	MaxQuestionsPerBatch = 20
)

// QuizBankStatus tracks question-bank generation
type QuizBankStatus string

const (
	QuizBankStatusGenerating QuizBankStatus = "generating"
	QuizBankStatusCompleted  QuizBankStatus = "completed"
	QuizBankStatusFailed     QuizBankStatus = "failed"
)

// QuizBank is the full set of generated questions for a document.
// A regeneration supersedes the previous bank; banks are never merged.
type QuizBank struct {
	ID           string         `json:"id"`
	DocumentID   string         `json:"document_id"`
	DocumentSlug string         `json:"document_slug"`
	BankSize     int            `json:"bank_size"`
	QuizSize     int            `json:"quiz_size"`
	Status       QuizBankStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	GeneratedAt  time.Time      `json:"generated_at"`
	GeneratedBy  string         `json:"generated_by"`
}

// QuizQuestion is a single multiple-choice question in a bank
type QuizQuestion struct {
	ID                 string   `json:"id"`
	BankID             string   `json:"bank_id"`
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correct_answer_index"`
}

// GeneratedQuestion is a question as returned by the LLM, before it is
// assigned an ID and persisted.
type GeneratedQuestion struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correct_answer_index"`
}

// Valid reports whether the generated question is well formed
func (q *GeneratedQuestion) Valid() bool {
	return q.Question != "" &&
		len(q.Options) >= 2 &&
		q.CorrectAnswerIndex >= 0 &&
		q.CorrectAnswerIndex < len(q.Options)
}

// QuizAttempt records a scored attempt against a document's bank.
// Attempts are immutable once created; UserID is nil for anonymous attempts.
type QuizAttempt struct {
	ID           string    `json:"id"`
	DocumentSlug string    `json:"document_slug"`
	UserID       *string   `json:"user_id,omitempty"`
	Score        int       `json:"score"`
	QuizSize     int       `json:"quiz_size"`
	QuestionIDs  []string  `json:"question_ids"`
	CompletedAt  time.Time `json:"completed_at"`
}

// AttemptAggregate summarizes attempts for a document
type AttemptAggregate struct {
	TotalAttempts   int        `json:"total_attempts"`
	AverageScore    float64    `json:"average_score"`
	AverageQuizSize float64    `json:"average_quiz_size"`
	LastAttemptAt   *time.Time `json:"last_attempt_at,omitempty"`
	AnonymousCount  int        `json:"anonymous_count"`
}

// QuestionCountForChunks computes the default question count for a document:
// half the chunk count, clamped to [MinQuestionCount, MaxQuestionCount].
func QuestionCountForChunks(chunkCount int) int {
	n := chunkCount / 2
	if n < MinQuestionCount {
		return MinQuestionCount
	}
	if n > MaxQuestionCount {
		return MaxQuestionCount
	}
	return n
}

// ChunkSampleSize computes how many chunks to sample as LLM context for the
// requested question count.
func ChunkSampleSize(questionCount int) int {
	n := questionCount * 2
	if n < MinQuestionCount {
		return MinQuestionCount
	}
	return n
}
