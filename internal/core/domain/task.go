package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// NewID returns a UUID string for persistent entities
func NewID() string {
	return uuid.NewString()
}

// GenerateID creates a short random ID for transient items (tasks, lock owners)
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// TaskType identifies the type of background task
type TaskType string

const (
	// TaskTypeProcessDocument runs the extract/chunk/embed pipeline
	TaskTypeProcessDocument TaskType = "process_document"

	// TaskTypeGenerateQuiz regenerates a document's question bank
	TaskTypeGenerateQuiz TaskType = "generate_quiz"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a background job to be processed by workers
type Task struct {
	ID string `json:"id"`

	Type TaskType `json:"type"`

	// Payload contains task-specific data.
	// For process_document: {"document_slug": "...", "mode": "initial|retrain"}
	Payload map[string]string `json:"payload"`

	Status TaskStatus `json:"status"`

	// Attempts is how many times this task has been attempted
	Attempts int `json:"attempts"`

	// MaxAttempts is the maximum retry count before giving up
	MaxAttempts int `json:"max_attempts"`

	// Error contains the last error message if failed
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ScheduledFor delays execution when set in the future (retry backoff)
	ScheduledFor time.Time `json:"scheduled_for,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewTask creates a new task with default values
func NewTask(taskType TaskType, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:          GenerateID(),
		Type:        taskType,
		Payload:     payload,
		Status:      TaskStatusPending,
		Attempts:    0,
		MaxAttempts: 3,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewProcessDocumentTask creates a task to process a document
func NewProcessDocumentTask(slug string, mode ProcessMode) *Task {
	return NewTask(TaskTypeProcessDocument, map[string]string{
		"document_slug": slug,
		"mode":          string(mode),
	})
}

// NewGenerateQuizTask creates a task to generate a question bank on behalf
// of the given caller
func NewGenerateQuizTask(slug, callerID string, privilege Privilege) *Task {
	return NewTask(TaskTypeGenerateQuiz, map[string]string{
		"document_slug": slug,
		"caller_id":     callerID,
		"privilege":     string(privilege),
	})
}

// DocumentSlug returns the document slug from the payload, if present
func (t *Task) DocumentSlug() string {
	return t.Payload["document_slug"]
}

// CallerID returns the requesting user's ID from the payload, if present
func (t *Task) CallerID() string {
	return t.Payload["caller_id"]
}

// CallerPrivilege returns the caller's privilege from the payload,
// defaulting to none
func (t *Task) CallerPrivilege() Privilege {
	switch p := Privilege(t.Payload["privilege"]); p {
	case PrivilegeOwnerAdmin, PrivilegeSuperAdmin:
		return p
	default:
		return PrivilegeNone
	}
}

// Mode returns the processing mode from the payload, defaulting to initial
func (t *Task) Mode() ProcessMode {
	if m := ProcessMode(t.Payload["mode"]); m.Valid() {
		return m
	}
	return ProcessModeInitial
}

// CanRetry reports whether the task has retry attempts remaining
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// MarkProcessing transitions the task to processing and counts the attempt
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.Attempts++
	t.StartedAt = &now
	t.UpdatedAt = now
}

// MarkCompleted transitions the task to completed
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// MarkFailed transitions the task to failed with the given reason
func (t *Task) MarkFailed(reason string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.Error = reason
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// Retry requeues the task with exponential backoff
func (t *Task) Retry(reason string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.Error = reason
	t.ScheduledFor = now.Add(retryBackoff(t.Attempts))
	t.UpdatedAt = now
}

// retryBackoff returns the delay before the next attempt: 30s, 1m, 2m, ...
func retryBackoff(attempts int) time.Duration {
	backoff := 30 * time.Second
	for i := 1; i < attempts; i++ {
		backoff *= 2
		if backoff > 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return backoff
}
