package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// Ensure Queue implements TaskQueue
var _ driven.TaskQueue = (*Queue)(nil)

// pollInterval is how often the dequeue loop re-checks for work
const pollInterval = time.Second

// Queue implements TaskQueue using PostgreSQL with SKIP LOCKED for reliable
// task processing. This is the fallback queue when Redis is not available.
type Queue struct {
	db *sql.DB
}

// NewQueue creates a new PostgreSQL-backed task queue.
// Assumes the task_queue table has been created via schema initialization.
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue adds a task to the queue
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO task_queue (
			id, type, payload, status,
			attempts, max_attempts, error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = q.db.ExecContext(ctx, query,
		task.ID,
		task.Type,
		payload,
		task.Status,
		task.Attempts,
		task.MaxAttempts,
		task.Error,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	return nil
}

// DequeueWithTimeout retrieves the next task, polling up to timeout seconds.
// Returns nil, nil if no task became available.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	deadline := time.Now().Add(time.Duration(timeout) * time.Second)

	for {
		task, err := q.tryDequeue(ctx)
		if err != nil {
			return nil, err
		}
		if task != nil {
			return task, nil
		}
		if timeout > 0 && time.Now().After(deadline) {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(pollInterval):
		}
	}
}

// tryDequeue atomically claims the oldest pending task using SKIP LOCKED,
// so only one worker gets each task even with multiple workers.
func (q *Queue) tryDequeue(ctx context.Context) (*domain.Task, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	selectQuery := `
		SELECT id, type, payload, status, attempts, max_attempts, error, created_at, updated_at
		FROM task_queue
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	var task domain.Task
	var payload []byte
	err = tx.QueryRowContext(ctx, selectQuery, domain.TaskStatusPending).Scan(
		&task.ID,
		&task.Type,
		&payload,
		&task.Status,
		&task.Attempts,
		&task.MaxAttempts,
		&task.Error,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select task: %w", err)
	}

	if err := json.Unmarshal(payload, &task.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	task.MarkProcessing()

	updateQuery := `
		UPDATE task_queue
		SET status = $2, attempts = $3, started_at = $4, updated_at = $5
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, updateQuery, task.ID, task.Status, task.Attempts, task.StartedAt, task.UpdatedAt); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &task, nil
}

// Ack acknowledges successful completion of a task
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	query := `
		UPDATE task_queue
		SET status = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	_, err := q.db.ExecContext(ctx, query, taskID, domain.TaskStatusCompleted)
	if err != nil {
		return fmt.Errorf("ack task: %w", err)
	}
	return nil
}

// Nack indicates task processing failed. The task returns to pending while
// retries remain, otherwise it is marked failed.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	query := `
		UPDATE task_queue
		SET status = CASE WHEN attempts < max_attempts THEN $2 ELSE $3 END,
		    error = $4,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := q.db.ExecContext(ctx, query, taskID,
		domain.TaskStatusPending, domain.TaskStatusFailed, reason)
	if err != nil {
		return fmt.Errorf("nack task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	query := `
		SELECT id, type, payload, status, attempts, max_attempts, error, created_at, updated_at
		FROM task_queue
		WHERE id = $1
	`

	var task domain.Task
	var payload []byte
	err := q.db.QueryRowContext(ctx, query, taskID).Scan(
		&task.ID,
		&task.Type,
		&payload,
		&task.Status,
		&task.Attempts,
		&task.MaxAttempts,
		&task.Error,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	if err := json.Unmarshal(payload, &task.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	return &task, nil
}

// Stats returns queue statistics
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM task_queue
	`

	var stats driven.QueueStats
	err := q.db.QueryRowContext(ctx, query).Scan(
		&stats.PendingCount,
		&stats.ProcessingCount,
		&stats.CompletedCount,
		&stats.FailedCount,
	)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return &stats, nil
}

// Ping checks if the queue backend is healthy
func (q *Queue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Close cleans up resources
func (q *Queue) Close() error {
	// The DB handle is shared, don't close it here
	return nil
}
