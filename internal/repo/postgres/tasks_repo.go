package postgres

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joinua/JR-Foxy/internal/domain/enums"
	"github.com/joinua/JR-Foxy/internal/domain/model"
)

const maxTaskErrorLen = 500

type TasksRepo struct {
	pool *pgxpool.Pool
}

func NewTasksRepo(pool *pgxpool.Pool) *TasksRepo {
	return &TasksRepo{pool: pool}
}

type ScheduleTaskParams struct {
	TaskType string
	RunAt    time.Time
	ChatID   *int64
	UserID   *int64
	Payload  *string
}

func (r *TasksRepo) Schedule(ctx context.Context, params ScheduleTaskParams) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if params.TaskType == "" {
		return 0, fmt.Errorf("task type is required")
	}

	var id int64
	if err := r.pool.QueryRow(ctx, `
INSERT INTO scheduled_tasks (task_type, run_at, status, chat_id, user_id, payload)
VALUES ($1, $2, 'pending', $3, $4, $5)
RETURNING id
`, params.TaskType, params.RunAt, params.ChatID, params.UserID, params.Payload).Scan(&id); err != nil {
		return 0, fmt.Errorf("schedule task: %w", err)
	}

	return id, nil
}

// CancelPending retracts still-pending tasks of a type, optionally narrowed by
// chat and user correlation ids. Claimed tasks are left alone: a running task
// finishes or fails on its own.
func (r *TasksRepo) CancelPending(ctx context.Context, taskType string, chatID, userID *int64) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if taskType == "" {
		return 0, fmt.Errorf("task type is required")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE scheduled_tasks
SET status = 'cancelled', updated_at = NOW()
WHERE task_type = $1
  AND status = 'pending'
  AND ($2::BIGINT IS NULL OR chat_id = $2)
  AND ($3::BIGINT IS NULL OR user_id = $3)
`, taskType, chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("cancel pending tasks: %w", err)
	}

	return tag.RowsAffected(), nil
}

// FetchDue lists pending tasks whose run time has passed, oldest due first
// with id as the FIFO tie-break.
func (r *TasksRepo) FetchDue(ctx context.Context, now time.Time, limit int) ([]model.ScheduledTask, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, task_type, run_at, status, chat_id, user_id, payload, attempts, last_error, created_at, updated_at
FROM scheduled_tasks
WHERE status = 'pending' AND run_at <= $1
ORDER BY run_at ASC, id ASC
LIMIT $2
`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// Claim is the concurrency-critical primitive: a single conditional update
// whose affected-row count is the only source of truth for claim ownership.
func (r *TasksRepo) Claim(ctx context.Context, taskID int64) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE scheduled_tasks
SET status = 'running', attempts = attempts + 1, updated_at = NOW()
WHERE id = $1 AND status = 'pending'
`, taskID)
	if err != nil {
		return false, fmt.Errorf("claim task: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *TasksRepo) MarkDone(ctx context.Context, taskID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE scheduled_tasks
SET status = 'done', updated_at = NOW()
WHERE id = $1
`, taskID); err != nil {
		return fmt.Errorf("mark task done: %w", err)
	}

	return nil
}

// MarkFailed records the error text (truncated) and leaves the task terminal.
// Failed tasks are never retried automatically.
func (r *TasksRepo) MarkFailed(ctx context.Context, taskID int64, taskErr string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE scheduled_tasks
SET status = 'failed', last_error = $2, updated_at = NOW()
WHERE id = $1
`, taskID, truncateTaskError(taskErr)); err != nil {
		return fmt.Errorf("mark task failed: %w", err)
	}

	return nil
}

// truncateTaskError caps the stored error text without cutting a multi-byte
// rune in half; Postgres rejects text that is not valid UTF-8.
func truncateTaskError(taskErr string) string {
	if len(taskErr) <= maxTaskErrorLen {
		return taskErr
	}
	cut := maxTaskErrorLen
	for cut > 0 && !utf8.RuneStart(taskErr[cut]) {
		cut--
	}
	return taskErr[:cut]
}

// DeleteFinishedBefore removes terminal tasks last touched before the cutoff.
// Pending and running rows are never touched: the audit trail of live work
// stays intact, only settled history is pruned.
func (r *TasksRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM scheduled_tasks
WHERE status IN ('done', 'failed', 'cancelled') AND updated_at < $1
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete finished tasks: %w", err)
	}

	return tag.RowsAffected(), nil
}

func collectTasks(rows pgx.Rows) ([]model.ScheduledTask, error) {
	var tasks []model.ScheduledTask
	for rows.Next() {
		var task model.ScheduledTask
		var status string
		if err := rows.Scan(
			&task.ID,
			&task.TaskType,
			&task.RunAt,
			&status,
			&task.ChatID,
			&task.UserID,
			&task.Payload,
			&task.Attempts,
			&task.LastError,
			&task.CreatedAt,
			&task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		task.Status = enums.TaskStatus(status)
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return tasks, nil
}
