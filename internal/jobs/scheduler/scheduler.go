package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/joinua/JR-Foxy/internal/domain/model"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultBatchSize    = 30
)

type taskQueue interface {
	FetchDue(ctx context.Context, now time.Time, limit int) ([]model.ScheduledTask, error)
	Claim(ctx context.Context, taskID int64) (bool, error)
	MarkDone(ctx context.Context, taskID int64) error
	MarkFailed(ctx context.Context, taskID int64, taskErr string) error
}

// HandlerFunc executes one claimed task. Handlers must finish quickly;
// anything long-running belongs in a newly scheduled task.
type HandlerFunc func(ctx context.Context, task model.ScheduledTask) error

// Job is the single polling process that drives all time-based transitions.
// It is the only writer that moves tasks out of "pending": each cycle it
// fetches a due batch, claims tasks one by one and records the outcome. One
// task's failure never stops the loop.
type Job struct {
	queue        taskQueue
	handlers     map[string]HandlerFunc
	pollInterval time.Duration
	batchSize    int
	now          func() time.Time
	logger       *zap.Logger
}

func New(queue taskQueue, pollInterval time.Duration, batchSize int, logger *zap.Logger) *Job {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		queue:        queue,
		handlers:     make(map[string]HandlerFunc),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		now:          time.Now,
		logger:       logger,
	}
}

func (j *Job) RegisterHandler(taskType string, handler HandlerFunc) {
	if taskType == "" || handler == nil {
		return
	}
	j.handlers[taskType] = handler
}

// Run polls until the context is cancelled. Fetch errors are logged and
// retried on the next cycle; the persisted queue is the only restart state.
func (j *Job) Run(ctx context.Context) error {
	if j.queue == nil {
		return fmt.Errorf("scheduler task queue is not configured")
	}

	j.logger.Info("scheduler started",
		zap.Duration("poll_interval", j.pollInterval), zap.Int("batch_size", j.batchSize))

	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()

	for {
		if err := j.RunCycle(ctx); err != nil {
			j.logger.Warn("scheduler cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			j.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunCycle processes one due batch. Exported so tests and manual tooling can
// drive the loop without real time passing.
func (j *Job) RunCycle(ctx context.Context) error {
	tasks, err := j.queue.FetchDue(ctx, j.now().UTC(), j.batchSize)
	if err != nil {
		return fmt.Errorf("fetch due tasks: %w", err)
	}

	for _, task := range tasks {
		claimed, err := j.queue.Claim(ctx, task.ID)
		if err != nil {
			j.logger.Warn("task claim failed", zap.Error(err), zap.Int64("task_id", task.ID))
			continue
		}
		if !claimed {
			// Another poller won the claim; not an error.
			continue
		}

		j.execute(ctx, task)
	}

	return nil
}

func (j *Job) execute(ctx context.Context, task model.ScheduledTask) {
	handler, ok := j.handlers[task.TaskType]
	if !ok {
		j.logger.Warn("no handler for task type",
			zap.String("task_type", task.TaskType), zap.Int64("task_id", task.ID))
		j.recordFailure(ctx, task.ID, fmt.Sprintf("no handler registered for task type %q", task.TaskType))
		return
	}

	if err := handler(ctx, task); err != nil {
		j.logger.Warn("task handler failed",
			zap.Error(err), zap.String("task_type", task.TaskType), zap.Int64("task_id", task.ID))
		j.recordFailure(ctx, task.ID, err.Error())
		return
	}

	if err := j.queue.MarkDone(ctx, task.ID); err != nil {
		j.logger.Warn("failed to mark task done", zap.Error(err), zap.Int64("task_id", task.ID))
	}
}

func (j *Job) recordFailure(ctx context.Context, taskID int64, message string) {
	if err := j.queue.MarkFailed(ctx, taskID, message); err != nil {
		j.logger.Warn("failed to mark task failed", zap.Error(err), zap.Int64("task_id", taskID))
	}
}
