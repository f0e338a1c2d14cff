package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultRetention is how long settled tasks stay around for inspection.
const DefaultRetention = 30 * 24 * time.Hour

type finishedTaskPruner interface {
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job prunes terminal rows out of the scheduled-task queue so the polling
// index stays small. Pending and running tasks are never eligible.
type Job struct {
	pruner    finishedTaskPruner
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func New(pruner finishedTaskPruner, retention time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.pruner == nil {
		return nil
	}

	cutoff := j.now().UTC().Add(-j.retention)
	pruned, err := j.pruner.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune finished tasks: %w", err)
	}

	if pruned > 0 {
		j.logger.Info("pruned finished tasks", zap.Int64("pruned", pruned))
	}
	return nil
}
