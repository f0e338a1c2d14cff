package cleanup

import (
	"context"
	"testing"
	"time"
)

type finishedTask struct {
	status    string
	updatedAt time.Time
}

type fakePruner struct {
	tasks []finishedTask
}

func (f *fakePruner) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []finishedTask
	var pruned int64
	for _, task := range f.tasks {
		terminal := task.status == "done" || task.status == "failed" || task.status == "cancelled"
		if terminal && task.updatedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, task)
	}
	f.tasks = kept
	return pruned, nil
}

func TestRunPrunesOnlyStaleTerminalTasks(t *testing.T) {
	now := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
	retention := 30 * 24 * time.Hour

	pruner := &fakePruner{
		tasks: []finishedTask{
			{status: "done", updatedAt: now.Add(-31 * 24 * time.Hour)},
			{status: "cancelled", updatedAt: now.Add(-40 * 24 * time.Hour)},
			{status: "done", updatedAt: now.Add(-24 * time.Hour)},
			{status: "pending", updatedAt: now.Add(-90 * 24 * time.Hour)},
		},
	}

	job := New(pruner, retention, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	if len(pruner.tasks) != 2 {
		t.Fatalf("expected 2 surviving tasks, got %d", len(pruner.tasks))
	}
	for _, task := range pruner.tasks {
		if task.status == "pending" {
			continue
		}
		if task.updatedAt.Before(now.Add(-retention)) {
			t.Fatalf("stale terminal task survived: %+v", task)
		}
	}
}

func TestRunWithoutPrunerIsNoOp(t *testing.T) {
	job := New(nil, 0, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected nil error for unconfigured job, got %v", err)
	}
}
