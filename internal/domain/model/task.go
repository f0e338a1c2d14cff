package model

import (
	"time"

	"github.com/joinua/JR-Foxy/internal/domain/enums"
)

// ScheduledTask is a persisted deferred action. The scheduler loop is the only
// component that moves a task out of "pending", and it does so through a
// conditional claim so racing pollers cannot run the same task twice.
type ScheduledTask struct {
	ID        int64
	TaskType  string
	RunAt     time.Time
	Status    enums.TaskStatus
	ChatID    *int64
	UserID    *int64
	Payload   *string
	Attempts  int
	LastError *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
