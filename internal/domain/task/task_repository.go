package task

import (
	"context"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// TaskFilter narrows task listings
type TaskFilter struct {
	shared.Filter
	Status   Status
	Priority Priority
	// Assignee restricts results to tasks assigned to this user when set
	Assignee *uuid.UUID
}

// Stats is the per-status breakdown of the task board
type Stats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Overdue    int64 `json:"overdue"`
}

// TaskRepository defines the interface for task persistence
type TaskRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)
	FindAll(ctx context.Context, filter TaskFilter) ([]Task, error)
	Count(ctx context.Context, filter TaskFilter) (int64, error)
	Save(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Stats counts tasks by status; overdue counts open tasks due before now
	Stats(ctx context.Context, assignee *uuid.UUID, now time.Time) (Stats, error)

	AppendAudit(ctx context.Context, entry AuditLogEntry) error
	ListAudit(ctx context.Context, taskID uuid.UUID) ([]AuditLogEntry, error)
}
