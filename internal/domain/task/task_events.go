package task

import (
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

const AggregateTypeTask = "Task"

const (
	EventTypeTaskCreated       = "task.created"
	EventTypeTaskStatusChanged = "task.status_changed"
)

// TaskCreatedEvent is published when a task is opened
type TaskCreatedEvent struct {
	shared.BaseDomainEvent
	TaskID     uuid.UUID   `json:"task_id"`
	Title      string      `json:"title"`
	AssignedTo []uuid.UUID `json:"assigned_to"`
}

func NewTaskCreatedEvent(t *Task) *TaskCreatedEvent {
	return &TaskCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTaskCreated, AggregateTypeTask, t.ID),
		TaskID:          t.ID,
		Title:           t.Title,
		AssignedTo:      t.AssignedTo,
	}
}

// TaskStatusChangedEvent is published on every status transition
type TaskStatusChangedEvent struct {
	shared.BaseDomainEvent
	TaskID    uuid.UUID `json:"task_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ChangedBy uuid.UUID `json:"changed_by"`
}

func NewTaskStatusChangedEvent(t *Task, actor uuid.UUID, from Status) *TaskStatusChangedEvent {
	return &TaskStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTaskStatusChanged, AggregateTypeTask, t.ID),
		TaskID:          t.ID,
		From:            from,
		To:              t.Status,
		ChangedBy:       actor,
	}
}
