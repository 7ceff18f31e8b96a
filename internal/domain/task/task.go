package task

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// Status of a task on the board
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities from low (1) to high (3)
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Task is a unit of work assigned to one or more staff members
type Task struct {
	shared.BaseAggregateRoot
	Title       string
	Description string
	Status      Status
	Priority    Priority
	DueDate     *time.Time
	AssignedTo  []uuid.UUID
	CreatedBy   uuid.UUID
}

// Draft holds the fields needed to open a task
type Draft struct {
	Title       string
	Description string
	Status      Status
	Priority    Priority
	DueDate     *time.Time
	AssignedTo  []uuid.UUID
}

// Patch is a partial update; nil fields are left unchanged
type Patch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Status      *Status
	DueDate     *time.Time
	ClearDue    bool
	AssignedTo  *[]uuid.UUID
}

// NewTask opens a task created by creator
func NewTask(creator uuid.UUID, d Draft) (*Task, error) {
	if d.Status == "" {
		d.Status = StatusPending
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	d.Title = strings.TrimSpace(d.Title)
	if err := validateDraft(d); err != nil {
		return nil, err
	}

	t := &Task{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Title:             d.Title,
		Description:       d.Description,
		Status:            d.Status,
		Priority:          d.Priority,
		DueDate:           d.DueDate,
		AssignedTo:        dedupe(d.AssignedTo),
		CreatedBy:         creator,
	}
	t.AddDomainEvent(NewTaskCreatedEvent(t))
	return t, nil
}

// Update applies a partial update
func (t *Task) Update(p Patch) error {
	d := Draft{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		AssignedTo:  t.AssignedTo,
	}
	if p.Title != nil {
		d.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Priority != nil {
		d.Priority = *p.Priority
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.DueDate != nil {
		d.DueDate = p.DueDate
	}
	if p.ClearDue {
		d.DueDate = nil
	}
	if p.AssignedTo != nil {
		d.AssignedTo = *p.AssignedTo
	}
	if err := validateDraft(d); err != nil {
		return err
	}

	t.Title = d.Title
	t.Description = d.Description
	t.Priority = d.Priority
	t.Status = d.Status
	t.DueDate = d.DueDate
	t.AssignedTo = dedupe(d.AssignedTo)
	t.Touch()
	t.IncrementVersion()
	return nil
}

// ChangeStatus moves the task to status on behalf of actor and returns the
// previous status
func (t *Task) ChangeStatus(actor uuid.UUID, status Status) (Status, error) {
	if !status.IsValid() {
		return t.Status, shared.NewFieldError("status", "Invalid status.")
	}
	old := t.Status
	if old == status {
		return old, nil
	}
	t.Status = status
	t.Touch()
	t.IncrementVersion()
	t.AddDomainEvent(NewTaskStatusChangedEvent(t, actor, old))
	return old, nil
}

// IsAssignedTo reports whether user is one of the assignees
func (t *Task) IsAssignedTo(user uuid.UUID) bool {
	for _, id := range t.AssignedTo {
		if id == user {
			return true
		}
	}
	return false
}

// IsOverdue reports whether the due date has passed and the task is still open
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusCompleted {
		return false
	}
	return t.DueDate.Before(now)
}

// DaysUntilDue returns whole days until the due date, negative when overdue.
// ok is false when the task has no due date.
func (t *Task) DaysUntilDue(now time.Time) (days int, ok bool) {
	if t.DueDate == nil {
		return 0, false
	}
	return int(t.DueDate.Sub(now).Hours() / 24), true
}

func validateDraft(d Draft) error {
	verr := shared.NewValidationError()
	if d.Title == "" {
		verr.Add("title", "This field may not be blank.")
	} else if utf8.RuneCountInString(d.Title) > 255 {
		verr.Add("title", "Ensure this field has no more than 255 characters.")
	}
	if !d.Status.IsValid() {
		verr.Add("status", "Invalid status.")
	}
	if !d.Priority.IsValid() {
		verr.Add("priority", "Invalid priority.")
	}
	return verr.Err()
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
