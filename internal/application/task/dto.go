package task

import (
	"time"

	"github.com/estudiomd/backoffice/internal/domain/task"
	"github.com/google/uuid"
)

// Actor is the authenticated user performing a task operation
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// CreateTaskRequest represents a request to open a task
type CreateTaskRequest struct {
	Title       string      `json:"title" binding:"required,max=255"`
	Description string      `json:"description" binding:"max=5000"`
	Status      string      `json:"status" binding:"omitempty,oneof=pending in-progress completed"`
	Priority    string      `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate     *time.Time  `json:"due_date"`
	AssignedTo  []uuid.UUID `json:"assigned_to"`
}

// UpdateTaskRequest is a partial update. A JSON null due_date is
// indistinguishable from an absent one, so ClearDueDate removes it.
type UpdateTaskRequest struct {
	Title        *string      `json:"title" binding:"omitempty,max=255"`
	Description  *string      `json:"description" binding:"omitempty,max=5000"`
	Status       *string      `json:"status" binding:"omitempty,oneof=pending in-progress completed"`
	Priority     *string      `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate      *time.Time   `json:"due_date"`
	ClearDueDate bool         `json:"clear_due_date"`
	AssignedTo   *[]uuid.UUID `json:"assigned_to"`
}

// ChangeStatusRequest moves a task to another status
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending in-progress completed"`
}

// TaskListFilter represents list query parameters
type TaskListFilter struct {
	Search     string     `form:"search"`
	Status     string     `form:"status" binding:"omitempty,oneof=pending in-progress completed"`
	Priority   string     `form:"priority" binding:"omitempty,oneof=low medium high"`
	AssignedTo *uuid.UUID `form:"-"` // parsed by the handler from assigned_to
	Ordering   string     `form:"ordering" binding:"omitempty,oneof=created_at -created_at due_date -due_date priority -priority"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Assignee is a user a task is assigned to
type Assignee struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// TaskResponse represents a task in API responses
type TaskResponse struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	DueDate       *time.Time `json:"due_date"`
	AssignedTo    []Assignee `json:"assigned_to"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedByName string     `json:"created_by_name"`
	IsOverdue     bool       `json:"is_overdue"`
	DaysUntilDue  *int       `json:"days_until_due"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// AuditLogResponse is one entry of a task's audit trail
type AuditLogResponse struct {
	ID        uuid.UUID `json:"id"`
	Action    string    `json:"action"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// ToTaskResponse converts a domain Task; names resolves user ids
func ToTaskResponse(t *task.Task, names map[uuid.UUID]string, now time.Time) TaskResponse {
	resp := TaskResponse{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        string(t.Status),
		Priority:      string(t.Priority),
		DueDate:       t.DueDate,
		AssignedTo:    make([]Assignee, 0, len(t.AssignedTo)),
		CreatedBy:     t.CreatedBy,
		CreatedByName: names[t.CreatedBy],
		IsOverdue:     t.IsOverdue(now),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	for _, id := range t.AssignedTo {
		resp.AssignedTo = append(resp.AssignedTo, Assignee{ID: id, Name: names[id]})
	}
	if days, ok := t.DaysUntilDue(now); ok {
		resp.DaysUntilDue = &days
	}
	return resp
}
