package models

import (
	"time"

	"github.com/estudiomd/backoffice/internal/domain/task"
	"github.com/google/uuid"
)

// TaskModel is the persistence model for the Task aggregate
type TaskModel struct {
	AggregateModel
	Title       string              `gorm:"type:varchar(200);not null"`
	Description string              `gorm:"type:text"`
	Status      task.Status         `gorm:"type:varchar(20);not null;default:'pending';index"`
	Priority    task.Priority       `gorm:"type:varchar(10);not null;default:'medium'"`
	DueDate     *time.Time          `gorm:"index"`
	CreatedBy   uuid.UUID           `gorm:"type:uuid;not null"`
	Assignees   []TaskAssigneeModel `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (TaskModel) TableName() string {
	return "tasks"
}

// TaskAssigneeModel links a task to an assigned user
type TaskAssigneeModel struct {
	TaskID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// TableName returns the table name for GORM
func (TaskAssigneeModel) TableName() string {
	return "task_assignees"
}

// ToDomain converts the persistence model to a domain Task
func (m *TaskModel) ToDomain() *task.Task {
	assigned := make([]uuid.UUID, 0, len(m.Assignees))
	for _, a := range m.Assignees {
		assigned = append(assigned, a.UserID)
	}
	return &task.Task{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Title:             m.Title,
		Description:       m.Description,
		Status:            m.Status,
		Priority:          m.Priority,
		DueDate:           m.DueDate,
		AssignedTo:        assigned,
		CreatedBy:         m.CreatedBy,
	}
}

// FromDomain populates the persistence model from a domain Task
func (m *TaskModel) FromDomain(t *task.Task) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.Title = t.Title
	m.Description = t.Description
	m.Status = t.Status
	m.Priority = t.Priority
	m.DueDate = t.DueDate
	m.CreatedBy = t.CreatedBy
	m.Assignees = make([]TaskAssigneeModel, 0, len(t.AssignedTo))
	for _, u := range t.AssignedTo {
		m.Assignees = append(m.Assignees, TaskAssigneeModel{TaskID: t.ID, UserID: u})
	}
}

// TaskAuditLogModel is an append-only audit entry. It has no foreign key to
// tasks so the trail outlives deleted tasks.
type TaskAuditLogModel struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey"`
	TaskID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	Action    task.AuditAction `gorm:"type:varchar(20);not null"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null"`
	Details   string           `gorm:"type:text"`
	Timestamp time.Time        `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (TaskAuditLogModel) TableName() string {
	return "task_audit_logs"
}

// ToDomain converts the persistence model to a domain AuditLogEntry
func (m *TaskAuditLogModel) ToDomain() task.AuditLogEntry {
	return task.AuditLogEntry{
		ID:        m.ID,
		TaskID:    m.TaskID,
		Action:    m.Action,
		UserID:    m.UserID,
		Details:   m.Details,
		Timestamp: m.Timestamp,
	}
}

// TaskAuditLogModelFromDomain creates a persistence model from an audit entry
func TaskAuditLogModelFromDomain(e task.AuditLogEntry) *TaskAuditLogModel {
	return &TaskAuditLogModel{
		ID:        e.ID,
		TaskID:    e.TaskID,
		Action:    e.Action,
		UserID:    e.UserID,
		Details:   e.Details,
		Timestamp: e.Timestamp,
	}
}
