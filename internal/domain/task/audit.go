package task

import (
	"time"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// AuditAction identifies what happened to a task
type AuditAction string

const (
	AuditCreated       AuditAction = "created"
	AuditUpdated       AuditAction = "updated"
	AuditStatusChanged AuditAction = "status_changed"
	AuditDeleted       AuditAction = "deleted"
)

// AuditLogEntry is an append-only record of a task change.
// TaskID is kept after deletion so the trail survives the task.
type AuditLogEntry struct {
	ID        uuid.UUID
	TaskID    uuid.UUID
	Action    AuditAction
	UserID    uuid.UUID
	Details   string
	Timestamp time.Time
}

// NewAuditLogEntry stamps a new entry
func NewAuditLogEntry(taskID uuid.UUID, action AuditAction, user uuid.UUID, details string) AuditLogEntry {
	return AuditLogEntry{
		ID:        uuid.New(),
		TaskID:    taskID,
		Action:    action,
		UserID:    user,
		Details:   details,
		Timestamp: shared.Now(),
	}
}
