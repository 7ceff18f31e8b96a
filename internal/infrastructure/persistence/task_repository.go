package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/task"
	"github.com/estudiomd/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTaskRepository implements task.TaskRepository using GORM
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GormTaskRepository
func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// assignedTo scopes a task query to the tasks of one user. A nil user leaves
// the query unscoped.
func assignedTo(userID *uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if userID == nil {
			return db
		}
		if *userID == uuid.Nil {
			return db.Where("1 = 0")
		}
		return db.Where("tasks.id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).
				Model(&models.TaskAssigneeModel{}).
				Select("task_id").
				Where("user_id = ?", *userID))
	}
}

// FindByID finds a task by its ID with its assignees
func (r *GormTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	model, err := first[models.TaskModel](r.db.WithContext(ctx).Preload("Assignees"), "id = ?", id)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds tasks matching the filter
func (r *GormTaskRepository) FindAll(ctx context.Context, filter task.TaskFilter) ([]task.Task, error) {
	var taskModels []models.TaskModel
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.TaskModel{}), filter)
	query = taskSorting.apply(query, filter.OrderBy, filter.OrderDir)
	query = applyPage(query, filter.Page, filter.PageSize)

	if err := query.Preload("Assignees").Find(&taskModels).Error; err != nil {
		return nil, err
	}

	tasks := make([]task.Task, len(taskModels))
	for i := range taskModels {
		tasks[i] = *taskModels[i].ToDomain()
	}
	return tasks, nil
}

// Count counts tasks matching the filter
func (r *GormTaskRepository) Count(ctx context.Context, filter task.TaskFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.TaskModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save upserts the task and replaces its assignee set
func (r *GormTaskRepository) Save(ctx context.Context, t *task.Task) error {
	model := &models.TaskModel{}
	model.FromDomain(t)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Assignees").Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", t.ID).Delete(&models.TaskAssigneeModel{}).Error; err != nil {
			return err
		}
		if len(model.Assignees) == 0 {
			return nil
		}
		return tx.Create(&model.Assignees).Error
	})
}

// Delete removes a task. Its audit trail is kept.
func (r *GormTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssigneeModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.TaskModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Stats counts tasks by status. Overdue counts open tasks due before now.
func (r *GormTaskRepository) Stats(ctx context.Context, assignee *uuid.UUID, now time.Time) (task.Stats, error) {
	var rows []struct {
		Status task.Status
		Total  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.TaskModel{}).
		Scopes(assignedTo(assignee)).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return task.Stats{}, err
	}

	var stats task.Stats
	for _, row := range rows {
		stats.Total += row.Total
		switch row.Status {
		case task.StatusPending:
			stats.Pending = row.Total
		case task.StatusInProgress:
			stats.InProgress = row.Total
		case task.StatusCompleted:
			stats.Completed = row.Total
		}
	}

	if err := r.db.WithContext(ctx).
		Model(&models.TaskModel{}).
		Scopes(assignedTo(assignee)).
		Where("due_date IS NOT NULL AND due_date < ? AND status <> ?", now.UTC(), task.StatusCompleted).
		Count(&stats.Overdue).Error; err != nil {
		return task.Stats{}, err
	}
	return stats, nil
}

// AppendAudit stores an audit entry
func (r *GormTaskRepository) AppendAudit(ctx context.Context, entry task.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(models.TaskAuditLogModelFromDomain(entry)).Error
}

// ListAudit returns the audit trail of a task, newest first
func (r *GormTaskRepository) ListAudit(ctx context.Context, taskID uuid.UUID) ([]task.AuditLogEntry, error) {
	var entries []models.TaskAuditLogModel
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("timestamp DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	out := make([]task.AuditLogEntry, len(entries))
	for i := range entries {
		out[i] = entries[i].ToDomain()
	}
	return out, nil
}

// applyFilterWithoutPagination applies search, status, priority and assignee filters
func (r *GormTaskRepository) applyFilterWithoutPagination(query *gorm.DB, filter task.TaskFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", searchPattern, searchPattern)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	return query.Scopes(assignedTo(filter.Assignee))
}
