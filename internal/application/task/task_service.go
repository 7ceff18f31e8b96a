package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/estudiomd/backoffice/internal/application/sanitize"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/task"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserDirectory resolves user display names
type UserDirectory interface {
	NamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// TaskService handles the task board. Admins manage every task; workers only
// see and move the tasks assigned to them.
type TaskService struct {
	repo   task.TaskRepository
	users  UserDirectory
	events shared.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(repo task.TaskRepository, users UserDirectory, events shared.EventPublisher, logger *zap.Logger) *TaskService {
	return &TaskService{repo: repo, users: users, events: events, logger: logger, now: time.Now}
}

// Create opens a task. Only admins create tasks.
func (s *TaskService) Create(ctx context.Context, actor Actor, req CreateTaskRequest) (*TaskResponse, error) {
	if !actor.IsAdmin {
		return nil, shared.ErrForbidden
	}
	if err := s.checkAssignees(ctx, req.AssignedTo); err != nil {
		return nil, err
	}

	t, err := task.NewTask(actor.UserID, task.Draft{
		Title:       sanitize.Text(req.Title),
		Description: sanitize.Text(req.Description),
		Status:      task.Status(req.Status),
		Priority:    task.Priority(req.Priority),
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, t); err != nil {
		return nil, err
	}
	s.audit(ctx, task.NewAuditLogEntry(t.ID, task.AuditCreated, actor.UserID, "Task created: "+t.Title))
	s.publish(ctx, t)

	return s.respond(ctx, t)
}

// GetByID returns a task visible to actor
func (s *TaskService) GetByID(ctx context.Context, actor Actor, id uuid.UUID) (*TaskResponse, error) {
	t, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, t)
}

// List returns a page of tasks; workers are restricted to their own
func (s *TaskService) List(ctx context.Context, actor Actor, f TaskListFilter) (shared.Paginated[TaskResponse], error) {
	filter := task.TaskFilter{
		Filter:   shared.DefaultFilter(),
		Status:   task.Status(f.Status),
		Priority: task.Priority(f.Priority),
		Assignee: f.AssignedTo,
	}
	if !actor.IsAdmin {
		filter.Assignee = &actor.UserID
	}
	return s.list(ctx, filter, f)
}

// MyTasks lists the tasks assigned to actor, whatever the role
func (s *TaskService) MyTasks(ctx context.Context, actor Actor, f TaskListFilter) (shared.Paginated[TaskResponse], error) {
	filter := task.TaskFilter{
		Filter:   shared.DefaultFilter(),
		Status:   task.Status(f.Status),
		Priority: task.Priority(f.Priority),
		Assignee: &actor.UserID,
	}
	return s.list(ctx, filter, f)
}

func (s *TaskService) list(ctx context.Context, filter task.TaskFilter, f TaskListFilter) (shared.Paginated[TaskResponse], error) {
	filter.Page = f.Page
	filter.PageSize = f.PageSize
	filter.Search = strings.TrimSpace(f.Search)
	filter.ApplyOrdering(f.Ordering)
	filter.Normalize()

	tasks, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[TaskResponse]{}, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[TaskResponse]{}, err
	}

	var ids []uuid.UUID
	for i := range tasks {
		ids = append(ids, userIDs(&tasks[i])...)
	}
	names := s.names(ctx, ids)
	now := s.now()

	items := make([]TaskResponse, len(tasks))
	for i := range tasks {
		items[i] = ToTaskResponse(&tasks[i], names, now)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Update applies a partial update. Only admins edit tasks.
func (s *TaskService) Update(ctx context.Context, actor Actor, id uuid.UUID, req UpdateTaskRequest) (*TaskResponse, error) {
	if !actor.IsAdmin {
		return nil, shared.ErrForbidden
	}
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.AssignedTo != nil {
		if err := s.checkAssignees(ctx, *req.AssignedTo); err != nil {
			return nil, err
		}
	}

	oldStatus := t.Status
	patch := task.Patch{
		Title:       sanitize.Ptr(req.Title),
		Description: sanitize.Ptr(req.Description),
		DueDate:     req.DueDate,
		ClearDue:    req.ClearDueDate,
		AssignedTo:  req.AssignedTo,
	}
	if req.Status != nil {
		st := task.Status(*req.Status)
		patch.Status = &st
	}
	if req.Priority != nil {
		p := task.Priority(*req.Priority)
		patch.Priority = &p
	}
	if err := t.Update(patch); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, t); err != nil {
		return nil, err
	}
	s.audit(ctx, task.NewAuditLogEntry(t.ID, task.AuditUpdated, actor.UserID, "Task updated"))
	if oldStatus != t.Status {
		s.audit(ctx, task.NewAuditLogEntry(t.ID, task.AuditStatusChanged, actor.UserID,
			fmt.Sprintf("Status changed from %s to %s", oldStatus, t.Status)))
	}

	return s.respond(ctx, t)
}

// ChangeStatus moves a task; workers may only move tasks assigned to them
func (s *TaskService) ChangeStatus(ctx context.Context, actor Actor, id uuid.UUID, req ChangeStatusRequest) (*TaskResponse, error) {
	t, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	old, err := t.ChangeStatus(actor.UserID, task.Status(req.Status))
	if err != nil {
		return nil, err
	}
	if old == t.Status {
		return s.respond(ctx, t)
	}

	if err := s.repo.Save(ctx, t); err != nil {
		return nil, err
	}
	s.audit(ctx, task.NewAuditLogEntry(t.ID, task.AuditStatusChanged, actor.UserID,
		fmt.Sprintf("Status changed from %s to %s", old, t.Status)))
	s.publish(ctx, t)

	s.logger.Info("Task status changed",
		zap.String("task_id", t.ID.String()),
		zap.String("from", string(old)),
		zap.String("to", string(t.Status)))
	return s.respond(ctx, t)
}

// Delete removes a task; the audit trail is kept
func (s *TaskService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.IsAdmin {
		return shared.ErrForbidden
	}
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, task.NewAuditLogEntry(id, task.AuditDeleted, actor.UserID, "Task deleted: "+t.Title))
	return nil
}

// Stats counts tasks by status; workers get their own figures
func (s *TaskService) Stats(ctx context.Context, actor Actor) (task.Stats, error) {
	var assignee *uuid.UUID
	if !actor.IsAdmin {
		assignee = &actor.UserID
	}
	return s.repo.Stats(ctx, assignee, s.now())
}

// AuditLog returns the trail of a task visible to actor, newest first
func (s *TaskService) AuditLog(ctx context.Context, actor Actor, id uuid.UUID) ([]AuditLogResponse, error) {
	if _, err := s.load(ctx, actor, id); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListAudit(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	names := s.names(ctx, ids)

	out := make([]AuditLogResponse, len(entries))
	for i, e := range entries {
		out[i] = AuditLogResponse{
			ID:        e.ID,
			Action:    string(e.Action),
			UserID:    e.UserID,
			UserName:  names[e.UserID],
			Details:   e.Details,
			Timestamp: e.Timestamp,
		}
	}
	return out, nil
}

// load fetches a task and hides it from workers it is not assigned to
func (s *TaskService) load(ctx context.Context, actor Actor, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !t.IsAssignedTo(actor.UserID) {
		return nil, shared.ErrNotFound
	}
	return t, nil
}

func (s *TaskService) checkAssignees(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	names, err := s.users.NamesByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := names[id]; !ok {
			return shared.NewFieldError("assigned_to", fmt.Sprintf("Invalid pk %q - object does not exist.", id))
		}
	}
	return nil
}

func (s *TaskService) respond(ctx context.Context, t *task.Task) (*TaskResponse, error) {
	resp := ToTaskResponse(t, s.names(ctx, userIDs(t)), s.now())
	return &resp, nil
}

// names resolves display names; a lookup failure only leaves names empty
func (s *TaskService) names(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]string {
	if len(ids) == 0 {
		return map[uuid.UUID]string{}
	}
	names, err := s.users.NamesByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to resolve user names", zap.Error(err))
		return map[uuid.UUID]string{}
	}
	return names
}

func (s *TaskService) audit(ctx context.Context, entry task.AuditLogEntry) {
	if err := s.repo.AppendAudit(ctx, entry); err != nil {
		s.logger.Error("Failed to append task audit entry",
			zap.String("task_id", entry.TaskID.String()),
			zap.String("action", string(entry.Action)),
			zap.Error(err))
	}
}

func (s *TaskService) publish(ctx context.Context, t *task.Task) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, t.PullDomainEvents()...); err != nil {
		s.logger.Warn("Failed to publish task events", zap.String("task_id", t.ID.String()), zap.Error(err))
	}
}

func userIDs(t *task.Task) []uuid.UUID {
	return append([]uuid.UUID{t.CreatedBy}, t.AssignedTo...)
}
