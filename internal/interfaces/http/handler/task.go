package handler

import (
	taskapp "github.com/estudiomd/backoffice/internal/application/task"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TaskHandler handles the task board endpoints
type TaskHandler struct {
	BaseHandler
	taskService *taskapp.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *taskapp.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

func taskActor(c *gin.Context) (taskapp.Actor, error) {
	userID, isAdmin, err := currentUser(c)
	if err != nil {
		return taskapp.Actor{}, err
	}
	return taskapp.Actor{UserID: userID, IsAdmin: isAdmin}, nil
}

// bindTaskFilter binds list query parameters including assigned_to
func (h *TaskHandler) bindTaskFilter(c *gin.Context) (taskapp.TaskListFilter, bool) {
	var filter taskapp.TaskListFilter
	if !h.BindQuery(c, &filter) {
		return filter, false
	}
	if raw := c.Query("assigned_to"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.HandleError(c, shared.NewFieldError("assigned_to", "Invalid UUID format"))
			return filter, false
		}
		filter.AssignedTo = &id
	}
	return filter, true
}

// List returns a page of tasks
// GET /api/v1/tasks/
func (h *TaskHandler) List(c *gin.Context) {
	actor, err := taskActor(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	filter, ok := h.bindTaskFilter(c)
	if !ok {
		return
	}

	page, err := h.taskService.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondList(c, page)
}

// MyTasks returns the tasks assigned to the current user
// GET /api/v1/tasks/my-tasks/
func (h *TaskHandler) MyTasks(c *gin.Context) {
	actor, err := taskActor(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	filter, ok := h.bindTaskFilter(c)
	if !ok {
		return
	}

	page, err := h.taskService.MyTasks(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondList(c, page)
}

// Stats counts tasks by status
// GET /api/v1/tasks/stats/
func (h *TaskHandler) Stats(c *gin.Context) {
	actor, err := taskActor(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	stats, err := h.taskService.Stats(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// Create opens a task
// POST /api/v1/tasks/
func (h *TaskHandler) Create(c *gin.Context) {
	actor, err := taskActor(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req taskapp.CreateTaskRequest
	if !h.BindJSON(c, &req) {
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, task)
}

// GetByID returns one task
// GET /api/v1/tasks/:id/
func (h *TaskHandler) GetByID(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}

// Update edits a task
// PUT|PATCH /api/v1/tasks/:id/
func (h *TaskHandler) Update(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	var req taskapp.UpdateTaskRequest
	if !h.BindJSON(c, &req) {
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}

// ChangeStatus moves a task to another status and records it in the audit log
// POST /api/v1/tasks/:id/change-status/
func (h *TaskHandler) ChangeStatus(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	var req taskapp.ChangeStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	task, err := h.taskService.ChangeStatus(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}

// Delete removes a task
// DELETE /api/v1/tasks/:id/
func (h *TaskHandler) Delete(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AuditLog returns the audit trail of a task
// GET /api/v1/tasks/:id/audit-log/
func (h *TaskHandler) AuditLog(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	entries, err := h.taskService.AuditLog(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

func (h *TaskHandler) actorAndID(c *gin.Context) (taskapp.Actor, uuid.UUID, bool) {
	actor, err := taskActor(c)
	if err != nil {
		h.HandleError(c, err)
		return actor, uuid.Nil, false
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return actor, uuid.Nil, false
	}
	return actor, id, true
}
