package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taskdesk/core/internal/application/services"
	"github.com/taskdesk/core/internal/domain/entities"
	"github.com/taskdesk/core/internal/infrastructure/logger"
	"github.com/taskdesk/core/internal/ports"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService *services.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, log *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      log,
	}
}

// UpdateStatusRequest carries a status transition
type UpdateStatusRequest struct {
	Status  entities.TaskStatus `json:"status" validate:"required"`
	ActorID int64               `json:"actor_id" validate:"required"`
}

// AssignRequest carries a task reassignment
type AssignRequest struct {
	AssigneeID int64 `json:"assignee_id" validate:"required"`
	ActorID    int64 `json:"actor_id" validate:"required"`
}

// CancelRequest carries a task cancellation
type CancelRequest struct {
	ActorID int64 `json:"actor_id" validate:"required"`
}

// updateTaskBody wraps sparse field updates with the acting user
type updateTaskBody struct {
	ports.UpdateTaskRequest
	ActorID int64 `json:"actor_id" validate:"required"`
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.Create(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("create task failed", "error", err, "creator_id", req.CreatorID)
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	task, err := h.taskService.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// ListTasks retrieves tasks with optional status filter and pagination
func (h *TaskHandler) ListTasks(c echo.Context) error {
	filter := ports.TaskFilter{}

	if raw := c.QueryParam("status"); raw != "" {
		status, err := entities.ParseTaskStatus(raw)
		if err != nil {
			return httpError(err)
		}
		filter.Status = &status
	}
	filter.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	filter.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	tasks, err := h.taskService.List(c.Request().Context(), filter)
	if err != nil {
		h.logger.Errorw("list tasks failed", "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, tasks)
}

// SearchTasks retrieves tasks matching text and filter criteria
func (h *TaskHandler) SearchTasks(c echo.Context) error {
	filter := ports.SearchFilter{Text: c.QueryParam("q")}

	if raw := c.QueryParam("status"); raw != "" {
		status, err := entities.ParseTaskStatus(raw)
		if err != nil {
			return httpError(err)
		}
		filter.Status = &status
	}
	if raw := c.QueryParam("priority"); raw != "" {
		priority, err := entities.ParseTaskPriority(raw)
		if err != nil {
			return httpError(err)
		}
		filter.Priority = &priority
	}
	if raw := c.QueryParam("assignee_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid assignee_id")
		}
		filter.AssigneeID = &id
	}
	filter.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	filter.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	tasks, err := h.taskService.Search(c.Request().Context(), filter)
	if err != nil {
		h.logger.Errorw("search tasks failed", "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, tasks)
}

// ListOverdueTasks retrieves tasks past their deadline
func (h *TaskHandler) ListOverdueTasks(c echo.Context) error {
	tasks, err := h.taskService.ListOverdue(c.Request().Context())
	if err != nil {
		h.logger.Errorw("list overdue tasks failed", "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, tasks)
}

// UpdateTask applies sparse field changes
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var body updateTaskBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.taskService.Update(c.Request().Context(), id, body.UpdateTaskRequest, body.ActorID); err != nil {
		h.logger.Errorw("update task failed", "error", err, "task_id", id)
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// UpdateTaskStatus transitions a task to a new status
func (h *TaskHandler) UpdateTaskStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.taskService.UpdateStatus(c.Request().Context(), id, req.Status, req.ActorID); err != nil {
		h.logger.Errorw("update task status failed", "error", err, "task_id", id, "status", req.Status)
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// AssignTask reassigns a task
func (h *TaskHandler) AssignTask(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req AssignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.taskService.Assign(c.Request().Context(), id, req.AssigneeID, req.ActorID); err != nil {
		h.logger.Errorw("assign task failed", "error", err, "task_id", id)
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// CancelTask transitions a task to cancelled
func (h *TaskHandler) CancelTask(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req CancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.taskService.Cancel(c.Request().Context(), id, req.ActorID); err != nil {
		h.logger.Errorw("cancel task failed", "error", err, "task_id", id)
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// GetTaskHistory retrieves the task's audit log
func (h *TaskHandler) GetTaskHistory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	history, err := h.taskService.History(c.Request().Context(), id)
	if err != nil {
		h.logger.Errorw("get task history failed", "error", err, "task_id", id)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, history)
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
