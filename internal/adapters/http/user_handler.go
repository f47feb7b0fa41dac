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

// UserHandler handles user-related requests
type UserHandler struct {
	userService *services.UserService
	taskService *services.TaskService
	logger      *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, taskService *services.TaskService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		taskService: taskService,
		logger:      log,
	}
}

// TouchActivityRequest marks a user as seen
type TouchActivityRequest struct {
	ChatID int64 `json:"chat_id" validate:"required"`
}

// RegisterUser creates a new user account
func (h *UserHandler) RegisterUser(c echo.Context) error {
	var req ports.RegisterUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.userService.Register(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("register user failed", "error", err, "chat_id", req.ChatID)
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, user)
}

// GetUser retrieves a user by internal ID
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.userService.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, user)
}

// GetUserByChatID retrieves a user by external chat ID
func (h *UserHandler) GetUserByChatID(c echo.Context) error {
	chatID, err := strconv.ParseInt(c.Param("chat_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid chat_id")
	}

	user, err := h.userService.GetByChatID(c.Request().Context(), chatID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, user)
}

// ListUsers retrieves all active users
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.userService.List(c.Request().Context())
	if err != nil {
		h.logger.Errorw("list users failed", "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, users)
}

// TouchActivity records that the user was seen now
func (h *UserHandler) TouchActivity(c echo.Context) error {
	var req TouchActivityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.userService.TouchActivity(c.Request().Context(), req.ChatID); err != nil {
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// DeactivateUser soft-deletes a user account
func (h *UserHandler) DeactivateUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.userService.Deactivate(c.Request().Context(), id); err != nil {
		h.logger.Errorw("deactivate user failed", "error", err, "user_id", id)
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ListUserTasks retrieves a user's assigned tasks
func (h *UserHandler) ListUserTasks(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var status *entities.TaskStatus
	if raw := c.QueryParam("status"); raw != "" {
		parsed, err := entities.ParseTaskStatus(raw)
		if err != nil {
			return httpError(err)
		}
		status = &parsed
	}

	tasks, err := h.taskService.ListByAssignee(c.Request().Context(), id, status)
	if err != nil {
		h.logger.Errorw("list user tasks failed", "error", err, "user_id", id)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, tasks)
}
