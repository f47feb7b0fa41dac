package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskdesk/core/internal/domain/entities"
)

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Message string `json:"message"`
}

// httpError maps domain errors onto transport status codes
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, entities.ErrUserNotFound),
		errors.Is(err, entities.ErrTaskNotFound),
		errors.Is(err, entities.ErrNotificationNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrDuplicateUser),
		errors.Is(err, entities.ErrDuplicateReminder),
		errors.Is(err, entities.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, entities.ErrInvalidRole),
		errors.Is(err, entities.ErrInvalidStatus),
		errors.Is(err, entities.ErrInvalidPriority),
		errors.Is(err, entities.ErrInvalidNotification):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
