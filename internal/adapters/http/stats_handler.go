package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskdesk/core/internal/application/services"
	"github.com/taskdesk/core/internal/infrastructure/logger"
)

// StatsHandler handles aggregate read requests
type StatsHandler struct {
	statsService *services.StatsService
	logger       *logger.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *services.StatsService, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		logger:       log,
	}
}

// GetGeneralStats retrieves system-wide counters
func (h *StatsHandler) GetGeneralStats(c echo.Context) error {
	stats, err := h.statsService.General(c.Request().Context())
	if err != nil {
		h.logger.Errorw("get general stats failed", "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, stats)
}

// GetUserStats retrieves per-assignee counters
func (h *StatsHandler) GetUserStats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	stats, err := h.statsService.ForUser(c.Request().Context(), id)
	if err != nil {
		h.logger.Errorw("get user stats failed", "error", err, "user_id", id)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, stats)
}
