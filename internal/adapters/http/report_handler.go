package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskdesk/core/internal/application/services"
	"github.com/taskdesk/core/internal/infrastructure/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves generated report artifacts
type ReportHandler struct {
	reportService *services.ReportService
	logger        *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *services.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        log,
	}
}

// DownloadTasksWorkbook streams the tasks Excel workbook
func (h *ReportHandler) DownloadTasksWorkbook(c echo.Context) error {
	data, err := h.reportService.TasksWorkbook(c.Request().Context())
	if err != nil {
		h.logger.Errorw("tasks workbook failed", "error", err)
		return httpError(err)
	}

	filename := fmt.Sprintf("tasks-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))

	return c.Blob(http.StatusOK, xlsxContentType, data)
}

// DownloadStatusChart streams the tasks-by-status chart as PNG
func (h *ReportHandler) DownloadStatusChart(c echo.Context) error {
	data, err := h.reportService.StatusChart(c.Request().Context())
	if err != nil {
		h.logger.Errorw("status chart failed", "error", err)
		return httpError(err)
	}

	return c.Blob(http.StatusOK, "image/png", data)
}
