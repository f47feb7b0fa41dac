package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/xuri/excelize/v2"

	"github.com/taskdesk/core/internal/domain/entities"
	"github.com/taskdesk/core/internal/infrastructure/config"
	"github.com/taskdesk/core/internal/ports"
)

// ReportService renders task data as downloadable artifacts. It is a
// read-only presentation layer: nothing here mutates storage.
type ReportService struct {
	tasks    ports.TaskRepository
	location *time.Location
}

// NewReportService creates a new report service. The configured timezone
// offset only affects how timestamps are displayed.
func NewReportService(tasks ports.TaskRepository, cfg config.ReportsConfig) *ReportService {
	return &ReportService{
		tasks:    tasks,
		location: time.FixedZone("report", cfg.TimezoneOffsetHours*3600),
	}
}

var taskSheetHeaders = []string{
	"ID", "Title", "Status", "Priority", "Creator", "Assignee", "Deadline", "Created", "Completed",
}

// TasksWorkbook builds an Excel workbook with one row per task and a
// summary sheet of aggregate counters.
func (s *ReportService) TasksWorkbook(ctx context.Context) ([]byte, error) {
	tasks, err := s.tasks.List(ctx, ports.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks for report: %w", err)
	}

	stats, err := s.tasks.GeneralStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats for report: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Tasks"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDDDDD"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, h := range taskSheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	f.SetCellStyle(sheet, "A1", "I1", headerStyle)

	for row, task := range tasks {
		values := []interface{}{
			task.ID,
			task.Title,
			string(task.Status),
			string(task.Priority),
			task.CreatorName,
			task.AssigneeName,
			s.formatTime(task.Deadline),
			s.formatTime(&task.CreatedAt),
			s.formatTime(task.CompletedAt),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	if err := s.writeSummarySheet(f, stats); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func (s *ReportService) writeSummarySheet(f *excelize.File, stats *entities.GeneralStats) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Total tasks", stats.TotalTasks},
		{"Active tasks", stats.ActiveTasks},
		{"Completed tasks", stats.CompletedTasks},
		{"Overdue tasks", stats.OverdueTasks},
		{"Active users", stats.ActiveUsers},
		{"Total users", stats.TotalUsers},
	}
	for i, row := range rows {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", i+1), row[0])
		f.SetCellValue(sheet, fmt.Sprintf("B%d", i+1), row[1])
	}

	return nil
}

// StatusChart renders a PNG bar chart of tasks by status
func (s *ReportService) StatusChart(ctx context.Context) ([]byte, error) {
	stats, err := s.tasks.GeneralStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats for chart: %w", err)
	}

	graph := chart.BarChart{
		Title:    "Tasks by status",
		Height:   512,
		BarWidth: 60,
		Bars: []chart.Value{
			{Value: float64(stats.ActiveTasks), Label: "active"},
			{Value: float64(stats.CompletedTasks), Label: "completed"},
			{Value: float64(stats.OverdueTasks), Label: "overdue"},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf.Bytes(), nil
}

func (s *ReportService) formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(s.location).Format("2006-01-02 15:04")
}
