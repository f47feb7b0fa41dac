package services

import (
	"context"
	"time"

	"github.com/taskdesk/core/internal/infrastructure/logger"
	"github.com/taskdesk/core/internal/infrastructure/metrics"
	"github.com/taskdesk/core/internal/ports"
)

// OverdueSweeper bulk-transitions tasks past their deadline to overdue.
// The sweep is a single statement whose predicate excludes rows that are
// already overdue, completed or cancelled, so repeated runs over the
// same data change nothing.
type OverdueSweeper struct {
	tasks  ports.TaskRepository
	logger *logger.Logger
}

// NewOverdueSweeper creates a new overdue sweeper
func NewOverdueSweeper(tasks ports.TaskRepository, log *logger.Logger) *OverdueSweeper {
	return &OverdueSweeper{
		tasks:  tasks,
		logger: log.WithComponent("sweeper"),
	}
}

// Sweep marks stale tasks overdue and returns how many were transitioned
func (s *OverdueSweeper) Sweep(ctx context.Context, now time.Time) (int64, error) {
	swept, err := s.tasks.SweepOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	if swept > 0 {
		metrics.TasksSwept.Add(float64(swept))
		s.logger.Infow("tasks marked overdue", "count", swept)
	}

	return swept, nil
}
