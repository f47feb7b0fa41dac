package services

import (
	"context"

	"github.com/taskdesk/core/internal/domain/entities"
	"github.com/taskdesk/core/internal/ports"
)

// StatsService exposes read-only aggregates over tasks and users
type StatsService struct {
	tasks ports.TaskRepository
}

// NewStatsService creates a new stats service
func NewStatsService(tasks ports.TaskRepository) *StatsService {
	return &StatsService{tasks: tasks}
}

// ForUser computes per-assignee task counters
func (s *StatsService) ForUser(ctx context.Context, userID int64) (*entities.UserStats, error) {
	return s.tasks.UserStats(ctx, userID)
}

// General computes system-wide task and user counters
func (s *StatsService) General(ctx context.Context) (*entities.GeneralStats, error) {
	return s.tasks.GeneralStats(ctx)
}
