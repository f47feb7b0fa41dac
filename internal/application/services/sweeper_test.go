package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk/core/internal/domain/entities"
	"github.com/taskdesk/core/internal/infrastructure/logger"
)

func seedTask(t *testing.T, repo *memTaskRepo, creatorID int64, status entities.TaskStatus, deadline *time.Time) *entities.Task {
	t.Helper()

	task, err := repo.Create(context.Background(), &entities.Task{
		Title:     "task",
		CreatorID: creatorID,
		Priority:  entities.PriorityMedium,
		Deadline:  deadline,
	})
	require.NoError(t, err)
	task.Status = status
	return task
}

func TestOverdueSweeper_Sweep(t *testing.T) {
	users := newMemUserRepo()
	creator := users.add(100, "Alice", entities.UserRoleAdmin)
	tasks := newMemTaskRepo(users)
	sweeper := NewOverdueSweeper(tasks, logger.NewNop())

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	stale := seedTask(t, tasks, creator.ID, entities.TaskStatusNew, &past)
	inProgress := seedTask(t, tasks, creator.ID, entities.TaskStatusInProgress, &past)
	completed := seedTask(t, tasks, creator.ID, entities.TaskStatusCompleted, &past)
	cancelled := seedTask(t, tasks, creator.ID, entities.TaskStatusCancelled, &past)
	upcoming := seedTask(t, tasks, creator.ID, entities.TaskStatusNew, &future)
	noDeadline := seedTask(t, tasks, creator.ID, entities.TaskStatusNew, nil)

	swept, err := sweeper.Sweep(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, int64(2), swept)
	assert.Equal(t, entities.TaskStatusOverdue, tasks.tasks[stale.ID].Status)
	assert.Equal(t, entities.TaskStatusOverdue, tasks.tasks[inProgress.ID].Status)
	assert.Equal(t, entities.TaskStatusCompleted, tasks.tasks[completed.ID].Status)
	assert.Equal(t, entities.TaskStatusCancelled, tasks.tasks[cancelled.ID].Status)
	assert.Equal(t, entities.TaskStatusNew, tasks.tasks[upcoming.ID].Status)
	assert.Equal(t, entities.TaskStatusNew, tasks.tasks[noDeadline.ID].Status)
}

func TestOverdueSweeper_SweepIsIdempotent(t *testing.T) {
	users := newMemUserRepo()
	creator := users.add(100, "Alice", entities.UserRoleAdmin)
	tasks := newMemTaskRepo(users)
	sweeper := NewOverdueSweeper(tasks, logger.NewNop())

	now := time.Now()
	past := now.Add(-time.Hour)
	seedTask(t, tasks, creator.ID, entities.TaskStatusNew, &past)

	swept, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	swept, err = sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, swept)
}
