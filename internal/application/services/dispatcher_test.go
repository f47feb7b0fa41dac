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

func TestNotificationDispatcher_SendsDueOnly(t *testing.T) {
	users := newMemUserRepo()
	creator := users.add(100, "Alice", entities.UserRoleUser)
	tasks := newMemTaskRepo(users)
	notifications := newMemNotificationRepo(users, tasks)
	messenger := &fakeMessenger{}
	dispatcher := NewNotificationDispatcher(notifications, messenger, logger.NewNop())

	now := time.Now()
	deadline := now.Add(time.Hour)
	task := seedTask(t, tasks, creator.ID, entities.TaskStatusNew, &deadline)

	due, err := notifications.Create(context.Background(), &entities.Notification{
		UserID:      creator.ID,
		TaskID:      task.ID,
		Type:        entities.NotificationReminder,
		Message:     "due soon",
		ScheduledAt: now.Add(-time.Minute),
	})
	require.NoError(t, err)

	_, err = notifications.Create(context.Background(), &entities.Notification{
		UserID:      creator.ID,
		TaskID:      task.ID,
		Type:        entities.NotificationAssignment,
		Message:     "later",
		ScheduledAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	sent, err := dispatcher.Dispatch(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []int64{creator.ChatID}, messenger.sent)
	assert.Equal(t, []string{"due soon"}, messenger.messages)
	assert.True(t, notifications.notifications[0].IsSent)
	require.NotNil(t, notifications.notifications[0].SentAt)
	assert.Equal(t, due.ID, notifications.notifications[0].ID)
	assert.False(t, notifications.notifications[1].IsSent)
}

func TestNotificationDispatcher_FailedSendStaysPending(t *testing.T) {
	users := newMemUserRepo()
	creator := users.add(100, "Alice", entities.UserRoleUser)
	other := users.add(200, "Bob", entities.UserRoleUser)
	tasks := newMemTaskRepo(users)
	notifications := newMemNotificationRepo(users, tasks)
	messenger := &fakeMessenger{failFor: map[int64]bool{creator.ChatID: true}}
	dispatcher := NewNotificationDispatcher(notifications, messenger, logger.NewNop())

	now := time.Now()
	deadline := now.Add(time.Hour)
	task := seedTask(t, tasks, creator.ID, entities.TaskStatusNew, &deadline)

	_, err := notifications.Create(context.Background(), &entities.Notification{
		UserID:      creator.ID,
		TaskID:      task.ID,
		Type:        entities.NotificationReminder,
		Message:     "will fail",
		ScheduledAt: now.Add(-time.Minute),
	})
	require.NoError(t, err)

	_, err = notifications.Create(context.Background(), &entities.Notification{
		UserID:      other.ID,
		TaskID:      task.ID,
		Type:        entities.NotificationAssignment,
		Message:     "will send",
		ScheduledAt: now.Add(-time.Minute),
	})
	require.NoError(t, err)

	sent, err := dispatcher.Dispatch(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.False(t, notifications.notifications[0].IsSent)
	assert.True(t, notifications.notifications[1].IsSent)

	// the failed one retries on the next pass
	messenger.failFor = nil
	sent, err = dispatcher.Dispatch(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.True(t, notifications.notifications[0].IsSent)
}
