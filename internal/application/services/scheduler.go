package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/taskdesk/core/internal/domain/entities"
	"github.com/taskdesk/core/internal/infrastructure/config"
	"github.com/taskdesk/core/internal/infrastructure/logger"
	"github.com/taskdesk/core/internal/infrastructure/metrics"
	"github.com/taskdesk/core/internal/ports"
)

// ReminderScheduler creates deadline reminders for active tasks. Each
// task gets at most one reminder row: the earliest configured lead time
// whose fire point has not already passed. A partial unique index on
// unsent (task, type) pairs backstops concurrent schedulers.
type ReminderScheduler struct {
	tasks         ports.TaskRepository
	notifications ports.NotificationRepository
	leadTimes     []time.Duration
	createPastDue bool
	logger        *logger.Logger
}

// NewReminderScheduler creates a new reminder scheduler
func NewReminderScheduler(
	tasks ports.TaskRepository,
	notifications ports.NotificationRepository,
	cfg config.SchedulerConfig,
	log *logger.Logger,
) *ReminderScheduler {
	leads := make([]time.Duration, len(cfg.LeadTimes))
	copy(leads, cfg.LeadTimes)
	// largest lead first: the earliest viable fire point wins
	sort.Slice(leads, func(i, j int) bool { return leads[i] > leads[j] })

	return &ReminderScheduler{
		tasks:         tasks,
		notifications: notifications,
		leadTimes:     leads,
		createPastDue: cfg.CreatePastDue,
		logger:        log.WithComponent("scheduler"),
	}
}

// ScheduleReminders scans active tasks with deadlines and creates one
// reminder per task that does not have one yet. A failure on one task is
// logged and does not stop the scan.
func (s *ReminderScheduler) ScheduleReminders(ctx context.Context, now time.Time) error {
	tasks, err := s.tasks.ListActiveWithDeadline(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks for scheduling: %w", err)
	}

	for _, task := range tasks {
		if err := s.scheduleFor(ctx, task, now); err != nil {
			s.logger.WithError(err).Warnw("failed to schedule reminder", "task_id", task.ID)
		}
	}

	return nil
}

func (s *ReminderScheduler) scheduleFor(ctx context.Context, task *entities.TaskWithNames, now time.Time) error {
	exists, err := s.notifications.ExistsByTaskAndType(ctx, task.ID, entities.NotificationReminder)
	if err != nil {
		return err
	}
	if exists {
		metrics.RemindersSkipped.WithLabelValues("exists").Inc()
		return nil
	}

	fireAt, ok := s.pickFirePoint(*task.Deadline, now)
	if !ok {
		metrics.RemindersSkipped.WithLabelValues("past_due").Inc()
		return nil
	}

	recipient := task.CreatorID
	if task.AssigneeID != nil {
		recipient = *task.AssigneeID
	}

	_, err = s.notifications.Create(ctx, &entities.Notification{
		UserID:      recipient,
		TaskID:      task.ID,
		Type:        entities.NotificationReminder,
		Message:     reminderMessage(task.Title, *task.Deadline),
		ScheduledAt: fireAt,
	})
	if errors.Is(err, entities.ErrDuplicateReminder) {
		// another scheduler won the race
		metrics.RemindersSkipped.WithLabelValues("exists").Inc()
		return nil
	}
	if err != nil {
		return err
	}

	metrics.RemindersScheduled.Inc()
	s.logger.Infow("reminder scheduled",
		"task_id", task.ID,
		"user_id", recipient,
		"fire_at", fireAt,
	)

	return nil
}

// pickFirePoint returns deadline minus the largest lead time that still
// lands in the future. When every fire point has passed, it falls back
// to the smallest lead only if past-due creation is enabled.
func (s *ReminderScheduler) pickFirePoint(deadline, now time.Time) (time.Time, bool) {
	var last time.Time
	for _, lead := range s.leadTimes {
		fireAt := deadline.Add(-lead)
		if fireAt.After(now) {
			return fireAt, true
		}
		last = fireAt
	}

	if s.createPastDue && !last.IsZero() {
		return last, true
	}

	return time.Time{}, false
}

func reminderMessage(title string, deadline time.Time) string {
	return fmt.Sprintf("Reminder: task %q is due at %s", title, deadline.UTC().Format("2006-01-02 15:04 MST"))
}
