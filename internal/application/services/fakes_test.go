package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/taskdesk/core/internal/domain/entities"
	"github.com/taskdesk/core/internal/ports"
)

// memUserRepo is an in-memory user store for service tests.
type memUserRepo struct {
	users  map[int64]*entities.User
	nextID int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]*entities.User), nextID: 1}
}

func (m *memUserRepo) add(chatID int64, name string, role entities.UserRole) *entities.User {
	u := &entities.User{
		ID:           m.nextID,
		ChatID:       chatID,
		FirstName:    name,
		Role:         role,
		IsActive:     true,
		RegisteredAt: time.Now(),
		LastActivity: time.Now(),
	}
	m.users[u.ID] = u
	m.nextID++
	return u
}

func (m *memUserRepo) Create(_ context.Context, user *entities.User) (*entities.User, error) {
	for _, u := range m.users {
		if u.ChatID == user.ChatID {
			return nil, entities.ErrDuplicateUser
		}
	}
	user.ID = m.nextID
	user.IsActive = true
	user.RegisteredAt = time.Now()
	user.LastActivity = user.RegisteredAt
	m.users[user.ID] = user
	m.nextID++
	return user, nil
}

func (m *memUserRepo) GetByID(_ context.Context, id int64) (*entities.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	return u, nil
}

func (m *memUserRepo) GetByChatID(_ context.Context, chatID int64) (*entities.User, error) {
	for _, u := range m.users {
		if u.ChatID == chatID {
			return u, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (m *memUserRepo) List(_ context.Context) ([]*entities.User, error) {
	var out []*entities.User
	for _, u := range m.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUserRepo) ListByRole(_ context.Context, role entities.UserRole) ([]*entities.User, error) {
	var out []*entities.User
	for _, u := range m.users {
		if u.IsActive && u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUserRepo) TouchActivity(_ context.Context, chatID int64, at time.Time) error {
	for _, u := range m.users {
		if u.ChatID == chatID {
			u.LastActivity = at
		}
	}
	return nil
}

func (m *memUserRepo) Deactivate(_ context.Context, id int64) (bool, error) {
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	u.IsActive = false
	return true, nil
}

// memTaskRepo is an in-memory task store for service tests.
type memTaskRepo struct {
	users   *memUserRepo
	tasks   map[int64]*entities.Task
	history []*entities.HistoryEntry
	nextID  int64
}

func newMemTaskRepo(users *memUserRepo) *memTaskRepo {
	return &memTaskRepo{users: users, tasks: make(map[int64]*entities.Task), nextID: 1}
}

func (m *memTaskRepo) withNames(t *entities.Task) *entities.TaskWithNames {
	tw := &entities.TaskWithNames{Task: *t}
	if c, ok := m.users.users[t.CreatorID]; ok {
		tw.CreatorName = c.FirstName
	}
	if t.AssigneeID != nil {
		if a, ok := m.users.users[*t.AssigneeID]; ok {
			tw.AssigneeName = a.FirstName
			chatID := a.ChatID
			tw.AssigneeChatID = &chatID
		}
	}
	return tw
}

func (m *memTaskRepo) appendHistory(taskID, userID int64, action string, oldValue, newValue *string) {
	m.history = append(m.history, &entities.HistoryEntry{
		ID:        int64(len(m.history) + 1),
		TaskID:    taskID,
		UserID:    userID,
		Action:    action,
		OldValue:  oldValue,
		NewValue:  newValue,
		CreatedAt: time.Now(),
	})
}

func (m *memTaskRepo) Create(_ context.Context, task *entities.Task) (*entities.Task, error) {
	task.ID = m.nextID
	task.Status = entities.TaskStatusNew
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	m.tasks[task.ID] = task
	m.nextID++
	m.appendHistory(task.ID, task.CreatorID, "created", nil, &task.Title)
	return task, nil
}

func (m *memTaskRepo) GetByID(_ context.Context, id int64) (*entities.TaskWithNames, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	return m.withNames(t), nil
}

func (m *memTaskRepo) list(match func(*entities.Task) bool) []*entities.TaskWithNames {
	var out []*entities.TaskWithNames
	for _, t := range m.tasks {
		if match(t) {
			out = append(out, m.withNames(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Deadline, out[j].Deadline
		switch {
		case a == nil && b == nil:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
	})
	return out
}

func (m *memTaskRepo) ListByAssignee(_ context.Context, userID int64, status *entities.TaskStatus) ([]*entities.TaskWithNames, error) {
	return m.list(func(t *entities.Task) bool {
		if t.AssigneeID == nil || *t.AssigneeID != userID {
			return false
		}
		return status == nil || t.Status == *status
	}), nil
}

func (m *memTaskRepo) List(_ context.Context, filter ports.TaskFilter) ([]*entities.TaskWithNames, error) {
	return m.list(func(t *entities.Task) bool {
		return filter.Status == nil || t.Status == *filter.Status
	}), nil
}

func (m *memTaskRepo) Search(_ context.Context, filter ports.SearchFilter) ([]*entities.TaskWithNames, error) {
	text := strings.ToLower(filter.Text)
	return m.list(func(t *entities.Task) bool {
		if text != "" && !strings.Contains(strings.ToLower(t.Title), text) {
			return false
		}
		if filter.Status != nil && t.Status != *filter.Status {
			return false
		}
		return true
	}), nil
}

func (m *memTaskRepo) ListOverdue(_ context.Context, now time.Time) ([]*entities.TaskWithNames, error) {
	return m.list(func(t *entities.Task) bool {
		return t.Deadline != nil && t.Deadline.Before(now) &&
			t.Status != entities.TaskStatusCompleted && t.Status != entities.TaskStatusCancelled
	}), nil
}

func (m *memTaskRepo) ListActiveWithDeadline(_ context.Context) ([]*entities.TaskWithNames, error) {
	return m.list(func(t *entities.Task) bool {
		return t.Deadline != nil &&
			(t.Status == entities.TaskStatusNew || t.Status == entities.TaskStatusInProgress)
	}), nil
}

func (m *memTaskRepo) UpdateFields(_ context.Context, id int64, changes ports.TaskChanges, actorID int64) (bool, error) {
	t, ok := m.tasks[id]
	if !ok {
		return false, nil
	}
	if changes.Title != nil {
		m.appendHistory(id, actorID, "title_updated", &t.Title, changes.Title)
		t.Title = *changes.Title
	}
	if changes.Description != nil {
		t.Description = changes.Description
	}
	if changes.Priority != nil {
		t.Priority = *changes.Priority
	}
	if changes.Deadline != nil {
		t.Deadline = changes.Deadline
	}
	if changes.AssigneeID != nil {
		t.AssigneeID = changes.AssigneeID
	}
	t.UpdatedAt = time.Now()
	return true, nil
}

func (m *memTaskRepo) UpdateStatus(_ context.Context, id int64, status entities.TaskStatus, actorID int64) (bool, error) {
	t, ok := m.tasks[id]
	if !ok {
		return false, nil
	}
	oldVal := string(t.Status)
	newVal := string(status)
	m.appendHistory(id, actorID, "status_changed", &oldVal, &newVal)
	t.Status = status
	t.UpdatedAt = time.Now()
	if status == entities.TaskStatusCompleted {
		now := time.Now()
		t.CompletedAt = &now
	}
	return true, nil
}

func (m *memTaskRepo) Assign(_ context.Context, id int64, assigneeID int64, actorID int64) (bool, error) {
	t, ok := m.tasks[id]
	if !ok {
		return false, nil
	}
	newVal := fmt.Sprintf("%d", assigneeID)
	m.appendHistory(id, actorID, "assigned", nil, &newVal)
	t.AssigneeID = &assigneeID
	t.UpdatedAt = time.Now()
	return true, nil
}

func (m *memTaskRepo) SweepOverdue(_ context.Context, now time.Time) (int64, error) {
	var swept int64
	for _, t := range m.tasks {
		if t.Deadline == nil || !t.Deadline.Before(now) {
			continue
		}
		switch t.Status {
		case entities.TaskStatusCompleted, entities.TaskStatusCancelled, entities.TaskStatusOverdue:
			continue
		}
		t.Status = entities.TaskStatusOverdue
		t.UpdatedAt = now
		swept++
	}
	return swept, nil
}

func (m *memTaskRepo) History(_ context.Context, taskID int64) ([]*entities.HistoryEntryWithUser, error) {
	var out []*entities.HistoryEntryWithUser
	for _, h := range m.history {
		if h.TaskID == taskID {
			out = append(out, &entities.HistoryEntryWithUser{HistoryEntry: *h})
		}
	}
	return out, nil
}

func (m *memTaskRepo) UserStats(_ context.Context, userID int64) (*entities.UserStats, error) {
	var stats entities.UserStats
	for _, t := range m.tasks {
		if t.AssigneeID == nil || *t.AssigneeID != userID {
			continue
		}
		stats.TotalTasks++
		switch t.Status {
		case entities.TaskStatusCompleted:
			stats.CompletedTasks++
		case entities.TaskStatusOverdue:
			stats.OverdueTasks++
		case entities.TaskStatusNew, entities.TaskStatusInProgress:
			stats.ActiveTasks++
		}
	}
	return &stats, nil
}

func (m *memTaskRepo) GeneralStats(_ context.Context) (*entities.GeneralStats, error) {
	var stats entities.GeneralStats
	for _, t := range m.tasks {
		stats.TotalTasks++
		switch t.Status {
		case entities.TaskStatusCompleted:
			stats.CompletedTasks++
		case entities.TaskStatusOverdue:
			stats.OverdueTasks++
		case entities.TaskStatusNew, entities.TaskStatusInProgress:
			stats.ActiveTasks++
		}
	}
	for _, u := range m.users.users {
		if u.IsActive {
			stats.TotalUsers++
		}
	}
	return &stats, nil
}

// memNotificationRepo is an in-memory notification store for service
// tests. It enforces the unsent (task, type) uniqueness the partial
// index provides in Postgres.
type memNotificationRepo struct {
	users         *memUserRepo
	tasks         *memTaskRepo
	notifications []*entities.Notification
	nextID        int64
}

func newMemNotificationRepo(users *memUserRepo, tasks *memTaskRepo) *memNotificationRepo {
	return &memNotificationRepo{users: users, tasks: tasks, nextID: 1}
}

func (m *memNotificationRepo) Create(_ context.Context, n *entities.Notification) (*entities.Notification, error) {
	for _, existing := range m.notifications {
		if !existing.IsSent && existing.TaskID == n.TaskID && existing.Type == n.Type {
			return nil, entities.ErrDuplicateReminder
		}
	}
	n.ID = m.nextID
	n.CreatedAt = time.Now()
	m.notifications = append(m.notifications, n)
	m.nextID++
	return n, nil
}

func (m *memNotificationRepo) ListDue(_ context.Context, now time.Time) ([]*entities.PendingNotification, error) {
	var out []*entities.PendingNotification
	for _, n := range m.notifications {
		if n.IsSent || n.ScheduledAt.After(now) {
			continue
		}
		p := &entities.PendingNotification{Notification: *n}
		if u, ok := m.users.users[n.UserID]; ok {
			p.ChatID = u.ChatID
		}
		if t, ok := m.tasks.tasks[n.TaskID]; ok {
			p.TaskTitle = t.Title
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (m *memNotificationRepo) ExistsByTaskAndType(_ context.Context, taskID int64, t entities.NotificationType) (bool, error) {
	for _, n := range m.notifications {
		if n.TaskID == taskID && n.Type == t {
			return true, nil
		}
	}
	return false, nil
}

func (m *memNotificationRepo) MarkSent(_ context.Context, id int64, at time.Time) error {
	for _, n := range m.notifications {
		if n.ID == id && !n.IsSent {
			n.IsSent = true
			sentAt := at
			n.SentAt = &sentAt
		}
	}
	return nil
}

// fakeMessenger records sends and can be told to fail specific chats.
type fakeMessenger struct {
	sent     []int64
	failFor  map[int64]bool
	messages []string
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, text string) error {
	if f.failFor[chatID] {
		return fmt.Errorf("delivery to %d failed", chatID)
	}
	f.sent = append(f.sent, chatID)
	f.messages = append(f.messages, text)
	return nil
}
