package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrDuplicateUser        = errors.New("user already registered")
	ErrDuplicateReminder    = errors.New("reminder already exists for task")
	ErrInvalidRole          = errors.New("invalid user role")
	ErrInvalidStatus        = errors.New("invalid task status")
	ErrInvalidPriority      = errors.New("invalid task priority")
	ErrInvalidNotification  = errors.New("invalid notification type")
	ErrInvalidTransition    = errors.New("status transition not allowed")
)

// Enums and types
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

type TaskStatus string

const (
	TaskStatusNew        TaskStatus = "new"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusOverdue    TaskStatus = "overdue"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

type NotificationType string

const (
	NotificationReminder   NotificationType = "reminder"
	NotificationAssignment NotificationType = "assignment"
	NotificationDeadline   NotificationType = "deadline"
	NotificationCompleted  NotificationType = "completed"
)

// User represents a registered chat user. Users are never hard-deleted,
// only deactivated.
type User struct {
	ID           int64     `json:"id" db:"id"`
	ChatID       int64     `json:"chat_id" db:"chat_id"`
	Username     *string   `json:"username" db:"username"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Role         UserRole  `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
	LastActivity time.Time `json:"last_activity" db:"last_activity"`
}

// Task represents a unit of work with an owner, optional assignee,
// status, priority and optional deadline.
type Task struct {
	ID          int64        `json:"id" db:"id"`
	Title       string       `json:"title" db:"title"`
	Description *string      `json:"description" db:"description"`
	CreatorID   int64        `json:"creator_id" db:"creator_id"`
	AssigneeID  *int64       `json:"assignee_id" db:"assignee_id"`
	Status      TaskStatus   `json:"status" db:"status"`
	Priority    TaskPriority `json:"priority" db:"priority"`
	Deadline    *time.Time   `json:"deadline" db:"deadline"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at" db:"completed_at"`
}

// TaskWithNames is a task joined with creator/assignee profile data,
// as returned by all read queries.
type TaskWithNames struct {
	Task
	CreatorName    string `json:"creator_name" db:"creator_name"`
	AssigneeName   string `json:"assignee_name" db:"assignee_name"`
	AssigneeChatID *int64 `json:"assignee_chat_id,omitempty" db:"assignee_chat_id"`
}

// Notification is bound to exactly one task and one recipient.
// It is immutable once sent.
type Notification struct {
	ID          int64            `json:"id" db:"id"`
	UserID      int64            `json:"user_id" db:"user_id"`
	TaskID      int64            `json:"task_id" db:"task_id"`
	Type        NotificationType `json:"type" db:"type"`
	Message     string           `json:"message" db:"message"`
	IsSent      bool             `json:"is_sent" db:"is_sent"`
	ScheduledAt time.Time        `json:"scheduled_at" db:"scheduled_at"`
	SentAt      *time.Time       `json:"sent_at" db:"sent_at"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// PendingNotification is a due notification joined with the recipient's
// chat id and the task title for delivery.
type PendingNotification struct {
	Notification
	ChatID    int64  `json:"chat_id" db:"chat_id"`
	TaskTitle string `json:"task_title" db:"task_title"`
}

// HistoryEntry is one immutable audit record of a field or status change.
type HistoryEntry struct {
	ID        int64     `json:"id" db:"id"`
	TaskID    int64     `json:"task_id" db:"task_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	OldValue  *string   `json:"old_value" db:"old_value"`
	NewValue  *string   `json:"new_value" db:"new_value"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HistoryEntryWithUser carries the acting user's display name.
type HistoryEntryWithUser struct {
	HistoryEntry
	UserName string `json:"user_name" db:"user_name"`
}

// UserStats holds per-assignee aggregate task counts.
type UserStats struct {
	TotalTasks     int `json:"total_tasks" db:"total_tasks"`
	CompletedTasks int `json:"completed_tasks" db:"completed_tasks"`
	OverdueTasks   int `json:"overdue_tasks" db:"overdue_tasks"`
	ActiveTasks    int `json:"active_tasks" db:"active_tasks"`
}

// GeneralStats holds system-wide aggregate counts.
type GeneralStats struct {
	TotalTasks     int `json:"total_tasks" db:"total_tasks"`
	CompletedTasks int `json:"completed_tasks" db:"completed_tasks"`
	OverdueTasks   int `json:"overdue_tasks" db:"overdue_tasks"`
	ActiveTasks    int `json:"active_tasks" db:"active_tasks"`
	ActiveUsers    int `json:"active_users" db:"active_users"`
	TotalUsers     int `json:"total_users" db:"total_users"`
}

// Business logic methods for User

func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != nil {
		return *u.Username
	}
	return name
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// Business logic methods for Task

// IsOverdue reports whether the task's deadline has passed while the
// task is still in a non-terminal status.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Deadline == nil {
		return false
	}
	return t.Deadline.Before(now) && !t.Status.IsTerminal()
}

func (t *Task) IsActive() bool {
	return t.Status == TaskStatusNew || t.Status == TaskStatusInProgress
}

// Validation and parsing

func (ur UserRole) IsValid() bool {
	switch ur {
	case UserRoleAdmin, UserRoleUser:
		return true
	default:
		return false
	}
}

func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusNew, TaskStatusInProgress, TaskStatusCompleted, TaskStatusOverdue, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status ends a task's lifecycle.
func (ts TaskStatus) IsTerminal() bool {
	return ts == TaskStatusCompleted || ts == TaskStatusCancelled
}

func (tp TaskPriority) IsValid() bool {
	switch tp {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

func (nt NotificationType) IsValid() bool {
	switch nt {
	case NotificationReminder, NotificationAssignment, NotificationDeadline, NotificationCompleted:
		return true
	default:
		return false
	}
}

// ParseUserRole validates a raw role string at the boundary.
func ParseUserRole(s string) (UserRole, error) {
	r := UserRole(s)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// ParseTaskStatus validates a raw status string at the boundary.
func ParseTaskStatus(s string) (TaskStatus, error) {
	st := TaskStatus(s)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// ParseTaskPriority validates a raw priority string at the boundary.
func ParseTaskPriority(s string) (TaskPriority, error) {
	p := TaskPriority(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}
