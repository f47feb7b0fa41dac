package ports

import (
	"context"
	"time"

	"github.com/taskdesk/core/internal/domain/entities"
)

// TaskChanges is a sparse set of permitted field updates. Nil pointers
// mean "leave unchanged".
type TaskChanges struct {
	Title       *string
	Description *string
	Priority    *entities.TaskPriority
	Deadline    *time.Time
	AssigneeID  *int64
}

// IsEmpty reports whether no field is being changed.
func (c TaskChanges) IsEmpty() bool {
	return c.Title == nil && c.Description == nil && c.Priority == nil &&
		c.Deadline == nil && c.AssigneeID == nil
}

// TaskFilter narrows list queries. Zero limit means repository default.
type TaskFilter struct {
	Status *entities.TaskStatus
	Limit  int
	Offset int
}

// SearchFilter narrows full-text task search.
type SearchFilter struct {
	Text       string
	Status     *entities.TaskStatus
	Priority   *entities.TaskPriority
	AssigneeID *int64
	CreatorID  *int64
	Limit      int
	Offset     int
}

// UserRepository defines user storage operations.
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) (*entities.User, error)
	GetByID(ctx context.Context, id int64) (*entities.User, error)
	GetByChatID(ctx context.Context, chatID int64) (*entities.User, error)
	List(ctx context.Context) ([]*entities.User, error)
	ListByRole(ctx context.Context, role entities.UserRole) ([]*entities.User, error)
	TouchActivity(ctx context.Context, chatID int64, at time.Time) error
	Deactivate(ctx context.Context, id int64) (bool, error)
}

// TaskRepository defines task storage operations. Every write runs in
// its own transaction; methods returning (bool, error) report
// (false, nil) when the task does not exist.
type TaskRepository interface {
	// Create inserts the task and its "created" history entry atomically.
	Create(ctx context.Context, task *entities.Task) (*entities.Task, error)
	GetByID(ctx context.Context, id int64) (*entities.TaskWithNames, error)
	ListByAssignee(ctx context.Context, userID int64, status *entities.TaskStatus) ([]*entities.TaskWithNames, error)
	List(ctx context.Context, filter TaskFilter) ([]*entities.TaskWithNames, error)
	Search(ctx context.Context, filter SearchFilter) ([]*entities.TaskWithNames, error)
	ListOverdue(ctx context.Context, now time.Time) ([]*entities.TaskWithNames, error)
	// ListActiveWithDeadline returns new/in_progress tasks that carry a
	// deadline, for reminder scheduling.
	ListActiveWithDeadline(ctx context.Context) ([]*entities.TaskWithNames, error)
	UpdateFields(ctx context.Context, id int64, changes TaskChanges, actorID int64) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status entities.TaskStatus, actorID int64) (bool, error)
	Assign(ctx context.Context, id int64, assigneeID int64, actorID int64) (bool, error)
	// SweepOverdue bulk-transitions stale tasks to overdue and returns
	// the number of rows affected. Idempotent.
	SweepOverdue(ctx context.Context, now time.Time) (int64, error)
	History(ctx context.Context, taskID int64) ([]*entities.HistoryEntryWithUser, error)
	UserStats(ctx context.Context, userID int64) (*entities.UserStats, error)
	GeneralStats(ctx context.Context) (*entities.GeneralStats, error)
}

// NotificationRepository defines notification storage operations.
type NotificationRepository interface {
	Create(ctx context.Context, n *entities.Notification) (*entities.Notification, error)
	// ListDue returns unsent notifications with scheduled_at <= now,
	// earliest-due first.
	ListDue(ctx context.Context, now time.Time) ([]*entities.PendingNotification, error)
	// ExistsByTaskAndType reports whether any notification of the given
	// type exists for the task, sent or unsent.
	ExistsByTaskAndType(ctx context.Context, taskID int64, t entities.NotificationType) (bool, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
}
