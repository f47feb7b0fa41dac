package ports

import (
	"context"
	"time"

	"github.com/taskdesk/core/internal/domain/entities"
)

// Messenger is the external delivery channel. Delivery is at-least-once:
// the caller re-attempts pending notifications on later ticks, so the
// channel must tolerate duplicate sends.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// RegisterUserRequest carries user registration input.
type RegisterUserRequest struct {
	ChatID    int64             `json:"chat_id" validate:"required"`
	Username  *string           `json:"username"`
	FirstName string            `json:"first_name" validate:"required,max=255"`
	LastName  string            `json:"last_name" validate:"max=255"`
	Role      entities.UserRole `json:"role" validate:"required"`
}

// CreateTaskRequest carries task creation input.
type CreateTaskRequest struct {
	Title       string                `json:"title" validate:"required,max=500"`
	Description *string               `json:"description"`
	CreatorID   int64                 `json:"creator_id" validate:"required"`
	AssigneeID  *int64                `json:"assignee_id"`
	Priority    entities.TaskPriority `json:"priority"`
	Deadline    *time.Time            `json:"deadline"`
}

// UpdateTaskRequest carries sparse task field updates.
type UpdateTaskRequest struct {
	Title       *string                `json:"title" validate:"omitempty,max=500"`
	Description *string                `json:"description"`
	Priority    *entities.TaskPriority `json:"priority"`
	Deadline    *time.Time             `json:"deadline"`
	AssigneeID  *int64                 `json:"assignee_id"`
}
