package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taskdesk/core/internal/domain/entities"
)

// NotificationRepository implements the notification repository interface
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a pending notification. A duplicate unsent reminder for
// the same (task, type) violates the partial unique index and maps to
// entities.ErrDuplicateReminder.
func (r *NotificationRepository) Create(ctx context.Context, n *entities.Notification) (*entities.Notification, error) {
	query := `
		INSERT INTO notifications (user_id, task_id, type, message, scheduled_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_sent, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		n.UserID,
		n.TaskID,
		n.Type,
		n.Message,
		n.ScheduledAt,
	).Scan(&n.ID, &n.IsSent, &n.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, entities.ErrDuplicateReminder
		}
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return n, nil
}

// ListDue retrieves unsent notifications whose scheduled time has
// arrived, joined with dispatch context, oldest first.
func (r *NotificationRepository) ListDue(ctx context.Context, now time.Time) ([]*entities.PendingNotification, error) {
	query := `
		SELECT n.id, n.user_id, n.task_id, n.type, n.message, n.is_sent,
		       n.scheduled_at, n.sent_at, n.created_at,
		       u.chat_id, t.title AS task_title
		FROM notifications n
		JOIN users u ON u.id = n.user_id
		JOIN tasks t ON t.id = n.task_id
		WHERE NOT n.is_sent AND n.scheduled_at <= $1
		ORDER BY n.scheduled_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due notifications: %w", err)
	}
	defer rows.Close()

	var pending []*entities.PendingNotification
	for rows.Next() {
		var p entities.PendingNotification
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.TaskID,
			&p.Type,
			&p.Message,
			&p.IsSent,
			&p.ScheduledAt,
			&p.SentAt,
			&p.CreatedAt,
			&p.ChatID,
			&p.TaskTitle,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		pending = append(pending, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return pending, nil
}

// ExistsByTaskAndType reports whether any notification of the given type
// already exists for the task, sent or not.
func (r *NotificationRepository) ExistsByTaskAndType(ctx context.Context, taskID int64, nType entities.NotificationType) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM notifications WHERE task_id = $1 AND type = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, taskID, nType).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check notification existence: %w", err)
	}

	return exists, nil
}

// MarkSent flips an unsent notification to sent and stamps sent_at.
// Marking an already-sent notification is a no-op.
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	query := `
		UPDATE notifications SET is_sent = true, sent_at = $2
		WHERE id = $1 AND NOT is_sent
	`

	if _, err := r.db.ExecContext(ctx, query, id, sentAt); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	return nil
}
