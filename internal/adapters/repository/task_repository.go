package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taskdesk/core/internal/domain/entities"
	"github.com/taskdesk/core/internal/infrastructure/database"
	"github.com/taskdesk/core/internal/ports"
)

// TaskRepository implements the task repository interface. Writes that
// touch both the task and its history run in one transaction.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// taskSelect joins creator/assignee profile data onto every task read.
const taskSelect = `
	SELECT t.id, t.title, t.description, t.creator_id, t.assignee_id,
	       t.status, t.priority, t.deadline, t.created_at, t.updated_at, t.completed_at,
	       COALESCE(TRIM(c.first_name || ' ' || c.last_name), '') AS creator_name,
	       COALESCE(TRIM(a.first_name || ' ' || a.last_name), '') AS assignee_name,
	       a.chat_id AS assignee_chat_id
	FROM tasks t
	JOIN users c ON c.id = t.creator_id
	LEFT JOIN users a ON a.id = t.assignee_id
`

// taskOrdering is the ordering contract every list query honors:
// soonest deadline first, nulls last, then newest-created first.
const taskOrdering = ` ORDER BY t.deadline ASC NULLS LAST, t.created_at DESC`

func scanTaskWithNames(row interface{ Scan(...interface{}) error }) (*entities.TaskWithNames, error) {
	var task entities.TaskWithNames
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.CreatorID,
		&task.AssigneeID,
		&task.Status,
		&task.Priority,
		&task.Deadline,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.CompletedAt,
		&task.CreatorName,
		&task.AssigneeName,
		&task.AssigneeChatID,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Create inserts a new task and its "created" history entry in one
// transaction. A failure on either insert rolls back both.
func (r *TaskRepository) Create(ctx context.Context, task *entities.Task) (*entities.Task, error) {
	err := database.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO tasks (title, description, creator_id, assignee_id, status, priority, deadline)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, status, created_at, updated_at
		`

		err := tx.QueryRowContext(ctx, query,
			task.Title,
			task.Description,
			task.CreatorID,
			task.AssigneeID,
			entities.TaskStatusNew,
			task.Priority,
			task.Deadline,
		).Scan(&task.ID, &task.Status, &task.CreatedAt, &task.UpdatedAt)

		if err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}

		return insertHistory(ctx, tx, task.ID, task.CreatorID, "created", nil, &task.Title)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// GetByID retrieves a task by ID with joined names
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*entities.TaskWithNames, error) {
	query := taskSelect + ` WHERE t.id = $1`

	task, err := scanTaskWithNames(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListByAssignee retrieves tasks assigned to a user, optionally filtered
// by status.
func (r *TaskRepository) ListByAssignee(ctx context.Context, userID int64, status *entities.TaskStatus) ([]*entities.TaskWithNames, error) {
	query := taskSelect + ` WHERE t.assignee_id = $1`
	args := []interface{}{userID}

	if status != nil {
		query += ` AND t.status = $2`
		args = append(args, *status)
	}

	query += taskOrdering

	return r.queryTasks(ctx, query, args...)
}

// List retrieves tasks with optional status filter and pagination
func (r *TaskRepository) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.TaskWithNames, error) {
	query := taskSelect
	var args []interface{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += ` WHERE t.status = $1`
	}

	query += taskOrdering

	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	return r.queryTasks(ctx, query, args...)
}

// Search retrieves tasks matching text and filter criteria
func (r *TaskRepository) Search(ctx context.Context, filter ports.SearchFilter) ([]*entities.TaskWithNames, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.Text != "" {
		pattern := "%" + filter.Text + "%"
		conditions = append(conditions, fmt.Sprintf("(t.title ILIKE $%d OR t.description ILIKE $%d)", argIndex, argIndex))
		args = append(args, pattern)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.Priority != nil {
		conditions = append(conditions, fmt.Sprintf("t.priority = $%d", argIndex))
		args = append(args, *filter.Priority)
		argIndex++
	}

	if filter.AssigneeID != nil {
		conditions = append(conditions, fmt.Sprintf("t.assignee_id = $%d", argIndex))
		args = append(args, *filter.AssigneeID)
		argIndex++
	}

	if filter.CreatorID != nil {
		conditions = append(conditions, fmt.Sprintf("t.creator_id = $%d", argIndex))
		args = append(args, *filter.CreatorID)
		argIndex++
	}

	query := taskSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += taskOrdering

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, argIndex, argIndex+1)

	return r.queryTasks(ctx, query, args...)
}

// ListOverdue retrieves tasks past their deadline that are not yet
// completed or cancelled.
func (r *TaskRepository) ListOverdue(ctx context.Context, now time.Time) ([]*entities.TaskWithNames, error) {
	query := taskSelect + `
		WHERE t.deadline < $1 AND t.status NOT IN ('completed', 'cancelled')` + taskOrdering

	return r.queryTasks(ctx, query, now)
}

// ListActiveWithDeadline retrieves new/in_progress tasks carrying a
// deadline, soonest first.
func (r *TaskRepository) ListActiveWithDeadline(ctx context.Context) ([]*entities.TaskWithNames, error) {
	query := taskSelect + `
		WHERE t.deadline IS NOT NULL AND t.status IN ('new', 'in_progress')` + taskOrdering

	return r.queryTasks(ctx, query)
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]*entities.TaskWithNames, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entities.TaskWithNames
	for rows.Next() {
		task, err := scanTaskWithNames(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tasks, nil
}

// UpdateFields applies a sparse set of field changes, appending one
// history entry per changed field. Returns (false, nil) when the task
// does not exist.
func (r *TaskRepository) UpdateFields(ctx context.Context, id int64, changes ports.TaskChanges, actorID int64) (bool, error) {
	if changes.IsEmpty() {
		return true, nil
	}

	found := false
	err := database.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var current entities.Task
		err := tx.QueryRowContext(ctx, `
			SELECT id, title, description, priority, deadline, assignee_id
			FROM tasks WHERE id = $1 FOR UPDATE
		`, id).Scan(&current.ID, &current.Title, &current.Description, &current.Priority, &current.Deadline, &current.AssigneeID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load task for update: %w", err)
		}
		found = true

		var sets []string
		var args []interface{}
		argIndex := 1

		set := func(column string, value interface{}) {
			sets = append(sets, fmt.Sprintf("%s = $%d", column, argIndex))
			args = append(args, value)
			argIndex++
		}
		record := func(field string, oldValue, newValue *string) error {
			return insertHistory(ctx, tx, id, actorID, field+"_updated", oldValue, newValue)
		}

		if changes.Title != nil && *changes.Title != current.Title {
			if err := record("title", &current.Title, changes.Title); err != nil {
				return err
			}
			set("title", *changes.Title)
		}
		if changes.Description != nil && !equalStringPtr(changes.Description, current.Description) {
			if err := record("description", current.Description, changes.Description); err != nil {
				return err
			}
			set("description", *changes.Description)
		}
		if changes.Priority != nil && *changes.Priority != current.Priority {
			oldVal := string(current.Priority)
			newVal := string(*changes.Priority)
			if err := record("priority", &oldVal, &newVal); err != nil {
				return err
			}
			set("priority", *changes.Priority)
		}
		if changes.Deadline != nil && !equalTimePtr(changes.Deadline, current.Deadline) {
			if err := record("deadline", formatTimePtr(current.Deadline), formatTimePtr(changes.Deadline)); err != nil {
				return err
			}
			set("deadline", *changes.Deadline)
		}
		if changes.AssigneeID != nil && !equalInt64Ptr(changes.AssigneeID, current.AssigneeID) {
			if err := record("assignee", formatInt64Ptr(current.AssigneeID), formatInt64Ptr(changes.AssigneeID)); err != nil {
				return err
			}
			set("assignee_id", *changes.AssigneeID)
		}

		if len(sets) == 0 {
			return nil
		}

		set("updated_at", time.Now().UTC())
		args = append(args, id)
		query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d`, strings.Join(sets, ", "), argIndex)

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update task fields: %w", err)
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return found, nil
}

// UpdateStatus sets the task status and appends a status_changed entry.
// completed_at is stamped only on the transition to completed; other
// statuses leave it untouched. Returns (false, nil) for a missing task.
func (r *TaskRepository) UpdateStatus(ctx context.Context, id int64, status entities.TaskStatus, actorID int64) (bool, error) {
	found := false
	err := database.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var oldStatus entities.TaskStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = $1 FOR UPDATE`, id).Scan(&oldStatus)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load task status: %w", err)
		}
		found = true

		now := time.Now().UTC()
		if status == entities.TaskStatusCompleted {
			_, err = tx.ExecContext(ctx, `
				UPDATE tasks SET status = $2, updated_at = $3, completed_at = $3 WHERE id = $1
			`, id, status, now)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE tasks SET status = $2, updated_at = $3 WHERE id = $1
			`, id, status, now)
		}
		if err != nil {
			return fmt.Errorf("failed to update task status: %w", err)
		}

		oldVal := string(oldStatus)
		newVal := string(status)
		return insertHistory(ctx, tx, id, actorID, "status_changed", &oldVal, &newVal)
	})
	if err != nil {
		return false, err
	}

	return found, nil
}

// Assign reassigns the task, recording the previous assignee (or null)
// in history. Returns (false, nil) for a missing task.
func (r *TaskRepository) Assign(ctx context.Context, id int64, assigneeID int64, actorID int64) (bool, error) {
	found := false
	err := database.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var oldAssignee *int64
		err := tx.QueryRowContext(ctx, `SELECT assignee_id FROM tasks WHERE id = $1 FOR UPDATE`, id).Scan(&oldAssignee)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load task assignee: %w", err)
		}
		found = true

		_, err = tx.ExecContext(ctx, `
			UPDATE tasks SET assignee_id = $2, updated_at = $3 WHERE id = $1
		`, id, assigneeID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to assign task: %w", err)
		}

		return insertHistory(ctx, tx, id, actorID, "assigned", formatInt64Ptr(oldAssignee), formatInt64Ptr(&assigneeID))
	})
	if err != nil {
		return false, err
	}

	return found, nil
}

// SweepOverdue bulk-transitions stale tasks to overdue. The status
// filter excludes already-overdue rows, so a second run is a no-op.
// No history entries are written for this bulk transition.
func (r *TaskRepository) SweepOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE tasks SET status = 'overdue', updated_at = $1
		WHERE deadline < $1 AND status NOT IN ('completed', 'cancelled', 'overdue')
	`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep overdue tasks: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected, nil
}

// History retrieves the task's audit log, newest first
func (r *TaskRepository) History(ctx context.Context, taskID int64) ([]*entities.HistoryEntryWithUser, error) {
	query := `
		SELECT h.id, h.task_id, h.user_id, h.action, h.old_value, h.new_value, h.created_at,
		       COALESCE(TRIM(u.first_name || ' ' || u.last_name), '') AS user_name
		FROM task_history h
		JOIN users u ON u.id = h.user_id
		WHERE h.task_id = $1
		ORDER BY h.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task history: %w", err)
	}
	defer rows.Close()

	var entries []*entities.HistoryEntryWithUser
	for rows.Next() {
		var e entities.HistoryEntryWithUser
		err := rows.Scan(&e.ID, &e.TaskID, &e.UserID, &e.Action, &e.OldValue, &e.NewValue, &e.CreatedAt, &e.UserName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// UserStats computes per-assignee aggregates in a single round trip
func (r *TaskRepository) UserStats(ctx context.Context, userID int64) (*entities.UserStats, error) {
	query := `
		SELECT COUNT(*) AS total_tasks,
		       COUNT(*) FILTER (WHERE status = 'completed') AS completed_tasks,
		       COUNT(*) FILTER (WHERE status = 'overdue') AS overdue_tasks,
		       COUNT(*) FILTER (WHERE status IN ('new', 'in_progress')) AS active_tasks
		FROM tasks
		WHERE assignee_id = $1
	`

	var stats entities.UserStats
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalTasks,
		&stats.CompletedTasks,
		&stats.OverdueTasks,
		&stats.ActiveTasks,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	return &stats, nil
}

// GeneralStats computes system-wide aggregates in a single round trip
func (r *TaskRepository) GeneralStats(ctx context.Context) (*entities.GeneralStats, error) {
	query := `
		SELECT COUNT(*) AS total_tasks,
		       COUNT(*) FILTER (WHERE status = 'completed') AS completed_tasks,
		       COUNT(*) FILTER (WHERE status = 'overdue') AS overdue_tasks,
		       COUNT(*) FILTER (WHERE status IN ('new', 'in_progress')) AS active_tasks,
		       COUNT(DISTINCT assignee_id) FILTER (WHERE assignee_id IS NOT NULL) AS active_users,
		       (SELECT COUNT(*) FROM users WHERE is_active = true) AS total_users
		FROM tasks
	`

	var stats entities.GeneralStats
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalTasks,
		&stats.CompletedTasks,
		&stats.OverdueTasks,
		&stats.ActiveTasks,
		&stats.ActiveUsers,
		&stats.TotalUsers,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get general stats: %w", err)
	}

	return &stats, nil
}

// insertHistory appends one audit entry within the caller's transaction
func insertHistory(ctx context.Context, tx *sqlx.Tx, taskID, userID int64, action string, oldValue, newValue *string) error {
	query := `
		INSERT INTO task_history (task_id, user_id, action, old_value, new_value)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := tx.ExecContext(ctx, query, taskID, userID, action, oldValue, newValue); err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	return nil
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func formatInt64Ptr(v *int64) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatInt(*v, 10)
	return &s
}
