package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taskdesk/core/internal/domain/entities"
)

// UserRepository implements the user repository interface
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, chat_id, username, first_name, last_name, role, is_active, registered_at, last_activity`

func scanUser(row interface{ Scan(...interface{}) error }) (*entities.User, error) {
	var user entities.User
	err := row.Scan(
		&user.ID,
		&user.ChatID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.IsActive,
		&user.RegisteredAt,
		&user.LastActivity,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create registers a new user. Returns entities.ErrDuplicateUser when the
// chat id is already registered.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) (*entities.User, error) {
	query := `
		INSERT INTO users (chat_id, username, first_name, last_name, role, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING id, is_active, registered_at, last_activity
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ChatID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Role,
	).Scan(&user.ID, &user.IsActive, &user.RegisteredAt, &user.LastActivity)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, entities.ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by internal ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByChatID retrieves a user by external chat ID
func (r *UserRepository) GetByChatID(ctx context.Context, chatID int64) (*entities.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE chat_id = $1`, userColumns)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, chatID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by chat id: %w", err)
	}

	return user, nil
}

// List retrieves all active users ordered by first name
func (r *UserRepository) List(ctx context.Context) ([]*entities.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE is_active = true ORDER BY first_name`, userColumns)

	return r.queryUsers(ctx, query)
}

// ListByRole retrieves active users with the given role
func (r *UserRepository) ListByRole(ctx context.Context, role entities.UserRole) ([]*entities.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE role = $1 AND is_active = true ORDER BY first_name`, userColumns)

	return r.queryUsers(ctx, query, role)
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*entities.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entities.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// TouchActivity stamps the user's last activity time
func (r *UserRepository) TouchActivity(ctx context.Context, chatID int64, at time.Time) error {
	query := `UPDATE users SET last_activity = $2 WHERE chat_id = $1`

	if _, err := r.db.ExecContext(ctx, query, chatID, at); err != nil {
		return fmt.Errorf("failed to touch user activity: %w", err)
	}

	return nil
}

// Deactivate soft-deletes a user. Returns false when the user does not exist.
func (r *UserRepository) Deactivate(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE users SET is_active = false WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected > 0, nil
}
