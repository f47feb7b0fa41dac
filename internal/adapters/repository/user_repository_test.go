package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk/core/internal/domain/entities"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	now := time.Now()
	username := "alice"
	mock.ExpectQuery("INSERT INTO users").
		WithArgs(int64(100), &username, "Alice", "Smith", entities.UserRoleUser).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active", "registered_at", "last_activity"}).
			AddRow(int64(1), true, now, now))

	user, err := repo.Create(context.Background(), &entities.User{
		ChatID:    100,
		Username:  &username,
		FirstName: "Alice",
		LastName:  "Smith",
		Role:      entities.UserRoleUser,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.True(t, user.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateChatID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), &entities.User{
		ChatID:    100,
		FirstName: "Alice",
		Role:      entities.UserRoleUser,
	})

	assert.ErrorIs(t, err, entities.ErrDuplicateUser)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByChatID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT .+ FROM users").
		WithArgs(int64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByChatID(context.Background(), 999)

	assert.ErrorIs(t, err, entities.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Deactivate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE users SET is_active = false").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Deactivate(context.Background(), 5)

	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec("UPDATE users SET is_active = false").
		WithArgs(int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.Deactivate(context.Background(), 6)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
