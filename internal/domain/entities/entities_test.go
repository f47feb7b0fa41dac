package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskStatus(t *testing.T) {
	status, err := ParseTaskStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusInProgress, status)

	_, err = ParseTaskStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestParseTaskPriority(t *testing.T) {
	priority, err := ParseTaskPriority("high")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, priority)

	_, err = ParseTaskPriority("urgent")
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("admin")
	require.NoError(t, err)
	assert.Equal(t, UserRoleAdmin, role)

	_, err = ParseUserRole("moderator")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	assert.True(t, TaskStatusCompleted.IsTerminal())
	assert.True(t, TaskStatusCancelled.IsTerminal())
	assert.False(t, TaskStatusNew.IsTerminal())
	assert.False(t, TaskStatusInProgress.IsTerminal())
	assert.False(t, TaskStatusOverdue.IsTerminal())
}

func TestTask_IsOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Task{Deadline: &past, Status: TaskStatusNew}).IsOverdue(now))
	assert.False(t, (&Task{Deadline: &future, Status: TaskStatusNew}).IsOverdue(now))
	assert.False(t, (&Task{Status: TaskStatusNew}).IsOverdue(now))
	assert.False(t, (&Task{Deadline: &past, Status: TaskStatusCompleted}).IsOverdue(now))
	assert.False(t, (&Task{Deadline: &past, Status: TaskStatusCancelled}).IsOverdue(now))
}

func TestUser_FullName(t *testing.T) {
	username := "asmith"

	assert.Equal(t, "Alice Smith", (&User{FirstName: "Alice", LastName: "Smith"}).FullName())
	assert.Equal(t, "Alice", (&User{FirstName: "Alice"}).FullName())
	assert.Equal(t, "asmith", (&User{Username: &username}).FullName())
}

func TestTransitionPolicies(t *testing.T) {
	anyPolicy := AllowAnyTransition{}
	assert.True(t, anyPolicy.Allow(TaskStatusCompleted, TaskStatusInProgress))
	assert.True(t, anyPolicy.Allow(TaskStatusCancelled, TaskStatusNew))
	assert.False(t, anyPolicy.Allow(TaskStatusNew, TaskStatus("archived")))

	strict := StrictTransitions{}
	assert.True(t, strict.Allow(TaskStatusNew, TaskStatusInProgress))
	assert.True(t, strict.Allow(TaskStatusInProgress, TaskStatusCompleted))
	assert.True(t, strict.Allow(TaskStatusOverdue, TaskStatusCompleted))
	assert.True(t, strict.Allow(TaskStatusNew, TaskStatusOverdue))
	assert.False(t, strict.Allow(TaskStatusCompleted, TaskStatusInProgress))
	assert.False(t, strict.Allow(TaskStatusCancelled, TaskStatusNew))
	assert.False(t, strict.Allow(TaskStatusCompleted, TaskStatusOverdue))
}
