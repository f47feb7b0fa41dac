package services

import (
	"context"
	"fmt"
	"time"

	"github.com/taskdesk/core/internal/domain/entities"
	"github.com/taskdesk/core/internal/infrastructure/logger"
	"github.com/taskdesk/core/internal/ports"
)

// TaskService handles the task lifecycle: creation, updates, status
// transitions and assignment. Status transitions are checked against the
// configured policy before they reach storage.
type TaskService struct {
	tasks         ports.TaskRepository
	users         ports.UserRepository
	notifications ports.NotificationRepository
	policy        entities.TransitionPolicy
	logger        *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(
	tasks ports.TaskRepository,
	users ports.UserRepository,
	notifications ports.NotificationRepository,
	policy entities.TransitionPolicy,
	log *logger.Logger,
) *TaskService {
	return &TaskService{
		tasks:         tasks,
		users:         users,
		notifications: notifications,
		policy:        policy,
		logger:        log.WithComponent("task_service"),
	}
}

// Create validates the creator and assignee, inserts the task with its
// audit entry, and queues an assignment notification for the assignee.
func (s *TaskService) Create(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	priority := req.Priority
	if priority == "" {
		priority = entities.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, fmt.Errorf("%w: %s", entities.ErrInvalidPriority, priority)
	}

	if _, err := s.users.GetByID(ctx, req.CreatorID); err != nil {
		return nil, fmt.Errorf("creator lookup: %w", err)
	}
	if req.AssigneeID != nil {
		if _, err := s.users.GetByID(ctx, *req.AssigneeID); err != nil {
			return nil, fmt.Errorf("assignee lookup: %w", err)
		}
	}

	task, err := s.tasks.Create(ctx, &entities.Task{
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   req.CreatorID,
		AssigneeID:  req.AssigneeID,
		Priority:    priority,
		Deadline:    req.Deadline,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("task created",
		"task_id", task.ID,
		"creator_id", task.CreatorID,
		"priority", task.Priority,
	)

	if task.AssigneeID != nil && *task.AssigneeID != task.CreatorID {
		s.queueNotification(ctx, *task.AssigneeID, task.ID, entities.NotificationAssignment,
			fmt.Sprintf("New task assigned to you: %q", task.Title))
	}

	return task, nil
}

// Get retrieves a task with creator/assignee names
func (s *TaskService) Get(ctx context.Context, id int64) (*entities.TaskWithNames, error) {
	return s.tasks.GetByID(ctx, id)
}

// List retrieves tasks matching the filter
func (s *TaskService) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.TaskWithNames, error) {
	return s.tasks.List(ctx, filter)
}

// ListByAssignee retrieves a user's tasks with optional status filter
func (s *TaskService) ListByAssignee(ctx context.Context, userID int64, status *entities.TaskStatus) ([]*entities.TaskWithNames, error) {
	return s.tasks.ListByAssignee(ctx, userID, status)
}

// Search retrieves tasks matching text and filter criteria
func (s *TaskService) Search(ctx context.Context, filter ports.SearchFilter) ([]*entities.TaskWithNames, error) {
	return s.tasks.Search(ctx, filter)
}

// ListOverdue retrieves tasks past their deadline
func (s *TaskService) ListOverdue(ctx context.Context) ([]*entities.TaskWithNames, error) {
	return s.tasks.ListOverdue(ctx, time.Now().UTC())
}

// Update applies sparse field changes to a task. A deadline change
// queues a notification for the current assignee.
func (s *TaskService) Update(ctx context.Context, id int64, req ports.UpdateTaskRequest, actorID int64) error {
	if req.Priority != nil && !req.Priority.IsValid() {
		return fmt.Errorf("%w: %s", entities.ErrInvalidPriority, *req.Priority)
	}
	if req.AssigneeID != nil {
		if _, err := s.users.GetByID(ctx, *req.AssigneeID); err != nil {
			return fmt.Errorf("assignee lookup: %w", err)
		}
	}

	found, err := s.tasks.UpdateFields(ctx, id, ports.TaskChanges{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
		AssigneeID:  req.AssigneeID,
	}, actorID)
	if err != nil {
		return err
	}
	if !found {
		return entities.ErrTaskNotFound
	}

	if req.Deadline != nil {
		task, err := s.tasks.GetByID(ctx, id)
		if err == nil && task.AssigneeID != nil && *task.AssigneeID != actorID {
			s.queueNotification(ctx, *task.AssigneeID, id, entities.NotificationDeadline,
				fmt.Sprintf("Deadline for task %q changed to %s",
					task.Title, req.Deadline.UTC().Format("2006-01-02 15:04 MST")))
		}
	}

	return nil
}

// UpdateStatus transitions a task to a new status. The transition must
// pass the configured policy; completing a task notifies its creator.
func (s *TaskService) UpdateStatus(ctx context.Context, id int64, status entities.TaskStatus, actorID int64) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %s", entities.ErrInvalidStatus, status)
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !s.policy.Allow(task.Status, status) {
		return fmt.Errorf("%w: %s -> %s", entities.ErrInvalidTransition, task.Status, status)
	}

	found, err := s.tasks.UpdateStatus(ctx, id, status, actorID)
	if err != nil {
		return err
	}
	if !found {
		return entities.ErrTaskNotFound
	}

	s.logger.Infow("task status changed",
		"task_id", id,
		"from", task.Status,
		"to", status,
		"actor_id", actorID,
	)

	if status == entities.TaskStatusCompleted && task.CreatorID != actorID {
		s.queueNotification(ctx, task.CreatorID, id, entities.NotificationCompleted,
			fmt.Sprintf("Task completed: %q", task.Title))
	}

	return nil
}

// Assign reassigns a task and queues an assignment notification
func (s *TaskService) Assign(ctx context.Context, id int64, assigneeID int64, actorID int64) error {
	if _, err := s.users.GetByID(ctx, assigneeID); err != nil {
		return fmt.Errorf("assignee lookup: %w", err)
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	found, err := s.tasks.Assign(ctx, id, assigneeID, actorID)
	if err != nil {
		return err
	}
	if !found {
		return entities.ErrTaskNotFound
	}

	if assigneeID != actorID {
		s.queueNotification(ctx, assigneeID, id, entities.NotificationAssignment,
			fmt.Sprintf("Task assigned to you: %q", task.Title))
	}

	return nil
}

// Cancel transitions a task to cancelled
func (s *TaskService) Cancel(ctx context.Context, id int64, actorID int64) error {
	return s.UpdateStatus(ctx, id, entities.TaskStatusCancelled, actorID)
}

// History retrieves the task's audit log
func (s *TaskService) History(ctx context.Context, taskID int64) ([]*entities.HistoryEntryWithUser, error) {
	return s.tasks.History(ctx, taskID)
}

// queueNotification stores an immediately-due notification. Failure to
// queue never fails the triggering operation.
func (s *TaskService) queueNotification(ctx context.Context, userID, taskID int64, nType entities.NotificationType, message string) {
	_, err := s.notifications.Create(ctx, &entities.Notification{
		UserID:      userID,
		TaskID:      taskID,
		Type:        nType,
		Message:     message,
		ScheduledAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).Warnw("failed to queue notification",
			"task_id", taskID,
			"user_id", userID,
			"type", nType,
		)
	}
}
