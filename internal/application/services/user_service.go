package services

import (
	"context"
	"fmt"
	"time"

	"github.com/taskdesk/core/internal/domain/entities"
	"github.com/taskdesk/core/internal/infrastructure/logger"
	"github.com/taskdesk/core/internal/ports"
)

// UserService handles user registration and profile operations
type UserService struct {
	users  ports.UserRepository
	logger *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(users ports.UserRepository, log *logger.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: log.WithComponent("user_service"),
	}
}

// Register creates a new user account
func (s *UserService) Register(ctx context.Context, req ports.RegisterUserRequest) (*entities.User, error) {
	if !req.Role.IsValid() {
		return nil, fmt.Errorf("%w: %s", entities.ErrInvalidRole, req.Role)
	}

	user, err := s.users.Create(ctx, &entities.User{
		ChatID:    req.ChatID,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("user registered",
		"user_id", user.ID,
		"chat_id", user.ChatID,
		"role", user.Role,
	)

	return user, nil
}

// Get retrieves a user by internal ID
func (s *UserService) Get(ctx context.Context, id int64) (*entities.User, error) {
	return s.users.GetByID(ctx, id)
}

// GetByChatID retrieves a user by external chat ID
func (s *UserService) GetByChatID(ctx context.Context, chatID int64) (*entities.User, error) {
	return s.users.GetByChatID(ctx, chatID)
}

// List retrieves all active users
func (s *UserService) List(ctx context.Context) ([]*entities.User, error) {
	return s.users.List(ctx)
}

// ListAdmins retrieves active users with the admin role
func (s *UserService) ListAdmins(ctx context.Context) ([]*entities.User, error) {
	return s.users.ListByRole(ctx, entities.UserRoleAdmin)
}

// TouchActivity records that the user was seen now
func (s *UserService) TouchActivity(ctx context.Context, chatID int64) error {
	return s.users.TouchActivity(ctx, chatID, time.Now().UTC())
}

// Deactivate soft-deletes a user account
func (s *UserService) Deactivate(ctx context.Context, id int64) error {
	found, err := s.users.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return entities.ErrUserNotFound
	}

	s.logger.Infow("user deactivated", "user_id", id)
	return nil
}
