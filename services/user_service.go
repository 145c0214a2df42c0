package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
	"go.uber.org/zap"
)

type UserService interface {
	GetSelf(ctx context.Context, actor models.Actor) (*models.UserAccount, error)
	Rename(ctx context.Context, actor models.Actor, username string) (*models.UserAccount, error)
	List(ctx context.Context, actor models.Actor, filter models.UserFilter) ([]models.UserAccount, error)
	SetStatus(ctx context.Context, actor models.Actor, userID string, status models.AccountStatus) (*models.UserAccount, error)
}

type userService struct {
	users  repositories.UserRepository
	logger *zap.Logger
}

func NewUserService(users repositories.UserRepository, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{users: users, logger: logger.Named("users")}
}

func (s *userService) load(ctx context.Context, id string) (*models.UserAccount, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) GetSelf(ctx context.Context, actor models.Actor) (*models.UserAccount, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	return s.load(ctx, actor.UserID)
}

func (s *userService) Rename(ctx context.Context, actor models.Actor, username string) (*models.UserAccount, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	name, err := validateUsername(username)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateUsername(ctx, actor.UserID, name); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserUsernameConflict):
			return nil, ErrUserUsernameConflict
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to rename user: %w", err)
	}
	return s.load(ctx, actor.UserID)
}

func (s *userService) List(ctx context.Context, actor models.Actor, filter models.UserFilter) ([]models.UserAccount, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = normalizeLimit(filter.Limit, filter.Offset)
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *userService) SetStatus(ctx context.Context, actor models.Actor, userID string, status models.AccountStatus) (*models.UserAccount, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if status != models.AccountActive && status != models.AccountBlocked {
		return nil, validationError("status must be %q or %q", models.AccountActive, models.AccountBlocked)
	}
	if userID == actor.UserID && status == models.AccountBlocked {
		return nil, fmt.Errorf("%w: admins cannot block themselves", ErrForbiddenOperation)
	}
	if err := s.users.UpdateStatus(ctx, userID, status); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	s.logger.Info("account status changed",
		zap.String("user_id", userID),
		zap.String("status", string(status)),
		zap.String("changed_by", actor.UserID),
	)
	return s.load(ctx, userID)
}
