package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.UserAccount, error)
	Login(ctx context.Context, input LoginInput) (*models.UserAccount, error)
	// ResolveSession загружает аккаунт по проверенному токену и отклоняет заблокированные.
	ResolveSession(ctx context.Context, userID string) (*models.UserAccount, error)
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleKey  string `json:"role_key,omitempty"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RoleKeyResolver сопоставляет необязательный ключ регистрации с ролью.
type RoleKeyResolver interface {
	Resolve(key string) (models.UserRole, error)
}

// StaticRoleKeys проверяет настроенные ключи staff и admin. Пустой ключ регистрирует игрока.
type StaticRoleKeys struct {
	Staff string
	Admin string
}

func (k StaticRoleKeys) Resolve(key string) (models.UserRole, error) {
	if key == "" {
		return models.RolePlayer, nil
	}
	if k.Admin != "" && subtle.ConstantTimeCompare([]byte(key), []byte(k.Admin)) == 1 {
		return models.RoleAdmin, nil
	}
	if k.Staff != "" && subtle.ConstantTimeCompare([]byte(key), []byte(k.Staff)) == 1 {
		return models.RoleStaff, nil
	}
	return "", ErrInvalidRoleKey
}

type authService struct {
	users  repositories.UserRepository
	roles  RoleKeyResolver
	logger *zap.Logger
	clock  Clock
}

func NewAuthService(users repositories.UserRepository, roles RoleKeyResolver, logger *zap.Logger, clock Clock) AuthService {
	if roles == nil {
		roles = StaticRoleKeys{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{users: users, roles: roles, logger: logger.Named("auth"), clock: clock}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.UserAccount, error) {
	username, err := validateUsername(input.Username)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	role, err := s.roles.Resolve(input.RoleKey)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	user := &models.UserAccount{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Role:         role,
		CoinBalance:  0,
		Status:       models.AccountActive,
		PasswordHash: string(hashedPassword),
		CreatedAt:    s.clock.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserEmailConflict):
			return nil, ErrUserEmailConflict
		case errors.Is(err, repositories.ErrUserUsernameConflict):
			return nil, ErrUserUsernameConflict
		}
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.UserAccount, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}
	if user.Status == models.AccountBlocked {
		return nil, ErrAccountBlocked
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) ResolveSession(ctx context.Context, userID string) (*models.UserAccount, error) {
	if userID == "" {
		return nil, ErrAuthenticationFailed
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthenticationFailed
		}
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	if user.Status == models.AccountBlocked {
		return nil, ErrAccountBlocked
	}
	user.PasswordHash = ""
	return user, nil
}

func validateUsername(raw string) (string, error) {
	username, err := requireText("username", raw, 3, 32)
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return "", validationError("username must not contain whitespace")
	}
	return username, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", validationError("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validationError("email is not a valid address")
	}
	return email, nil
}
