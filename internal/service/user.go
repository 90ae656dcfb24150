package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// UserInput поля пользователя, которые может менять администратор
type UserInput struct {
	Name     string
	Email    string
	Phone    string
	Role     models.Role
	Password string
}

// ProfileInput поля, которые пользователь меняет сам
type ProfileInput struct {
	Name  string
	Phone string
}

type UserService interface {
	List(ctx context.Context) ([]*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, in UserInput) (*models.User, error)
	Update(ctx context.Context, id int64, in UserInput) (*models.User, error)
	Delete(ctx context.Context, id int64) error
	UpdateProfile(ctx context.Context, id int64, in ProfileInput) (*models.User, error)
}

type userService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
}

func NewUserService(log *slog.Logger, userRepo storage.UserStorage) UserService {
	return &userService{log: log, userRepo: userRepo}
}

func (s *userService) List(ctx context.Context) ([]*models.User, error) {
	const op = "service.UserService.List"
	users, err := s.userRepo.ListUsers(ctx)
	if err != nil {
		s.log.Error("failed to list users", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

func (s *userService) Get(ctx context.Context, id int64) (*models.User, error) {
	const op = "service.UserService.Get"
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (s *userService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	const op = "service.UserService.Create"
	logger := s.log.With(slog.String("op", op), slog.String("email", in.Email))

	if in.Role == "" {
		in.Role = models.RoleClient
	}
	if !in.Role.Valid() || in.Password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}
	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user, err := s.userRepo.CreateUser(ctx, &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    normalizeEmail(in.Email),
		PassHash: passHash,
		Phone:    in.Phone,
		Role:     in.Role,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		logger.Error("failed to create user", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("user created", slog.Int64("userID", user.ID), slog.String("role", string(user.Role)))
	return user, nil
}

// Update меняет имя, email, телефон и роль. Пароль меняется, только если передан.
func (s *userService) Update(ctx context.Context, id int64, in UserInput) (*models.User, error) {
	const op = "service.UserService.Update"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", id))

	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if in.Role != "" {
		if !in.Role.Valid() {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
		}
		user.Role = in.Role
	}
	if in.Name != "" {
		user.Name = strings.TrimSpace(in.Name)
	}
	if in.Email != "" {
		user.Email = normalizeEmail(in.Email)
	}
	if in.Phone != "" {
		user.Phone = in.Phone
	}

	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		logger.Error("failed to update user", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.Password != "" {
		passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
		}
		if err := s.userRepo.UpdatePassword(ctx, id, passHash); err != nil {
			logger.Error("failed to update password", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	logger.Info("user updated")
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	const op = "service.UserService.Delete"
	if err := s.userRepo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user deleted", slog.String("op", op), slog.Int64("userID", id))
	return nil
}

func (s *userService) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (*models.User, error) {
	return s.Update(ctx, id, UserInput{Name: in.Name, Phone: in.Phone})
}
