package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linemk/farm-shop/internal/domain/models"
	security "github.com/linemk/farm-shop/internal/jwt-new"
	"github.com/linemk/farm-shop/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest данные регистрации покупателя
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

type AuthServiceInterface interface {
	Register(ctx context.Context, req RegisterRequest) (string, *models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	// ResetPassword выпускает токен сброса. Для неизвестного email ошибки нет.
	ResetPassword(ctx context.Context, email string) error
	NewPassword(ctx context.Context, token, password string) error
	EnsureAdmin(ctx context.Context, email, password string) error
}

type AuthService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
	secret   string
	tokenTTL time.Duration
	resetTTL time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, secret string, tokenTTL, resetTTL time.Duration) *AuthService {
	return &AuthService{
		log:      log,
		userRepo: userRepo,
		secret:   secret,
		tokenTTL: tokenTTL,
		resetTTL: resetTTL,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создаёт покупателя с ролью CLIENTE и сразу выдаёт токен
func (a *AuthService) Register(ctx context.Context, req RegisterRequest) (string, *models.User, error) {
	const op = "auth.Register"
	email := normalizeEmail(req.Email)
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	// Хеширование пароля с помощью bcrypt (автоматически добавляет соль)
	passHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user, err := a.userRepo.CreateUser(ctx, &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		PassHash: passHash,
		Phone:    req.Phone,
		Role:     models.RoleClient,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			logger.Warn("email already registered")
			return "", nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		logger.Error("failed to create user", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	token, err := security.NewToken(user, a.secret, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to generate token: %w", op, err)
	}
	logger.Info("user registered", slog.Int64("userID", user.ID))
	return token, user, nil
}

// Login сравнивает пароль с сохранённым хэшем и выдаёт JWT-токен.
// Неизвестный email и неверный пароль неотличимы для клиента.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	const op = "auth.Login"
	email = normalizeEmail(email)
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := security.NewToken(user, a.secret, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return token, user, nil
}

// ResetPassword выпускает короткоживущий токен. Почтовой рассылки нет, токен пишется в лог.
func (a *AuthService) ResetPassword(ctx context.Context, email string) error {
	const op = "auth.ResetPassword"
	email = normalizeEmail(email)
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Info("reset requested for unknown email")
			return nil
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	token, err := security.NewResetToken(user, a.secret, a.resetTTL)
	if err != nil {
		logger.Error("failed to generate reset token", slog.Any("error", err))
		return fmt.Errorf("%s: failed to generate reset token: %w", op, err)
	}
	logger.Info("password reset token issued", slog.Int64("userID", user.ID), slog.String("token", token))
	return nil
}

// NewPassword меняет пароль по токену сброса. После смены токен перестаёт действовать.
func (a *AuthService) NewPassword(ctx context.Context, token, password string) error {
	const op = "auth.NewPassword"
	logger := a.log.With(slog.String("op", op))

	userID, fingerprint, err := security.ParseResetToken(token, a.secret)
	if err != nil {
		logger.Warn("invalid reset token")
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	user, err := a.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get user: %w", op, err)
	}
	if security.PasswordFingerprint(user.PassHash) != fingerprint {
		logger.Warn("reset token already used", slog.Int64("userID", userID))
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return fmt.Errorf("%s: failed to hash password: %w", op, err)
	}
	if err := a.userRepo.UpdatePassword(ctx, userID, passHash); err != nil {
		logger.Error("failed to update password", slog.Any("error", err))
		return fmt.Errorf("%s: failed to update password: %w", op, err)
	}
	logger.Info("password changed", slog.Int64("userID", userID))
	return nil
}

// EnsureAdmin создаёт администратора из конфига, если его ещё нет
func (a *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	const op = "auth.EnsureAdmin"
	email = normalizeEmail(email)
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	if email == "" || password == "" {
		logger.Debug("admin bootstrap skipped")
		return nil
	}

	_, err := a.userRepo.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("%s: failed to hash password: %w", op, err)
	}
	if _, err := a.userRepo.CreateUser(ctx, &models.User{
		Name:     "Administrador",
		Email:    email,
		PassHash: passHash,
		Role:     models.RoleAdmin,
	}); err != nil && !errors.Is(err, storage.ErrUserExists) {
		return fmt.Errorf("%s: failed to create admin: %w", op, err)
	}
	logger.Info("admin user created")
	return nil
}
