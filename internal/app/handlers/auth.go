package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/farm-shop/internal/service"
)

// RegisterRequest запрос регистрации покупателя
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone"`
}

// AuthRequest представляет структуру запроса для аутентификации с тегами валидации
type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse представляет структуру ответа с JWT-токеном
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type NewPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthHandlers вход, регистрация и сброс пароля
type AuthHandlers struct {
	Log      *slog.Logger
	Auth     service.AuthServiceInterface
	Cart     service.CartService
	Cookie   CartCookie
	TokenTTL time.Duration
}

func (h AuthHandlers) setToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     jwtmiddleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Register создаёт покупателя и сразу авторизует его
func (h AuthHandlers) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.Register"
		logger := h.Log.With(slog.String("op", op))

		var req RegisterRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		token, user, err := h.Auth.Register(r.Context(), service.RegisterRequest{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Phone:    req.Phone,
		})
		if err != nil {
			respondError(w, logger, err)
			return
		}

		h.setToken(w, token)
		h.mergeGuestCart(w, r, logger, user.ID)
		respondJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
	}
}

// Login выдаёт токен и переносит гостевую корзину из cookie в сохранённую
func (h AuthHandlers) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.Login"
		logger := h.Log.With(slog.String("op", op))

		var req AuthRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		token, user, err := h.Auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			respondError(w, logger, err)
			return
		}

		h.setToken(w, token)
		h.mergeGuestCart(w, r, logger, user.ID)
		respondJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
	}
}

// mergeGuestCart ошибка слияния не мешает входу, cookie остаётся до следующей попытки
func (h AuthHandlers) mergeGuestCart(w http.ResponseWriter, r *http.Request, logger *slog.Logger, userID int64) {
	if h.Cart == nil {
		return
	}
	guest := h.Cookie.Read(r, logger)
	if len(guest) == 0 {
		return
	}
	if _, err := h.Cart.MergeGuestCart(r.Context(), userID, guest); err != nil {
		logger.Error("failed to merge guest cart", slog.Int64("userID", userID), slog.Any("error", err))
		return
	}
	h.Cookie.Clear(w)
}

func (h AuthHandlers) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: jwtmiddleware.TokenCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
		h.Cookie.Clear(w)
		respondJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
	}
}

// ResetPassword всегда отвечает одинаково, чтобы нельзя было перебрать email
func (h AuthHandlers) ResetPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ResetPassword"
		logger := h.Log.With(slog.String("op", op))

		var req ResetPasswordRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}
		if err := h.Auth.ResetPassword(r.Context(), req.Email); err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, MessageResponse{
			Message: "if the email is registered, password reset instructions have been sent",
		})
	}
}

func (h AuthHandlers) NewPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.NewPassword"
		logger := h.Log.With(slog.String("op", op))

		var req NewPasswordRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}
		if err := h.Auth.NewPassword(r.Context(), req.Token, req.Password); err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, MessageResponse{Message: "password updated"})
	}
}
