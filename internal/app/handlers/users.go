package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/service"
)

// UserRequest создание и изменение пользователя администратором
type UserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Password string `json:"password" validate:"omitempty,min=8"`
}

func (req UserRequest) toInput() service.UserInput {
	return service.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     models.Role(strings.ToUpper(req.Role)),
		Password: req.Password,
	}
}

type ProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func ListUsersHandler(log *slog.Logger, users service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListUsers"
		logger := log.With(slog.String("op", op))

		list, err := users.List(r.Context())
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

func GetUserHandler(log *slog.Logger, users service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetUser"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		user, err := users.Get(r.Context(), id)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, user)
	}
}

func CreateUserHandler(log *slog.Logger, users service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateUser"
		logger := log.With(slog.String("op", op))

		var req UserRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}
		if req.Email == "" || req.Password == "" {
			badRequest(w, "email and password are required")
			return
		}
		user, err := users.Create(r.Context(), req.toInput())
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, user)
	}
}

func UpdateUserHandler(log *slog.Logger, users service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateUser"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		var req UserRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}
		user, err := users.Update(r.Context(), id, req.toInput())
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, user)
	}
}

// DeleteUserHandler администратор не может удалить сам себя
func DeleteUserHandler(log *slog.Logger, users service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteUser"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		if self, _, ok := currentUser(r); ok && self == id {
			badRequest(w, "cannot delete own account")
			return
		}
		if err := users.Delete(r.Context(), id); err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, MessageResponse{Message: "user deleted"})
	}
}

func GetProfileHandler(log *slog.Logger, users service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProfile"
		logger := log.With(slog.String("op", op))

		userID, _, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		user, err := users.Get(r.Context(), userID)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, user)
	}
}

func UpdateProfileHandler(log *slog.Logger, users service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProfile"
		logger := log.With(slog.String("op", op))

		userID, _, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		var req ProfileRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}
		user, err := users.UpdateProfile(r.Context(), userID, service.ProfileInput{Name: req.Name, Phone: req.Phone})
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, user)
	}
}
