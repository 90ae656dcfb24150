package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/linemk/farm-shop/internal/domain/guestcart"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/farm-shop/internal/service"
	"github.com/linemk/farm-shop/internal/storage"
)

var validate = validator.New()

const dateLayout = "2006-01-02"

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse ответ без данных
type MessageResponse struct {
	Message string `json:"message"`
}

// OutOfStockResponse - 400 при оформлении, клиент показывает список позиций
type OutOfStockResponse struct {
	Error           string                   `json:"error"`
	OutOfStockItems []service.OutOfStockItem `json:"outOfStockItems"`
}

// CapacityResponse - 400 при записи на тур без свободных мест
type CapacityResponse struct {
	Error          string `json:"error"`
	AvailableSpots int    `json:"availableSpots"`
}

// errorStatuses порядок важен: проверяется первое совпадение
var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},

	{service.ErrCartNotFound, http.StatusNotFound},
	{storage.ErrUserNotFound, http.StatusNotFound},
	{storage.ErrProductNotFound, http.StatusNotFound},
	{storage.ErrOrderNotFound, http.StatusNotFound},
	{storage.ErrItemNotFound, http.StatusNotFound},
	{storage.ErrSubscriptionNotFound, http.StatusNotFound},
	{storage.ErrTourNotFound, http.StatusNotFound},
	{storage.ErrBookingNotFound, http.StatusNotFound},
	{storage.ErrPostNotFound, http.StatusNotFound},
	{storage.ErrSupplierNotFound, http.StatusNotFound},

	{storage.ErrLocked, http.StatusConflict},

	{service.ErrCartEmpty, http.StatusBadRequest},
	{service.ErrInvalidQuantity, http.StatusBadRequest},
	{service.ErrProductUnavailable, http.StatusBadRequest},
	{service.ErrInvalidTransition, http.StatusBadRequest},
	{service.ErrInvalidStatus, http.StatusBadRequest},
	{service.ErrEmailTaken, http.StatusBadRequest},
	{service.ErrInvalidToken, http.StatusBadRequest},
	{service.ErrAlreadyBooked, http.StatusBadRequest},
	{service.ErrTourNotAvailable, http.StatusBadRequest},
	{service.ErrInvalidCapacity, http.StatusBadRequest},
	{service.ErrBookingCancelled, http.StatusBadRequest},
	{service.ErrInvalidRating, http.StatusBadRequest},
	{service.ErrInvalidInput, http.StatusBadRequest},
	{storage.ErrReviewExists, http.StatusBadRequest},
	{storage.ErrSlugTaken, http.StatusBadRequest},
	{storage.ErrUserExists, http.StatusBadRequest},
	{models.ErrInvalidCard, http.StatusBadRequest},
	{models.ErrUnknownPaymentMethod, http.StatusBadRequest},
}

// statusFor сопоставляет ошибку сервиса коду ответа и сообщению для клиента.
// Для 500 внутренние подробности наружу не отдаются.
func statusFor(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var stockErr *service.OutOfStockError
	if errors.As(err, &stockErr) {
		logger.Warn("checkout rejected: out of stock", slog.Int("items", len(stockErr.Items)))
		respondJSON(w, http.StatusBadRequest, OutOfStockResponse{
			Error:           "some products do not have enough stock",
			OutOfStockItems: stockErr.Items,
		})
		return
	}
	var capErr *service.CapacityError
	if errors.As(err, &capErr) {
		logger.Warn("booking rejected: capacity", slog.Int("availableSpots", capErr.AvailableSpots))
		respondJSON(w, http.StatusBadRequest, CapacityResponse{
			Error:          fmt.Sprintf("only %d spot(s) available", capErr.AvailableSpots),
			AvailableSpots: capErr.AvailableSpots,
		})
		return
	}

	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.Any("error", err))
	} else {
		logger.Warn("request rejected", slog.Int("status", status), slog.Any("error", err))
	}
	respondJSON(w, status, ErrorResponse{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

// decodeJSON читает тело запроса и проверяет теги validate
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

// decodeRequest - decodeJSON с ответом 400 при ошибке
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		logger.Warn("invalid request body", slog.Any("error", err))
		badRequest(w, err.Error())
		return false
	}
	return true
}

// currentUser возвращает пользователя из контекста, выставленного JWT middleware
func currentUser(r *http.Request) (int64, models.Role, bool) {
	userID, ok := jwtmiddleware.FromContext(r.Context())
	if !ok {
		return 0, "", false
	}
	role, ok := jwtmiddleware.RoleFromContext(r.Context())
	if !ok {
		role = models.RoleClient
	}
	return userID, role, true
}

func requireUser(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, models.Role, bool) {
	userID, role, ok := currentUser(r)
	if !ok {
		logger.Error("userID not found in context")
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	return userID, role, ok
}

// idParam читает числовой параметр пути
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryBool(r *http.Request, key string) *bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func queryDate(r *http.Request, key string) (*time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD", key)
	}
	return &t, nil
}

// CartCookie гостевая корзина в cookie
type CartCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// Read разбирает cookie. Повреждённое значение считается пустой корзиной.
func (c CartCookie) Read(r *http.Request, logger *slog.Logger) guestcart.Cart {
	cookie, err := r.Cookie(c.name())
	if err != nil {
		return nil
	}
	cart, err := guestcart.Decode(cookie.Value)
	if err != nil {
		logger.Warn("corrupt guest cart cookie ignored", slog.Any("error", err))
		return nil
	}
	return cart
}

func (c CartCookie) Write(w http.ResponseWriter, cart guestcart.Cart) error {
	value, err := cart.Encode()
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.TTL.Seconds()),
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c CartCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: c.name(), Value: "", Path: "/", MaxAge: -1})
}

func (c CartCookie) name() string {
	if c.Name == "" {
		return guestcart.CookieName
	}
	return c.Name
}
