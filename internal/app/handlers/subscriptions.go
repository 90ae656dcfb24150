package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/service"
	"github.com/linemk/farm-shop/internal/storage"
	"github.com/shopspring/decimal"
)

// SubscriptionRequest оформление подписки. UserID учитывается только для персонала.
type SubscriptionRequest struct {
	UserID    int64                    `json:"userId"`
	PlanID    string                   `json:"planId" validate:"required"`
	PlanName  string                   `json:"planName"`
	Price     decimal.Decimal          `json:"price"`
	Frequency models.Frequency         `json:"frequency" validate:"required"`
	StartDate *time.Time               `json:"startDate"`
	Items     models.SubscriptionItems `json:"products" validate:"required,min=1,dive"`
}

// SubscriptionUpdateRequest частичное обновление, отсутствующие поля не меняются
type SubscriptionUpdateRequest struct {
	PlanID    *string                  `json:"planId"`
	PlanName  *string                  `json:"planName"`
	Price     *decimal.Decimal         `json:"price"`
	Frequency *models.Frequency        `json:"frequency"`
	Status    *string                  `json:"status"`
	Items     models.SubscriptionItems `json:"products" validate:"omitempty,dive"`
}

// ListSubscriptionsHandler все подписки для персонала: ?userId=&status=
func ListSubscriptionsHandler(log *slog.Logger, subs service.SubscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListSubscriptions"
		logger := log.With(slog.String("op", op))

		filter := storage.SubscriptionFilter{
			Status: models.SubscriptionStatus(strings.ToUpper(r.URL.Query().Get("status"))),
		}
		if raw := r.URL.Query().Get("userId"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				badRequest(w, "invalid userId")
				return
			}
			filter.UserID = id
		}

		list, err := subs.List(r.Context(), filter)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

func ListMySubscriptionsHandler(log *slog.Logger, subs service.SubscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListMySubscriptions"
		logger := log.With(slog.String("op", op))

		userID, _, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		list, err := subs.ListMine(r.Context(), userID)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

func CreateSubscriptionHandler(log *slog.Logger, subs service.SubscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateSubscription"
		logger := log.With(slog.String("op", op))

		userID, role, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		var req SubscriptionRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		owner := userID
		if role.IsStaff() && req.UserID > 0 {
			owner = req.UserID
		}
		sub := &models.Subscription{
			UserID:    owner,
			PlanID:    req.PlanID,
			PlanName:  req.PlanName,
			Price:     req.Price,
			Frequency: models.Frequency(strings.ToLower(string(req.Frequency))),
			Items:     req.Items,
		}
		if req.StartDate != nil {
			sub.StartDate = *req.StartDate
		}

		created, err := subs.Create(r.Context(), sub)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, created)
	}
}

func GetSubscriptionHandler(log *slog.Logger, subs service.SubscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetSubscription"
		logger := log.With(slog.String("op", op))

		userID, role, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		sub, err := subs.Get(r.Context(), userID, role, id)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, sub)
	}
}

func UpdateSubscriptionHandler(log *slog.Logger, subs service.SubscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateSubscription"
		logger := log.With(slog.String("op", op))

		userID, role, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		var req SubscriptionUpdateRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		upd := service.SubscriptionUpdate{
			PlanID:    req.PlanID,
			PlanName:  req.PlanName,
			Price:     req.Price,
			Frequency: req.Frequency,
			Items:     req.Items,
		}
		if req.Status != nil {
			st := models.SubscriptionStatus(strings.ToUpper(*req.Status))
			upd.Status = &st
		}

		sub, err := subs.Update(r.Context(), userID, role, id, upd)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, sub)
	}
}

func DeleteSubscriptionHandler(log *slog.Logger, subs service.SubscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteSubscription"
		logger := log.With(slog.String("op", op))

		userID, role, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		if err := subs.Delete(r.Context(), userID, role, id); err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, MessageResponse{Message: "subscription deleted"})
	}
}

// RenewSubscriptionHandler имитация списания за следующий период
func RenewSubscriptionHandler(log *slog.Logger, subs service.SubscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RenewSubscription"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		sub, err := subs.Renew(r.Context(), id)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, sub)
	}
}
