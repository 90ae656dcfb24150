package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/service"
	"github.com/linemk/farm-shop/internal/storage"
)

type OrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ListMyOrdersHandler история заказов пользователя без корзины
func ListMyOrdersHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListMyOrders"
		logger := log.With(slog.String("op", op))

		userID, _, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		list, err := orders.ListMine(r.Context(), userID)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

func GetOrderHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrder"
		logger := log.With(slog.String("op", op))

		userID, role, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		order, err := orders.Get(r.Context(), userID, role, id)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, order)
	}
}

// ListOrdersHandler все заказы для персонала: ?status=&from=&to= (YYYY-MM-DD)
func ListOrdersHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrders"
		logger := log.With(slog.String("op", op))

		filter := storage.OrderFilter{
			Status: models.OrderStatus(strings.ToUpper(r.URL.Query().Get("status"))),
		}
		var err error
		if filter.From, err = queryDate(r, "from"); err != nil {
			badRequest(w, err.Error())
			return
		}
		if filter.To, err = queryDate(r, "to"); err != nil {
			badRequest(w, err.Error())
			return
		}

		list, err := orders.ListAll(r.Context(), filter)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

func UpdateOrderStatusHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateOrderStatus"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		var req OrderStatusRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		order, err := orders.UpdateStatus(r.Context(), id, models.OrderStatus(strings.ToUpper(req.Status)))
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, order)
	}
}
