package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/storage"
)

var (
	ErrCartNotFound       = errors.New("cart not found")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrProductUnavailable = errors.New("product is out of stock")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrInvalidStatus      = errors.New("unknown status")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAlreadyBooked      = errors.New("user already has an active booking for this tour")
	ErrTourNotAvailable   = errors.New("tour is not open for booking")
	ErrInvalidCapacity    = errors.New("max participants is lower than current participants")
	ErrBookingCancelled   = errors.New("booking is cancelled")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrInvalidInput       = errors.New("invalid input")
)

// OutOfStockItem товар, которого не хватает для оформления заказа
type OutOfStockItem struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Message   string `json:"message"`
}

// OutOfStockError содержит полный список позиций без остатка
type OutOfStockError struct {
	Items []OutOfStockItem
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d item(s)", len(e.Items))
}

// CapacityError - на туре не хватает мест
type CapacityError struct {
	AvailableSpots int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough spots: %d available", e.AvailableSpots)
}

// rollback откатывает транзакцию и логирует ошибку отката
func rollback(tx *sql.Tx, logger *slog.Logger) {
	if rbErr := tx.Rollback(); rbErr != nil {
		logger.Error("transaction rollback failed", slog.Any("error", rbErr))
	}
}

// canAccess - владелец или сотрудник магазина
func canAccess(ownerID, userID int64, role models.Role) bool {
	return ownerID == userID || role.IsStaff()
}

// writeEvent кладёт событие в outbox в рамках транзакции
func writeEvent(ctx context.Context, tx *sql.Tx, outbox storage.OutboxStorage, aggregateType string, aggregateID int64, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return outbox.CreateEventTx(ctx, tx, &models.OutboxEvent{
		ID:            uuid.NewString(),
		AggregateType: aggregateType,
		AggregateID:   strconv.FormatInt(aggregateID, 10),
		EventType:     eventType,
		Payload:       data,
		CreatedAt:     time.Now().UTC(),
	})
}
