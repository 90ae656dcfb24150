package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/linemk/farm-shop/internal/cache"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/storage"
)

type OrderService interface {
	ListMine(ctx context.Context, userID int64) ([]*models.Order, error)
	Get(ctx context.Context, userID int64, role models.Role, orderID int64) (*models.Order, error)
	ListAll(ctx context.Context, filter storage.OrderFilter) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) (*models.Order, error)
}

type orderService struct {
	log         *slog.Logger
	db          *sql.DB
	orderRepo   storage.OrderStorage
	productRepo storage.ProductStorage
	outbox      storage.OutboxStorage
	cache       cache.ProductCache
}

func NewOrderService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, productRepo storage.ProductStorage,
	outbox storage.OutboxStorage, productCache cache.ProductCache) OrderService {
	return &orderService{
		log:         log,
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		outbox:      outbox,
		cache:       productCache,
	}
}

func (s *orderService) ListMine(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.OrderService.ListMine"
	orders, err := s.orderRepo.ListOrdersByUser(ctx, userID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// Get возвращает заказ владельцу или сотруднику магазина
func (s *orderService) Get(ctx context.Context, userID int64, role models.Role, orderID int64) (*models.Order, error) {
	const op = "service.OrderService.Get"
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !canAccess(order.UserID, userID, role) {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	return order, nil
}

func (s *orderService) ListAll(ctx context.Context, filter storage.OrderFilter) ([]*models.Order, error) {
	const op = "service.OrderService.ListAll"
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}
	orders, err := s.orderRepo.ListOrders(ctx, filter)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// UpdateStatus меняет статус заказа по допустимому переходу.
// Отмена или сбой оплаты оформленного заказа возвращает товар на склад в той же транзакции.
func (s *orderService) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) (*models.Order, error) {
	const op = "service.OrderService.UpdateStatus"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", orderID), slog.String("status", string(status)))

	if !status.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderTx(ctx, tx, orderID)
	if err != nil {
		rollback(tx, logger)
		return nil, fmt.Errorf("%s: failed to lock order: %w", op, err)
	}

	if !order.Status.CanTransitionTo(status) {
		rollback(tx, logger)
		logger.Warn("transition not allowed", slog.String("from", string(order.Status)))
		return nil, fmt.Errorf("%s: %s -> %s: %w", op, order.Status, status, ErrInvalidTransition)
	}

	var restocked []int64
	if order.Status.ReleasesStock(status) {
		items, err := s.orderRepo.GetOrderItemsTx(ctx, tx, orderID)
		if err != nil {
			rollback(tx, logger)
			logger.Error("failed to get order items", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get order items: %w", op, err)
		}
		for _, it := range items {
			if err := s.productRepo.IncrementStockTx(ctx, tx, it.ProductID, it.Quantity); err != nil {
				rollback(tx, logger)
				logger.Error("failed to restock product", slog.Int64("productID", it.ProductID), slog.Any("error", err))
				return nil, fmt.Errorf("%s: failed to restock product: %w", op, err)
			}
			restocked = append(restocked, it.ProductID)
		}
	}

	if err := s.orderRepo.UpdateStatusTx(ctx, tx, orderID, status); err != nil {
		rollback(tx, logger)
		logger.Error("failed to update status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update status: %w", op, err)
	}

	event := orderEvent{OrderID: order.ID, UserID: order.UserID, Status: status, Total: order.Total}
	if err := writeEvent(ctx, tx, s.outbox, "order", order.ID, models.EventOrderStatusChanged, event); err != nil {
		rollback(tx, logger)
		logger.Error("failed to write outbox event", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to write outbox event: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	if len(restocked) > 0 {
		if err := s.cache.Delete(ctx, restocked...); err != nil {
			logger.Warn("failed to invalidate product cache", slog.Any("error", err))
		}
	}

	logger.Info("order status updated", slog.String("from", string(order.Status)))
	order.Status = status
	return order, nil
}
