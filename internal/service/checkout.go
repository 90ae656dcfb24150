package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/linemk/farm-shop/internal/cache"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/domain/pricing"
	"github.com/linemk/farm-shop/internal/storage"
	"github.com/shopspring/decimal"
)

// CheckoutRequest данные доставки и оплаты. Номер карты сюда уже не попадает.
type CheckoutRequest struct {
	ShippingAddress models.ShippingAddress
	Payment         models.PaymentDetails
}

type CheckoutService interface {
	Checkout(ctx context.Context, userID int64, req CheckoutRequest) (*models.Order, error)
}

type checkoutService struct {
	log         *slog.Logger
	db          *sql.DB
	orderRepo   storage.OrderStorage
	productRepo storage.ProductStorage
	outbox      storage.OutboxStorage
	cache       cache.ProductCache
	rule        pricing.Rule
}

func NewCheckoutService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, productRepo storage.ProductStorage,
	outbox storage.OutboxStorage, productCache cache.ProductCache, rule pricing.Rule) CheckoutService {
	return &checkoutService{
		log:         log,
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		outbox:      outbox,
		cache:       productCache,
		rule:        rule,
	}
}

type orderEvent struct {
	OrderID int64              `json:"orderId"`
	UserID  int64              `json:"userId"`
	Status  models.OrderStatus `json:"status"`
	Total   decimal.Decimal    `json:"total"`
}

// Checkout оформляет корзину пользователя. Все шаги выполняются в одной транзакции:
// проверка остатков, списание, пересчёт итогов, адрес и оплата, перевод в PROCESSING.
func (s *checkoutService) Checkout(ctx context.Context, userID int64, req CheckoutRequest) (*models.Order, error) {
	const op = "service.CheckoutService.Checkout"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("starting checkout")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockPendingOrderTx(ctx, tx, userID)
	if err != nil {
		rollback(tx, logger)
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Warn("no pending cart")
			return nil, fmt.Errorf("%s: %w", op, ErrCartNotFound)
		}
		logger.Error("failed to lock cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock cart: %w", op, err)
	}

	items, err := s.orderRepo.GetOrderItemsTx(ctx, tx, order.ID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to get order items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order items: %w", op, err)
	}
	if len(items) == 0 {
		rollback(tx, logger)
		logger.Warn("cart is empty")
		return nil, fmt.Errorf("%s: %w", op, ErrCartEmpty)
	}

	// блокируем строки товаров в порядке id, чтобы параллельные оформления не взаимоблокировались
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	products, err := s.productRepo.LockProductsTx(ctx, tx, ids)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to lock products", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock products: %w", op, err)
	}

	if outOfStock := checkStock(items, products); len(outOfStock) > 0 {
		rollback(tx, logger)
		logger.Warn("insufficient stock", slog.Int("items", len(outOfStock)))
		return nil, fmt.Errorf("%s: %w", op, &OutOfStockError{Items: outOfStock})
	}

	lines := make([]pricing.Line, 0, len(items))
	for i := range items {
		it := &items[i]
		p := products[it.ProductID]
		if err := s.productRepo.DecrementStockTx(ctx, tx, p.ID, it.Quantity); err != nil {
			rollback(tx, logger)
			if errors.Is(err, storage.ErrInsufficientStock) {
				return nil, fmt.Errorf("%s: %w", op, &OutOfStockError{Items: []OutOfStockItem{
					outOfStockItem(p.ID, p.Name, it.Quantity, p.Stock),
				}})
			}
			logger.Error("failed to decrement stock", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to decrement stock: %w", op, err)
		}

		// снимок позиции фиксирует цену на момент оформления
		it.Name = p.Name
		it.Price = p.Price
		it.Product = p
		if err := s.orderRepo.UpsertItemTx(ctx, tx, order.ID, *it); err != nil {
			rollback(tx, logger)
			logger.Error("failed to update item snapshot", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to update item snapshot: %w", op, err)
		}
		lines = append(lines, pricing.Line{Price: p.Price, Quantity: it.Quantity})
	}

	totals := s.rule.Compute(lines)
	if err := s.orderRepo.PlaceOrderTx(ctx, tx, order.ID, totals, req.ShippingAddress, req.Payment); err != nil {
		rollback(tx, logger)
		logger.Error("failed to place order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to place order: %w", op, err)
	}

	event := orderEvent{OrderID: order.ID, UserID: userID, Status: models.OrderStatusProcessing, Total: totals.Total}
	if err := writeEvent(ctx, tx, s.outbox, "order", order.ID, models.EventOrderPlaced, event); err != nil {
		rollback(tx, logger)
		logger.Error("failed to write outbox event", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to write outbox event: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	// остатки изменились, карточки в кэше устарели
	if err := s.cache.Delete(ctx, ids...); err != nil {
		logger.Warn("failed to invalidate product cache", slog.Any("error", err))
	}

	address := req.ShippingAddress
	payment := req.Payment
	order.Status = models.OrderStatusProcessing
	order.Subtotal = totals.Subtotal
	order.ShippingCost = totals.ShippingCost
	order.Total = totals.Total
	order.ShippingAddress = &address
	order.PaymentDetails = &payment
	order.Items = items

	logger.Info("checkout completed", slog.Int64("orderID", order.ID), slog.String("total", totals.Total.String()))
	return order, nil
}

// checkStock собирает все позиции, которых не хватает на складе
func checkStock(items []models.OrderItem, products map[int64]*models.Product) []OutOfStockItem {
	var res []OutOfStockItem
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			res = append(res, outOfStockItem(it.ProductID, it.Name, it.Quantity, 0))
			continue
		}
		if p.Stock < it.Quantity {
			res = append(res, outOfStockItem(p.ID, p.Name, it.Quantity, p.Stock))
		}
	}
	return res
}

func outOfStockItem(id int64, name string, requested, available int) OutOfStockItem {
	return OutOfStockItem{
		ProductID: id,
		Name:      name,
		Requested: requested,
		Available: available,
		Message:   fmt.Sprintf("only %d unit(s) of %s available, %d requested", available, name, requested),
	}
}
