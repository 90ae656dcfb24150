package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/domain/pricing"
)

// OrderFilter фильтр списка заказов для персонала
type OrderFilter struct {
	Status models.OrderStatus
	From   *time.Time
	To     *time.Time
}

// OrderStorage описывает методы для работы с заказами и корзиной (заказ в статусе PENDING).
type OrderStorage interface {
	// EnsurePendingOrderTx находит или создаёт корзину пользователя и блокирует её строку
	EnsurePendingOrderTx(ctx context.Context, tx *sql.Tx, userID int64) (*models.Order, error)
	// LockPendingOrderTx блокирует существующую корзину, ErrOrderNotFound если её нет
	LockPendingOrderTx(ctx context.Context, tx *sql.Tx, userID int64) (*models.Order, error)
	GetPendingOrder(ctx context.Context, userID int64) (*models.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	LockOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error)
	// ListOrdersByUser возвращает оформленные заказы пользователя вместе с позициями
	ListOrdersByUser(ctx context.Context, userID int64) ([]*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, error)
	UpdateTotalsTx(ctx context.Context, tx *sql.Tx, orderID int64, totals pricing.Totals) error
	// PlaceOrderTx переводит корзину в PROCESSING с адресом и данными оплаты
	PlaceOrderTx(ctx context.Context, tx *sql.Tx, orderID int64, totals pricing.Totals, addr models.ShippingAddress, payment models.PaymentDetails) error
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status models.OrderStatus) error
	DeleteOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) error

	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetOrderItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]models.OrderItem, error)
	// UpsertItemTx создаёт позицию или перезаписывает её количество и снимок товара
	UpsertItemTx(ctx context.Context, tx *sql.Tx, orderID int64, item models.OrderItem) error
	DeleteItemTx(ctx context.Context, tx *sql.Tx, orderID, productID int64) error
	DeleteItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) error
}

// orderRepository - конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const orderColumns = `id, user_id, status, subtotal, shipping_cost, total, shipping_address, payment_details,
	created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	o := &models.Order{}
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.ShippingCost, &o.Total,
		&o.ShippingAddress, &o.PaymentDetails, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		if isLockNotAvailable(err) {
			return nil, fmt.Errorf("%w: %v", ErrLocked, err)
		}
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) EnsurePendingOrderTx(ctx context.Context, tx *sql.Tx, userID int64) (*models.Order, error) {
	// частичный уникальный индекс гарантирует одну корзину на пользователя,
	// параллельные вставки сводятся к одной строке
	_, err := tx.ExecContext(ctx,
		`INSERT INTO orders (user_id, status) VALUES ($1, 'PENDING')
		 ON CONFLICT (user_id) WHERE status = 'PENDING' DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pending order: %w", err)
	}
	return r.LockPendingOrderTx(ctx, tx, userID)
}

func (r *orderRepository) LockPendingOrderTx(ctx context.Context, tx *sql.Tx, userID int64) (*models.Order, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 AND status = 'PENDING' FOR UPDATE", userID)
	return scanOrder(row)
}

func (r *orderRepository) GetPendingOrder(ctx context.Context, userID int64) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 AND status = 'PENDING'", userID)
	return scanOrder(row)
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	order.Items, err = r.GetOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) LockOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE NOWAIT", id)
	return scanOrder(row)
}

func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 AND status <> 'PENDING' ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	return r.collectOrders(ctx, rows)
}

func (r *orderRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	} else {
		where = append(where, "status <> 'PENDING'")
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	query := "SELECT " + orderColumns + " FROM orders WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return r.collectOrders(ctx, rows)
}

func scanOrders(rows *sql.Rows) ([]*models.Order, error) {
	defer rows.Close()
	orders := []*models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// collectOrders читает заказы и одним запросом подтягивает их позиции
func (r *orderRepository) collectOrders(ctx context.Context, rows *sql.Rows) ([]*models.Order, error) {
	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	byID := make(map[int64]*models.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	items, err := queryItems(ctx, r.db, "oi.order_id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return orders, nil
}

func (r *orderRepository) UpdateTotalsTx(ctx context.Context, tx *sql.Tx, orderID int64, totals pricing.Totals) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET subtotal = $1, shipping_cost = $2, total = $3, updated_at = NOW() WHERE id = $4",
		totals.Subtotal, totals.ShippingCost, totals.Total, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order totals: %w", err)
	}
	return expectAffected(res, ErrOrderNotFound)
}

func (r *orderRepository) PlaceOrderTx(ctx context.Context, tx *sql.Tx, orderID int64, totals pricing.Totals, addr models.ShippingAddress, payment models.PaymentDetails) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = 'PROCESSING', subtotal = $1, shipping_cost = $2, total = $3,
			shipping_address = $4, payment_details = $5, updated_at = NOW()
		 WHERE id = $6 AND status = 'PENDING'`,
		totals.Subtotal, totals.ShippingCost, totals.Total, addr, payment, orderID)
	if err != nil {
		return fmt.Errorf("failed to place order: %w", err)
	}
	return expectAffected(res, ErrOrderNotFound)
}

func (r *orderRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status models.OrderStatus) error {
	res, err := tx.ExecContext(ctx, "UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2", status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return expectAffected(res, ErrOrderNotFound)
}

func (r *orderRepository) DeleteOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", orderID)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return expectAffected(res, ErrOrderNotFound)
}
