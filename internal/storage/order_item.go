package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/shopspring/decimal"
)

// позиции читаются вместе с актуальными данными товара; товар может быть удалён из каталога
const itemSelect = `SELECT oi.id, oi.order_id, oi.product_id, oi.name, oi.price, oi.quantity,
	p.id, p.name, p.description, p.price, p.category, p.stock, p.min_stock, p.image
	FROM order_items oi
	LEFT JOIN products p ON p.id = oi.product_id`

func queryItems(ctx context.Context, q querier, where string, args ...any) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx, itemSelect+" WHERE "+where+" ORDER BY oi.id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var (
			it        models.OrderItem
			pID       sql.NullInt64
			pName     sql.NullString
			pDesc     sql.NullString
			pPrice    decimal.NullDecimal
			pCategory sql.NullString
			pStock    sql.NullInt64
			pMinStock sql.NullInt64
			pImage    sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Price, &it.Quantity,
			&pID, &pName, &pDesc, &pPrice, &pCategory, &pStock, &pMinStock, &pImage); err != nil {
			return nil, err
		}
		if pID.Valid {
			it.Product = &models.Product{
				ID:          pID.Int64,
				Name:        pName.String,
				Description: pDesc.String,
				Price:       pPrice.Decimal,
				Category:    pCategory.String,
				Stock:       int(pStock.Int64),
				MinStock:    int(pMinStock.Int64),
				Image:       pImage.String,
			}
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepository) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	return queryItems(ctx, r.db, "oi.order_id = $1", orderID)
}

func (r *orderRepository) GetOrderItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]models.OrderItem, error) {
	return queryItems(ctx, tx, "oi.order_id = $1", orderID)
}

func (r *orderRepository) UpsertItemTx(ctx context.Context, tx *sql.Tx, orderID int64, item models.OrderItem) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, name, price, quantity) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (order_id, product_id)
		 DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, quantity = EXCLUDED.quantity`,
		orderID, item.ProductID, item.Name, item.Price, item.Quantity)
	if err != nil {
		return fmt.Errorf("failed to upsert order item: %w", err)
	}
	return nil
}

func (r *orderRepository) DeleteItemTx(ctx context.Context, tx *sql.Tx, orderID, productID int64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = $1 AND product_id = $2", orderID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete order item: %w", err)
	}
	return expectAffected(res, ErrItemNotFound)
}

func (r *orderRepository) DeleteItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = $1", orderID); err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}
	return nil
}
