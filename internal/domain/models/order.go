package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus статус заказа. PENDING - это корзина пользователя.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusFailed     OrderStatus = "FAILED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusCompleted, OrderStatusCancelled, OrderStatusFailed},
}

// Valid проверяет, что статус известен
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

// IsTerminal - из этого статуса переходов нет
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransitionTo проверяет допустимость перехода
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, st := range orderTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// ReleasesStock - переход возвращает списанный при оформлении товар на склад
func (s OrderStatus) ReleasesStock(next OrderStatus) bool {
	return s == OrderStatusProcessing && (next == OrderStatusCancelled || next == OrderStatusFailed)
}

// Order заказ покупателя
type Order struct {
	ID              int64            `json:"id"`
	UserID          int64            `json:"userId"`
	Status          OrderStatus      `json:"status"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	ShippingCost    decimal.Decimal  `json:"shippingCost"`
	Total           decimal.Decimal  `json:"total"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
	PaymentDetails  *PaymentDetails  `json:"paymentDetails,omitempty"`
	Items           []OrderItem      `json:"items,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// OrderItem позиция заказа. Name и Price - снимок на момент добавления.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"orderId"`
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	// Product - актуальные данные товара, nil если товар удалён из каталога
	Product *Product `json:"-"`
}
