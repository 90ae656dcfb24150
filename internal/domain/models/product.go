package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product представляет товар каталога (яйца, птица, подписочные наборы)
type Product struct {
	ID                    int64               `json:"id"`
	Name                  string              `json:"name"`
	Description           string              `json:"description"`
	Price                 decimal.Decimal     `json:"price"`
	OldPrice              decimal.NullDecimal `json:"oldPrice"`
	Category              string              `json:"category"`
	Stock                 int                 `json:"stock"`
	MinStock              int                 `json:"minStock"`
	Image                 string              `json:"image"`
	Featured              bool                `json:"featured"`
	IsSubscription        bool                `json:"isSubscription"`
	SubscriptionFrequency string              `json:"subscriptionFrequency,omitempty"`
	CreatedAt             time.Time           `json:"createdAt"`
	UpdatedAt             time.Time           `json:"updatedAt"`
}

// LowStock - остаток на уровне минимального или ниже
func (p *Product) LowStock() bool {
	return p.Stock <= p.MinStock
}
