package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionPaused    SubscriptionStatus = "PAUSED"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionActive, SubscriptionPaused, SubscriptionCancelled:
		return true
	}
	return false
}

// CanTransitionTo: ACTIVE <-> PAUSED, отмена из любого не отменённого статуса
func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case SubscriptionActive:
		return next == SubscriptionPaused || next == SubscriptionCancelled
	case SubscriptionPaused:
		return next == SubscriptionActive || next == SubscriptionCancelled
	}
	return false
}

// Frequency периодичность доставки
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// Next возвращает дату следующего списания после from
func (f Frequency) Next(from time.Time) time.Time {
	switch f {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	default:
		return from.AddDate(0, 1, 0)
	}
}

type SubscriptionItem struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// SubscriptionItems хранится в JSONB-колонке
type SubscriptionItems []SubscriptionItem

func (i SubscriptionItems) Value() (driver.Value, error) {
	if i == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(i)
}

func (i *SubscriptionItems) Scan(src any) error {
	return scanJSON(src, i)
}

// Subscription регулярная доставка товаров
type Subscription struct {
	ID              int64              `json:"id"`
	UserID          int64              `json:"userId"`
	PlanID          string             `json:"planId"`
	PlanName        string             `json:"planName"`
	Status          SubscriptionStatus `json:"status"`
	Frequency       Frequency          `json:"frequency"`
	Price           decimal.Decimal    `json:"price"`
	StartDate       time.Time          `json:"startDate"`
	NextBillingDate time.Time          `json:"nextBillingDate"`
	Items           SubscriptionItems  `json:"products"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}
