package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PaymentMethod способ оплаты
type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "credit_card"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// оплата в системе симулируется, реальное списание не выполняется
const PaymentStatusPending = "pending"

var (
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrInvalidCard          = errors.New("invalid card data")
)

// ParsePaymentMethod принимает как внутренние названия, так и названия из витрины
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "credit_card", "card", "tarjeta":
		return PaymentCreditCard, nil
	case "cash_on_delivery", "cash", "contrareembolso", "contra_reembolso", "efectivo":
		return PaymentCashOnDelivery, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, s)
}

// PaymentDetails - размеченное объединение: для карты хранятся держатель
// и последние 4 цифры, для оплаты при получении - только метод.
type PaymentDetails struct {
	Method     PaymentMethod `json:"method"`
	Status     string        `json:"status"`
	CardHolder string        `json:"cardHolder,omitempty"`
	CardLast4  string        `json:"cardLast4,omitempty"`
}

// NewCardPayment проверяет номер карты и оставляет от него только последние 4 цифры
func NewCardPayment(holder, number string) (*PaymentDetails, error) {
	digits := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, number)
	if len(digits) < 12 || len(digits) > 19 {
		return nil, ErrInvalidCard
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return nil, ErrInvalidCard
		}
	}
	holder = strings.TrimSpace(holder)
	if holder == "" {
		return nil, ErrInvalidCard
	}
	return &PaymentDetails{
		Method:     PaymentCreditCard,
		Status:     PaymentStatusPending,
		CardHolder: holder,
		CardLast4:  digits[len(digits)-4:],
	}, nil
}

// NewCashOnDeliveryPayment оплата при получении
func NewCashOnDeliveryPayment() *PaymentDetails {
	return &PaymentDetails{Method: PaymentCashOnDelivery, Status: PaymentStatusPending}
}

func (p PaymentDetails) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PaymentDetails) Scan(src any) error {
	return scanJSON(src, p)
}

// ShippingAddress адрес доставки
type ShippingAddress struct {
	FullName   string `json:"fullName" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Phone      string `json:"phone,omitempty"`
}

func (a ShippingAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *ShippingAddress) Scan(src any) error {
	return scanJSON(src, a)
}

// scanJSON читает JSONB-колонку в структуру
func scanJSON(src any, dst any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported type %T for jsonb column", src)
	}
	return json.Unmarshal(data, dst)
}
