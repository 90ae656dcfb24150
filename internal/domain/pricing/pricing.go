// Package pricing - единственное место, где считаются суммы корзины и заказа.
package pricing

import "github.com/shopspring/decimal"

var (
	// DefaultFreeShippingThreshold доставка бесплатна, если сумма товаров строго больше порога
	DefaultFreeShippingThreshold = decimal.NewFromInt(50)
	DefaultFlatShippingCost      = decimal.RequireFromString("5.99")
)

// Line позиция для расчёта
type Line struct {
	Price    decimal.Decimal
	Quantity int
}

// Totals итог по корзине
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Total        decimal.Decimal `json:"total"`
	ItemCount    int             `json:"itemCount"`
}

// Rule правило стоимости доставки
type Rule struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingCost      decimal.Decimal
}

// DefaultRule правило магазина по умолчанию: бесплатно от 50, иначе 5.99
var DefaultRule = Rule{
	FreeShippingThreshold: DefaultFreeShippingThreshold,
	FlatShippingCost:      DefaultFlatShippingCost,
}

// NewRule собирает правило из значений конфига, нулевые значения заменяются на значения по умолчанию
func NewRule(threshold, flat float64) Rule {
	r := DefaultRule
	if threshold > 0 {
		r.FreeShippingThreshold = decimal.NewFromFloat(threshold)
	}
	if flat > 0 {
		r.FlatShippingCost = decimal.NewFromFloat(flat)
	}
	return r
}

// Compute считает subtotal, доставку, итог и количество единиц товара.
// Позиции с неположительным количеством не учитываются.
// Доставка платная и для пустой корзины.
func (r Rule) Compute(lines []Line) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		count += l.Quantity
	}
	subtotal = subtotal.Round(2)

	shipping := r.FlatShippingCost
	if subtotal.GreaterThan(r.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Total:        subtotal.Add(shipping).Round(2),
		ItemCount:    count,
	}
}

// Compute считает итог по правилу по умолчанию
func Compute(lines []Line) Totals {
	return DefaultRule.Compute(lines)
}
