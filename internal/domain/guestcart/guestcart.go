// Package guestcart - корзина анонимного покупателя, которая живёт в cookie.
package guestcart

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// CookieName имя cookie по умолчанию
const CookieName = "carrito"

var ErrCorrupt = errors.New("guest cart cookie is corrupt")

// Item позиция гостевой корзины. Name, Price, Image и Stock - закэшированные
// на клиенте данные товара, используются, если товар пропал из каталога.
type Item struct {
	ID       int64           `json:"id"`
	Quantity int             `json:"quantity"`
	Name     string          `json:"name,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Stock    int             `json:"stock,omitempty"`
}

// Cart гостевая корзина
type Cart []Item

// Decode разбирает значение cookie. Поддерживается JSON как есть,
// URL-экранированный JSON и base64 (так пишет Encode). Сначала пробуется
// JSON как есть: в закэшированных названиях может встретиться "%".
// Пустое значение - пустая корзина без ошибки.
func Decode(raw string) (Cart, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if cart, ok := parseJSON(raw); ok {
		return cart.Normalize(), nil
	}

	payload := raw
	if strings.Contains(payload, "%") {
		unescaped, err := url.QueryUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if cart, ok := parseJSON(unescaped); ok {
			return cart.Normalize(), nil
		}
		payload = unescaped
	}

	decoded, err := decodeBase64(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var cart Cart
	if err := json.Unmarshal(decoded, &cart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return cart.Normalize(), nil
}

func parseJSON(s string) (Cart, bool) {
	if !strings.HasPrefix(s, "[") {
		return nil, false
	}
	var cart Cart
	if err := json.Unmarshal([]byte(s), &cart); err != nil {
		return nil, false
	}
	return cart, true
}

func decodeBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding, base64.StdEncoding, base64.RawStdEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("not a base64 value")
}

// Encode сериализует корзину в значение cookie
func (c Cart) Encode() (string, error) {
	items := c.Normalize()
	if items == nil {
		items = Cart{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Normalize склеивает дубликаты по id (количества суммируются) и
// выбрасывает позиции с неположительным количеством или id.
// Порядок - по первому появлению товара.
func (c Cart) Normalize() Cart {
	if len(c) == 0 {
		return nil
	}
	index := make(map[int64]int, len(c))
	var out Cart
	for _, it := range c {
		if it.ID <= 0 || it.Quantity <= 0 {
			continue
		}
		if i, ok := index[it.ID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}

// Quantities - количества по товарам
func (c Cart) Quantities() map[int64]int {
	res := make(map[int64]int, len(c))
	for _, it := range c.Normalize() {
		res[it.ID] = it.Quantity
	}
	return res
}

// ProductIDs отсортированные id товаров корзины
func (c Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c))
	for _, it := range c.Normalize() {
		ids = append(ids, it.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Merge складывает гостевую корзину с сохранённой. Исходные значения не меняются.
func Merge(persisted map[int64]int, guest Cart) map[int64]int {
	res := make(map[int64]int, len(persisted)+len(guest))
	for id, qty := range persisted {
		if qty > 0 {
			res[id] = qty
		}
	}
	for id, qty := range guest.Quantities() {
		res[id] += qty
	}
	return res
}
