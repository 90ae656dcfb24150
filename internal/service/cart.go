package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/linemk/farm-shop/internal/domain/guestcart"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/domain/pricing"
	"github.com/linemk/farm-shop/internal/storage"
	"github.com/shopspring/decimal"
)

// CartLine позиция корзины с актуальными данными товара
type CartLine struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image,omitempty"`
	Stock     int             `json:"stock"`
	// Available false, если товар удалён из каталога и показан по снимку
	Available bool `json:"available"`
}

// CartView корзина в том виде, в котором её отдаёт API
type CartView struct {
	ID    *int64     `json:"id"`
	Items []CartLine `json:"items"`
	pricing.Totals
	Warnings []string `json:"warnings,omitempty"`
}

type CartService interface {
	GetCart(ctx context.Context, userID int64) (*CartView, error)
	GetGuestCart(ctx context.Context, cart guestcart.Cart) (*CartView, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*CartView, error)
	// UpdateItem задаёт количество, quantity <= 0 удаляет позицию
	UpdateItem(ctx context.Context, userID, productID int64, quantity int) (*CartView, error)
	RemoveItem(ctx context.Context, userID, productID int64) (*CartView, error)
	Clear(ctx context.Context, userID int64) error
	// ReplaceItems заменяет содержимое корзины переданным набором
	ReplaceItems(ctx context.Context, userID int64, items guestcart.Cart) (*CartView, error)
	// MergeGuestCart добавляет гостевую корзину к сохранённой после входа
	MergeGuestCart(ctx context.Context, userID int64, guest guestcart.Cart) (*CartView, error)
}

type cartService struct {
	log         *slog.Logger
	db          *sql.DB
	orderRepo   storage.OrderStorage
	productRepo storage.ProductStorage
	rule        pricing.Rule
}

func NewCartService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, productRepo storage.ProductStorage, rule pricing.Rule) CartService {
	return &cartService{
		log:         log,
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		rule:        rule,
	}
}

func (s *cartService) emptyView() *CartView {
	return &CartView{Items: []CartLine{}, Totals: s.rule.Compute(nil)}
}

// buildView собирает корзину: цена и остаток берутся из каталога, для удалённых товаров - из снимка
func (s *cartService) buildView(orderID int64, items []models.OrderItem) *CartView {
	if len(items) == 0 {
		return s.emptyView()
	}
	view := &CartView{ID: &orderID, Items: make([]CartLine, 0, len(items))}
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		line := CartLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		}
		if p := it.Product; p != nil {
			line.Name = p.Name
			line.Price = p.Price
			line.Image = p.Image
			line.Stock = p.Stock
			line.Available = true
		}
		view.Items = append(view.Items, line)
		lines = append(lines, pricing.Line{Price: line.Price, Quantity: line.Quantity})
	}
	view.Totals = s.rule.Compute(lines)
	return view
}

func (s *cartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	const op = "service.CartService.GetCart"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	order, err := s.orderRepo.GetPendingOrder(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return s.emptyView(), nil
		}
		logger.Error("failed to get pending order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get pending order: %w", op, err)
	}

	items, err := s.orderRepo.GetOrderItems(ctx, order.ID)
	if err != nil {
		logger.Error("failed to get order items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order items: %w", op, err)
	}
	return s.buildView(order.ID, items), nil
}

func (s *cartService) GetGuestCart(ctx context.Context, cart guestcart.Cart) (*CartView, error) {
	const op = "service.CartService.GetGuestCart"
	logger := s.log.With(slog.String("op", op))

	cart = cart.Normalize()
	if len(cart) == 0 {
		return s.emptyView(), nil
	}

	products, err := s.productRepo.GetProductsByIDs(ctx, cart.ProductIDs())
	if err != nil {
		logger.Error("failed to load products", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load products: %w", op, err)
	}

	view := &CartView{Items: make([]CartLine, 0, len(cart))}
	lines := make([]pricing.Line, 0, len(cart))
	for _, it := range cart {
		line := CartLine{
			ProductID: it.ID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Image:     it.Image,
			Stock:     it.Stock,
		}
		if p, ok := products[it.ID]; ok {
			line.Name = p.Name
			line.Price = p.Price
			line.Image = p.Image
			line.Stock = p.Stock
			line.Available = true
			if line.Quantity > p.Stock {
				view.Warnings = append(view.Warnings, clampWarning(p.Name, line.Quantity, p.Stock))
				line.Quantity = p.Stock
			}
		}
		if line.Quantity <= 0 {
			continue
		}
		view.Items = append(view.Items, line)
		lines = append(lines, pricing.Line{Price: line.Price, Quantity: line.Quantity})
	}
	view.Totals = s.rule.Compute(lines)
	return view, nil
}

func clampWarning(name string, requested, stock int) string {
	if stock <= 0 {
		return fmt.Sprintf("%s is out of stock and was removed from the cart", name)
	}
	return fmt.Sprintf("only %d unit(s) of %s available, quantity reduced from %d", stock, name, requested)
}

// clamp ограничивает количество остатком товара
func clamp(p *models.Product, qty int, warnings *[]string) int {
	if qty > p.Stock {
		*warnings = append(*warnings, clampWarning(p.Name, qty, p.Stock))
		return p.Stock
	}
	return qty
}

// recalculate пересчитывает итоги корзины по всем позициям.
// Если позиций не осталось, корзина удаляется и возвращается пустой вид.
func (s *cartService) recalculate(ctx context.Context, tx *sql.Tx, orderID int64) (*CartView, error) {
	items, err := s.orderRepo.GetOrderItemsTx(ctx, tx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	if len(items) == 0 {
		if err := s.orderRepo.DeleteOrderTx(ctx, tx, orderID); err != nil {
			return nil, fmt.Errorf("failed to delete empty order: %w", err)
		}
		return s.emptyView(), nil
	}
	// снимок позиций обновляется по каталогу: сохранённые итоги равны сумме позиций
	for _, it := range items {
		p := it.Product
		if p == nil || (p.Price.Equal(it.Price) && p.Name == it.Name) {
			continue
		}
		it.Name, it.Price = p.Name, p.Price
		if err := s.orderRepo.UpsertItemTx(ctx, tx, orderID, it); err != nil {
			return nil, fmt.Errorf("failed to refresh item snapshot: %w", err)
		}
	}
	view := s.buildView(orderID, items)
	if err := s.orderRepo.UpdateTotalsTx(ctx, tx, orderID, view.Totals); err != nil {
		return nil, fmt.Errorf("failed to update totals: %w", err)
	}
	return view, nil
}

func currentQuantity(items []models.OrderItem, productID int64) (int, bool) {
	for _, it := range items {
		if it.ProductID == productID {
			return it.Quantity, true
		}
	}
	return 0, false
}

func (s *cartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*CartView, error) {
	const op = "service.CartService.AddItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	product, err := s.productRepo.GetProductTx(ctx, tx, productID)
	if err != nil {
		rollback(tx, logger)
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	if product.Stock <= 0 {
		rollback(tx, logger)
		logger.Warn("product out of stock")
		return nil, fmt.Errorf("%s: %w", op, ErrProductUnavailable)
	}

	order, err := s.orderRepo.EnsurePendingOrderTx(ctx, tx, userID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to get or create cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get or create cart: %w", op, err)
	}

	items, err := s.orderRepo.GetOrderItemsTx(ctx, tx, order.ID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to get order items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order items: %w", op, err)
	}

	var warnings []string
	current, _ := currentQuantity(items, productID)
	qty := clamp(product, current+quantity, &warnings)

	item := models.OrderItem{ProductID: product.ID, Name: product.Name, Price: product.Price, Quantity: qty}
	if err := s.orderRepo.UpsertItemTx(ctx, tx, order.ID, item); err != nil {
		rollback(tx, logger)
		logger.Error("failed to save item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to save item: %w", op, err)
	}

	view, err := s.recalculate(ctx, tx, order.ID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to recalculate cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	view.Warnings = warnings
	logger.Info("item added to cart", slog.Int("quantity", qty))
	return view, nil
}

func (s *cartService) UpdateItem(ctx context.Context, userID, productID int64, quantity int) (*CartView, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	const op = "service.CartService.UpdateItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockPendingOrderTx(ctx, tx, userID)
	if err != nil {
		rollback(tx, logger)
		if errors.Is(err, storage.ErrOrderNotFound) {
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
	if _, ok := currentQuantity(items, productID); !ok {
		rollback(tx, logger)
		return nil, fmt.Errorf("%s: %w", op, storage.ErrItemNotFound)
	}

	product, err := s.productRepo.GetProductTx(ctx, tx, productID)
	if err != nil {
		rollback(tx, logger)
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}

	var warnings []string
	qty := clamp(product, quantity, &warnings)
	if qty <= 0 {
		err = s.orderRepo.DeleteItemTx(ctx, tx, order.ID, productID)
	} else {
		err = s.orderRepo.UpsertItemTx(ctx, tx, order.ID, models.OrderItem{
			ProductID: product.ID, Name: product.Name, Price: product.Price, Quantity: qty,
		})
	}
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to save item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to save item: %w", op, err)
	}

	view, err := s.recalculate(ctx, tx, order.ID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to recalculate cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	view.Warnings = warnings
	return view, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID int64) (*CartView, error) {
	const op = "service.CartService.RemoveItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockPendingOrderTx(ctx, tx, userID)
	if err != nil {
		rollback(tx, logger)
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrCartNotFound)
		}
		logger.Error("failed to lock cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock cart: %w", op, err)
	}

	if err := s.orderRepo.DeleteItemTx(ctx, tx, order.ID, productID); err != nil {
		rollback(tx, logger)
		return nil, fmt.Errorf("%s: failed to delete item: %w", op, err)
	}

	view, err := s.recalculate(ctx, tx, order.ID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to recalculate cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	return view, nil
}

func (s *cartService) Clear(ctx context.Context, userID int64) error {
	const op = "service.CartService.Clear"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockPendingOrderTx(ctx, tx, userID)
	if err != nil {
		rollback(tx, logger)
		if errors.Is(err, storage.ErrOrderNotFound) {
			// очищать нечего
			return nil
		}
		logger.Error("failed to lock cart", slog.Any("error", err))
		return fmt.Errorf("%s: failed to lock cart: %w", op, err)
	}

	if err := s.orderRepo.DeleteItemsTx(ctx, tx, order.ID); err != nil {
		rollback(tx, logger)
		logger.Error("failed to delete items", slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete items: %w", op, err)
	}
	if err := s.orderRepo.DeleteOrderTx(ctx, tx, order.ID); err != nil {
		rollback(tx, logger)
		logger.Error("failed to delete order", slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete order: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	logger.Info("cart cleared")
	return nil
}

func (s *cartService) ReplaceItems(ctx context.Context, userID int64, items guestcart.Cart) (*CartView, error) {
	const op = "service.CartService.ReplaceItems"
	return s.applyQuantities(ctx, op, userID, func(map[int64]int) map[int64]int {
		return items.Quantities()
	})
}

func (s *cartService) MergeGuestCart(ctx context.Context, userID int64, guest guestcart.Cart) (*CartView, error) {
	const op = "service.CartService.MergeGuestCart"
	if len(guest.Normalize()) == 0 {
		return s.GetCart(ctx, userID)
	}
	return s.applyQuantities(ctx, op, userID, func(persisted map[int64]int) map[int64]int {
		return guestcart.Merge(persisted, guest)
	})
}

// applyQuantities перезаписывает позиции корзины количествами, которые вычисляет target
// по текущему содержимому. Отсутствующие в каталоге товары пропускаются с предупреждением.
func (s *cartService) applyQuantities(ctx context.Context, op string, userID int64, target func(map[int64]int) map[int64]int) (*CartView, error) {
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.EnsurePendingOrderTx(ctx, tx, userID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to get or create cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get or create cart: %w", op, err)
	}

	existing, err := s.orderRepo.GetOrderItemsTx(ctx, tx, order.ID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to get order items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order items: %w", op, err)
	}
	persisted := make(map[int64]int, len(existing))
	for _, it := range existing {
		persisted[it.ProductID] = it.Quantity
	}
	quantities := target(persisted)

	if err := s.orderRepo.DeleteItemsTx(ctx, tx, order.ID); err != nil {
		rollback(tx, logger)
		logger.Error("failed to delete items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to delete items: %w", op, err)
	}

	ids := make([]int64, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var warnings []string
	for _, id := range ids {
		product, err := s.productRepo.GetProductTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, storage.ErrProductNotFound) {
				warnings = append(warnings, fmt.Sprintf("product %d is no longer available and was removed", id))
				continue
			}
			rollback(tx, logger)
			logger.Error("failed to get product", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
		}
		qty := clamp(product, quantities[id], &warnings)
		if qty <= 0 {
			continue
		}
		item := models.OrderItem{ProductID: product.ID, Name: product.Name, Price: product.Price, Quantity: qty}
		if err := s.orderRepo.UpsertItemTx(ctx, tx, order.ID, item); err != nil {
			rollback(tx, logger)
			logger.Error("failed to save item", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to save item: %w", op, err)
		}
	}

	view, err := s.recalculate(ctx, tx, order.ID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to recalculate cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	view.Warnings = warnings
	logger.Info("cart items replaced", slog.Int("items", len(view.Items)))
	return view, nil
}
