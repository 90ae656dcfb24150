package service_test

import (
	"context"
	"testing"

	"github.com/linemk/farm-shop/internal/domain/guestcart"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/domain/pricing"
	"github.com/linemk/farm-shop/internal/service"
	"github.com/linemk/farm-shop/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func farmProducts() *fakeProductRepo {
	return newFakeProductRepo(
		&models.Product{ID: 1, Name: "Huevos Orgánicos", Price: money("5.99"), Stock: 10},
		&models.Product{ID: 2, Name: "Pollo Entero", Price: money("12.99"), Stock: 3},
		&models.Product{ID: 3, Name: "Gallina Ponedora", Price: money("25.00"), Stock: 0},
	)
}

type cartFixture struct {
	svc      service.CartService
	orders   *fakeOrderRepo
	products *fakeProductRepo
}

func newCartFixture(t *testing.T, products *fakeProductRepo) (cartFixture, func() error) {
	db, mock := newMockDB(t)
	orders := newFakeOrderRepo(products)
	svc := service.NewCartService(testLogger(), db, orders, products, pricing.DefaultRule)
	return cartFixture{svc: svc, orders: orders, products: products}, mock.ExpectationsWereMet
}

func TestCartService_GetCart_NoPendingOrder(t *testing.T) {
	fx, _ := newCartFixture(t, farmProducts())

	view, err := fx.svc.GetCart(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, view.ID)
	assert.Empty(t, view.Items)
	assert.Equal(t, 0, view.ItemCount)
	assert.True(t, view.Subtotal.IsZero())
	assert.Equal(t, "5.99", view.ShippingCost.StringFixed(2), "empty cart still shows flat shipping")
}

func TestCartService_AddItem_CreatesCartAndComputesTotals(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	svc := service.NewCartService(testLogger(), db, orders, products, pricing.DefaultRule)

	mock.ExpectBegin()
	mock.ExpectCommit()

	view, err := svc.AddItem(context.Background(), 7, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, view.ID)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, "11.98", view.Subtotal.StringFixed(2))
	assert.Equal(t, "5.99", view.ShippingCost.StringFixed(2))
	assert.Equal(t, "17.97", view.Total.StringFixed(2))
	assert.Empty(t, view.Warnings)

	// итоги сохранены в строке заказа
	order, err := orders.GetPendingOrder(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "17.97", order.Total.StringFixed(2))

	assert.NoError(t, mock.ExpectationsWereMet(), "sqlmock expectations should be met")
}

func TestCartService_AddItem_AccumulatesAndClampsToStock(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	svc := service.NewCartService(testLogger(), db, orders, products, pricing.DefaultRule)

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := svc.AddItem(context.Background(), 7, 2, 2)
	require.NoError(t, err)
	view, err := svc.AddItem(context.Background(), 7, 2, 2)
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity, "quantity never exceeds stock")
	require.Len(t, view.Warnings, 1)
	assert.Contains(t, view.Warnings[0], "Pollo Entero")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_AddItem_Errors(t *testing.T) {
	t.Run("out of stock", func(t *testing.T) {
		db, mock := newMockDB(t)
		products := farmProducts()
		orders := newFakeOrderRepo(products)
		svc := service.NewCartService(testLogger(), db, orders, products, pricing.DefaultRule)
		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := svc.AddItem(context.Background(), 7, 3, 1)
		assert.ErrorIs(t, err, service.ErrProductUnavailable)
		assert.Empty(t, orders.orders, "no cart created on failure")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown product", func(t *testing.T) {
		db, mock := newMockDB(t)
		products := farmProducts()
		svc := service.NewCartService(testLogger(), db, newFakeOrderRepo(products), products, pricing.DefaultRule)
		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := svc.AddItem(context.Background(), 7, 99, 1)
		assert.ErrorIs(t, err, storage.ErrProductNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non positive quantity", func(t *testing.T) {
		fx, met := newCartFixture(t, farmProducts())
		_, err := fx.svc.AddItem(context.Background(), 7, 1, 0)
		assert.ErrorIs(t, err, service.ErrInvalidQuantity)
		assert.NoError(t, met(), "no transaction is started")
	})
}

func TestCartService_UpdateItem_ZeroRemovesLastItemAndDeletesCart(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusPending},
		models.OrderItem{ProductID: 1, Name: "Huevos Orgánicos", Price: money("5.99"), Quantity: 2})
	svc := service.NewCartService(testLogger(), db, orders, products, pricing.DefaultRule)

	mock.ExpectBegin()
	mock.ExpectCommit()

	view, err := svc.UpdateItem(context.Background(), 7, 1, 0)
	require.NoError(t, err)
	assert.Nil(t, view.ID)
	assert.Empty(t, view.Items)
	assert.Empty(t, orders.orders, "empty cart is deleted")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_UpdateItem_SetsQuantity(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusPending},
		models.OrderItem{ProductID: 1, Name: "Huevos Orgánicos", Price: money("5.99"), Quantity: 2})
	svc := service.NewCartService(testLogger(), db, orders, products, pricing.DefaultRule)

	mock.ExpectBegin()
	mock.ExpectCommit()

	view, err := svc.UpdateItem(context.Background(), 7, 1, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, view.Items[0].Quantity)
	// 9 * 5.99 = 53.91 > 50, доставка бесплатная
	assert.Equal(t, "53.91", view.Subtotal.StringFixed(2))
	assert.True(t, view.ShippingCost.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_UpdateItem_NoCart(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	svc := service.NewCartService(testLogger(), db, newFakeOrderRepo(products), products, pricing.DefaultRule)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.UpdateItem(context.Background(), 7, 1, 3)
	assert.ErrorIs(t, err, service.ErrCartNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_RemoveItem_RecomputesTotals(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusPending},
		models.OrderItem{ProductID: 1, Name: "Huevos Orgánicos", Price: money("5.99"), Quantity: 1},
		models.OrderItem{ProductID: 2, Name: "Pollo Entero", Price: money("12.99"), Quantity: 1})
	svc := service.NewCartService(testLogger(), db, orders, products, pricing.DefaultRule)

	mock.ExpectBegin()
	mock.ExpectCommit()

	view, err := svc.RemoveItem(context.Background(), 7, 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(1), view.Items[0].ProductID)
	assert.Equal(t, "11.98", view.Total.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_RemoveItem_MissingItem(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusPending},
		models.OrderItem{ProductID: 1, Quantity: 1})
	svc := service.NewCartService(testLogger(), db, orders, products, pricing.DefaultRule)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.RemoveItem(context.Background(), 7, 2)
	assert.ErrorIs(t, err, storage.ErrItemNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_GetCart_DeletedProductFallsBackToSnapshot(t *testing.T) {
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusPending},
		models.OrderItem{ProductID: 1, Name: "old name", Price: money("4.00"), Quantity: 1},
		models.OrderItem{ProductID: 42, Name: "Pienso retirado", Price: money("3.50"), Quantity: 2})
	db, _ := newMockDB(t)
	svc := service.NewCartService(testLogger(), db, orders, products, pricing.DefaultRule)

	view, err := svc.GetCart(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	assert.Equal(t, "Huevos Orgánicos", view.Items[0].Name, "live product data wins")
	assert.Equal(t, "5.99", view.Items[0].Price.StringFixed(2))
	assert.True(t, view.Items[0].Available)

	assert.Equal(t, "Pienso retirado", view.Items[1].Name)
	assert.Equal(t, "3.50", view.Items[1].Price.StringFixed(2))
	assert.False(t, view.Items[1].Available)

	assert.Equal(t, "12.99", view.Subtotal.StringFixed(2))
	assert.Equal(t, 3, view.ItemCount)
}

func TestCartService_AddItem_RefreshesStaleSnapshots(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	order := orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusPending},
		models.OrderItem{ProductID: 2, Name: "Pollo", Price: money("10.00"), Quantity: 2},
		models.OrderItem{ProductID: 42, Name: "Pienso retirado", Price: money("3.50"), Quantity: 1})
	svc := service.NewCartService(testLogger(), db, orders, products, pricing.DefaultRule)

	mock.ExpectBegin()
	mock.ExpectCommit()

	view, err := svc.AddItem(context.Background(), 7, 1, 1)
	require.NoError(t, err)
	// 2*12.99 + 3.50 + 5.99
	assert.Equal(t, "35.47", view.Subtotal.StringFixed(2))

	sum := money("0")
	for _, it := range orders.items[order.ID] {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		if it.ProductID == 2 {
			assert.Equal(t, "12.99", it.Price.StringFixed(2))
			assert.Equal(t, "Pollo Entero", it.Name)
		}
		if it.ProductID == 42 {
			assert.Equal(t, "3.50", it.Price.StringFixed(2), "removed product keeps its snapshot")
		}
	}
	stored := orders.orders[order.ID]
	assert.True(t, stored.Subtotal.Equal(sum), "stored subtotal %s must match items %s", stored.Subtotal, sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_GetGuestCart(t *testing.T) {
	products := farmProducts()
	db, _ := newMockDB(t)
	svc := service.NewCartService(testLogger(), db, newFakeOrderRepo(products), products, pricing.DefaultRule)

	cart := guestcart.Cart{
		{ID: 1, Quantity: 1, Name: "stale", Price: money("1.00")},
		{ID: 1, Quantity: 1},
		{ID: 2, Quantity: 5},
		{ID: 77, Quantity: 1, Name: "Cesta regalo", Price: money("20.00")},
	}
	view, err := svc.GetGuestCart(context.Background(), cart)
	require.NoError(t, err)
	assert.Nil(t, view.ID)
	require.Len(t, view.Items, 3)

	assert.Equal(t, 2, view.Items[0].Quantity, "duplicates merged")
	assert.Equal(t, "5.99", view.Items[0].Price.StringFixed(2))
	assert.Equal(t, 3, view.Items[1].Quantity, "clamped to stock")
	assert.Equal(t, "Cesta regalo", view.Items[2].Name)
	assert.False(t, view.Items[2].Available)
	assert.Len(t, view.Warnings, 1)

	// 2*5.99 + 3*12.99 + 20.00 = 70.95
	assert.Equal(t, "70.95", view.Subtotal.StringFixed(2))
	assert.True(t, view.ShippingCost.IsZero())
}

func TestCartService_MergeGuestCart(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusPending},
		models.OrderItem{ProductID: 1, Name: "Huevos Orgánicos", Price: money("5.99"), Quantity: 2})
	svc := service.NewCartService(testLogger(), db, orders, products, pricing.DefaultRule)

	mock.ExpectBegin()
	mock.ExpectCommit()

	view, err := svc.MergeGuestCart(context.Background(), 7, guestcart.Cart{{ID: 1, Quantity: 3}, {ID: 2, Quantity: 1}})
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, 1, view.Items[1].Quantity)
	assert.Len(t, orders.orders, 1, "still a single pending order")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_ReplaceItems(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusPending},
		models.OrderItem{ProductID: 1, Name: "Huevos Orgánicos", Price: money("5.99"), Quantity: 2})
	svc := service.NewCartService(testLogger(), db, orders, products, pricing.DefaultRule)

	mock.ExpectBegin()
	mock.ExpectCommit()

	view, err := svc.ReplaceItems(context.Background(), 7, guestcart.Cart{{ID: 2, Quantity: 1}, {ID: 404, Quantity: 1}})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(2), view.Items[0].ProductID)
	require.Len(t, view.Warnings, 1)
	assert.Contains(t, view.Warnings[0], "404")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_ReplaceItems_EmptyDeletesCart(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusPending},
		models.OrderItem{ProductID: 1, Quantity: 2})
	svc := service.NewCartService(testLogger(), db, orders, products, pricing.DefaultRule)

	mock.ExpectBegin()
	mock.ExpectCommit()

	view, err := svc.ReplaceItems(context.Background(), 7, nil)
	require.NoError(t, err)
	assert.Nil(t, view.ID)
	assert.Empty(t, orders.orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_Clear(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusPending},
		models.OrderItem{ProductID: 1, Quantity: 2})
	svc := service.NewCartService(testLogger(), db, orders, products, pricing.DefaultRule)

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, svc.Clear(context.Background(), 7))
	assert.Empty(t, orders.orders)

	// повторная очистка - не ошибка
	mock.ExpectBegin()
	mock.ExpectRollback()
	require.NoError(t, svc.Clear(context.Background(), 7))

	assert.NoError(t, mock.ExpectationsWereMet())
}
