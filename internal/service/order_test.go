package service_test

import (
	"context"
	"testing"

	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/service"
	"github.com/linemk/farm-shop/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderService_UpdateStatus_CancelRestocks(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	outbox := &fakeOutbox{}
	productCache := newFakeCache()
	order := orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusProcessing},
		models.OrderItem{ProductID: 1, Quantity: 2},
		models.OrderItem{ProductID: 2, Quantity: 1})
	svc := service.NewOrderService(testLogger(), db, orders, products, outbox, productCache)

	mock.ExpectBegin()
	mock.ExpectCommit()

	updated, err := svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	assert.Equal(t, 12, products.products[1].Stock)
	assert.Equal(t, 4, products.products[2].Stock)
	require.Len(t, outbox.events, 1)
	assert.Equal(t, models.EventOrderStatusChanged, outbox.events[0].EventType)
	assert.ElementsMatch(t, []int64{1, 2}, productCache.deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderService_UpdateStatus_CompleteKeepsStock(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	order := orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusProcessing},
		models.OrderItem{ProductID: 1, Quantity: 2})
	svc := service.NewOrderService(testLogger(), db, orders, products, &fakeOutbox{}, newFakeCache())

	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 10, products.products[1].Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderService_UpdateStatus_InvalidTransition(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	order := orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusCompleted})
	svc := service.NewOrderService(testLogger(), db, orders, products, &fakeOutbox{}, newFakeCache())

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusCancelled)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
	assert.Equal(t, models.OrderStatusCompleted, orders.orders[order.ID].Status)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = svc.UpdateStatus(context.Background(), order.ID, "SHIPPED")
	assert.ErrorIs(t, err, service.ErrInvalidStatus)
}

// корзину нельзя перевести в PROCESSING в обход оформления
func TestOrderService_UpdateStatus_PendingCannotSkipCheckout(t *testing.T) {
	db, mock := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	outbox := &fakeOutbox{}
	order := orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusPending},
		models.OrderItem{ProductID: 1, Quantity: 2})
	svc := service.NewOrderService(testLogger(), db, orders, products, outbox, newFakeCache())
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.UpdateStatus(ctx, order.ID, models.OrderStatusProcessing)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
	assert.Equal(t, models.OrderStatusPending, orders.orders[order.ID].Status)
	assert.Equal(t, 10, products.products[1].Stock)
	assert.Empty(t, outbox.events)
	assert.NoError(t, mock.ExpectationsWereMet())

	// отмена корзины склад не трогает: списания ещё не было
	mock.ExpectBegin()
	mock.ExpectCommit()

	updated, err := svc.UpdateStatus(ctx, order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	assert.Equal(t, 10, products.products[1].Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderService_Get_Access(t *testing.T) {
	db, _ := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	order := orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusProcessing},
		models.OrderItem{ProductID: 1, Quantity: 2})
	svc := service.NewOrderService(testLogger(), db, orders, products, &fakeOutbox{}, newFakeCache())
	ctx := context.Background()

	got, err := svc.Get(ctx, 7, models.RoleClient, order.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	_, err = svc.Get(ctx, 8, models.RoleClient, order.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = svc.Get(ctx, 8, models.RoleEmployee, order.ID)
	assert.NoError(t, err, "staff can read any order")

	_, err = svc.Get(ctx, 7, models.RoleClient, 999)
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
}

func TestOrderService_ListMineSkipsCart(t *testing.T) {
	db, _ := newMockDB(t)
	products := farmProducts()
	orders := newFakeOrderRepo(products)
	orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusPending})
	orders.addOrder(&models.Order{UserID: 7, Status: models.OrderStatusCompleted})
	svc := service.NewOrderService(testLogger(), db, orders, products, &fakeOutbox{}, newFakeCache())

	list, err := svc.ListMine(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.OrderStatusCompleted, list[0].Status)
}
