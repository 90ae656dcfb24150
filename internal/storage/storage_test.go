package storage_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/domain/pricing"
	"github.com/linemk/farm-shop/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "name", "email", "pass_hash", "phone", "role", "created_at", "updated_at"}

var productCols = []string{"id", "name", "description", "price", "old_price", "category", "stock", "min_stock",
	"image", "featured", "is_subscription", "subscription_frequency", "created_at", "updated_at"}

var orderCols = []string{"id", "user_id", "status", "subtotal", "shipping_cost", "total", "shipping_address",
	"payment_details", "created_at", "updated_at"}

var itemCols = []string{"id", "order_id", "product_id", "name", "price", "quantity",
	"p_id", "p_name", "p_description", "p_price", "p_category", "p_stock", "p_min_stock", "p_image"}

func TestGetUserByID_Success(t *testing.T) {
	// Создаем sqlmock для эмуляции базы данных.
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx := context.Background()
	userID := int64(1)
	now := time.Now()

	rows := sqlmock.NewRows(userCols).
		AddRow(userID, "Ana", "ana@example.com", []byte("hashed-password"), "", "CLIENTE", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).WithArgs(userID).WillReturnRows(rows)

	user, err := repo.GetUserByID(ctx, userID)
	assert.NoError(t, err, "Expected no error when user is found")
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, []byte("hashed-password"), user.PassHash)
	assert.Equal(t, models.RoleClient, user.Role)

	// Проверяем, что все ожидания sqlmock выполнены.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail_NoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("ghost@example.com").WillReturnRows(sqlmock.NewRows(userCols))

	user, err := repo.GetUserByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)

	// Эмулируем нарушение уникального индекса по email.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("Ana", "ana@example.com", []byte("hash"), "", models.RoleClient).
		WillReturnError(&pq.Error{Code: "23505"})

	user, err := repo.CreateUser(context.Background(), &models.User{
		Name: "Ana", Email: "ana@example.com", PassHash: []byte("hash"), Role: models.RoleClient,
	})
	assert.ErrorIs(t, err, storage.ErrUserExists)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.DeleteUser(context.Background(), 9)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProducts_BuildsFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewProductRepository(db)
	featured := true
	now := time.Now()

	rows := sqlmock.NewRows(productCols).
		AddRow(int64(1), "Huevos Orgánicos", "Docena", "5.99", "6.99", "huevos", 100, 20, "/img.jpg", true, false, "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE category = $1 AND (name ILIKE $2 OR description ILIKE $2) AND featured = $3 ORDER BY id")).
		WithArgs("huevos", "%huevo%", true).
		WillReturnRows(rows)

	products, err := repo.ListProducts(context.Background(), storage.ProductFilter{
		Category: "huevos", Search: "huevo", Featured: &featured,
	})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "5.99", products[0].Price.String())
	assert.True(t, products[0].OldPrice.Valid)
	assert.Equal(t, "6.99", products[0].OldPrice.Decimal.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewProductRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs(int64(42)).WillReturnRows(sqlmock.NewRows(productCols))

	p, err := repo.GetProductByID(context.Background(), 42)
	assert.ErrorIs(t, err, storage.ErrProductNotFound)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStockTx_Insufficient(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewProductRepository(db)
	tx, err := db.Begin()
	require.NoError(t, err)

	// Условие stock >= qty не выполнилось - ни одна строка не обновлена.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1")).
		WithArgs(5, int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.DecrementStockTx(context.Background(), tx, 1, 5)
	assert.ErrorIs(t, err, storage.ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockProductsTx_OrdersByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewProductRepository(db)
	tx, err := db.Begin()
	require.NoError(t, err)

	now := time.Now()
	rows := sqlmock.NewRows(productCols).
		AddRow(int64(1), "Huevos", "", "5.99", nil, "huevos", 3, 0, "", false, false, "", now, now).
		AddRow(int64(2), "Pollo", "", "12.99", nil, "carne", 0, 0, "", false, false, "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ANY($1) ORDER BY id FOR UPDATE")).
		WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)

	products, err := repo.LockProductsTx(context.Background(), tx, []int64{2, 1, 3})
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, 3, products[1].Stock)
	assert.False(t, products[1].OldPrice.Valid)
	_, missing := products[3]
	assert.False(t, missing, "missing product must not appear in result")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsurePendingOrderTx_InsertsThenLocks(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewOrderRepository(db)
	tx, err := db.Begin()
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) WHERE status = 'PENDING' DO NOTHING")).
		WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND status = 'PENDING' FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(int64(11), int64(7), "PENDING", "0", "0", "0", nil, nil, now, now))

	order, err := repo.EnsurePendingOrderTx(context.Background(), tx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(11), order.ID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Nil(t, order.ShippingAddress)
	assert.Nil(t, order.PaymentDetails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByID_WithItemsAndDeletedProduct(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	now := time.Now()

	addr := []byte(`{"fullName":"Ana","street":"Calle 1","city":"Madrid","postalCode":"28001","country":"ES"}`)
	payment := []byte(`{"method":"credit_card","status":"pending","cardHolder":"Ana","cardLast4":"4242"}`)
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow(int64(5), int64(1), "PROCESSING", "18.98", "5.99", "24.97", addr, payment, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN products p ON p.id = oi.product_id WHERE oi.order_id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow(int64(1), int64(5), int64(1), "Huevos", "5.99", 1, int64(1), "Huevos Orgánicos", "", "6.49", "huevos", 10, 2, "/h.jpg").
			AddRow(int64(2), int64(5), int64(9), "Pollo", "12.99", 1, nil, nil, nil, nil, nil, nil, nil, nil))

	order, err := repo.GetOrderByID(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, order.ShippingAddress)
	assert.Equal(t, "Madrid", order.ShippingAddress.City)
	require.NotNil(t, order.PaymentDetails)
	assert.Equal(t, models.PaymentCreditCard, order.PaymentDetails.Method)
	assert.Equal(t, "4242", order.PaymentDetails.CardLast4)
	require.Len(t, order.Items, 2)
	require.NotNil(t, order.Items[0].Product)
	assert.Equal(t, "6.49", order.Items[0].Product.Price.String())
	assert.Equal(t, "5.99", order.Items[0].Price.String(), "snapshot price is kept")
	assert.Nil(t, order.Items[1].Product, "deleted product has no live data")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderTx_NotPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewOrderRepository(db)
	tx, err := db.Begin()
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = 'PROCESSING'")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	totals := pricing.Compute([]pricing.Line{{Price: decimal.NewFromInt(10), Quantity: 1}})
	err = repo.PlaceOrderTx(context.Background(), tx, 3, totals, models.ShippingAddress{City: "Madrid"}, *models.NewCashOnDeliveryPayment())
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustParticipantsTx_Bounds(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewTourRepository(db)
	tx, err := db.Begin()
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $2 AND current_participants + $1 BETWEEN 0 AND max_participants")).
		WithArgs(4, int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $2 AND current_participants + $1 BETWEEN 0 AND max_participants")).
		WithArgs(50, int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.AdjustParticipantsTx(context.Background(), tx, 1, 4))
	assert.ErrorIs(t, repo.AdjustParticipantsTx(context.Background(), tx, 1, 50), storage.ErrTourFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingTx_DuplicateActiveBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewBookingRepository(db)
	tx, err := db.Begin()
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnError(&pq.Error{Code: "23505"})

	b, err := repo.CreateBookingTx(context.Background(), tx, &models.Booking{
		Code: "c0ffee", TourID: 1, UserID: 2, Status: models.BookingPending, Participants: 2, TotalPrice: decimal.NewFromInt(20),
	})
	assert.ErrorIs(t, err, storage.ErrBookingExists)
	assert.Nil(t, b)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReview_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewReviewRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO reviews")).
		WithArgs(int64(1), int64(2), 5, "Genial").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err = repo.CreateReview(context.Background(), &models.Review{UserID: 1, TourID: 2, Rating: 5, Comment: "Genial"})
	assert.ErrorIs(t, err, storage.ErrReviewExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPostBySlug_Tags(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewBlogRepository(db)
	now := time.Now()
	cols := []string{"id", "title", "slug", "excerpt", "content", "author", "category", "image", "tags",
		"published", "featured", "published_at", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM blog_posts WHERE slug = $1")).WithArgs("huevos").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), "Huevos", "huevos", "", "texto", "Equipo", "nutricion", "", "{huevos,salud}", true, false, now, now, now))

	post, err := repo.GetPostBySlug(context.Background(), "huevos")
	require.NoError(t, err)
	assert.Equal(t, []string{"huevos", "salud"}, post.Tags)
	require.NotNil(t, post.PublishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSuppliers_ActiveOnly(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewSupplierRepository(db)
	now := time.Now()
	cols := []string{"id", "name", "contact_name", "email", "phone", "address", "category", "status", "products",
		"notes", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM suppliers WHERE status = $1 ORDER BY name")).
		WithArgs(models.SupplierActive).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), "Piensos del Valle", "Carlos", "a@b.es", "", "", "alimentacion", "active", "{}", "", now, now))

	suppliers, err := repo.ListSuppliers(context.Background(), storage.SupplierFilter{Status: models.SupplierActive})
	require.NoError(t, err)
	require.Len(t, suppliers, 1)
	assert.Equal(t, []string{}, suppliers[0].Products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutbox_GetUnpublishedAndMark(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOutboxRepository(db)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE published_at IS NULL")).WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "aggregate_type", "aggregate_id", "event_type", "payload", "created_at"}).
			AddRow("e1", "order", "5", models.EventOrderPlaced, []byte(`{"orderId":5}`), now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_events SET published_at = NOW() WHERE id = $1")).
		WithArgs("e1").WillReturnResult(sqlmock.NewResult(0, 1))

	events, err := repo.GetUnpublishedEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.JSONEq(t, `{"orderId":5}`, string(events[0].Payload))
	assert.NoError(t, repo.MarkEventPublished(context.Background(), "e1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSubscription_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewSubscriptionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM subscriptions WHERE id = $1")).
		WithArgs(int64(3)).WillReturnError(errors.New("db error"))

	sub, err := repo.GetSubscription(context.Background(), 3)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, storage.ErrSubscriptionNotFound))
	assert.Nil(t, sub)
	assert.NoError(t, mock.ExpectationsWereMet())
}
