package service_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/linemk/farm-shop/internal/cache"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/domain/pricing"
	"github.com/linemk/farm-shop/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ---------- users ----------

type fakeUserRepo struct {
	users map[int64]*models.User
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*models.User)}
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if _, err := f.GetUserByEmail(ctx, user.Email); err == nil {
		return nil, storage.ErrUserExists
	}
	user.ID = int64(len(f.users) + 1)
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) ListUsers(ctx context.Context) ([]*models.User, error) {
	res := make([]*models.User, 0, len(f.users))
	for _, u := range f.users {
		res = append(res, u)
	}
	return res, nil
}

func (f *fakeUserRepo) UpdateUser(ctx context.Context, user *models.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return storage.ErrUserNotFound
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id int64, passHash []byte) error {
	u, ok := f.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.PassHash = passHash
	return nil
}

func (f *fakeUserRepo) DeleteUser(ctx context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return storage.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

// ---------- products ----------

type fakeProductRepo struct {
	products map[int64]*models.Product
	gets     int
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	f := &fakeProductRepo{products: make(map[int64]*models.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProductRepo) ListProducts(ctx context.Context, filter storage.ProductFilter) ([]*models.Product, error) {
	res := make([]*models.Product, 0, len(f.products))
	for _, p := range f.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	f.gets++
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	res := make(map[int64]*models.Product)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			res[id] = p
		}
	}
	return res, nil
}

func (f *fakeProductRepo) Categories(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var res []string
	for _, p := range f.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			res = append(res, p.Category)
		}
	}
	sort.Strings(res)
	return res, nil
}

func (f *fakeProductRepo) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	p.ID = int64(len(f.products) + 1)
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeProductRepo) UpdateProduct(ctx context.Context, p *models.Product) error {
	if _, ok := f.products[p.ID]; !ok {
		return storage.ErrProductNotFound
	}
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

func (f *fakeProductRepo) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return storage.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeProductRepo) GetProductTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) LockProductsTx(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]*models.Product, error) {
	return f.GetProductsByIDs(ctx, ids)
}

func (f *fakeProductRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, id int64, qty int) error {
	p, ok := f.products[id]
	if !ok || p.Stock < qty {
		return storage.ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

func (f *fakeProductRepo) IncrementStockTx(ctx context.Context, tx *sql.Tx, id int64, qty int) error {
	if p, ok := f.products[id]; ok {
		p.Stock += qty
	}
	return nil
}

// ---------- orders ----------

type fakeOrderRepo struct {
	nextID   int64
	orders   map[int64]*models.Order
	items    map[int64][]models.OrderItem
	products *fakeProductRepo
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo(products *fakeProductRepo) *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:   make(map[int64]*models.Order),
		items:    make(map[int64][]models.OrderItem),
		products: products,
	}
}

func (f *fakeOrderRepo) pending(userID int64) *models.Order {
	for _, o := range f.orders {
		if o.UserID == userID && o.Status == models.OrderStatusPending {
			return o
		}
	}
	return nil
}

// addOrder кладёт заказ с позициями напрямую, минуя сервис
func (f *fakeOrderRepo) addOrder(o *models.Order, items ...models.OrderItem) *models.Order {
	f.nextID++
	o.ID = f.nextID
	f.orders[o.ID] = o
	for _, it := range items {
		it.OrderID = o.ID
		f.items[o.ID] = append(f.items[o.ID], it)
	}
	return o
}

func (f *fakeOrderRepo) EnsurePendingOrderTx(ctx context.Context, tx *sql.Tx, userID int64) (*models.Order, error) {
	if o := f.pending(userID); o != nil {
		cp := *o
		return &cp, nil
	}
	o := f.addOrder(&models.Order{UserID: userID, Status: models.OrderStatusPending})
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) LockPendingOrderTx(ctx context.Context, tx *sql.Tx, userID int64) (*models.Order, error) {
	return f.GetPendingOrder(ctx, userID)
}

func (f *fakeOrderRepo) GetPendingOrder(ctx context.Context, userID int64) (*models.Order, error) {
	o := f.pending(userID)
	if o == nil {
		return nil, storage.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	cp := *o
	cp.Items, _ = f.GetOrderItems(ctx, id)
	return &cp, nil
}

func (f *fakeOrderRepo) LockOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) ListOrdersByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	var res []*models.Order
	for _, o := range f.orders {
		if o.UserID == userID && o.Status != models.OrderStatusPending {
			res = append(res, o)
		}
	}
	return res, nil
}

func (f *fakeOrderRepo) ListOrders(ctx context.Context, filter storage.OrderFilter) ([]*models.Order, error) {
	var res []*models.Order
	for _, o := range f.orders {
		if filter.Status == "" && o.Status == models.OrderStatusPending {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		res = append(res, o)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (f *fakeOrderRepo) UpdateTotalsTx(ctx context.Context, tx *sql.Tx, orderID int64, totals pricing.Totals) error {
	o, ok := f.orders[orderID]
	if !ok {
		return storage.ErrOrderNotFound
	}
	o.Subtotal, o.ShippingCost, o.Total = totals.Subtotal, totals.ShippingCost, totals.Total
	return nil
}

func (f *fakeOrderRepo) PlaceOrderTx(ctx context.Context, tx *sql.Tx, orderID int64, totals pricing.Totals, addr models.ShippingAddress, payment models.PaymentDetails) error {
	o, ok := f.orders[orderID]
	if !ok || o.Status != models.OrderStatusPending {
		return storage.ErrOrderNotFound
	}
	o.Status = models.OrderStatusProcessing
	o.Subtotal, o.ShippingCost, o.Total = totals.Subtotal, totals.ShippingCost, totals.Total
	o.ShippingAddress = &addr
	o.PaymentDetails = &payment
	return nil
}

func (f *fakeOrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status models.OrderStatus) error {
	o, ok := f.orders[orderID]
	if !ok {
		return storage.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (f *fakeOrderRepo) DeleteOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) error {
	delete(f.orders, orderID)
	delete(f.items, orderID)
	return nil
}

func (f *fakeOrderRepo) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	res := make([]models.OrderItem, 0, len(f.items[orderID]))
	for _, it := range f.items[orderID] {
		if p, ok := f.products.products[it.ProductID]; ok {
			cp := *p
			it.Product = &cp
		}
		res = append(res, it)
	}
	return res, nil
}

func (f *fakeOrderRepo) GetOrderItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]models.OrderItem, error) {
	return f.GetOrderItems(ctx, orderID)
}

func (f *fakeOrderRepo) UpsertItemTx(ctx context.Context, tx *sql.Tx, orderID int64, item models.OrderItem) error {
	item.OrderID = orderID
	item.Product = nil
	for i, it := range f.items[orderID] {
		if it.ProductID == item.ProductID {
			item.ID = it.ID
			f.items[orderID][i] = item
			return nil
		}
	}
	item.ID = int64(len(f.items[orderID]) + 1)
	f.items[orderID] = append(f.items[orderID], item)
	return nil
}

func (f *fakeOrderRepo) DeleteItemTx(ctx context.Context, tx *sql.Tx, orderID, productID int64) error {
	items := f.items[orderID]
	for i, it := range items {
		if it.ProductID == productID {
			f.items[orderID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return storage.ErrItemNotFound
}

func (f *fakeOrderRepo) DeleteItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) error {
	delete(f.items, orderID)
	return nil
}

// ---------- outbox, cache ----------

type fakeOutbox struct {
	events []*models.OutboxEvent
}

var _ storage.OutboxStorage = (*fakeOutbox)(nil)

func (f *fakeOutbox) CreateEventTx(ctx context.Context, tx *sql.Tx, event *models.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) GetUnpublishedEvents(ctx context.Context, limit int) ([]*models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeOutbox) MarkEventPublished(ctx context.Context, id string) error {
	return nil
}

type fakeCache struct {
	items   map[int64]*models.Product
	deleted []int64
}

var _ cache.ProductCache = (*fakeCache)(nil)

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[int64]*models.Product)}
}

func (f *fakeCache) Get(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return p, nil
}

func (f *fakeCache) Set(ctx context.Context, p *models.Product) error {
	f.items[p.ID] = p
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		delete(f.items, id)
	}
	f.deleted = append(f.deleted, ids...)
	return nil
}

// ---------- subscriptions ----------

type fakeSubscriptionRepo struct {
	subs map[int64]*models.Subscription
}

var _ storage.SubscriptionStorage = (*fakeSubscriptionRepo)(nil)

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[int64]*models.Subscription)}
}

func (f *fakeSubscriptionRepo) ListSubscriptions(ctx context.Context, filter storage.SubscriptionFilter) ([]*models.Subscription, error) {
	var res []*models.Subscription
	for _, s := range f.subs {
		if filter.UserID != 0 && s.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		res = append(res, s)
	}
	return res, nil
}

func (f *fakeSubscriptionRepo) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	s, ok := f.subs[id]
	if !ok {
		return nil, storage.ErrSubscriptionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubscriptionRepo) CreateSubscription(ctx context.Context, s *models.Subscription) (*models.Subscription, error) {
	s.ID = int64(len(f.subs) + 1)
	f.subs[s.ID] = s
	return s, nil
}

func (f *fakeSubscriptionRepo) UpdateSubscription(ctx context.Context, s *models.Subscription) error {
	if _, ok := f.subs[s.ID]; !ok {
		return storage.ErrSubscriptionNotFound
	}
	cp := *s
	f.subs[s.ID] = &cp
	return nil
}

func (f *fakeSubscriptionRepo) DeleteSubscription(ctx context.Context, id int64) error {
	if _, ok := f.subs[id]; !ok {
		return storage.ErrSubscriptionNotFound
	}
	delete(f.subs, id)
	return nil
}

// ---------- tours, bookings, reviews ----------

type fakeTourRepo struct {
	tours map[int64]*models.Tour
}

var _ storage.TourStorage = (*fakeTourRepo)(nil)

func newFakeTourRepo(tours ...*models.Tour) *fakeTourRepo {
	f := &fakeTourRepo{tours: make(map[int64]*models.Tour)}
	for _, t := range tours {
		f.tours[t.ID] = t
	}
	return f
}

func (f *fakeTourRepo) ListTours(ctx context.Context, filter storage.TourFilter) ([]*models.Tour, error) {
	var res []*models.Tour
	for _, t := range f.tours {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (f *fakeTourRepo) GetTour(ctx context.Context, id int64) (*models.Tour, error) {
	t, ok := f.tours[id]
	if !ok {
		return nil, storage.ErrTourNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTourRepo) LockTourTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Tour, error) {
	return f.GetTour(ctx, id)
}

func (f *fakeTourRepo) CreateTour(ctx context.Context, t *models.Tour) (*models.Tour, error) {
	t.ID = int64(len(f.tours) + 1)
	f.tours[t.ID] = t
	return t, nil
}

func (f *fakeTourRepo) UpdateTour(ctx context.Context, t *models.Tour) error {
	cur, ok := f.tours[t.ID]
	if !ok || cur.CurrentParticipants > t.MaxParticipants {
		return storage.ErrTourNotFound
	}
	cp := *t
	cp.CurrentParticipants = cur.CurrentParticipants
	f.tours[t.ID] = &cp
	return nil
}

func (f *fakeTourRepo) DeleteTour(ctx context.Context, id int64) error {
	if _, ok := f.tours[id]; !ok {
		return storage.ErrTourNotFound
	}
	delete(f.tours, id)
	return nil
}

func (f *fakeTourRepo) AdjustParticipantsTx(ctx context.Context, tx *sql.Tx, id int64, delta int) error {
	t, ok := f.tours[id]
	if !ok {
		return storage.ErrTourFull
	}
	next := t.CurrentParticipants + delta
	if next < 0 || next > t.MaxParticipants {
		return storage.ErrTourFull
	}
	t.CurrentParticipants = next
	return nil
}

type fakeBookingRepo struct {
	bookings map[int64]*models.Booking
}

var _ storage.BookingStorage = (*fakeBookingRepo)(nil)

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[int64]*models.Booking)}
}

func (f *fakeBookingRepo) CreateBookingTx(ctx context.Context, tx *sql.Tx, b *models.Booking) (*models.Booking, error) {
	b.ID = int64(len(f.bookings) + 1)
	b.CreatedAt = time.Now()
	f.bookings[b.ID] = b
	cp := *b
	return &cp, nil
}

func (f *fakeBookingRepo) FindActiveBookingTx(ctx context.Context, tx *sql.Tx, tourID, userID int64) (*models.Booking, error) {
	for _, b := range f.bookings {
		if b.TourID == tourID && b.UserID == userID && b.Status != models.BookingCancelled {
			return b, nil
		}
	}
	return nil, storage.ErrBookingNotFound
}

func (f *fakeBookingRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, storage.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookingRepo) LockBookingTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Booking, error) {
	return f.GetBooking(ctx, id)
}

func (f *fakeBookingRepo) ListBookingsByUser(ctx context.Context, userID int64, status models.BookingStatus) ([]*models.Booking, error) {
	var res []*models.Booking
	for _, b := range f.bookings {
		if b.UserID == userID && (status == "" || b.Status == status) {
			res = append(res, b)
		}
	}
	return res, nil
}

func (f *fakeBookingRepo) UpdateBookingStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.BookingStatus) error {
	b, ok := f.bookings[id]
	if !ok {
		return storage.ErrBookingNotFound
	}
	b.Status = status
	return nil
}

type fakeReviewRepo struct {
	reviews []models.Review
}

var _ storage.ReviewStorage = (*fakeReviewRepo)(nil)

func (f *fakeReviewRepo) ListReviews(ctx context.Context, tourID int64) ([]models.Review, error) {
	var res []models.Review
	for _, r := range f.reviews {
		if r.TourID == tourID {
			res = append(res, r)
		}
	}
	return res, nil
}

func (f *fakeReviewRepo) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	for _, r := range f.reviews {
		if r.TourID == review.TourID && r.UserID == review.UserID {
			return nil, storage.ErrReviewExists
		}
	}
	review.ID = int64(len(f.reviews) + 1)
	f.reviews = append(f.reviews, *review)
	return review, nil
}

// ---------- blog, suppliers ----------

type fakeBlogRepo struct {
	posts map[int64]*models.BlogPost
}

var _ storage.BlogStorage = (*fakeBlogRepo)(nil)

func newFakeBlogRepo() *fakeBlogRepo {
	return &fakeBlogRepo{posts: make(map[int64]*models.BlogPost)}
}

func (f *fakeBlogRepo) ListPosts(ctx context.Context, filter storage.BlogFilter) ([]*models.BlogPost, error) {
	var res []*models.BlogPost
	for _, p := range f.posts {
		if filter.PublishedOnly && !p.Published {
			continue
		}
		res = append(res, p)
	}
	return res, nil
}

func (f *fakeBlogRepo) GetPostByID(ctx context.Context, id int64) (*models.BlogPost, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, storage.ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeBlogRepo) GetPostBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	for _, p := range f.posts {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, storage.ErrPostNotFound
}

func (f *fakeBlogRepo) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	for _, p := range f.posts {
		if p.Slug == slug && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBlogRepo) PostCategories(ctx context.Context) ([]string, error) {
	var res []string
	for _, p := range f.posts {
		res = append(res, p.Category)
	}
	return res, nil
}

func (f *fakeBlogRepo) CreatePost(ctx context.Context, post *models.BlogPost) (*models.BlogPost, error) {
	post.ID = int64(len(f.posts) + 1)
	f.posts[post.ID] = post
	return post, nil
}

func (f *fakeBlogRepo) UpdatePost(ctx context.Context, post *models.BlogPost) error {
	if _, ok := f.posts[post.ID]; !ok {
		return storage.ErrPostNotFound
	}
	cp := *post
	f.posts[post.ID] = &cp
	return nil
}

func (f *fakeBlogRepo) DeletePost(ctx context.Context, id int64) error {
	if _, ok := f.posts[id]; !ok {
		return storage.ErrPostNotFound
	}
	delete(f.posts, id)
	return nil
}

type fakeSupplierRepo struct {
	suppliers map[int64]*models.Supplier
}

var _ storage.SupplierStorage = (*fakeSupplierRepo)(nil)

func (f *fakeSupplierRepo) ListSuppliers(ctx context.Context, filter storage.SupplierFilter) ([]*models.Supplier, error) {
	var res []*models.Supplier
	for _, s := range f.suppliers {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(s.Category, filter.Category) {
			continue
		}
		res = append(res, s)
	}
	return res, nil
}

func (f *fakeSupplierRepo) GetSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok {
		return nil, storage.ErrSupplierNotFound
	}
	return s, nil
}

func (f *fakeSupplierRepo) CreateSupplier(ctx context.Context, s *models.Supplier) (*models.Supplier, error) {
	s.ID = int64(len(f.suppliers) + 1)
	f.suppliers[s.ID] = s
	return s, nil
}

func (f *fakeSupplierRepo) UpdateSupplier(ctx context.Context, s *models.Supplier) error {
	if _, ok := f.suppliers[s.ID]; !ok {
		return storage.ErrSupplierNotFound
	}
	f.suppliers[s.ID] = s
	return nil
}

func (f *fakeSupplierRepo) DeleteSupplier(ctx context.Context, id int64) error {
	if _, ok := f.suppliers[id]; !ok {
		return storage.ErrSupplierNotFound
	}
	delete(f.suppliers, id)
	return nil
}
