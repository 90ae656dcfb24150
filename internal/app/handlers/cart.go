package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/linemk/farm-shop/internal/domain/guestcart"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/service"
)

// ConfirmationURL страница витрины, куда клиент уходит после оформления
const ConfirmationURL = "/confirmacion-pedido"

// CartItemRequest добавление или изменение позиции
type CartItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  *int  `json:"quantity" validate:"required"`
}

// SyncCartRequest содержимое корзины целиком, как его хранит витрина
type SyncCartRequest struct {
	Items guestcart.Cart `json:"items"`
}

// CartResponse - Cart равен nil, если корзина удалена вместе с последней позицией
type CartResponse struct {
	Cart *service.CartView `json:"cart"`
}

// CheckoutRequest адрес и способ оплаты. Данные карты принимаются только
// для метода credit_card и дальше обработчика не уходят целиком.
type CheckoutRequest struct {
	ShippingAddress *models.ShippingAddress `json:"shippingAddress" validate:"required"`
	PaymentMethod   string                  `json:"paymentMethod" validate:"required"`
	CardHolder      string                  `json:"cardHolder"`
	CardNumber      string                  `json:"cardNumber"`
}

type CheckoutResponse struct {
	Order       *models.Order `json:"order"`
	RedirectURL string        `json:"redirectUrl"`
}

// CartHandlers корзина пользователя и гостя
type CartHandlers struct {
	Log      *slog.Logger
	Cart     service.CartService
	Checkout service.CheckoutService
	Cookie   CartCookie
}

// Get возвращает сохранённую корзину пользователя или гостевую из cookie
func (h CartHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCart"
		logger := h.Log.With(slog.String("op", op))

		var (
			view *service.CartView
			err  error
		)
		if userID, _, ok := currentUser(r); ok {
			view, err = h.Cart.GetCart(r.Context(), userID)
		} else {
			view, err = h.Cart.GetGuestCart(r.Context(), h.Cookie.Read(r, logger))
		}
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, view)
	}
}

// Sync заменяет корзину присланным набором. Для гостя результат пишется в cookie.
func (h CartHandlers) Sync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SyncCart"
		logger := h.Log.With(slog.String("op", op))

		var req SyncCartRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		if userID, _, ok := currentUser(r); ok {
			view, err := h.Cart.ReplaceItems(r.Context(), userID, req.Items)
			if err != nil {
				respondError(w, logger, err)
				return
			}
			respondJSON(w, http.StatusOK, view)
			return
		}

		guest := req.Items.Normalize()
		view, err := h.Cart.GetGuestCart(r.Context(), guest)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		if err := h.Cookie.Write(w, guest); err != nil {
			logger.Error("failed to write cart cookie", slog.Any("error", err))
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, view)
	}
}

func (h CartHandlers) Clear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ClearCart"
		logger := h.Log.With(slog.String("op", op))

		userID, _, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		if err := h.Cart.Clear(r.Context(), userID); err != nil {
			respondError(w, logger, err)
			return
		}
		h.Cookie.Clear(w)
		respondJSON(w, http.StatusOK, CartResponse{})
	}
}

// Merge переносит гостевую корзину из cookie в сохранённую
func (h CartHandlers) Merge() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MergeCart"
		logger := h.Log.With(slog.String("op", op))

		userID, _, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		view, err := h.Cart.MergeGuestCart(r.Context(), userID, h.Cookie.Read(r, logger))
		if err != nil {
			respondError(w, logger, err)
			return
		}
		h.Cookie.Clear(w)
		respondJSON(w, http.StatusOK, view)
	}
}

func (h CartHandlers) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddCartItem"
		logger := h.Log.With(slog.String("op", op))

		userID, _, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		var req CartItemRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		view, err := h.Cart.AddItem(r.Context(), userID, req.ProductID, *req.Quantity)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, CartResponse{Cart: view})
	}
}

func (h CartHandlers) UpdateItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateCartItem"
		logger := h.Log.With(slog.String("op", op))

		userID, _, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		var req CartItemRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		view, err := h.Cart.UpdateItem(r.Context(), userID, req.ProductID, *req.Quantity)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, CartResponse{Cart: cartOrNil(view)})
	}
}

// RemoveItem удаляет позицию. Если позиция была последней, в ответе cart: null.
func (h CartHandlers) RemoveItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveCartItem"
		logger := h.Log.With(slog.String("op", op))

		userID, _, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		productID, err := strconv.ParseInt(r.URL.Query().Get("productId"), 10, 64)
		if err != nil || productID <= 0 {
			badRequest(w, "productId is required")
			return
		}

		view, err := h.Cart.RemoveItem(r.Context(), userID, productID)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, CartResponse{Cart: cartOrNil(view)})
	}
}

func cartOrNil(view *service.CartView) *service.CartView {
	if view == nil || view.ID == nil {
		return nil
	}
	return view
}

// PlaceOrder оформляет заказ из корзины пользователя
func (h CartHandlers) PlaceOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.Checkout"
		logger := h.Log.With(slog.String("op", op))

		userID, _, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		var req CheckoutRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		payment, err := paymentFromRequest(req)
		if err != nil {
			respondError(w, logger, err)
			return
		}

		order, err := h.Checkout.Checkout(r.Context(), userID, service.CheckoutRequest{
			ShippingAddress: *req.ShippingAddress,
			Payment:         *payment,
		})
		if err != nil {
			// корзины нет - для клиента это та же пустая корзина
			if errors.Is(err, service.ErrCartNotFound) {
				err = service.ErrCartEmpty
			}
			respondError(w, logger, err)
			return
		}

		logger.Info("order placed", slog.Int64("orderID", order.ID), slog.Int64("userID", userID))
		respondJSON(w, http.StatusCreated, CheckoutResponse{Order: order, RedirectURL: ConfirmationURL})
	}
}

func paymentFromRequest(req CheckoutRequest) (*models.PaymentDetails, error) {
	method, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if method == models.PaymentCashOnDelivery {
		return models.NewCashOnDeliveryPayment(), nil
	}
	holder := req.CardHolder
	if holder == "" {
		holder = req.ShippingAddress.FullName
	}
	return models.NewCardPayment(holder, req.CardNumber)
}
