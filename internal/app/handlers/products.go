package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/service"
	"github.com/linemk/farm-shop/internal/storage"
)

// ListProductsHandler каталог: ?category=&featured=&subscription=&search=
func ListProductsHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProducts"
		logger := log.With(slog.String("op", op))

		q := r.URL.Query()
		products, err := catalog.List(r.Context(), storage.ProductFilter{
			Category:     q.Get("category"),
			Search:       q.Get("search"),
			Featured:     queryBool(r, "featured"),
			Subscription: queryBool(r, "subscription"),
		})
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, products)
	}
}

func GetProductHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProduct"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		product, err := catalog.Get(r.Context(), id)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, product)
	}
}

func ProductCategoriesHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProductCategories"
		logger := log.With(slog.String("op", op))

		categories, err := catalog.Categories(r.Context())
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, categories)
	}
}

func CreateProductHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateProduct"
		logger := log.With(slog.String("op", op))

		var p models.Product
		if !decodeRequest(w, r, logger, &p) {
			return
		}
		created, err := catalog.Create(r.Context(), &p)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, created)
	}
}

// UpdateProductHandler id берётся из пути, а без него из тела запроса
func UpdateProductHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProduct"
		logger := log.With(slog.String("op", op))

		var p models.Product
		if !decodeRequest(w, r, logger, &p) {
			return
		}
		if id, ok := optionalID(r); ok {
			p.ID = id
		}
		if p.ID <= 0 {
			badRequest(w, "product id is required")
			return
		}

		updated, err := catalog.Update(r.Context(), &p)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}

// DeleteProductHandler принимает /api/products/{id} и /api/products?id=
func DeleteProductHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteProduct"
		logger := log.With(slog.String("op", op))

		id, ok := optionalID(r)
		if !ok {
			badRequest(w, "product id is required")
			return
		}
		if err := catalog.Delete(r.Context(), id); err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, MessageResponse{Message: "product deleted"})
	}
}

// optionalID id из пути или из ?id=
func optionalID(r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		raw = r.URL.Query().Get("id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
