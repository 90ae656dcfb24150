package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/service"
	"github.com/linemk/farm-shop/internal/storage"
)

// seesDrafts - черновики блога видит только персонал
func seesDrafts(r *http.Request) bool {
	_, role, ok := currentUser(r)
	return ok && role.IsStaff()
}

// ListPostsHandler статьи блога: ?category=&featured=
func ListPostsHandler(log *slog.Logger, blog service.BlogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListPosts"
		logger := log.With(slog.String("op", op))

		posts, err := blog.List(r.Context(), storage.BlogFilter{
			Category:      r.URL.Query().Get("category"),
			Featured:      queryBool(r, "featured"),
			PublishedOnly: !seesDrafts(r),
		})
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, posts)
	}
}

// GetPostHandler статья по id или slug
func GetPostHandler(log *slog.Logger, blog service.BlogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetPost"
		logger := log.With(slog.String("op", op))

		post, err := blog.Get(r.Context(), chi.URLParam(r, "id"), !seesDrafts(r))
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, post)
	}
}

func PostCategoriesHandler(log *slog.Logger, blog service.BlogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PostCategories"
		logger := log.With(slog.String("op", op))

		categories, err := blog.Categories(r.Context())
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, categories)
	}
}

func CreatePostHandler(log *slog.Logger, blog service.BlogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreatePost"
		logger := log.With(slog.String("op", op))

		var post models.BlogPost
		if !decodeRequest(w, r, logger, &post) {
			return
		}
		created, err := blog.Create(r.Context(), &post)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, created)
	}
}

func UpdatePostHandler(log *slog.Logger, blog service.BlogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdatePost"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		var post models.BlogPost
		if !decodeRequest(w, r, logger, &post) {
			return
		}
		post.ID = id

		updated, err := blog.Update(r.Context(), &post)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}

func DeletePostHandler(log *slog.Logger, blog service.BlogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeletePost"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		if err := blog.Delete(r.Context(), id); err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, MessageResponse{Message: "post deleted"})
	}
}

// ListSuppliersHandler поставщики: ?status=&category=
func ListSuppliersHandler(log *slog.Logger, suppliers service.SupplierService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListSuppliers"
		logger := log.With(slog.String("op", op))

		list, err := suppliers.List(r.Context(), storage.SupplierFilter{
			Status:   models.SupplierStatus(r.URL.Query().Get("status")),
			Category: r.URL.Query().Get("category"),
		})
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

func GetSupplierHandler(log *slog.Logger, suppliers service.SupplierService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetSupplier"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		sup, err := suppliers.Get(r.Context(), id)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, sup)
	}
}

func CreateSupplierHandler(log *slog.Logger, suppliers service.SupplierService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateSupplier"
		logger := log.With(slog.String("op", op))

		var sup models.Supplier
		if !decodeRequest(w, r, logger, &sup) {
			return
		}
		created, err := suppliers.Create(r.Context(), &sup)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, created)
	}
}

func UpdateSupplierHandler(log *slog.Logger, suppliers service.SupplierService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateSupplier"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		var sup models.Supplier
		if !decodeRequest(w, r, logger, &sup) {
			return
		}
		sup.ID = id

		updated, err := suppliers.Update(r.Context(), &sup)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}

func DeleteSupplierHandler(log *slog.Logger, suppliers service.SupplierService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteSupplier"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		if err := suppliers.Delete(r.Context(), id); err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, MessageResponse{Message: "supplier deleted"})
	}
}
