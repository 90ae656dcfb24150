package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/linemk/farm-shop/internal/cache"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/storage"
	"golang.org/x/sync/singleflight"
)

type CatalogService interface {
	List(ctx context.Context, filter storage.ProductFilter) ([]*models.Product, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	Update(ctx context.Context, p *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
}

type catalogService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
	cache       cache.ProductCache
	// sfg схлопывает одновременные промахи кэша по одному товару
	sfg singleflight.Group
}

func NewCatalogService(log *slog.Logger, productRepo storage.ProductStorage, productCache cache.ProductCache) CatalogService {
	return &catalogService{
		log:         log,
		productRepo: productRepo,
		cache:       productCache,
	}
}

func (s *catalogService) List(ctx context.Context, filter storage.ProductFilter) ([]*models.Product, error) {
	const op = "service.CatalogService.List"
	products, err := s.productRepo.ListProducts(ctx, filter)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

// Get читает товар через кэш, при промахе идёт в базу и кладёт результат в кэш
func (s *catalogService) Get(ctx context.Context, id int64) (*models.Product, error) {
	const op = "service.CatalogService.Get"
	logger := s.log.With(slog.String("op", op), slog.Int64("productID", id))

	v, err, _ := s.sfg.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		p, err := s.cache.Get(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("cache get error", slog.Any("error", err))
		}

		p, err = s.productRepo.GetProductByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, p); err != nil {
			logger.Warn("cache set error", slog.Any("error", err))
		}
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v.(*models.Product), nil
}

func (s *catalogService) Categories(ctx context.Context) ([]string, error) {
	const op = "service.CatalogService.Categories"
	categories, err := s.productRepo.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return categories, nil
}

func validateProduct(p *models.Product) error {
	if p.Name == "" || p.Price.IsNegative() || p.Stock < 0 || p.MinStock < 0 {
		return ErrInvalidInput
	}
	if p.IsSubscription && p.SubscriptionFrequency != "" && !models.Frequency(p.SubscriptionFrequency).Valid() {
		return ErrInvalidInput
	}
	return nil
}

func (s *catalogService) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	const op = "service.CatalogService.Create"
	logger := s.log.With(slog.String("op", op), slog.String("name", p.Name))

	if err := validateProduct(p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	created, err := s.productRepo.CreateProduct(ctx, p)
	if err != nil {
		logger.Error("failed to create product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("product created", slog.Int64("productID", created.ID))
	return created, nil
}

func (s *catalogService) Update(ctx context.Context, p *models.Product) (*models.Product, error) {
	const op = "service.CatalogService.Update"
	logger := s.log.With(slog.String("op", op), slog.Int64("productID", p.ID))

	if err := validateProduct(p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.productRepo.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, logger, p.ID)

	updated, err := s.productRepo.GetProductByID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("product updated")
	return updated, nil
}

func (s *catalogService) Delete(ctx context.Context, id int64) error {
	const op = "service.CatalogService.Delete"
	logger := s.log.With(slog.String("op", op), slog.Int64("productID", id))

	if err := s.productRepo.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, logger, id)
	logger.Info("product deleted")
	return nil
}

func (s *catalogService) invalidate(ctx context.Context, logger *slog.Logger, ids ...int64) {
	if err := s.cache.Delete(ctx, ids...); err != nil {
		logger.Warn("failed to invalidate product cache", slog.Any("error", err))
	}
}
