package cache

import (
	"context"
	"errors"

	"github.com/linemk/farm-shop/internal/domain/models"
)

// ProductCache кэш карточек товаров
type ProductCache interface {
	Get(ctx context.Context, id int64) (*models.Product, error)
	Set(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, ids ...int64) error
}

var ErrCacheMiss = errors.New("cache miss")

// NoopCache используется, когда Redis выключен в конфиге
type NoopCache struct{}

func (NoopCache) Get(context.Context, int64) (*models.Product, error) { return nil, ErrCacheMiss }
func (NoopCache) Set(context.Context, *models.Product) error { return nil }
func (NoopCache) Delete(context.Context, ...int64) error { return nil }
