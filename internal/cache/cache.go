package cache

import (
	"context"
	"errors"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

type ProductCache interface {
	Get(ctx context.Context, productID int64) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, productIDs ...int64) error
}

var ErrCacheMiss = errors.New("cache miss")
