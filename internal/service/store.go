package service

import (
	"context"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/repository"
)

// Store runs units of work against the relational database.
type Store interface {
	Do(ctx context.Context, fn func(q *repository.Queries) error) error
	InTx(ctx context.Context, fn func(q *repository.Queries) error) error
}

type FavoritesStore interface {
	Get(ctx context.Context, customerID int64) (*domain.Favorites, error)
	Add(ctx context.Context, customerID, productID int64) error
	Remove(ctx context.Context, customerID, productID int64) error
}
