package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/cache"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/logger"
	"github.com/japintos/KairosMarket-sub001/internal/repository"
)

type ProductInput struct {
	Name              string          `json:"name" validate:"required,max=200"`
	Description       string          `json:"description" validate:"max=5000"`
	Price             decimal.Decimal `json:"price" validate:"gt=0"`
	PricePerUnit      *bool           `json:"price_per_unit"`
	Stock             decimal.Decimal `json:"stock" validate:"gte=0"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold" validate:"gte=0"`
	CategoryID        *int64          `json:"category_id" validate:"omitempty,gt=0"`
	Formats           []string        `json:"formats" validate:"max=20,dive,required,max=50"`
	Active            *bool           `json:"active"`
	Featured          bool            `json:"featured"`
}

func (in ProductInput) toProduct() *domain.Product {
	p := &domain.Product{
		Name:              in.Name,
		Description:       in.Description,
		Price:             in.Price,
		PricePerUnit:      true,
		Stock:             in.Stock,
		LowStockThreshold: in.LowStockThreshold,
		CategoryID:        in.CategoryID,
		Formats:           in.Formats,
		Active:            true,
		Featured:          in.Featured,
	}
	if in.PricePerUnit != nil {
		p.PricePerUnit = *in.PricePerUnit
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	return p
}

type CategoryInput struct {
	Name         string `json:"name" validate:"required,max=100"`
	Description  string `json:"description" validate:"max=2000"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
	Active       *bool  `json:"active"`
}

type CatalogService struct {
	store Store
	cache cache.ProductCache
	sfg   singleflight.Group // collapses concurrent cache misses per product
}

func NewCatalogService(store Store, productCache cache.ProductCache) *CatalogService {
	return &CatalogService{
		store: store,
		cache: productCache,
	}
}

func (s *CatalogService) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	var products []domain.Product
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		products, err = q.ListProducts(ctx, f)
		return err
	})
	return products, err
}

// GetProduct reads through the product cache.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	v, err, _ := s.sfg.Do(strconv.FormatInt(id, 10), func() (any, error) {
		product, err := s.cache.Get(ctx, id)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Errorf(ctx, "cache get error: %v", err)
		}

		errGet := s.store.Do(ctx, func(q *repository.Queries) error {
			var err error
			product, err = q.GetProduct(ctx, id)
			return err
		})
		if errGet != nil {
			return nil, errGet
		}

		// Set before returning: an invalidation issued after a caller saw this
		// value always removes it.
		setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if errSet := s.cache.Set(setCtx, product); errSet != nil {
			logger.Errorf(ctx, "cache set error: %v", errSet)
		}

		return product, nil
	})
	if err != nil {
		return nil, err
	}

	// Callers may mutate the result; hand each one its own copy.
	p := *v.(*domain.Product)
	return &p, nil
}

func (in ProductInput) validate() error {
	if err := validateInput(in); err != nil {
		return err
	}
	var fields []apperr.FieldError
	fields = checkScale(fields, "price", in.Price, moneyPlaces)
	fields = checkScale(fields, "stock", in.Stock, quantityPlaces)
	fields = checkScale(fields, "low_stock_threshold", in.LowStockThreshold, quantityPlaces)
	if len(fields) > 0 {
		return apperr.Validation("validation failed", fields...)
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := in.toProduct()
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		if err := q.CreateProduct(ctx, p); err != nil {
			return err
		}
		created, err := q.GetProduct(ctx, p.ID)
		if err != nil {
			return err
		}
		p = created
		return nil
	})
	if err != nil {
		return nil, referenceError(err, "category_id", "category does not exist")
	}
	return p, nil
}

// UpdateProduct replaces the editable fields. Stock is left untouched; it
// changes through SetStock, AdjustStock and orders.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := in.toProduct()
	p.ID = id
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		if err := q.UpdateProduct(ctx, p); err != nil {
			return err
		}
		updated, err := q.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		p = updated
		return nil
	})
	if err != nil {
		return nil, referenceError(err, "category_id", "category does not exist")
	}

	s.InvalidateProducts(ctx, id)
	return p, nil
}

// DeleteProduct is a soft delete; the row stays for order history.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		return q.DeactivateProduct(ctx, id)
	})
	if err != nil {
		return err
	}
	s.InvalidateProducts(ctx, id)
	return nil
}

func (s *CatalogService) SetStock(ctx context.Context, id int64, stock decimal.Decimal) (*domain.Product, error) {
	if stock.IsNegative() {
		return nil, apperr.Validation("validation failed", apperr.FieldError{Field: "stock", Message: "must be greater than or equal to 0"})
	}
	if fields := checkScale(nil, "stock", stock, quantityPlaces); len(fields) > 0 {
		return nil, apperr.Validation("validation failed", fields...)
	}
	return s.changeStock(ctx, id, func(q *repository.Queries) error {
		return q.SetStock(ctx, id, stock)
	})
}

func (s *CatalogService) AdjustStock(ctx context.Context, id int64, delta decimal.Decimal) (*domain.Product, error) {
	if delta.IsZero() {
		return nil, apperr.Validation("validation failed", apperr.FieldError{Field: "delta", Message: "must not be zero"})
	}
	if fields := checkScale(nil, "delta", delta, quantityPlaces); len(fields) > 0 {
		return nil, apperr.Validation("validation failed", fields...)
	}
	return s.changeStock(ctx, id, func(q *repository.Queries) error {
		return q.AdjustStock(ctx, id, delta)
	})
}

func (s *CatalogService) changeStock(ctx context.Context, id int64, change func(q *repository.Queries) error) (*domain.Product, error) {
	var p *domain.Product
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		if err := change(q); err != nil {
			return err
		}
		var err error
		p, err = q.GetProduct(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.InvalidateProducts(ctx, id)
	return p, nil
}

func (s *CatalogService) LowStock(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		products, err = q.ListLowStockProducts(ctx)
		return err
	})
	return products, err
}

// InvalidateProducts drops cached copies. Failures are logged; entries expire
// on their own.
func (s *CatalogService) InvalidateProducts(ctx context.Context, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, ids...); err != nil {
		logger.Errorf(ctx, "cache invalidate error: %v", err)
	}
}

func (s *CatalogService) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	var categories []domain.Category
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		categories, err = q.ListCategories(ctx, activeOnly)
		return err
	})
	return categories, err
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	c := &domain.Category{Name: in.Name, Description: in.Description, DisplayOrder: in.DisplayOrder, Active: true}
	if in.Active != nil {
		c.Active = *in.Active
	}

	err := s.store.Do(ctx, func(q *repository.Queries) error {
		return q.CreateCategory(ctx, c)
	})
	if errors.Is(err, domain.ErrDuplicate) {
		return nil, apperr.Conflict("a category with that name already exists")
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*domain.Category, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	c := &domain.Category{ID: id, Name: in.Name, Description: in.Description, DisplayOrder: in.DisplayOrder, Active: true}
	if in.Active != nil {
		c.Active = *in.Active
	}

	err := s.store.Do(ctx, func(q *repository.Queries) error {
		if err := q.UpdateCategory(ctx, c); err != nil {
			return err
		}
		updated, err := q.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		c = updated
		return nil
	})
	if errors.Is(err, domain.ErrDuplicate) {
		return nil, apperr.Conflict("a category with that name already exists")
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory removes the category. Its products stay, without category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return s.store.Do(ctx, func(q *repository.Queries) error {
		return q.DeleteCategory(ctx, id)
	})
}

// ReorderCategories applies every position or none of them.
func (s *CatalogService) ReorderCategories(ctx context.Context, positions []domain.CategoryPosition) error {
	if len(positions) == 0 {
		return apperr.Validation("validation failed", apperr.FieldError{Field: "positions", Message: "must contain at least 1 item(s)"})
	}
	seen := make(map[int64]bool, len(positions))
	for i, pos := range positions {
		if err := validateInput(pos); err != nil {
			return err
		}
		if seen[pos.ID] {
			return apperr.Validation("validation failed", apperr.FieldError{
				Field:   fmt.Sprintf("positions[%d].id", i),
				Message: "is repeated",
			})
		}
		seen[pos.ID] = true
	}

	return s.store.InTx(ctx, func(q *repository.Queries) error {
		for _, pos := range positions {
			if err := q.SetCategoryOrder(ctx, pos.ID, pos.DisplayOrder); err != nil {
				return fmt.Errorf("category %d: %w", pos.ID, err)
			}
		}
		return nil
	})
}
