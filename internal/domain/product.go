package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	PricePerUnit      bool            `json:"price_per_unit"`
	Stock             decimal.Decimal `json:"stock"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	CategoryID        *int64          `json:"category_id"`
	CategoryName      *string         `json:"category_name,omitempty"`
	Formats           []string        `json:"formats"`
	Active            bool            `json:"active"`
	Featured          bool            `json:"featured"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsLowStock reports whether stock is at or under the product's threshold.
func (p Product) IsLowStock() bool {
	return p.Stock.LessThanOrEqual(p.LowStockThreshold)
}

type ProductFilter struct {
	CategoryID *int64
	Featured   *bool
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

type Category struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	DisplayOrder int       `json:"display_order"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CategoryPosition is one entry of a category reorder request.
type CategoryPosition struct {
	ID           int64 `json:"id" validate:"required,gt=0"`
	DisplayOrder int   `json:"display_order" validate:"gte=0"`
}
