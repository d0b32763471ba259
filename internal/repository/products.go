package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

const productColumns = `p.id, p.name, p.description, p.price, p.price_per_unit, p.stock,
	p.low_stock_threshold, p.category_id, c.name, p.formats, p.active, p.featured,
	p.created_at, p.updated_at`

const productFrom = ` FROM products p LEFT JOIN categories c ON c.id = p.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.PricePerUnit,
		&p.Stock,
		&p.LowStockThreshold,
		&p.CategoryID,
		&p.CategoryName,
		pq.Array(&p.Formats),
		&p.Active,
		&p.Featured,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Formats == nil {
		p.Formats = []string{}
	}
	return &p, nil
}

func (q *Queries) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ActiveOnly {
		where = append(where, "p.active = TRUE")
	}
	if f.CategoryID != nil {
		where = append(where, "p.category_id = "+arg(*f.CategoryID))
	}
	if f.Featured != nil {
		where = append(where, "p.featured = "+arg(*f.Featured))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "p.name ILIKE "+arg("%"+s+"%"))
	}

	query := `SELECT ` + productColumns + productFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY p.featured DESC, p.name ASC`
	query += ` LIMIT ` + arg(limitOrDefault(f.Limit)) + ` OFFSET ` + arg(f.Offset)

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("query products", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (q *Queries) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, rowError("product", "query product by id", err)
	}
	return p, nil
}

// ListLowStockProducts returns active products whose stock is at or below
// their threshold, lowest stock first.
func (q *Queries) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT `+productColumns+productFrom+`
		WHERE p.active = TRUE AND p.stock <= p.low_stock_threshold
		ORDER BY p.stock ASC, p.id ASC`)
	if err != nil {
		return nil, wrap("query low stock products", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (q *Queries) CreateProduct(ctx context.Context, p *domain.Product) error {
	if p.Formats == nil {
		p.Formats = []string{}
	}
	query := `INSERT INTO products (name, description, price, price_per_unit, stock, low_stock_threshold,
	                                category_id, formats, active, featured)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id, created_at, updated_at`

	err := q.q.QueryRowContext(ctx, query,
		p.Name,
		p.Description,
		p.Price,
		p.PricePerUnit,
		p.Stock,
		p.LowStockThreshold,
		p.CategoryID,
		pq.Array(p.Formats),
		p.Active,
		p.Featured,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return wrap("insert product", err)
	}
	return nil
}

// UpdateProduct overwrites the editable fields. Stock has its own statements.
func (q *Queries) UpdateProduct(ctx context.Context, p *domain.Product) error {
	if p.Formats == nil {
		p.Formats = []string{}
	}
	query := `UPDATE products
	          SET name = $2, description = $3, price = $4, price_per_unit = $5, low_stock_threshold = $6,
	              category_id = $7, formats = $8, active = $9, featured = $10, updated_at = NOW()
	          WHERE id = $1`

	res, err := q.q.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.PricePerUnit,
		p.LowStockThreshold,
		p.CategoryID,
		pq.Array(p.Formats),
		p.Active,
		p.Featured,
	)
	if err != nil {
		return wrap("update product", err)
	}
	return expectOne("product", res)
}

func (q *Queries) DeactivateProduct(ctx context.Context, id int64) error {
	res, err := q.q.ExecContext(ctx, `UPDATE products SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return wrap("deactivate product", err)
	}
	return expectOne("product", res)
}

func (q *Queries) SetStock(ctx context.Context, id int64, stock decimal.Decimal) error {
	res, err := q.q.ExecContext(ctx, `UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`, id, stock)
	if err != nil {
		return wrap("set stock", err)
	}
	return expectOne("product", res)
}

// AdjustStock adds delta (which may be negative) to the product's stock,
// refusing to take it below zero.
func (q *Queries) AdjustStock(ctx context.Context, id int64, delta decimal.Decimal) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1 AND stock + $2 >= 0`,
		id, delta)
	if err != nil {
		return wrap("adjust stock", err)
	}
	return q.stockResult(ctx, id, res, false)
}

// DecrementStock takes quantity from an active product only when enough stock
// is on hand.
func (q *Queries) DecrementStock(ctx context.Context, id int64, quantity decimal.Decimal) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = NOW()
		 WHERE id = $1 AND active = TRUE AND stock >= $2`,
		id, quantity)
	if err != nil {
		return wrap("decrement stock", err)
	}
	return q.stockResult(ctx, id, res, true)
}

// RestoreStock returns quantity to a product regardless of its active flag.
func (q *Queries) RestoreStock(ctx context.Context, id int64, quantity decimal.Decimal) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, id, quantity)
	if err != nil {
		return wrap("restore stock", err)
	}
	return expectOne("product", res)
}

// stockResult tells "no such product" apart from "not enough stock" after a
// conditional update matched no rows.
func (q *Queries) stockResult(ctx context.Context, id int64, res interface{ RowsAffected() (int64, error) }, requireActive bool) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var active bool
	err = q.q.QueryRowContext(ctx, `SELECT active FROM products WHERE id = $1`, id).Scan(&active)
	if err != nil {
		return rowError("product", "query product state", err)
	}
	if requireActive && !active {
		return apperr.NotFoundEntity("product")
	}
	return fmt.Errorf("product %d: %w", id, domain.ErrInsufficientStock)
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}
