package repository

import (
	"context"
	"fmt"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

func (q *Queries) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	query := `SELECT id, name, description, display_order, active, created_at FROM categories`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY display_order ASC, name ASC`

	rows, err := q.q.QueryContext(ctx, query)
	if err != nil {
		return nil, wrap("query categories", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.DisplayOrder, &c.Active, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return categories, nil
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := q.q.QueryRowContext(ctx,
		`SELECT id, name, description, display_order, active, created_at FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.DisplayOrder, &c.Active, &c.CreatedAt)
	if err != nil {
		return nil, rowError("category", "query category by id", err)
	}
	return &c, nil
}

func (q *Queries) CreateCategory(ctx context.Context, c *domain.Category) error {
	err := q.q.QueryRowContext(ctx,
		`INSERT INTO categories (name, description, display_order, active)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		c.Name, c.Description, c.DisplayOrder, c.Active,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return wrap("insert category", err)
	}
	return nil
}

func (q *Queries) UpdateCategory(ctx context.Context, c *domain.Category) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE categories SET name = $2, description = $3, display_order = $4, active = $5 WHERE id = $1`,
		c.ID, c.Name, c.Description, c.DisplayOrder, c.Active)
	if err != nil {
		return wrap("update category", err)
	}
	return expectOne("category", res)
}

// DeleteCategory removes the row; products referencing it keep existing with
// a NULL category through the foreign key's ON DELETE SET NULL.
func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return wrap("delete category", err)
	}
	return expectOne("category", res)
}

func (q *Queries) SetCategoryOrder(ctx context.Context, id int64, displayOrder int) error {
	res, err := q.q.ExecContext(ctx, `UPDATE categories SET display_order = $2 WHERE id = $1`, id, displayOrder)
	if err != nil {
		return wrap("set category order", err)
	}
	return expectOne("category", res)
}
