package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

const customerColumns = `id, name, surname, email, phone, address, city, province, postal_code,
	registered, active, created_at, updated_at`

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Surname,
		&c.Email,
		&c.Phone,
		&c.Address,
		&c.City,
		&c.Province,
		&c.PostalCode,
		&c.Registered,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *Queries) ListCustomers(ctx context.Context, f domain.CustomerFilter) ([]domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE TRUE`
	var args []any
	if f.ActiveOnly {
		query += ` AND active = TRUE`
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		query += ` AND (name ILIKE $1 OR surname ILIKE $1 OR email ILIKE $1)`
	}
	args = append(args, limitOrDefault(f.Limit), f.Offset)
	query += fmt.Sprintf(` ORDER BY surname ASC, name ASC, id ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("query customers", err)
	}
	defer rows.Close()

	customers := []domain.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer row: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return customers, nil
}

func (q *Queries) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := scanCustomer(q.q.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return nil, rowError("customer", "query customer by id", err)
	}
	return c, nil
}

func (q *Queries) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	err := q.q.QueryRowContext(ctx,
		`INSERT INTO customers (name, surname, email, phone, address, city, province, postal_code, registered, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.Surname, c.Email, c.Phone, c.Address, c.City, c.Province, c.PostalCode, c.Registered, c.Active,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return wrap("insert customer", err)
	}
	return nil
}

func (q *Queries) UpdateCustomer(ctx context.Context, c *domain.Customer) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE customers
		 SET name = $2, surname = $3, email = $4, phone = $5, address = $6, city = $7, province = $8,
		     postal_code = $9, updated_at = NOW()
		 WHERE id = $1`,
		c.ID, c.Name, c.Surname, c.Email, c.Phone, c.Address, c.City, c.Province, c.PostalCode)
	if err != nil {
		return wrap("update customer", err)
	}
	return expectOne("customer", res)
}

func (q *Queries) DeactivateCustomer(ctx context.Context, id int64) error {
	res, err := q.q.ExecContext(ctx, `UPDATE customers SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return wrap("deactivate customer", err)
	}
	return expectOne("customer", res)
}

// UpsertCustomerByEmail inserts a registered customer or refreshes the contact
// fields of the one already holding the email. c is filled from the stored row.
func (q *Queries) UpsertCustomerByEmail(ctx context.Context, c *domain.Customer) error {
	row := q.q.QueryRowContext(ctx,
		`INSERT INTO customers (name, surname, email, phone, address, city, province, postal_code, registered, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, TRUE)
		 ON CONFLICT (email) DO UPDATE
		 SET name = EXCLUDED.name, surname = EXCLUDED.surname, phone = EXCLUDED.phone,
		     address = EXCLUDED.address, city = EXCLUDED.city, province = EXCLUDED.province,
		     postal_code = EXCLUDED.postal_code, active = TRUE, updated_at = NOW()
		 RETURNING `+customerColumns,
		c.Name, c.Surname, c.Email, c.Phone, c.Address, c.City, c.Province, c.PostalCode)

	stored, err := scanCustomer(row)
	if err != nil {
		return wrap("upsert customer", err)
	}
	*c = *stored
	return nil
}
