package repository

import (
	"context"
	"fmt"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

func (q *Queries) InsertContactMessage(ctx context.Context, m *domain.ContactMessage) error {
	err := q.q.QueryRowContext(ctx,
		`INSERT INTO contact_messages (name, email, phone, subject, message)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, read, created_at`,
		m.Name, m.Email, m.Phone, m.Subject, m.Message,
	).Scan(&m.ID, &m.Read, &m.CreatedAt)
	if err != nil {
		return wrap("insert contact message", err)
	}
	return nil
}

func (q *Queries) ListContactMessages(ctx context.Context, unreadOnly bool, limit, offset int) ([]domain.ContactMessage, error) {
	query := `SELECT id, name, email, phone, subject, message, read, created_at FROM contact_messages`
	if unreadOnly {
		query += ` WHERE read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

	rows, err := q.q.QueryContext(ctx, query, limitOrDefault(limit), offset)
	if err != nil {
		return nil, wrap("query contact messages", err)
	}
	defer rows.Close()

	messages := []domain.ContactMessage{}
	for rows.Next() {
		var m domain.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Subject, &m.Message, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return messages, nil
}

func (q *Queries) MarkContactMessageRead(ctx context.Context, id int64) error {
	res, err := q.q.ExecContext(ctx, `UPDATE contact_messages SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return wrap("mark contact message read", err)
	}
	return expectOne("contact message", res)
}

const couponColumns = `id, code, discount_percent, active, expires_at, created_at`

func scanCoupon(row rowScanner) (*domain.Coupon, error) {
	var c domain.Coupon
	if err := row.Scan(&c.ID, &c.Code, &c.DiscountPercent, &c.Active, &c.ExpiresAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *Queries) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, wrap("query coupons", err)
	}
	defer rows.Close()

	coupons := []domain.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon row: %w", err)
		}
		coupons = append(coupons, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return coupons, nil
}

func (q *Queries) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	c, err := scanCoupon(q.q.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code))
	if err != nil {
		return nil, rowError("coupon", "query coupon by code", err)
	}
	return c, nil
}

func (q *Queries) CreateCoupon(ctx context.Context, c *domain.Coupon) error {
	err := q.q.QueryRowContext(ctx,
		`INSERT INTO coupons (code, discount_percent, active, expires_at)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		c.Code, c.DiscountPercent, c.Active, c.ExpiresAt,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return wrap("insert coupon", err)
	}
	return nil
}

func (q *Queries) DeactivateCoupon(ctx context.Context, id int64) error {
	res, err := q.q.ExecContext(ctx, `UPDATE coupons SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return wrap("deactivate coupon", err)
	}
	return expectOne("coupon", res)
}

func (q *Queries) ListConfig(ctx context.Context) ([]domain.ConfigEntry, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT key, value, updated_at FROM system_config ORDER BY key`)
	if err != nil {
		return nil, wrap("query system config", err)
	}
	defer rows.Close()

	entries := []domain.ConfigEntry{}
	for rows.Next() {
		var e domain.ConfigEntry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan config row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

func (q *Queries) GetConfig(ctx context.Context, key string) (*domain.ConfigEntry, error) {
	var e domain.ConfigEntry
	err := q.q.QueryRowContext(ctx, `SELECT key, value, updated_at FROM system_config WHERE key = $1`, key).
		Scan(&e.Key, &e.Value, &e.UpdatedAt)
	if err != nil {
		return nil, rowError("config key", "query config key", err)
	}
	return &e, nil
}

func (q *Queries) PutConfig(ctx context.Context, key, value string) (*domain.ConfigEntry, error) {
	var e domain.ConfigEntry
	err := q.q.QueryRowContext(ctx,
		`INSERT INTO system_config (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		 RETURNING key, value, updated_at`,
		key, value,
	).Scan(&e.Key, &e.Value, &e.UpdatedAt)
	if err != nil {
		return nil, wrap("upsert config key", err)
	}
	return &e, nil
}
