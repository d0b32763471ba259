package repository

import (
	"context"
	"fmt"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

// InsertCashEntry appends a ledger row. cash_entries has no update or delete
// statements.
func (q *Queries) InsertCashEntry(ctx context.Context, e *domain.CashEntry) error {
	err := q.q.QueryRowContext(ctx,
		`INSERT INTO cash_entries (type, concept, amount, order_id, user_id, payment_method, entry_date)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::date, CURRENT_DATE))
		 RETURNING id, entry_date, created_at`,
		e.Type,
		e.Concept,
		e.Amount,
		e.OrderID,
		e.UserID,
		e.PaymentMethod,
		nullableDate(e),
	).Scan(&e.ID, &e.EntryDate, &e.CreatedAt)
	if err != nil {
		return wrap("insert cash entry", err)
	}
	return nil
}

func nullableDate(e *domain.CashEntry) any {
	if e.EntryDate.IsZero() {
		return nil
	}
	return e.EntryDate.Format("2006-01-02")
}

func (q *Queries) ListCashEntries(ctx context.Context, f domain.CashFilter) ([]domain.CashEntry, error) {
	query := `SELECT id, type, concept, amount, order_id, user_id, payment_method, entry_date, created_at
	          FROM cash_entries WHERE TRUE`
	var args []any
	if f.From != nil {
		args = append(args, f.From.Format("2006-01-02"))
		query += fmt.Sprintf(` AND entry_date >= $%d::date`, len(args))
	}
	if f.To != nil {
		args = append(args, f.To.Format("2006-01-02"))
		query += fmt.Sprintf(` AND entry_date <= $%d::date`, len(args))
	}
	if f.Type != nil {
		args = append(args, *f.Type)
		query += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if f.OrderID != nil {
		args = append(args, *f.OrderID)
		query += fmt.Sprintf(` AND order_id = $%d`, len(args))
	}
	args = append(args, limitOrDefault(f.Limit), f.Offset)
	query += fmt.Sprintf(` ORDER BY entry_date DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("query cash entries", err)
	}
	defer rows.Close()

	entries := []domain.CashEntry{}
	for rows.Next() {
		var e domain.CashEntry
		if err := rows.Scan(
			&e.ID,
			&e.Type,
			&e.Concept,
			&e.Amount,
			&e.OrderID,
			&e.UserID,
			&e.PaymentMethod,
			&e.EntryDate,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cash entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}
