package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

const orderColumns = `o.id, o.order_number, o.customer_id, o.customer_name, o.customer_surname,
	o.customer_email, o.customer_phone, o.shipping_address, o.shipping_city, o.shipping_province,
	o.shipping_postal_code, o.subtotal, o.shipping_cost, o.total, o.status, o.payment_method,
	o.gateway_payment_id, o.notes, o.created_by, o.created_at, o.updated_at,
	c.name, c.surname`

const orderFrom = ` FROM orders o JOIN customers c ON c.id = o.customer_id`

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&o.CustomerName,
		&o.CustomerSurname,
		&o.CustomerEmail,
		&o.CustomerPhone,
		&o.ShippingAddress,
		&o.ShippingCity,
		&o.ShippingProvince,
		&o.ShippingPostal,
		&o.Subtotal,
		&o.ShippingCost,
		&o.Total,
		&o.Status,
		&o.PaymentMethod,
		&o.GatewayPaymentID,
		&o.Notes,
		&o.CreatedBy,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.CurrentCustomerName,
		&o.CurrentCustomerSurname,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// InsertOrder stores o as a new order, filling ID and timestamps.
func (q *Queries) InsertOrder(ctx context.Context, o *domain.Order) error {
	query := `INSERT INTO orders (order_number, customer_id, customer_name, customer_surname, customer_email,
	                              customer_phone, shipping_address, shipping_city, shipping_province,
	                              shipping_postal_code, subtotal, shipping_cost, total, status, payment_method,
	                              notes, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	          RETURNING id, created_at, updated_at`

	err := q.q.QueryRowContext(ctx, query,
		o.OrderNumber,
		o.CustomerID,
		o.CustomerName,
		o.CustomerSurname,
		o.CustomerEmail,
		o.CustomerPhone,
		o.ShippingAddress,
		o.ShippingCity,
		o.ShippingProvince,
		o.ShippingPostal,
		o.Subtotal,
		o.ShippingCost,
		o.Total,
		o.Status,
		o.PaymentMethod,
		o.Notes,
		o.CreatedBy,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return wrap("insert order", err)
	}
	return nil
}

func (q *Queries) InsertOrderItem(ctx context.Context, item *domain.OrderItem) error {
	err := q.q.QueryRowContext(ctx,
		`INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity, subtotal)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		item.OrderID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity, item.Subtotal,
	).Scan(&item.ID)
	if err != nil {
		return wrap("insert order item", err)
	}
	return nil
}

func (q *Queries) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return q.getOrder(ctx, `o.id = $1`, id, false)
}

func (q *Queries) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return q.getOrder(ctx, `o.order_number = $1`, orderNumber, false)
}

// LockOrder reads the order and holds a row lock on it until the surrounding
// transaction ends.
func (q *Queries) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return q.getOrder(ctx, `o.id = $1`, id, true)
}

func (q *Queries) LockOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return q.getOrder(ctx, `o.order_number = $1`, orderNumber, true)
}

func (q *Queries) getOrder(ctx context.Context, cond string, arg any, forUpdate bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + orderFrom + ` WHERE ` + cond
	if forUpdate {
		query += ` FOR UPDATE OF o`
	}

	o, err := scanOrder(q.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, rowError("order", "query order", err)
	}

	items, err := q.orderItems(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	return o, nil
}

func (q *Queries) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + orderFrom + ` WHERE TRUE`
	var args []any
	if f.Status != nil {
		args = append(args, *f.Status)
		query += fmt.Sprintf(` AND o.status = $%d`, len(args))
	}
	if f.CustomerID != nil {
		args = append(args, *f.CustomerID)
		query += fmt.Sprintf(` AND o.customer_id = $%d`, len(args))
	}
	args = append(args, limitOrDefault(f.Limit), f.Offset)
	query += fmt.Sprintf(` ORDER BY o.created_at DESC, o.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("query orders", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	var ids []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	if len(ids) == 0 {
		return orders, nil
	}

	items, err := q.orderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []domain.OrderItem{}
		}
	}
	return orders, nil
}

func (q *Queries) orderItems(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderItem, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name, unit_price, quantity, subtotal
		 FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id`,
		pq.Array(orderIDs))
	if err != nil {
		return nil, wrap("query order items", err)
	}
	defer rows.Close()

	byOrder := make(map[int64][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.UnitPrice,
			&item.Quantity,
			&item.Subtotal,
		); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return byOrder, nil
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	res, err := q.q.ExecContext(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return wrap("update order status", err)
	}
	return expectOne("order", res)
}

func (q *Queries) SetGatewayPaymentID(ctx context.Context, id int64, paymentID string) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE orders SET gateway_payment_id = $2, updated_at = NOW() WHERE id = $1`, id, paymentID)
	if err != nil {
		return wrap("set gateway payment id", err)
	}
	return expectOne("order", res)
}
