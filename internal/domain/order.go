package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order fields prefixed Customer*/Shipping* are a snapshot taken when the order
// was placed and are never updated from the customer record.
type Order struct {
	ID               int64           `json:"id"`
	OrderNumber      string          `json:"order_number"`
	CustomerID       int64           `json:"customer_id"`
	CustomerName     string          `json:"customer_name"`
	CustomerSurname  string          `json:"customer_surname"`
	CustomerEmail    string          `json:"customer_email"`
	CustomerPhone    string          `json:"customer_phone"`
	ShippingAddress  string          `json:"shipping_address"`
	ShippingCity     string          `json:"shipping_city"`
	ShippingProvince string          `json:"shipping_province"`
	ShippingPostal   string          `json:"shipping_postal_code"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ShippingCost     decimal.Decimal `json:"shipping_cost"`
	Total            decimal.Decimal `json:"total"`
	Status           OrderStatus     `json:"status"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	GatewayPaymentID *string         `json:"gateway_payment_id"`
	Notes            string          `json:"notes"`
	CreatedBy        *int64          `json:"created_by"`
	Items            []OrderItem     `json:"items"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Current name on the customer record, joined at read time.
	CurrentCustomerName    string `json:"current_customer_name"`
	CurrentCustomerSurname string `json:"current_customer_surname"`
}

type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// ProductIDs returns the distinct product ids referenced by the order's items.
func (o *Order) ProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(o.Items))
	ids := make([]int64, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

type OrderFilter struct {
	Status     *OrderStatus
	CustomerID *int64
	Limit      int
	Offset     int
}
