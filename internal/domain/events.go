package domain

import "time"

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventPaymentReconciled  = "payment.reconciled"
)

// OrderEvent is the payload written to the outbox and published to Kafka.
type OrderEvent struct {
	EventType        string      `json:"event_type"`
	OrderID          int64       `json:"order_id"`
	OrderNumber      string      `json:"order_number"`
	Status           OrderStatus `json:"status"`
	PreviousStatus   OrderStatus `json:"previous_status,omitempty"`
	GatewayPaymentID string      `json:"gateway_payment_id,omitempty"`
	ProductIDs       []int64     `json:"product_ids"`
	OccurredAt       time.Time   `json:"occurred_at"`
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}
