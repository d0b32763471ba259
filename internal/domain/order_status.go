package domain

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pendiente"
	OrderStatusPreparing OrderStatus = "en_preparacion"
	OrderStatusShipped   OrderStatus = "enviado"
	OrderStatusDelivered OrderStatus = "entregado"
	OrderStatusCancelled OrderStatus = "cancelado"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PastPending reports whether payment has likely been collected for an order in s.
func (s OrderStatus) PastPending() bool {
	return s == OrderStatusPreparing || s == OrderStatusShipped || s == OrderStatusDelivered
}

func (s OrderStatus) String() string {
	return string(s)
}

type PaymentMethod string

const (
	PaymentMethodGateway  PaymentMethod = "mercadopago"
	PaymentMethodCash     PaymentMethod = "efectivo"
	PaymentMethodTransfer PaymentMethod = "transferencia"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodGateway, PaymentMethodCash, PaymentMethodTransfer:
		return true
	}
	return false
}
