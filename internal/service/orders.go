package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/logger"
	"github.com/japintos/KairosMarket-sub001/internal/repository"
)

type OrderCustomerInput struct {
	Name       string `json:"name" validate:"required,max=100"`
	Surname    string `json:"surname" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Phone      string `json:"phone" validate:"required,max=50"`
	Address    string `json:"address" validate:"max=255"`
	City       string `json:"city" validate:"max=100"`
	Province   string `json:"province" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
}

type OrderItemInput struct {
	ProductID   int64           `json:"product_id" validate:"required,gt=0"`
	ProductName string          `json:"product_name" validate:"required,max=200"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"gt=0"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gt=0"`
}

type CreateOrderInput struct {
	OrderNumber   string               `json:"order_number" validate:"required,max=50"`
	Customer      OrderCustomerInput   `json:"customer"`
	Items         []OrderItemInput     `json:"items" validate:"required,min=1,dive"`
	Subtotal      decimal.Decimal      `json:"subtotal" validate:"gt=0"`
	ShippingCost  decimal.Decimal      `json:"shipping_cost" validate:"gte=0"`
	Total         decimal.Decimal      `json:"total" validate:"gt=0"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"required,oneof=mercadopago efectivo transferencia"`
	Notes         string               `json:"notes" validate:"max=2000"`
}

// validate checks structure first and then that the amounts add up.
func (in CreateOrderInput) validate() error {
	if err := validateInput(in); err != nil {
		return err
	}

	var fields []apperr.FieldError
	for i, item := range in.Items {
		fields = checkScale(fields, fmt.Sprintf("items[%d].quantity", i), item.Quantity, quantityPlaces)
		fields = checkScale(fields, fmt.Sprintf("items[%d].unit_price", i), item.UnitPrice, moneyPlaces)
	}
	fields = checkScale(fields, "subtotal", in.Subtotal, moneyPlaces)
	fields = checkScale(fields, "shipping_cost", in.ShippingCost, moneyPlaces)
	fields = checkScale(fields, "total", in.Total, moneyPlaces)
	if len(fields) > 0 {
		return apperr.Validation("validation failed", fields...)
	}

	sum := decimal.Zero
	for _, item := range in.Items {
		sum = sum.Add(domain.LineSubtotal(item.Quantity, item.UnitPrice))
	}
	if !sum.Equal(in.Subtotal) {
		fields = append(fields, apperr.FieldError{
			Field:   "subtotal",
			Message: fmt.Sprintf("must equal the sum of line subtotals (%s)", sum.StringFixed(2)),
		})
	}
	if !in.Subtotal.Add(in.ShippingCost).Equal(in.Total) {
		fields = append(fields, apperr.FieldError{
			Field:   "total",
			Message: "must equal subtotal plus shipping_cost",
		})
	}
	if len(fields) > 0 {
		return apperr.Validation("validation failed", fields...)
	}
	return nil
}

type OrderService struct {
	store   Store
	catalog *CatalogService
}

func NewOrderService(store Store, catalog *CatalogService) *OrderService {
	return &OrderService{store: store, catalog: catalog}
}

// Create places an order in one transaction: customer upsert, order row,
// line items with stock decrement, cash entry for cash payments and the
// order.created event. actorID is the authenticated user placing the order.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput, actorID *int64) (*domain.Order, error) {
	return s.create(ctx, in, actorID, nil)
}

// CreateForCustomer places an order for a signed-in customer. The payload
// email must be the one on customerID's record, and cash orders are left to
// staff since they book income on creation.
func (s *OrderService) CreateForCustomer(ctx context.Context, in CreateOrderInput, customerID int64, actorID *int64) (*domain.Order, error) {
	if in.PaymentMethod == domain.PaymentMethodCash {
		return nil, apperr.Forbidden("cash orders are registered by staff")
	}
	return s.create(ctx, in, actorID, &customerID)
}

func (s *OrderService) create(ctx context.Context, in CreateOrderInput, actorID, ownerID *int64) (*domain.Order, error) {
	in.OrderNumber = strings.TrimSpace(in.OrderNumber)
	if err := in.validate(); err != nil {
		return nil, err
	}

	// Stock rows are locked in product id order so concurrent orders
	// touching the same products cannot deadlock.
	items := make([]OrderItemInput, len(in.Items))
	copy(items, in.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	var created *domain.Order
	err := s.store.InTx(ctx, func(q *repository.Queries) error {
		customer := &domain.Customer{
			Name:       strings.TrimSpace(in.Customer.Name),
			Surname:    strings.TrimSpace(in.Customer.Surname),
			Email:      normalizeEmail(in.Customer.Email),
			Phone:      strings.TrimSpace(in.Customer.Phone),
			Address:    in.Customer.Address,
			City:       in.Customer.City,
			Province:   in.Customer.Province,
			PostalCode: in.Customer.PostalCode,
		}
		if ownerID != nil {
			owner, err := q.GetCustomer(ctx, *ownerID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if owner == nil || normalizeEmail(owner.Email) != customer.Email {
				return apperr.Forbidden("orders can only be placed for your own customer record")
			}
		}
		if err := q.UpsertCustomerByEmail(ctx, customer); err != nil {
			return err
		}

		order := &domain.Order{
			OrderNumber:      in.OrderNumber,
			CustomerID:       customer.ID,
			CustomerName:     customer.Name,
			CustomerSurname:  customer.Surname,
			CustomerEmail:    customer.Email,
			CustomerPhone:    customer.Phone,
			ShippingAddress:  customer.Address,
			ShippingCity:     customer.City,
			ShippingProvince: customer.Province,
			ShippingPostal:   customer.PostalCode,
			Subtotal:         in.Subtotal,
			ShippingCost:     in.ShippingCost,
			Total:            in.Total,
			Status:           domain.OrderStatusPending,
			PaymentMethod:    in.PaymentMethod,
			Notes:            in.Notes,
			CreatedBy:        actorID,
		}
		if err := q.InsertOrder(ctx, order); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return apperr.Conflict(fmt.Sprintf("order number %s already exists", order.OrderNumber))
			}
			return err
		}

		for _, line := range items {
			item := &domain.OrderItem{
				OrderID:     order.ID,
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				UnitPrice:   line.UnitPrice,
				Quantity:    line.Quantity,
				Subtotal:    domain.LineSubtotal(line.Quantity, line.UnitPrice),
			}
			if err := q.InsertOrderItem(ctx, item); err != nil {
				if errors.Is(err, domain.ErrReferenceMissing) {
					return fmt.Errorf("product %d: %w", line.ProductID, apperr.NotFoundEntity("product"))
				}
				return err
			}
			if err := q.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
			order.Items = append(order.Items, *item)
		}

		if order.PaymentMethod == domain.PaymentMethodCash {
			entry := &domain.CashEntry{
				Type:          domain.CashEntryIncome,
				Concept:       "Venta en efectivo - pedido " + order.OrderNumber,
				Amount:        order.Total,
				OrderID:       &order.ID,
				UserID:        actorID,
				PaymentMethod: domain.PaymentMethodCash,
			}
			if err := q.InsertCashEntry(ctx, entry); err != nil {
				return err
			}
		}

		if err := insertOrderEvent(ctx, q, domain.EventOrderCreated, order, ""); err != nil {
			return err
		}

		var err error
		created, err = q.GetOrder(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.catalog.InvalidateProducts(ctx, created.ProductIDs()...)
	logger.Printf(ctx, "order %s created (id=%d, total=%s, payment=%s)", created.OrderNumber, created.ID, created.Total.StringFixed(2), created.PaymentMethod)
	return created, nil
}

func (s *OrderService) Get(ctx context.Context, id int64) (*domain.Order, error) {
	var o *domain.Order
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		o, err = q.GetOrder(ctx, id)
		return err
	})
	return o, err
}

func (s *OrderService) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var o *domain.Order
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		o, err = q.GetOrderByNumber(ctx, orderNumber)
		return err
	})
	return o, err
}

func (s *OrderService) List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, apperr.Validation("validation failed", apperr.FieldError{Field: "status", Message: "unknown order status"})
	}
	var orders []domain.Order
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		orders, err = q.ListOrders(ctx, f)
		return err
	})
	return orders, err
}

// UpdateStatus moves an order along the state machine. Setting the current
// status again is a no-op. Cancelling restores stock and, once payment may
// have been collected, books a refund.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, next domain.OrderStatus, actorID *int64) (*domain.Order, error) {
	if !next.Valid() {
		return nil, apperr.Validation("validation failed", apperr.FieldError{
			Field:   "status",
			Message: "must be one of: pendiente en_preparacion enviado entregado cancelado",
		})
	}

	var (
		updated *domain.Order
		changed bool
	)
	err := s.store.InTx(ctx, func(q *repository.Queries) error {
		o, err := q.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if o.Status == next {
			updated = o
			return nil
		}
		if !o.Status.CanTransitionTo(next) {
			return fmt.Errorf("order %s %s -> %s: %w", o.OrderNumber, o.Status, next, domain.ErrInvalidTransition)
		}

		previous := o.Status
		if next == domain.OrderStatusCancelled {
			if err := cancelOrder(ctx, q, o, actorID, "Reintegro por cancelación - pedido "+o.OrderNumber); err != nil {
				return err
			}
		} else if err := q.UpdateOrderStatus(ctx, o.ID, next); err != nil {
			return err
		}
		o.Status = next

		if err := insertOrderEvent(ctx, q, domain.EventOrderStatusChanged, o, previous); err != nil {
			return err
		}
		changed = true
		updated, err = q.GetOrder(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed && next == domain.OrderStatusCancelled {
		s.catalog.InvalidateProducts(ctx, updated.ProductIDs()...)
	}
	return updated, nil
}

// cancelOrder returns every line's quantity to stock, marks the order
// cancelled and, when the order had moved past pendiente, books one egreso
// for the order total. o must be locked by the caller's transaction.
func cancelOrder(ctx context.Context, q *repository.Queries, o *domain.Order, actorID *int64, concept string) error {
	for _, item := range o.Items {
		if err := q.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("restore stock for product %d: %w", item.ProductID, err)
		}
	}

	if err := q.UpdateOrderStatus(ctx, o.ID, domain.OrderStatusCancelled); err != nil {
		return err
	}

	if o.Status.PastPending() {
		refund := &domain.CashEntry{
			Type:          domain.CashEntryExpense,
			Concept:       concept,
			Amount:        o.Total,
			OrderID:       &o.ID,
			UserID:        actorID,
			PaymentMethod: o.PaymentMethod,
		}
		if err := q.InsertCashEntry(ctx, refund); err != nil {
			return err
		}
	}
	return nil
}

func insertOrderEvent(ctx context.Context, q *repository.Queries, eventType string, o *domain.Order, previous domain.OrderStatus) error {
	event := domain.OrderEvent{
		EventType:      eventType,
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		PreviousStatus: previous,
		ProductIDs:     o.ProductIDs(),
		OccurredAt:     time.Now().UTC(),
	}
	if o.GatewayPaymentID != nil {
		event.GatewayPaymentID = *o.GatewayPaymentID
	}
	return q.InsertOutboxEvent(ctx, o.OrderNumber, eventType, event)
}
