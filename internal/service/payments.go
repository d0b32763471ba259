package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/gateway"
	"github.com/japintos/KairosMarket-sub001/internal/logger"
	"github.com/japintos/KairosMarket-sub001/internal/repository"
)

type PaymentGateway interface {
	CreatePreference(ctx context.Context, req *gateway.PreferenceRequest) (*gateway.Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*gateway.Payment, error)
}

type PaymentConfig struct {
	SuccessURL      string
	FailureURL      string
	PendingURL      string
	NotificationURL string
	PreferenceTTL   time.Duration
	Currency        string
}

type PreferenceItemInput struct {
	ID        string          `json:"id" validate:"max=50"`
	Title     string          `json:"title" validate:"required,max=255"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gt=0"`
}

type PayerInput struct {
	Name    string `json:"name" validate:"max=100"`
	Surname string `json:"surname" validate:"max=100"`
	Email   string `json:"email" validate:"omitempty,email"`
}

type PreferenceInput struct {
	Items             []PreferenceItemInput `json:"items" validate:"required,min=1,dive"`
	Payer             *PayerInput           `json:"payer"`
	ExternalReference string                `json:"external_reference" validate:"max=50"`
}

type PreferenceResult struct {
	PreferenceID      string    `json:"preference_id"`
	InitPoint         string    `json:"init_point"`
	ExternalReference string    `json:"external_reference"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// Notification is the body the gateway posts to the webhook.
type Notification struct {
	Type string `json:"type"`
	Data struct {
		ID gateway.ID `json:"id"`
	} `json:"data"`
}

// Outcome says what reconciliation did with a notification.
type Outcome string

const (
	OutcomeIgnored       Outcome = "ignored"
	OutcomeApplied       Outcome = "applied"
	OutcomeRecorded      Outcome = "payment_recorded"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeOutOfOrder    Outcome = "out_of_order"
	OutcomeStalePayment  Outcome = "stale_payment"
	OutcomeUnhandled     Outcome = "unhandled_status"
	OutcomeInternalError Outcome = "internal_error"
)

// ErrGatewayLookup wraps failures fetching the payment from the gateway.
var ErrGatewayLookup = errors.New("payment lookup failed")

type PaymentService struct {
	store   Store
	gateway PaymentGateway
	catalog *CatalogService
	cfg     PaymentConfig
	now     func() time.Time
}

func NewPaymentService(store Store, gw PaymentGateway, catalog *CatalogService, cfg PaymentConfig) *PaymentService {
	if cfg.PreferenceTTL <= 0 {
		cfg.PreferenceTTL = 24 * time.Hour
	}
	return &PaymentService{
		store:   store,
		gateway: gw,
		catalog: catalog,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *PaymentService) CreatePreference(ctx context.Context, in PreferenceInput) (*PreferenceResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	ref := strings.TrimSpace(in.ExternalReference)
	if ref == "" {
		ref = uuid.NewString()
	}

	from := s.now().UTC()
	to := from.Add(s.cfg.PreferenceTTL)
	req := &gateway.PreferenceRequest{
		BackURLs: gateway.BackURLs{
			Success: s.cfg.SuccessURL,
			Failure: s.cfg.FailureURL,
			Pending: s.cfg.PendingURL,
		},
		AutoReturn:         "approved",
		ExternalReference:  ref,
		NotificationURL:    s.cfg.NotificationURL,
		Expires:            true,
		ExpirationDateFrom: from,
		ExpirationDateTo:   to,
	}
	for _, item := range in.Items {
		req.Items = append(req.Items, gateway.PreferenceItem{
			ID:         item.ID,
			Title:      item.Title,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			CurrencyID: s.cfg.Currency,
		})
	}
	if in.Payer != nil {
		req.Payer = &gateway.Payer{Name: in.Payer.Name, Surname: in.Payer.Surname, Email: in.Payer.Email}
	}

	pref, err := s.gateway.CreatePreference(ctx, req)
	if err != nil {
		return nil, apperr.Unavailable("payment gateway error", err)
	}

	return &PreferenceResult{
		PreferenceID:      pref.ID,
		InitPoint:         pref.InitPoint,
		ExternalReference: ref,
		ExpiresAt:         to,
	}, nil
}

// mapPaymentStatus translates a gateway payment status into an order status.
func mapPaymentStatus(status string) (domain.OrderStatus, bool) {
	switch status {
	case "approved":
		return domain.OrderStatusPreparing, true
	case "pending", "in_process":
		return domain.OrderStatusPending, true
	case "rejected", "cancelled":
		return domain.OrderStatusCancelled, true
	}
	return "", false
}

// Reconcile applies a payment notification to its order. It returns an error
// only when the gateway lookup fails (wrapping ErrGatewayLookup) or when the
// order cannot be found; failures after that are logged and reported as
// OutcomeInternalError so the gateway stops redelivering.
func (s *PaymentService) Reconcile(ctx context.Context, n Notification) (Outcome, error) {
	if n.Type != "payment" {
		return OutcomeIgnored, nil
	}
	paymentID := n.Data.ID.String()
	if paymentID == "" {
		return OutcomeIgnored, apperr.Validation("validation failed", apperr.FieldError{Field: "data.id", Message: "is required"})
	}

	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGatewayLookup, err)
	}
	reference := strings.TrimSpace(payment.ExternalReference)
	if reference == "" {
		logger.Printf(ctx, "payment %s has no external reference", paymentID)
		return "", apperr.NotFoundEntity("order")
	}

	var (
		found    bool
		outcome  Outcome
		touched  []int64
		previous domain.OrderStatus
		target   domain.OrderStatus
	)
	err = s.store.InTx(ctx, func(q *repository.Queries) error {
		o, err := q.LockOrderByNumber(ctx, reference)
		if err != nil {
			return err
		}
		found = true
		previous = o.Status

		var ok bool
		target, ok = mapPaymentStatus(payment.Status)
		if !ok {
			outcome = OutcomeUnhandled
			return nil
		}

		outcome = decide(o, paymentID, target)
		switch outcome {
		case OutcomeApplied:
		case OutcomeRecorded:
			// Status stays where staff put it; only the payment is booked.
			target = o.Status
			if err := insertPaymentIncome(ctx, q, o, paymentID); err != nil {
				return err
			}
		default:
			return nil
		}

		if target != o.Status {
			switch target {
			case domain.OrderStatusCancelled:
				concept := "Reintegro por pago " + payment.Status + " - pedido " + o.OrderNumber
				if err := cancelOrder(ctx, q, o, nil, concept); err != nil {
					return err
				}
				touched = o.ProductIDs()
			default:
				if err := q.UpdateOrderStatus(ctx, o.ID, target); err != nil {
					return err
				}
			}
			if target == domain.OrderStatusPreparing {
				if err := insertPaymentIncome(ctx, q, o, paymentID); err != nil {
					return err
				}
			}
		}

		if err := q.SetGatewayPaymentID(ctx, o.ID, paymentID); err != nil {
			return err
		}
		o.Status = target
		o.GatewayPaymentID = &paymentID
		return insertOrderEvent(ctx, q, domain.EventPaymentReconciled, o, previous)
	})

	switch {
	case err != nil && !found:
		if errors.Is(err, domain.ErrNotFound) {
			logger.Printf(ctx, "payment %s references unknown order %q", paymentID, reference)
		}
		return "", err
	case err != nil:
		logger.Errorf(ctx, "reconciliation of payment %s for order %s failed: %v", paymentID, reference, err)
		return OutcomeInternalError, nil
	}

	switch outcome {
	case OutcomeApplied, OutcomeRecorded:
		logger.Printf(ctx, "payment %s (%s) reconciled: order %s %s -> %s", paymentID, payment.Status, reference, previous, target)
		s.catalog.InvalidateProducts(ctx, touched...)
	case OutcomeUnhandled:
		logger.Printf(ctx, "payment %s: unhandled gateway status %q for order %s", paymentID, payment.Status, reference)
	default:
		logger.Printf(ctx, "payment %s (%s) for order %s skipped: %s", paymentID, payment.Status, reference, outcome)
	}
	return outcome, nil
}

func insertPaymentIncome(ctx context.Context, q *repository.Queries, o *domain.Order, paymentID string) error {
	return q.InsertCashEntry(ctx, &domain.CashEntry{
		Type:          domain.CashEntryIncome,
		Concept:       "Pago aprobado " + paymentID + " - pedido " + o.OrderNumber,
		Amount:        o.Total,
		OrderID:       &o.ID,
		PaymentMethod: domain.PaymentMethodGateway,
	})
}

// decide classifies a notification against the locked order.
func decide(o *domain.Order, paymentID string, target domain.OrderStatus) Outcome {
	stamped := ""
	if o.GatewayPaymentID != nil {
		stamped = *o.GatewayPaymentID
	}

	if stamped == paymentID && o.Status == target {
		return OutcomeDuplicate
	}

	// Staff advanced the order before any payment was stamped: the approval
	// is still money received.
	if target == domain.OrderStatusPreparing && stamped == "" && o.Status.PastPending() &&
		o.PaymentMethod != domain.PaymentMethodCash {
		return OutcomeRecorded
	}

	// A different payment arriving after the order moved on is a stale
	// attempt. It may only cancel an order that no payment has claimed.
	if stamped != paymentID && o.Status.PastPending() {
		if !(target == domain.OrderStatusCancelled && stamped == "" && o.Status.CanTransitionTo(target)) {
			return OutcomeStalePayment
		}
	}

	if o.Status != target && !o.Status.CanTransitionTo(target) {
		return OutcomeOutOfOrder
	}
	return OutcomeApplied
}
