package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/repository"
)

type CashEntryInput struct {
	Type          domain.CashEntryType `json:"type" validate:"required,oneof=ingreso egreso"`
	Concept       string               `json:"concept" validate:"required,max=255"`
	Amount        decimal.Decimal      `json:"amount" validate:"gt=0"`
	OrderID       *int64               `json:"order_id" validate:"omitempty,gt=0"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"omitempty,oneof=mercadopago efectivo transferencia"`
	EntryDate     string               `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
}

// CashService is the write side of the ledger for manual entries plus the
// admin listing. Entries are never edited.
type CashService struct {
	store Store
}

func NewCashService(store Store) *CashService {
	return &CashService{store: store}
}

func (s *CashService) Create(ctx context.Context, in CashEntryInput, actorID *int64) (*domain.CashEntry, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	entry := &domain.CashEntry{
		Type:          in.Type,
		Concept:       in.Concept,
		Amount:        in.Amount,
		OrderID:       in.OrderID,
		UserID:        actorID,
		PaymentMethod: in.PaymentMethod,
	}
	if in.EntryDate != "" {
		// already checked by the datetime tag
		entry.EntryDate, _ = time.Parse("2006-01-02", in.EntryDate)
	}

	err := s.store.Do(ctx, func(q *repository.Queries) error {
		return q.InsertCashEntry(ctx, entry)
	})
	if err != nil {
		return nil, referenceError(err, "order_id", "order does not exist")
	}
	return entry, nil
}

func (s *CashService) List(ctx context.Context, f domain.CashFilter) ([]domain.CashEntry, error) {
	if f.Type != nil && !f.Type.Valid() {
		return nil, apperr.Validation("validation failed", apperr.FieldError{Field: "type", Message: "must be one of: ingreso egreso"})
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, apperr.Validation("validation failed", apperr.FieldError{Field: "to", Message: "must not be before from"})
	}

	var entries []domain.CashEntry
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		entries, err = q.ListCashEntries(ctx, f)
		return err
	})
	return entries, err
}
