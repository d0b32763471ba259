package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CashEntryType string

const (
	CashEntryIncome  CashEntryType = "ingreso"
	CashEntryExpense CashEntryType = "egreso"
)

func (t CashEntryType) Valid() bool {
	return t == CashEntryIncome || t == CashEntryExpense
}

// CashEntry is an append-only ledger row. Corrections are new offsetting rows.
type CashEntry struct {
	ID            int64           `json:"id"`
	Type          CashEntryType   `json:"type"`
	Concept       string          `json:"concept"`
	Amount        decimal.Decimal `json:"amount"`
	OrderID       *int64          `json:"order_id"`
	UserID        *int64          `json:"user_id"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	EntryDate     time.Time       `json:"entry_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

type CashFilter struct {
	From    *time.Time
	To      *time.Time
	Type    *CashEntryType
	OrderID *int64
	Limit   int
	Offset  int
}
