package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ID is an identifier the gateway sends either as a JSON string or a number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

type PreferenceItem struct {
	ID         string          `json:"id,omitempty"`
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CurrencyID string          `json:"currency_id,omitempty"`
}

type Payer struct {
	Name    string `json:"name,omitempty"`
	Surname string `json:"surname,omitempty"`
	Email   string `json:"email,omitempty"`
}

type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type PreferenceRequest struct {
	Items              []PreferenceItem `json:"items"`
	Payer              *Payer           `json:"payer,omitempty"`
	BackURLs           BackURLs         `json:"back_urls"`
	AutoReturn         string           `json:"auto_return,omitempty"`
	ExternalReference  string           `json:"external_reference"`
	NotificationURL    string           `json:"notification_url,omitempty"`
	Expires            bool             `json:"expires"`
	ExpirationDateFrom time.Time        `json:"expiration_date_from"`
	ExpirationDateTo   time.Time        `json:"expiration_date_to"`
}

type Preference struct {
	ID                string `json:"id"`
	InitPoint         string `json:"init_point"`
	SandboxInitPoint  string `json:"sandbox_init_point"`
	ExternalReference string `json:"external_reference"`
}

// Payment is the subset of the gateway's payment resource reconciliation reads.
type Payment struct {
	ID                ID              `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
}
