package http

import (
	"errors"
	"net/http"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/service"
)

type PaymentsHandler struct {
	payments PaymentService
}

func NewPaymentsHandler(payments PaymentService) *PaymentsHandler {
	return &PaymentsHandler{payments: payments}
}

type webhookAck struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome,omitempty"`
}

// POST /api/payments/preference
func (h *PaymentsHandler) CreatePreference(w http.ResponseWriter, r *http.Request) error {
	var in service.PreferenceInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	pref, err := h.payments.CreatePreference(r.Context(), in)
	if err != nil {
		return err
	}
	respondData(w, http.StatusCreated, pref)
	return nil
}

// POST /api/payments/webhook
//
// The gateway only looks at the status code: 200 acknowledges, 404 and 500
// make it retry later.
func (h *PaymentsHandler) Webhook(w http.ResponseWriter, r *http.Request) error {
	var n service.Notification
	if err := decodeJSON(r, &n); err != nil {
		return err
	}

	outcome, err := h.payments.Reconcile(r.Context(), n)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, webhookAck{Received: true, Outcome: string(outcome)})
		return nil
	case errors.Is(err, service.ErrGatewayLookup):
		return apperr.Internal(err)
	case errors.Is(err, domain.ErrNotFound):
		return apperr.NotFound("order not found for payment")
	}
	return err
}
