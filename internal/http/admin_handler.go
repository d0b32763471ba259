package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/service"
)

// AdminHandler serves the back-office endpoints: cash ledger, contact inbox,
// coupons and system configuration.
type AdminHandler struct {
	cash     CashService
	contact  ContactService
	settings SettingsService
}

func NewAdminHandler(cash CashService, contact ContactService, settings SettingsService) *AdminHandler {
	return &AdminHandler{cash: cash, contact: contact, settings: settings}
}

// GET /api/admin/cash
func (h *AdminHandler) ListCash(w http.ResponseWriter, r *http.Request) error {
	var f domain.CashFilter
	var err error
	if f.From, err = queryDate(r, "from"); err != nil {
		return err
	}
	if f.To, err = queryDate(r, "to"); err != nil {
		return err
	}
	if t := r.URL.Query().Get("type"); t != "" {
		entryType := domain.CashEntryType(t)
		f.Type = &entryType
	}
	if f.OrderID, err = queryInt64(r, "order_id"); err != nil {
		return err
	}
	if f.Limit, f.Offset, err = paging(r); err != nil {
		return err
	}

	entries, err := h.cash.List(r.Context(), f)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, entries)
	return nil
}

// POST /api/admin/cash
func (h *AdminHandler) CreateCash(w http.ResponseWriter, r *http.Request) error {
	var in service.CashEntryInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	entry, err := h.cash.Create(r.Context(), in, actorID(r))
	if err != nil {
		return err
	}
	respondData(w, http.StatusCreated, entry)
	return nil
}

// POST /api/contact
func (h *AdminHandler) SubmitContact(w http.ResponseWriter, r *http.Request) error {
	var in service.ContactInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	if _, err := h.contact.Submit(r.Context(), in); err != nil {
		return err
	}
	respondMessage(w, http.StatusCreated, "message received")
	return nil
}

// GET /api/admin/contact
func (h *AdminHandler) ListContact(w http.ResponseWriter, r *http.Request) error {
	unread, err := queryBool(r, "unread")
	if err != nil {
		return err
	}
	limit, offset, err := paging(r)
	if err != nil {
		return err
	}
	messages, err := h.contact.List(r.Context(), unread != nil && *unread, limit, offset)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, messages)
	return nil
}

// PATCH /api/admin/contact/{id}/read
func (h *AdminHandler) MarkContactRead(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if err := h.contact.MarkRead(r.Context(), id); err != nil {
		return err
	}
	respondMessage(w, http.StatusOK, "message marked as read")
	return nil
}

// GET /api/admin/coupons
func (h *AdminHandler) ListCoupons(w http.ResponseWriter, r *http.Request) error {
	coupons, err := h.settings.ListCoupons(r.Context())
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, coupons)
	return nil
}

// POST /api/admin/coupons
func (h *AdminHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) error {
	var in service.CouponInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	c, err := h.settings.CreateCoupon(r.Context(), in)
	if err != nil {
		return err
	}
	respondData(w, http.StatusCreated, c)
	return nil
}

// DELETE /api/admin/coupons/{id}
func (h *AdminHandler) DeactivateCoupon(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if err := h.settings.DeactivateCoupon(r.Context(), id); err != nil {
		return err
	}
	respondMessage(w, http.StatusOK, "coupon deactivated")
	return nil
}

// GET /api/coupons/{code}
func (h *AdminHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) error {
	c, err := h.settings.ValidateCoupon(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, c)
	return nil
}

// GET /api/admin/config
func (h *AdminHandler) ListConfig(w http.ResponseWriter, r *http.Request) error {
	entries, err := h.settings.ListConfig(r.Context())
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, entries)
	return nil
}

// GET /api/admin/config/{key}
func (h *AdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) error {
	entry, err := h.settings.GetConfig(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, entry)
	return nil
}

// PUT /api/admin/config/{key}
func (h *AdminHandler) PutConfig(w http.ResponseWriter, r *http.Request) error {
	var in service.ConfigInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	entry, err := h.settings.PutConfig(r.Context(), chi.URLParam(r, "key"), in)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, entry)
	return nil
}
