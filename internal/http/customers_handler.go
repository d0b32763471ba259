package http

import (
	"net/http"
	"strings"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/service"
)

type CustomersHandler struct {
	customers CustomerService
}

func NewCustomersHandler(customers CustomerService) *CustomersHandler {
	return &CustomersHandler{customers: customers}
}

type favoriteRequest struct {
	ProductID int64 `json:"product_id"`
}

// customerID reads {id} and checks the caller may act on that customer.
func customerID(r *http.Request) (int64, error) {
	caller, err := identity(r)
	if err != nil {
		return 0, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return 0, err
	}
	if !caller.CanAccessCustomer(id) {
		return 0, apperr.Forbidden("you may only access your own customer record")
	}
	return id, nil
}

// GET /api/customers
func (h *CustomersHandler) List(w http.ResponseWriter, r *http.Request) error {
	var f domain.CustomerFilter
	var err error
	if f.Limit, f.Offset, err = paging(r); err != nil {
		return err
	}
	active, err := queryBool(r, "active")
	if err != nil {
		return err
	}
	f.ActiveOnly = active != nil && *active
	f.Search = strings.TrimSpace(r.URL.Query().Get("search"))

	customers, err := h.customers.List(r.Context(), f)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, customers)
	return nil
}

// POST /api/customers
func (h *CustomersHandler) Create(w http.ResponseWriter, r *http.Request) error {
	var in service.CustomerInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	c, err := h.customers.Create(r.Context(), in)
	if err != nil {
		return err
	}
	respondData(w, http.StatusCreated, c)
	return nil
}

// GET /api/customers/{id}
func (h *CustomersHandler) Get(w http.ResponseWriter, r *http.Request) error {
	id, err := customerID(r)
	if err != nil {
		return err
	}
	c, err := h.customers.Get(r.Context(), id)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, c)
	return nil
}

// PUT /api/customers/{id}
func (h *CustomersHandler) Update(w http.ResponseWriter, r *http.Request) error {
	id, err := customerID(r)
	if err != nil {
		return err
	}
	var in service.CustomerInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	c, err := h.customers.Update(r.Context(), id, in)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, c)
	return nil
}

// DELETE /api/customers/{id}
func (h *CustomersHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if err := h.customers.Delete(r.Context(), id); err != nil {
		return err
	}
	respondMessage(w, http.StatusOK, "customer deactivated")
	return nil
}

// GET /api/customers/{id}/orders
func (h *CustomersHandler) Orders(w http.ResponseWriter, r *http.Request) error {
	id, err := customerID(r)
	if err != nil {
		return err
	}
	limit, offset, err := paging(r)
	if err != nil {
		return err
	}
	orders, err := h.customers.Orders(r.Context(), id, limit, offset)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, orders)
	return nil
}

// GET /api/customers/{id}/favorites
func (h *CustomersHandler) Favorites(w http.ResponseWriter, r *http.Request) error {
	id, err := customerID(r)
	if err != nil {
		return err
	}
	fav, err := h.customers.Favorites(r.Context(), id)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, fav)
	return nil
}

// POST /api/customers/{id}/favorites
func (h *CustomersHandler) AddFavorite(w http.ResponseWriter, r *http.Request) error {
	id, err := customerID(r)
	if err != nil {
		return err
	}
	var req favoriteRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.ProductID <= 0 {
		return apperr.Validation("validation failed", apperr.FieldError{Field: "product_id", Message: "must be a positive integer"})
	}
	fav, err := h.customers.AddFavorite(r.Context(), id, req.ProductID)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, fav)
	return nil
}

// DELETE /api/customers/{id}/favorites/{productID}
func (h *CustomersHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) error {
	id, err := customerID(r)
	if err != nil {
		return err
	}
	productID, err := pathID(r, "productID")
	if err != nil {
		return err
	}
	fav, err := h.customers.RemoveFavorite(r.Context(), id, productID)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, fav)
	return nil
}
