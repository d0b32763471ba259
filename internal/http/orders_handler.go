package http

import (
	"net/http"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/auth"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/service"
)

type OrdersHandler struct {
	orders OrderService
}

func NewOrdersHandler(orders OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

type statusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

// POST /api/orders
// Staff order for anyone; a customer only for its own record.
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) error {
	caller, err := identity(r)
	if err != nil {
		return err
	}
	if !caller.IsStaff() && (caller.Role != auth.RoleCustomer || caller.CustomerID == nil) {
		return apperr.Forbidden("insufficient permissions")
	}

	var in service.CreateOrderInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}

	var order *domain.Order
	if caller.IsStaff() {
		order, err = h.orders.Create(r.Context(), in, actorID(r))
	} else {
		order, err = h.orders.CreateForCustomer(r.Context(), in, *caller.CustomerID, actorID(r))
	}
	if err != nil {
		return err
	}
	respondData(w, http.StatusCreated, order)
	return nil
}

// GET /api/orders
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) error {
	var f domain.OrderFilter
	var err error
	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.OrderStatus(status)
		f.Status = &s
	}
	if f.CustomerID, err = queryInt64(r, "customer_id"); err != nil {
		return err
	}
	if f.Limit, f.Offset, err = paging(r); err != nil {
		return err
	}

	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, orders)
	return nil
}

// GET /api/orders/{id}
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) error {
	caller, err := identity(r)
	if err != nil {
		return err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		return err
	}
	if !caller.CanAccessCustomer(order.CustomerID) {
		// non-owners get the not-found response
		return apperr.NotFound("order not found")
	}
	respondData(w, http.StatusOK, order)
	return nil
}

// PATCH /api/orders/{id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	order, err := h.orders.UpdateStatus(r.Context(), id, req.Status, actorID(r))
	if err != nil {
		return err
	}
	respondData(w, http.StatusOK, order)
	return nil
}
