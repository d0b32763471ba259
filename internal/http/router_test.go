package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/auth"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/service"
)

// --- Mocks ---

type catalogMock struct {
	CatalogService
	product  *domain.Product
	products []domain.Product
	filter   domain.ProductFilter
	err      error
}

func (m *catalogMock) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	m.filter = f
	return m.products, m.err
}

func (m *catalogMock) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return m.product, m.err
}

type ordersMock struct {
	OrderService
	order      *domain.Order
	err        error
	actorID    *int64
	customerID *int64 // set when placed through CreateForCustomer
}

func (m *ordersMock) Create(ctx context.Context, in service.CreateOrderInput, actorID *int64) (*domain.Order, error) {
	m.actorID = actorID
	return m.order, m.err
}

func (m *ordersMock) CreateForCustomer(ctx context.Context, in service.CreateOrderInput, customerID int64, actorID *int64) (*domain.Order, error) {
	m.actorID = actorID
	m.customerID = &customerID
	return m.order, m.err
}

func (m *ordersMock) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return m.order, m.err
}

type customersMock struct {
	CustomerService
	customer *domain.Customer
}

func (m *customersMock) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	return m.customer, nil
}

type paymentsMock struct {
	PaymentService
	outcome service.Outcome
	err     error
}

func (m *paymentsMock) Reconcile(ctx context.Context, n service.Notification) (service.Outcome, error) {
	return m.outcome, m.err
}

type pingMock struct {
	err error
}

func (m pingMock) Ping(ctx context.Context) error { return m.err }

// --- helpers ---

var testVerifier = auth.NewVerifier("test-secret", "")

func token(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, err := testVerifier.Sign(id, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func newTestRouter(cfg Config, deps Dependencies) http.Handler {
	deps.Verifier = testVerifier
	return NewRouter(cfg, deps)
}

func do(t *testing.T, h http.Handler, method, path, authHeader, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var resp struct {
		Success bool      `json:"success"`
		Error   errorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	return resp.Error
}

func int64Ptr(v int64) *int64 { return &v }

// --- tests ---

func TestHealth(t *testing.T) {
	h := newTestRouter(Config{}, Dependencies{Health: pingMock{}})
	rec := do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	h = newTestRouter(Config{}, Dependencies{Health: pingMock{err: errors.New("down")}})
	rec = do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newTestRouter(Config{}, Dependencies{Health: pingMock{}})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestListProducts_Envelope(t *testing.T) {
	catalog := &catalogMock{products: []domain.Product{
		{ID: 1, Name: "Yerba", Price: decimal.RequireFromString("100.50"), Active: true},
	}}
	h := newTestRouter(Config{}, Dependencies{Catalog: catalog})

	rec := do(t, h, http.MethodGet, "/api/products?search=yer&category_id=3&limit=10", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    []struct {
			ID    int64   `json:"id"`
			Price float64 `json:"price"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 100.5, resp.Data[0].Price)

	assert.True(t, catalog.filter.ActiveOnly)
	assert.Equal(t, "yer", catalog.filter.Search)
	require.NotNil(t, catalog.filter.CategoryID)
	assert.Equal(t, int64(3), *catalog.filter.CategoryID)
	assert.Equal(t, 10, catalog.filter.Limit)
}

func TestListProducts_BadQuery(t *testing.T) {
	h := newTestRouter(Config{}, Dependencies{Catalog: &catalogMock{}})

	rec := do(t, h, http.MethodGet, "/api/products?limit=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "/api/products", body.Path)
	assert.Equal(t, http.MethodGet, body.Method)
	assert.Equal(t, http.StatusBadRequest, body.StatusCode)
	assert.NotEmpty(t, body.Timestamp)
}

func TestGetProduct_InactiveVisibleToStaffOnly(t *testing.T) {
	catalog := &catalogMock{product: &domain.Product{ID: 4, Name: "Miel", Active: false}}
	h := newTestRouter(Config{}, Dependencies{Catalog: catalog})

	rec := do(t, h, http.MethodGet, "/api/products/4", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/products/4", token(t, auth.Identity{UserID: 1, Role: auth.RoleSeller}), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/products/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthGates(t *testing.T) {
	h := newTestRouter(Config{}, Dependencies{Catalog: &catalogMock{}})

	rec := do(t, h, http.MethodPost, "/api/products", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication required", decodeError(t, rec).Message)

	rec = do(t, h, http.MethodPost, "/api/products", "Bearer nope", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/products", token(t, auth.Identity{UserID: 2, Role: auth.RoleSeller}), `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/admin/cash", token(t, auth.Identity{UserID: 3, Role: auth.RoleCustomer, CustomerID: int64Ptr(3)}), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthMe(t *testing.T) {
	h := newTestRouter(Config{}, Dependencies{})

	rec := do(t, h, http.MethodGet, "/api/auth/me", token(t, auth.Identity{UserID: 9, Role: auth.RoleCustomer, CustomerID: int64Ptr(5)}), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data auth.Identity `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(9), resp.Data.UserID)
	assert.Equal(t, auth.RoleCustomer, resp.Data.Role)
	require.NotNil(t, resp.Data.CustomerID)
	assert.Equal(t, int64(5), *resp.Data.CustomerID)
}

func TestCustomerOwnerCheck(t *testing.T) {
	customers := &customersMock{customer: &domain.Customer{ID: 5, Name: "Ana"}}
	h := newTestRouter(Config{}, Dependencies{Customers: customers})
	owner := token(t, auth.Identity{UserID: 9, Role: auth.RoleCustomer, CustomerID: int64Ptr(5)})

	rec := do(t, h, http.MethodGet, "/api/customers/5", owner, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/customers/6", owner, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/customers", owner, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/customers/6", token(t, auth.Identity{UserID: 1, Role: auth.RoleAdmin}), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetOrder_NonOwnerSeesNotFound(t *testing.T) {
	orders := &ordersMock{order: &domain.Order{ID: 1, OrderNumber: "KAI-1", CustomerID: 5}}
	h := newTestRouter(Config{}, Dependencies{Orders: orders})

	rec := do(t, h, http.MethodGet, "/api/orders/1", token(t, auth.Identity{UserID: 9, Role: auth.RoleCustomer, CustomerID: int64Ptr(6)}), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/orders/1", token(t, auth.Identity{UserID: 9, Role: auth.RoleCustomer, CustomerID: int64Ptr(5)}), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateOrder(t *testing.T) {
	seller := token(t, auth.Identity{UserID: 4, Role: auth.RoleSeller})

	t.Run("created with actor", func(t *testing.T) {
		orders := &ordersMock{order: &domain.Order{ID: 1, OrderNumber: "KAI-1001", Status: domain.OrderStatusPending}}
		h := newTestRouter(Config{}, Dependencies{Orders: orders})

		rec := do(t, h, http.MethodPost, "/api/orders", seller, `{"order_number":"KAI-1001"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, orders.actorID)
		assert.Equal(t, int64(4), *orders.actorID)
		assert.Nil(t, orders.customerID)
	})

	t.Run("customer places order for own record", func(t *testing.T) {
		orders := &ordersMock{order: &domain.Order{ID: 2, OrderNumber: "KAI-1002", CustomerID: 5}}
		h := newTestRouter(Config{}, Dependencies{Orders: orders})

		customer := token(t, auth.Identity{UserID: 9, Role: auth.RoleCustomer, CustomerID: int64Ptr(5)})
		rec := do(t, h, http.MethodPost, "/api/orders", customer, `{"order_number":"KAI-1002"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, orders.customerID)
		assert.Equal(t, int64(5), *orders.customerID)
	})

	t.Run("customer for another record is forbidden", func(t *testing.T) {
		orders := &ordersMock{err: apperr.Forbidden("orders can only be placed for your own customer record")}
		h := newTestRouter(Config{}, Dependencies{Orders: orders})

		customer := token(t, auth.Identity{UserID: 9, Role: auth.RoleCustomer, CustomerID: int64Ptr(5)})
		rec := do(t, h, http.MethodPost, "/api/orders", customer, `{"order_number":"KAI-1003"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("customer without record is forbidden", func(t *testing.T) {
		orders := &ordersMock{}
		h := newTestRouter(Config{}, Dependencies{Orders: orders})

		rec := do(t, h, http.MethodPost, "/api/orders", token(t, auth.Identity{UserID: 9, Role: auth.RoleCustomer}), `{}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Nil(t, orders.actorID)
		assert.Nil(t, orders.customerID)
	})

	t.Run("validation details", func(t *testing.T) {
		orders := &ordersMock{err: apperr.Validation("validation failed", apperr.FieldError{Field: "items", Message: "is required"})}
		h := newTestRouter(Config{}, Dependencies{Orders: orders})

		rec := do(t, h, http.MethodPost, "/api/orders", seller, `{"order_number":"KAI-1001"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec)
		details, ok := body.Details.([]any)
		require.True(t, ok)
		require.Len(t, details, 1)
		assert.Equal(t, "items", details[0].(map[string]any)["field"])
	})

	t.Run("insufficient stock", func(t *testing.T) {
		orders := &ordersMock{err: fmt.Errorf("product 3: %w", domain.ErrInsufficientStock)}
		h := newTestRouter(Config{}, Dependencies{Orders: orders})

		rec := do(t, h, http.MethodPost, "/api/orders", seller, `{}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "insufficient stock", decodeError(t, rec).Message)
	})

	t.Run("malformed json", func(t *testing.T) {
		h := newTestRouter(Config{}, Dependencies{Orders: &ordersMock{}})
		rec := do(t, h, http.MethodPost, "/api/orders", seller, `{"order_number":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("body too large", func(t *testing.T) {
		h := newTestRouter(Config{MaxRequestBodySize: 64}, Dependencies{Orders: &ordersMock{}})
		body := `{"notes":"` + strings.Repeat("x", 200) + `"}`
		rec := do(t, h, http.MethodPost, "/api/orders", seller, body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestInternalErrorCause(t *testing.T) {
	seller := token(t, auth.Identity{UserID: 4, Role: auth.RoleSeller})
	orders := &ordersMock{err: errors.New("connection refused")}

	rec := do(t, newTestRouter(Config{}, Dependencies{Orders: orders}), http.MethodGet, "/api/orders/1", seller, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "connection refused", decodeError(t, rec).Cause)

	rec = do(t, newTestRouter(Config{Production: true}, Dependencies{Orders: orders}), http.MethodGet, "/api/orders/1", seller, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "internal server error", body.Message)
	assert.Empty(t, body.Cause)
}

func TestWebhook(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		mock   *paymentsMock
		status int
	}{
		{"applied", `{"type":"payment","data":{"id":123}}`, &paymentsMock{outcome: service.OutcomeApplied}, http.StatusOK},
		{"duplicate", `{"type":"payment","data":{"id":"123"}}`, &paymentsMock{outcome: service.OutcomeDuplicate}, http.StatusOK},
		{"internal error acknowledged", `{"type":"payment","data":{"id":1}}`, &paymentsMock{outcome: service.OutcomeInternalError}, http.StatusOK},
		{"gateway lookup", `{"type":"payment","data":{"id":1}}`, &paymentsMock{err: fmt.Errorf("%w: timeout", service.ErrGatewayLookup)}, http.StatusInternalServerError},
		{"unknown order", `{"type":"payment","data":{"id":1}}`, &paymentsMock{err: apperr.NotFoundEntity("order")}, http.StatusNotFound},
		{"malformed", `{"type":`, &paymentsMock{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(Config{}, Dependencies{Payments: tt.mock})
			rec := do(t, h, http.MethodPost, "/api/payments/webhook", "", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				var ack webhookAck
				require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&ack))
				assert.True(t, ack.Received)
				assert.Equal(t, string(tt.mock.outcome), ack.Outcome)
			}
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestRouter(Config{}, Dependencies{})
	rec := do(t, h, http.MethodGet, "/api/nothing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", decodeError(t, rec).Message)
}
