package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/cache"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/repository"
	"github.com/japintos/KairosMarket-sub001/internal/testutil"
)

type testEnv struct {
	repo    *repository.Repository
	redis   *miniredis.Miniredis
	catalog *CatalogService
	orders  *OrderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := testutil.StartPostgres(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	catalog := NewCatalogService(repo, cache.NewRedisCache(client))
	return &testEnv{
		repo:    repo,
		redis:   mr,
		catalog: catalog,
		orders:  NewOrderService(repo, catalog),
	}
}

func orderInput(number string, productID int64, method domain.PaymentMethod) CreateOrderInput {
	return CreateOrderInput{
		OrderNumber: number,
		Customer: OrderCustomerInput{
			Name:    "Ana",
			Surname: "García",
			Email:   "Ana@Example.com",
			Phone:   "1155550000",
			Address: "Calle 1",
			City:    "Rosario",
		},
		Items: []OrderItemInput{{
			ProductID:   productID,
			ProductName: "Yerba",
			UnitPrice:   decimal.RequireFromString("100.00"),
			Quantity:    decimal.NewFromInt(3),
		}},
		Subtotal:      decimal.RequireFromString("300.00"),
		ShippingCost:  decimal.RequireFromString("50.00"),
		Total:         decimal.RequireFromString("350.00"),
		PaymentMethod: method,
	}
}

func cashEntries(t *testing.T, repo *repository.Repository, orderID int64) []domain.CashEntry {
	t.Helper()
	var entries []domain.CashEntry
	err := repo.Do(context.Background(), func(q *repository.Queries) error {
		var err error
		entries, err = q.ListCashEntries(context.Background(), domain.CashFilter{OrderID: &orderID})
		return err
	})
	require.NoError(t, err)
	return entries
}

func statusOf(err error) int {
	return apperr.From(err).Status
}

func TestCreateOrderInputValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, orderInput("KAI-1", 1, domain.PaymentMethodCash).validate())
	})

	t.Run("subtotal mismatch", func(t *testing.T) {
		in := orderInput("KAI-1", 1, domain.PaymentMethodCash)
		in.Subtotal = decimal.RequireFromString("299.99")
		in.Total = decimal.RequireFromString("349.99")

		err := in.validate()
		require.Error(t, err)
		appErr := apperr.From(err)
		assert.Equal(t, http.StatusBadRequest, appErr.Status)
		fields := appErr.Details.([]apperr.FieldError)
		require.Len(t, fields, 1)
		assert.Equal(t, "subtotal", fields[0].Field)
	})

	t.Run("total mismatch", func(t *testing.T) {
		in := orderInput("KAI-1", 1, domain.PaymentMethodCash)
		in.Total = decimal.RequireFromString("300.00")

		fields := apperr.From(in.validate()).Details.([]apperr.FieldError)
		require.Len(t, fields, 1)
		assert.Equal(t, "total", fields[0].Field)
	})

	t.Run("field paths use json names", func(t *testing.T) {
		in := orderInput("KAI-1", 1, domain.PaymentMethodCash)
		in.Items[0].Quantity = decimal.Zero
		in.Customer.Email = "not-an-email"

		fields := apperr.From(in.validate()).Details.([]apperr.FieldError)
		var names []string
		for _, f := range fields {
			names = append(names, f.Field)
		}
		assert.Contains(t, names, "items[0].quantity")
		assert.Contains(t, names, "customer.email")
	})

	t.Run("no items", func(t *testing.T) {
		in := orderInput("KAI-1", 1, domain.PaymentMethodCash)
		in.Items = nil

		fields := apperr.From(in.validate()).Details.([]apperr.FieldError)
		assert.Equal(t, "items", fields[0].Field)
	})

	t.Run("quantity beyond three decimals", func(t *testing.T) {
		in := orderInput("KAI-1", 1, domain.PaymentMethodCash)
		in.Items[0].Quantity = decimal.RequireFromString("1.0005")
		in.Subtotal = decimal.RequireFromString("100.05")
		in.Total = decimal.RequireFromString("150.05")

		fields := apperr.From(in.validate()).Details.([]apperr.FieldError)
		require.Len(t, fields, 1)
		assert.Equal(t, "items[0].quantity", fields[0].Field)
		assert.Equal(t, "must have at most 3 decimal places", fields[0].Message)
	})

	t.Run("unit price beyond cents", func(t *testing.T) {
		in := orderInput("KAI-1", 1, domain.PaymentMethodCash)
		in.Items[0].UnitPrice = decimal.RequireFromString("33.335")
		in.Subtotal = decimal.RequireFromString("100.01")
		in.Total = decimal.RequireFromString("150.01")

		fields := apperr.From(in.validate()).Details.([]apperr.FieldError)
		require.Len(t, fields, 1)
		assert.Equal(t, "items[0].unit_price", fields[0].Field)
	})

	t.Run("trailing zeros are fine", func(t *testing.T) {
		in := orderInput("KAI-1", 1, domain.PaymentMethodCash)
		in.Items[0].Quantity = decimal.RequireFromString("3.00000")
		in.Total = decimal.RequireFromString("350.0000")
		assert.NoError(t, in.validate())
	})

	t.Run("unknown payment method", func(t *testing.T) {
		in := orderInput("KAI-1", 1, domain.PaymentMethod("cheque"))
		assert.Equal(t, http.StatusBadRequest, statusOf(in.validate()))
	})
}

func TestCreateCashOrderAndCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, env.repo, "Yerba", "100.00", "10")

	order, err := env.orders.Create(ctx, orderInput("KAI-1001", product.ID, domain.PaymentMethodCash), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "ana@example.com", order.CustomerEmail)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].Subtotal.Equal(decimal.RequireFromString("300")))
	assert.True(t, testutil.ProductStock(t, env.repo, product.ID).Equal(decimal.NewFromInt(7)))

	entries := cashEntries(t, env.repo, order.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.CashEntryIncome, entries[0].Type)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("350")))
	assert.Equal(t, "Venta en efectivo - pedido KAI-1001", entries[0].Concept)

	cancelled, err := env.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.True(t, testutil.ProductStock(t, env.repo, product.ID).Equal(decimal.NewFromInt(10)))
	assert.Len(t, cashEntries(t, env.repo, order.ID), 1, "pending cancellation books no refund")

	events, err := env.repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventOrderCreated, events[0].EventType)
	assert.Equal(t, domain.EventOrderStatusChanged, events[1].EventType)
	assert.Equal(t, "KAI-1001", events[0].AggregateID)
}

func TestCancelPreparedOrderBooksRefund(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, env.repo, "Yerba", "100.00", "10")

	order, err := env.orders.Create(ctx, orderInput("KAI-1002", product.ID, domain.PaymentMethodTransfer), nil)
	require.NoError(t, err)
	assert.Empty(t, cashEntries(t, env.repo, order.ID))

	_, err = env.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPreparing, nil)
	require.NoError(t, err)

	actor := int64(7)
	_, err = env.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled, &actor)
	require.NoError(t, err)

	entries := cashEntries(t, env.repo, order.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.CashEntryExpense, entries[0].Type)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("350")))
	assert.Equal(t, domain.PaymentMethodTransfer, entries[0].PaymentMethod)
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, actor, *entries[0].UserID)
	assert.True(t, testutil.ProductStock(t, env.repo, product.ID).Equal(decimal.NewFromInt(10)))

	// cancelling again is a no-op
	_, err = env.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.Len(t, cashEntries(t, env.repo, order.ID), 1)
}

func TestCreateOrderFailuresWriteNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, env.repo, "Yerba", "100.00", "10")

	t.Run("validation", func(t *testing.T) {
		in := orderInput("KAI-2001", product.ID, domain.PaymentMethodCash)
		in.Total = decimal.RequireFromString("999")

		_, err := env.orders.Create(ctx, in, nil)
		assert.Equal(t, http.StatusBadRequest, statusOf(err))

		_, err = env.orders.GetByNumber(ctx, "KAI-2001")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		in := orderInput("KAI-2002", product.ID, domain.PaymentMethodCash)
		in.Items[0].Quantity = decimal.NewFromInt(20)
		in.Subtotal = decimal.RequireFromString("2000")
		in.Total = decimal.RequireFromString("2050")

		_, err := env.orders.Create(ctx, in, nil)
		require.ErrorIs(t, err, domain.ErrInsufficientStock)
		assert.Equal(t, http.StatusConflict, statusOf(err))

		_, err = env.orders.GetByNumber(ctx, "KAI-2002")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.True(t, testutil.ProductStock(t, env.repo, product.ID).Equal(decimal.NewFromInt(10)))

		customers, err := NewCustomerService(env.repo, nil).List(ctx, domain.CustomerFilter{})
		require.NoError(t, err)
		assert.Empty(t, customers)

		events, err := env.repo.GetUnprocessedEvents(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := env.orders.Create(ctx, orderInput("KAI-2003", 999999, domain.PaymentMethodCash), nil)
		assert.Equal(t, http.StatusNotFound, statusOf(err))
	})
}

func TestCreateOrderDuplicateNumber(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, env.repo, "Yerba", "100.00", "10")

	_, err := env.orders.Create(ctx, orderInput("KAI-3001", product.ID, domain.PaymentMethodCash), nil)
	require.NoError(t, err)

	_, err = env.orders.Create(ctx, orderInput("KAI-3001", product.ID, domain.PaymentMethodCash), nil)
	assert.Equal(t, http.StatusConflict, statusOf(err))
	assert.True(t, testutil.ProductStock(t, env.repo, product.ID).Equal(decimal.NewFromInt(7)))
}

func TestUpdateStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, env.repo, "Yerba", "100.00", "10")

	order, err := env.orders.Create(ctx, orderInput("KAI-4001", product.ID, domain.PaymentMethodCash), nil)
	require.NoError(t, err)

	_, err = env.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusDelivered, nil)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, http.StatusConflict, statusOf(err))

	_, err = env.orders.UpdateStatus(ctx, order.ID, domain.OrderStatus("perdido"), nil)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	for _, next := range []domain.OrderStatus{domain.OrderStatusPreparing, domain.OrderStatusShipped, domain.OrderStatusDelivered} {
		updated, err := env.orders.UpdateStatus(ctx, order.ID, next, nil)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	_, err = env.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.orders.UpdateStatus(ctx, 999999, domain.OrderStatusPreparing, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateOrderInvalidatesCachedProducts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, env.repo, "Yerba", "100.00", "10")

	require.NoError(t, env.catalog.cache.Set(ctx, product))
	require.True(t, env.redis.Exists(fmt.Sprintf("product:%d", product.ID)))

	_, err := env.orders.Create(ctx, orderInput("KAI-5001", product.ID, domain.PaymentMethodCash), nil)
	require.NoError(t, err)
	assert.False(t, env.redis.Exists(fmt.Sprintf("product:%d", product.ID)))

	got, err := env.catalog.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, got.Stock.Equal(decimal.NewFromInt(7)))
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	s := NewOrderService(nil, nil)
	status := domain.OrderStatus("perdido")
	_, err := s.List(context.Background(), domain.OrderFilter{Status: &status})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

type line struct {
	productID int64
	price     string
	quantity  string
}

// multiLineInput builds a balanced order with no shipping cost.
func multiLineInput(number string, lines ...line) CreateOrderInput {
	in := orderInput(number, 0, domain.PaymentMethodTransfer)
	in.Items = nil
	subtotal := decimal.Zero
	for _, l := range lines {
		item := OrderItemInput{
			ProductID:   l.productID,
			ProductName: fmt.Sprintf("product %d", l.productID),
			UnitPrice:   decimal.RequireFromString(l.price),
			Quantity:    decimal.RequireFromString(l.quantity),
		}
		in.Items = append(in.Items, item)
		subtotal = subtotal.Add(domain.LineSubtotal(item.Quantity, item.UnitPrice))
	}
	in.Subtotal = subtotal
	in.ShippingCost = decimal.Zero
	in.Total = subtotal
	return in
}

func TestCreateMultiProductOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	yerba := testutil.SeedProduct(t, env.repo, "Yerba", "100.00", "10")
	miel := testutil.SeedProduct(t, env.repo, "Miel", "45.50", "5")
	nueces := testutil.SeedProduct(t, env.repo, "Nueces", "12.99", "2.500")

	// listed out of id order, with yerba twice
	in := multiLineInput("KAI-8001",
		line{nueces.ID, "12.99", "0.750"},
		line{yerba.ID, "100.00", "1"},
		line{miel.ID, "45.50", "2"},
		line{yerba.ID, "100.00", "2"},
	)
	created, err := env.orders.Create(ctx, in, nil)
	require.NoError(t, err)

	order, err := env.orders.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, order.Items, 4, "one line per entry")

	sum := decimal.Zero
	for _, item := range order.Items {
		assert.True(t, item.Subtotal.Equal(domain.LineSubtotal(item.Quantity, item.UnitPrice)))
		sum = sum.Add(item.Subtotal)
	}
	assert.True(t, sum.Equal(order.Subtotal), "lines %s subtotal %s", sum, order.Subtotal)
	assert.True(t, order.Subtotal.Add(order.ShippingCost).Equal(order.Total))
	assert.True(t, order.Total.Equal(decimal.RequireFromString("400.74")), "total %s", order.Total)

	assert.True(t, testutil.ProductStock(t, env.repo, yerba.ID).Equal(decimal.NewFromInt(7)))
	assert.True(t, testutil.ProductStock(t, env.repo, miel.ID).Equal(decimal.NewFromInt(3)))
	assert.True(t, testutil.ProductStock(t, env.repo, nueces.ID).Equal(decimal.RequireFromString("1.75")))

	_, err = env.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.True(t, testutil.ProductStock(t, env.repo, yerba.ID).Equal(decimal.NewFromInt(10)))
	assert.True(t, testutil.ProductStock(t, env.repo, miel.ID).Equal(decimal.NewFromInt(5)))
	assert.True(t, testutil.ProductStock(t, env.repo, nueces.ID).Equal(decimal.RequireFromString("2.5")))
}

func TestCreateOrderRollsBackEarlierLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	yerba := testutil.SeedProduct(t, env.repo, "Yerba", "100.00", "10")
	miel := testutil.SeedProduct(t, env.repo, "Miel", "45.50", "1")

	// yerba has the lower id, so its stock is taken before miel fails
	in := multiLineInput("KAI-8002",
		line{miel.ID, "45.50", "5"},
		line{yerba.ID, "100.00", "2"},
	)
	_, err := env.orders.Create(ctx, in, nil)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.True(t, testutil.ProductStock(t, env.repo, yerba.ID).Equal(decimal.NewFromInt(10)))
	assert.True(t, testutil.ProductStock(t, env.repo, miel.ID).Equal(decimal.NewFromInt(1)))
	_, err = env.orders.GetByNumber(ctx, "KAI-8002")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFractionalQuantityCancelRestoresExactStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	granola := testutil.SeedProduct(t, env.repo, "Granola", "100.00", "10")

	order, err := env.orders.Create(ctx, multiLineInput("KAI-8003", line{granola.ID, "100.00", "1.250"}), nil)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].Quantity.Equal(decimal.RequireFromString("1.25")))
	assert.True(t, order.Items[0].Subtotal.Equal(decimal.NewFromInt(125)))
	assert.True(t, testutil.ProductStock(t, env.repo, granola.ID).Equal(decimal.RequireFromString("8.75")))

	_, err = env.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.True(t, testutil.ProductStock(t, env.repo, granola.ID).Equal(decimal.NewFromInt(10)))

	// a quantity the stock column would round is refused before any write
	_, err = env.orders.Create(ctx, multiLineInput("KAI-8004", line{granola.ID, "100.00", "1.0005"}), nil)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
	assert.True(t, testutil.ProductStock(t, env.repo, granola.ID).Equal(decimal.NewFromInt(10)))
}

func TestCreateForCustomer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, env.repo, "Yerba", "100.00", "10")

	first, err := env.orders.Create(ctx, orderInput("KAI-7001", product.ID, domain.PaymentMethodTransfer), nil)
	require.NoError(t, err)
	anaID := first.CustomerID

	t.Run("own record", func(t *testing.T) {
		order, err := env.orders.CreateForCustomer(ctx, orderInput("KAI-7002", product.ID, domain.PaymentMethodGateway), anaID, nil)
		require.NoError(t, err)
		assert.Equal(t, anaID, order.CustomerID)
	})

	t.Run("someone else's email", func(t *testing.T) {
		in := orderInput("KAI-7003", product.ID, domain.PaymentMethodGateway)
		in.Customer.Email = "eve@example.com"
		in.Customer.Name = "Eve"

		_, err := env.orders.CreateForCustomer(ctx, in, anaID, nil)
		assert.Equal(t, http.StatusForbidden, statusOf(err))
		_, err = env.orders.GetByNumber(ctx, "KAI-7003")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("another customer's record", func(t *testing.T) {
		other, err := NewCustomerService(env.repo, nil).Create(ctx, CustomerInput{
			Name: "Eve", Surname: "Ruiz", Email: "eve@example.com", Phone: "1155550001",
		})
		require.NoError(t, err)

		// Eve's token with Ana's email must not rewrite Ana's record
		in := orderInput("KAI-7004", product.ID, domain.PaymentMethodGateway)
		in.Customer.Name = "Hijacked"
		_, err = env.orders.CreateForCustomer(ctx, in, other.ID, nil)
		assert.Equal(t, http.StatusForbidden, statusOf(err))

		ana, err := NewCustomerService(env.repo, nil).Get(ctx, anaID)
		require.NoError(t, err)
		assert.Equal(t, "Ana", ana.Name)
	})

	t.Run("cash is staff only", func(t *testing.T) {
		_, err := env.orders.CreateForCustomer(ctx, orderInput("KAI-7005", product.ID, domain.PaymentMethodCash), anaID, nil)
		assert.Equal(t, http.StatusForbidden, statusOf(err))
		_, err = env.orders.GetByNumber(ctx, "KAI-7005")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown customer", func(t *testing.T) {
		_, err := env.orders.CreateForCustomer(ctx, orderInput("KAI-7006", product.ID, domain.PaymentMethodGateway), 999999, nil)
		assert.Equal(t, http.StatusForbidden, statusOf(err))
	})
}
