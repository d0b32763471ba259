package service

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/testutil"
)

type memFavorites struct {
	mu   sync.Mutex
	sets map[int64][]int64
}

func newMemFavorites() *memFavorites {
	return &memFavorites{sets: map[int64][]int64{}}
}

func (m *memFavorites) Get(_ context.Context, customerID int64) (*domain.Favorites, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := append([]int64{}, m.sets[customerID]...)
	return &domain.Favorites{CustomerID: customerID, ProductIDs: ids}, nil
}

func (m *memFavorites) Add(_ context.Context, customerID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.sets[customerID], productID) {
		m.sets[customerID] = append(m.sets[customerID], productID)
	}
	return nil
}

func (m *memFavorites) Remove(_ context.Context, customerID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[customerID] = slices.DeleteFunc(m.sets[customerID], func(id int64) bool { return id == productID })
	return nil
}

func TestCustomerCRUD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customers := NewCustomerService(env.repo, newMemFavorites())

	created, err := customers.Create(ctx, CustomerInput{Name: "Luis", Surname: "Pérez", Email: " Luis@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "luis@example.com", created.Email)
	assert.True(t, created.Registered)

	_, err = customers.Create(ctx, CustomerInput{Name: "Otro", Surname: "Pérez", Email: "LUIS@example.com"})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	updated, err := customers.Update(ctx, created.ID, CustomerInput{Name: "Luis", Surname: "Pérez", Email: "luis@example.com", City: "Córdoba"})
	require.NoError(t, err)
	assert.Equal(t, "Córdoba", updated.City)

	_, err = customers.Update(ctx, 424242, CustomerInput{Name: "X", Surname: "Y", Email: "x@example.com"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, customers.Delete(ctx, created.ID))
	got, err := customers.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	active, err := customers.List(ctx, domain.CustomerFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCustomerOrdersKeepSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customers := NewCustomerService(env.repo, newMemFavorites())
	product := testutil.SeedProduct(t, env.repo, "Yerba", "100.00", "10")

	order, err := env.orders.Create(ctx, orderInput("KAI-7001", product.ID, domain.PaymentMethodCash), nil)
	require.NoError(t, err)

	_, err = customers.Update(ctx, order.CustomerID, CustomerInput{Name: "Ana María", Surname: "García", Email: "ana@example.com"})
	require.NoError(t, err)

	orders, err := customers.Orders(ctx, order.CustomerID, 0, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Ana", orders[0].CustomerName)
	assert.Equal(t, "Ana María", orders[0].CurrentCustomerName)
	assert.Len(t, orders[0].Items, 1)

	_, err = customers.Orders(ctx, 424242, 0, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFavorites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customers := NewCustomerService(env.repo, newMemFavorites())
	product := testutil.SeedProduct(t, env.repo, "Yerba", "100.00", "10")

	c, err := customers.Create(ctx, CustomerInput{Name: "Eva", Surname: "Sosa", Email: "eva@example.com"})
	require.NoError(t, err)

	fav, err := customers.Favorites(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, fav.ProductIDs)

	fav, err = customers.AddFavorite(ctx, c.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{product.ID}, fav.ProductIDs)

	_, err = customers.AddFavorite(ctx, c.ID, 424242)
	assert.Equal(t, http.StatusNotFound, statusOf(err))

	_, err = customers.AddFavorite(ctx, 424242, product.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(err))

	fav, err = customers.RemoveFavorite(ctx, c.ID, product.ID)
	require.NoError(t, err)
	assert.Empty(t, fav.ProductIDs)
}
