// Package testutil starts the containers shared by package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/repository"
)

// PostgresCredentials starts a PostgreSQL container for the test and returns
// credentials pointing at it. Tests are skipped under -short.
func PostgresCredentials(t *testing.T) *repository.Credentials {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return &repository.Credentials{
		Host:             host,
		Port:             port.Int(),
		User:             "testuser",
		Password:         "testpass",
		DBName:           "testdb",
		MaxOpenConns:     10,
		QueueLimit:       10,
		AcquireTimeout:   5 * time.Second,
		StatementTimeout: 10 * time.Second,
	}
}

// OpenRepository connects with cred and applies migrations.
func OpenRepository(t *testing.T, cred *repository.Credentials) *repository.Repository {
	t.Helper()
	repo, err := repository.NewRepository(cred)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations())
	return repo
}

func StartPostgres(t *testing.T) *repository.Repository {
	t.Helper()
	return OpenRepository(t, PostgresCredentials(t))
}

// SeedProduct inserts an active product and returns it.
func SeedProduct(t *testing.T, repo *repository.Repository, name, price, stock string) *domain.Product {
	t.Helper()
	p := &domain.Product{
		Name:              name,
		Price:             decimal.RequireFromString(price),
		PricePerUnit:      true,
		Stock:             decimal.RequireFromString(stock),
		LowStockThreshold: decimal.NewFromInt(2),
		Formats:           []string{"unidad"},
		Active:            true,
	}
	err := repo.Do(context.Background(), func(q *repository.Queries) error {
		return q.CreateProduct(context.Background(), p)
	})
	require.NoError(t, err)
	return p
}

// ProductStock reads the current stock of a product.
func ProductStock(t *testing.T, repo *repository.Repository, id int64) decimal.Decimal {
	t.Helper()
	var p *domain.Product
	err := repo.Do(context.Background(), func(q *repository.Queries) error {
		var err error
		p, err = q.GetProduct(context.Background(), id)
		return err
	})
	require.NoError(t, err)
	return p.Stock
}
