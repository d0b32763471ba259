package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"golang.org/x/sync/semaphore"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns int
	MaxIdleConns int
	// QueueLimit is how many callers may wait for a connection once all
	// MaxOpenConns are in use. Callers beyond that fail with ErrPoolExhausted.
	QueueLimit       int
	AcquireTimeout   time.Duration
	StatementTimeout time.Duration
}

// Repository owns the PostgreSQL pool. Every unit of work runs on one
// connection acquired through Do or InTx and released when it returns.
type Repository struct {
	db             *sql.DB
	gate           *semaphore.Weighted
	acquireTimeout time.Duration
}

func NewRepository(cred *Credentials) (*Repository, error) {
	sslMode := cred.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName,
		sslMode)
	if cred.StatementTimeout > 0 {
		// lib/pq forwards unknown keys as run-time parameters.
		psqlconn += fmt.Sprintf(" statement_timeout=%d", cred.StatementTimeout.Milliseconds())
	}

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	maxOpen := cred.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 20
	}
	maxIdle := cred.MaxIdleConns
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	acquireTimeout := cred.AcquireTimeout
	if acquireTimeout <= 0 {
		acquireTimeout = 5 * time.Second
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)
	log.Printf("Connected to postgres at %s:%d (max %d connections, queue %d)", cred.Host, cred.Port, maxOpen, cred.QueueLimit)

	return &Repository{
		db:             db,
		gate:           semaphore.NewWeighted(int64(maxOpen + cred.QueueLimit)),
		acquireTimeout: acquireTimeout,
	}, nil
}

func (r *Repository) RunMigrations() error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	// The driver pins one connection; migrating over our own *sql.Conn lets
	// m.Close hand it back without closing the pool.
	ctx := context.Background()
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("could not acquire migration connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{
		MigrationsTable: "kairos_schema_migrations",
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		conn.Close()
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.Do(ctx, func(q *Queries) error {
		var one int
		return q.q.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
	})
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// acquire takes a slot in the admission gate and then a pooled connection.
// The returned release func must be called exactly once.
func (r *Repository) acquire(ctx context.Context) (*sql.Conn, func(), error) {
	if !r.gate.TryAcquire(1) {
		return nil, nil, domain.ErrPoolExhausted
	}

	acquireCtx, cancel := context.WithTimeout(ctx, r.acquireTimeout)
	defer cancel()

	conn, err := r.db.Conn(acquireCtx)
	if err != nil {
		r.gate.Release(1)
		if ctx.Err() == nil && errors.Is(acquireCtx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w: timed out waiting for a connection", domain.ErrPoolExhausted)
		}
		return nil, nil, fmt.Errorf("acquire connection: %w", err)
	}

	release := func() {
		if errClose := conn.Close(); errClose != nil {
			logger.Errorf(ctx, "failed to release connection: %v", errClose)
		}
		r.gate.Release(1)
	}
	return conn, release, nil
}

// Do runs fn on a single connection outside of a transaction.
func (r *Repository) Do(ctx context.Context, fn func(q *Queries) error) error {
	conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return fn(&Queries{q: conn})
}

// InTx runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise.
func (r *Repository) InTx(ctx context.Context, fn func(q *Queries) error) error {
	conn, release, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if errFn := fn(&Queries{q: tx}); errFn != nil {
		if errRollback := tx.Rollback(); errRollback != nil && !errors.Is(errRollback, sql.ErrTxDone) {
			logger.Errorf(ctx, "rollback failed: %v", errRollback)
		}
		return errFn
	}

	if errCommit := tx.Commit(); errCommit != nil {
		return fmt.Errorf("commit transaction: %w", translateError(errCommit))
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries exposes the statements of every table. It is bound to either a
// connection or a transaction for the lifetime of one Do/InTx callback.
type Queries struct {
	q querier
}
