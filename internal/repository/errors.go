package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

// translateError maps PostgreSQL error codes onto domain sentinels, keeping the
// driver error in the chain.
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505":
		return fmt.Errorf("%w (%s): %w", domain.ErrDuplicate, pqErr.Constraint, err)
	case "23503":
		return fmt.Errorf("%w (%s): %w", domain.ErrReferenceMissing, pqErr.Constraint, err)
	case "22001":
		return fmt.Errorf("%w: %w", domain.ErrValueTooLong, err)
	case "23514":
		return fmt.Errorf("%w (%s): %w", domain.ErrConstraint, pqErr.Constraint, err)
	case "22P02":
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return err
}

// wrap annotates err with op after translating it.
func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, translateError(err))
}

// rowError turns sql.ErrNoRows into a not-found error for entity.
func rowError(entity, op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFoundEntity(entity)
	}
	return wrap(op, err)
}

func expectOne(entity string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.NotFoundEntity(entity)
	}
	return nil
}
