package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate value")
	ErrReferenceMissing  = errors.New("referenced record does not exist")
	ErrValueTooLong      = errors.New("value too long")
	ErrConstraint        = errors.New("constraint violation")
	ErrInvalidInput      = errors.New("invalid input syntax")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPoolExhausted     = errors.New("database busy")
)
