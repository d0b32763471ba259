package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/auth"
)

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid path parameter", apperr.FieldError{Field: name, Message: "must be a positive integer"})
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation("invalid query parameter", apperr.FieldError{Field: name, Message: "must be a non-negative integer"})
	}
	return n, nil
}

func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return nil, apperr.Validation("invalid query parameter", apperr.FieldError{Field: name, Message: "must be a positive integer"})
	}
	return &n, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Validation("invalid query parameter", apperr.FieldError{Field: name, Message: "must be true or false"})
	}
	return &b, nil
}

func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperr.Validation("invalid query parameter", apperr.FieldError{Field: name, Message: "must be a date in 2006-01-02 format"})
	}
	return &d, nil
}

func paging(r *http.Request) (limit, offset int, err error) {
	if limit, err = queryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(r, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// identity returns the authenticated caller. Routes using it sit behind
// auth.Authenticate.
func identity(r *http.Request) (*auth.Identity, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return nil, apperr.Unauthorized("authentication required")
	}
	return id, nil
}

func actorID(r *http.Request) *int64 {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return nil
	}
	userID := id.UserID
	return &userID
}
