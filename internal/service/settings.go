package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/repository"
)

type CouponInput struct {
	Code            string          `json:"code" validate:"required,max=50"`
	DiscountPercent decimal.Decimal `json:"discount_percent" validate:"gt=0,lte=100"`
	Active          *bool           `json:"active"`
	ExpiresAt       *time.Time      `json:"expires_at"`
}

type ConfigInput struct {
	Value string `json:"value" validate:"max=10000"`
}

// SettingsService manages coupons and the key/value system configuration.
type SettingsService struct {
	store Store
	now   func() time.Time
}

func NewSettingsService(store Store) *SettingsService {
	return &SettingsService{store: store, now: time.Now}
}

func (s *SettingsService) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	var coupons []domain.Coupon
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		coupons, err = q.ListCoupons(ctx)
		return err
	})
	return coupons, err
}

func (s *SettingsService) CreateCoupon(ctx context.Context, in CouponInput) (*domain.Coupon, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	c := &domain.Coupon{
		Code:            normalizeCode(in.Code),
		DiscountPercent: in.DiscountPercent,
		Active:          true,
		ExpiresAt:       in.ExpiresAt,
	}
	if in.Active != nil {
		c.Active = *in.Active
	}

	err := s.store.Do(ctx, func(q *repository.Queries) error {
		return q.CreateCoupon(ctx, c)
	})
	if errors.Is(err, domain.ErrDuplicate) {
		return nil, apperr.Conflict("a coupon with that code already exists")
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SettingsService) DeactivateCoupon(ctx context.Context, id int64) error {
	return s.store.Do(ctx, func(q *repository.Queries) error {
		return q.DeactivateCoupon(ctx, id)
	})
}

// ValidateCoupon returns the coupon if it is active and not expired.
func (s *SettingsService) ValidateCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	var c *domain.Coupon
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		c, err = q.GetCouponByCode(ctx, normalizeCode(code))
		return err
	})
	if err != nil {
		return nil, err
	}
	if !c.Usable(s.now()) {
		return nil, apperr.NotFound("coupon is not valid or has expired")
	}
	return c, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *SettingsService) ListConfig(ctx context.Context) ([]domain.ConfigEntry, error) {
	var entries []domain.ConfigEntry
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		entries, err = q.ListConfig(ctx)
		return err
	})
	return entries, err
}

func (s *SettingsService) GetConfig(ctx context.Context, key string) (*domain.ConfigEntry, error) {
	var e *domain.ConfigEntry
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		e, err = q.GetConfig(ctx, key)
		return err
	})
	return e, err
}

func (s *SettingsService) PutConfig(ctx context.Context, key string, in ConfigInput) (*domain.ConfigEntry, error) {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > 100 {
		return nil, apperr.Validation("validation failed", apperr.FieldError{Field: "key", Message: "must be 1 to 100 characters"})
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var e *domain.ConfigEntry
	err := s.store.Do(ctx, func(q *repository.Queries) error {
		var err error
		e, err = q.PutConfig(ctx, key, in.Value)
		return err
	})
	return e, err
}
