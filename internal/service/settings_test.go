package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/testutil"
)

func TestCoupons(t *testing.T) {
	repo := testutil.StartPostgres(t)
	ctx := context.Background()
	settings := NewSettingsService(repo)

	tomorrow := time.Now().Add(24 * time.Hour)
	created, err := settings.CreateCoupon(ctx, CouponInput{
		Code:            " verano10 ",
		DiscountPercent: decimal.NewFromInt(10),
		ExpiresAt:       &tomorrow,
	})
	require.NoError(t, err)
	assert.Equal(t, "VERANO10", created.Code)

	_, err = settings.CreateCoupon(ctx, CouponInput{Code: "VERANO10", DiscountPercent: decimal.NewFromInt(5)})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	_, err = settings.CreateCoupon(ctx, CouponInput{Code: "MUCHO", DiscountPercent: decimal.NewFromInt(150)})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	got, err := settings.ValidateCoupon(ctx, "verano10")
	require.NoError(t, err)
	assert.True(t, got.DiscountPercent.Equal(decimal.NewFromInt(10)))

	settings.now = func() time.Time { return tomorrow.Add(time.Hour) }
	_, err = settings.ValidateCoupon(ctx, "VERANO10")
	assert.Equal(t, http.StatusNotFound, statusOf(err))
	settings.now = time.Now

	require.NoError(t, settings.DeactivateCoupon(ctx, created.ID))
	_, err = settings.ValidateCoupon(ctx, "VERANO10")
	assert.Equal(t, http.StatusNotFound, statusOf(err))

	_, err = settings.ValidateCoupon(ctx, "NOEXISTE")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	coupons, err := settings.ListCoupons(ctx)
	require.NoError(t, err)
	assert.Len(t, coupons, 1)
}

func TestSystemConfig(t *testing.T) {
	repo := testutil.StartPostgres(t)
	ctx := context.Background()
	settings := NewSettingsService(repo)

	_, err := settings.PutConfig(ctx, "shipping_cost", ConfigInput{Value: "1500"})
	require.NoError(t, err)
	entry, err := settings.PutConfig(ctx, "shipping_cost", ConfigInput{Value: "1800"})
	require.NoError(t, err)
	assert.Equal(t, "1800", entry.Value)

	got, err := settings.GetConfig(ctx, "shipping_cost")
	require.NoError(t, err)
	assert.Equal(t, "1800", got.Value)

	_, err = settings.GetConfig(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = settings.PutConfig(ctx, "  ", ConfigInput{Value: "x"})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	entries, err := settings.ListConfig(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestContactMessages(t *testing.T) {
	repo := testutil.StartPostgres(t)
	ctx := context.Background()
	contact := NewContactService(repo)

	_, err := contact.Submit(ctx, ContactInput{Name: "Ana", Email: "bad", Message: "hola"})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	m, err := contact.Submit(ctx, ContactInput{Name: "Ana", Email: "Ana@Example.com", Message: "¿Hacen envíos a Rosario?"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", m.Email)

	unread, err := contact.List(ctx, true, 0, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	require.NoError(t, contact.MarkRead(ctx, m.ID))
	unread, err = contact.List(ctx, true, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := contact.List(ctx, false, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Read)

	assert.ErrorIs(t, contact.MarkRead(ctx, 424242), domain.ErrNotFound)
}

func TestManualCashEntries(t *testing.T) {
	repo := testutil.StartPostgres(t)
	ctx := context.Background()
	cash := NewCashService(repo)
	actor := int64(3)

	entry, err := cash.Create(ctx, CashEntryInput{
		Type:          domain.CashEntryExpense,
		Concept:       "Compra de bolsas",
		Amount:        decimal.RequireFromString("1250.75"),
		PaymentMethod: domain.PaymentMethodCash,
		EntryDate:     "2020-01-15",
	}, &actor)
	require.NoError(t, err)
	assert.Equal(t, "2020-01-15", entry.EntryDate.Format("2006-01-02"))

	today, err := cash.Create(ctx, CashEntryInput{
		Type:    domain.CashEntryIncome,
		Concept: "Aporte",
		Amount:  decimal.NewFromInt(100),
	}, nil)
	require.NoError(t, err)
	assert.False(t, today.EntryDate.IsZero())

	for _, in := range []CashEntryInput{
		{Type: "otro", Concept: "x", Amount: decimal.NewFromInt(1)},
		{Type: domain.CashEntryIncome, Concept: "", Amount: decimal.NewFromInt(1)},
		{Type: domain.CashEntryIncome, Concept: "x", Amount: decimal.Zero},
		{Type: domain.CashEntryIncome, Concept: "x", Amount: decimal.NewFromInt(1), EntryDate: "15/01/2020"},
	} {
		_, err := cash.Create(ctx, in, nil)
		assert.Equal(t, http.StatusBadRequest, statusOf(err))
	}

	missingOrder := int64(424242)
	_, err = cash.Create(ctx, CashEntryInput{Type: domain.CashEntryIncome, Concept: "x", Amount: decimal.NewFromInt(1), OrderID: &missingOrder}, nil)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	expense := domain.CashEntryExpense
	entries, err := cash.List(ctx, domain.CashFilter{Type: &expense})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Compra de bolsas", entries[0].Concept)

	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)
	entries, err = cash.List(ctx, domain.CashFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = cash.List(ctx, domain.CashFilter{From: &to, To: &from})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}
