package billing

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"skyview/api/internal/models"
	"skyview/api/internal/store"
)

func newTestService() (*Service, *store.Memory) {
	records := store.NewMemory()
	return NewService(records, zerolog.Nop()), records
}

func TestComputeFinalAmount(t *testing.T) {
	got, err := ComputeFinalAmount(1000, 20)
	require.NoError(t, err)
	require.Equal(t, float64(800), got)

	got, err = ComputeFinalAmount(1000, 0)
	require.NoError(t, err)
	require.Equal(t, float64(1000), got)

	got, err = ComputeFinalAmount(1000, 100)
	require.NoError(t, err)
	require.Equal(t, float64(0), got)

	got, err = ComputeFinalAmount(999.99, 33)
	require.NoError(t, err)
	require.Equal(t, 669.99, got, "rounded to cents")
}

func TestComputeFinalAmountRejectsBadInput(t *testing.T) {
	_, err := ComputeFinalAmount(-1, 10)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = ComputeFinalAmount(1000, -5)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = ComputeFinalAmount(1000, 150)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestResolveCoupon(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateCoupon(ctx, "WELCOME20", 20, "twenty percent off")
	require.NoError(t, err)
	_, err = svc.CreateCoupon(ctx, "NOOP", 0, "zero percent, still a coupon")
	require.NoError(t, err)

	discount, found, err := svc.ResolveCoupon(ctx, "welcome20")
	require.NoError(t, err)
	require.True(t, found, "lookup is case-insensitive")
	require.Equal(t, float64(20), discount)

	discount, found, err = svc.ResolveCoupon(ctx, "NOOP")
	require.NoError(t, err)
	require.True(t, found, "a real 0% coupon resolves as found")
	require.Equal(t, float64(0), discount)

	_, found, err = svc.ResolveCoupon(ctx, "MISSING")
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = svc.ResolveCoupon(ctx, "")
	require.NoError(t, err)
	require.False(t, found)
}

func TestResolveCouponIgnoresUnavailable(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	coupon, err := svc.CreateCoupon(ctx, "FALL10", 10, "autumn promo")
	require.NoError(t, err)
	require.NoError(t, svc.SetAvailability(ctx, coupon.ID, false))

	_, found, err := svc.ResolveCoupon(ctx, "FALL10")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, svc.SetAvailability(ctx, coupon.ID, true))
	discount, found, err := svc.ResolveCoupon(ctx, "FALL10")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, float64(10), discount)
}

func TestCreateCouponRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateCoupon(ctx, "ONCE", 5, "")
	require.NoError(t, err)

	_, err = svc.CreateCoupon(ctx, "once", 5, "")
	require.Error(t, err, "codes are normalized before the uniqueness check")
}

func TestCreateCouponValidatesDiscount(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateCoupon(context.Background(), "BAD", 120, "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecordPayment(t *testing.T) {
	svc, records := newTestService()
	ctx := context.Background()

	paidAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return paidAt }

	payment, err := svc.RecordPayment(ctx, "bo@example.com", "April 2026", 1800, 20)
	require.NoError(t, err)
	require.Equal(t, float64(1440), payment.FinalAmount)
	require.Equal(t, float64(1800), payment.Rent)
	require.Equal(t, float64(20), payment.Discount)
	require.True(t, payment.Date.Equal(paidAt))
	require.Regexp(t, `^TXN-`, payment.TransactionID)

	second, err := svc.RecordPayment(ctx, "bo@example.com", "April 2026", 1800, 20)
	require.NoError(t, err)
	require.NotEqual(t, payment.TransactionID, second.TransactionID)

	docs, err := records.QueryWhere(ctx, models.CollectionPayments, store.All())
	require.NoError(t, err)
	require.Len(t, docs, 2, "payments are append-only")
}

func TestRecordPaymentRejectsBadInput(t *testing.T) {
	svc, records := newTestService()

	_, err := svc.RecordPayment(context.Background(), "bo@example.com", "April 2026", -50, 0)
	require.ErrorIs(t, err, ErrInvalidInput)

	docs, err := records.QueryWhere(context.Background(), models.CollectionPayments, store.All())
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestListPaymentsNewestFirstPerPayer(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(24 * time.Hour)
		return clock
	}

	_, err := svc.RecordPayment(ctx, "bo@example.com", "January 2026", 1800, 0)
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, "other@example.com", "January 2026", 1500, 0)
	require.NoError(t, err)
	latest, err := svc.RecordPayment(ctx, "bo@example.com", "February 2026", 1800, 10)
	require.NoError(t, err)

	payments, err := svc.ListPayments(ctx, "bo@example.com")
	require.NoError(t, err)
	require.Len(t, payments, 2, "only the payer's own history")
	require.Equal(t, latest.TransactionID, payments[0].TransactionID)
}

func TestListCoupons(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	active, err := svc.CreateCoupon(ctx, "ACTIVE", 15, "")
	require.NoError(t, err)
	retired, err := svc.CreateCoupon(ctx, "RETIRED", 30, "")
	require.NoError(t, err)
	require.NoError(t, svc.SetAvailability(ctx, retired.ID, false))

	visible, err := svc.ListCoupons(ctx, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, active.Code, visible[0].Code)

	all, err := svc.ListCoupons(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 2, "disabled coupons stay stored")
}
