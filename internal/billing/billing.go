// Package billing resolves coupon codes, computes discounted rent, and
// records payments. Coupon administration lives here too since it works
// the same collection.
package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"skyview/api/internal/ids"
	"skyview/api/internal/models"
	"skyview/api/internal/store"
)

// ErrInvalidInput reports malformed numeric input to the payment
// calculation: negative rent, or a discount outside 0..100.
var ErrInvalidInput = errors.New("rent must be non-negative and discount between 0 and 100")

type Service struct {
	records store.Store
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(records store.Store, log zerolog.Logger) *Service {
	return &Service{
		records: records,
		log:     log,
		now:     time.Now,
	}
}

// ResolveCoupon looks code up among available coupons. A missing or
// unavailable code is not an error: found=false and zero discount,
// distinct from a real coupon that happens to grant 0%.
func (s *Service) ResolveCoupon(ctx context.Context, code string) (discount float64, found bool, err error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return 0, false, nil
	}

	docs, err := s.records.QueryWhere(ctx, models.CollectionCoupons, store.Where("code", code))
	if err != nil {
		return 0, false, err
	}
	for _, doc := range docs {
		var coupon models.Coupon
		if err := doc.Decode(&coupon); err != nil {
			return 0, false, err
		}
		if coupon.IsAvailable {
			return coupon.Discount, true, nil
		}
	}
	return 0, false, nil
}

// ComputeFinalAmount applies a percentage discount to the base rent,
// rounded to two decimal places for display.
func ComputeFinalAmount(baseRent, discountPercent float64) (float64, error) {
	if baseRent < 0 || discountPercent < 0 || discountPercent > 100 {
		return 0, ErrInvalidInput
	}
	amount := baseRent * (1 - discountPercent/100)
	return math.Round(amount*100) / 100, nil
}

// RecordPayment appends a PaymentRecord with a fresh transaction id.
// Nothing else is mutated.
func (s *Service) RecordPayment(ctx context.Context, payerEmail, month string, baseRent, discountPercent float64) (models.PaymentRecord, error) {
	final, err := ComputeFinalAmount(baseRent, discountPercent)
	if err != nil {
		return models.PaymentRecord{}, err
	}

	payment := models.PaymentRecord{
		MemberEmail:   payerEmail,
		Month:         month,
		Rent:          baseRent,
		Discount:      discountPercent,
		FinalAmount:   final,
		Date:          s.now().UTC(),
		TransactionID: "TXN-" + ids.New(),
	}

	id, err := s.records.Create(ctx, models.CollectionPayments, payment)
	if err != nil {
		return models.PaymentRecord{}, err
	}
	payment.ID = id

	s.log.Info().
		Str("txn", payment.TransactionID).
		Str("payer", payerEmail).
		Float64("amount", final).
		Msg("payment recorded")

	return payment, nil
}

// ListPayments returns the payer's history, newest first.
func (s *Service) ListPayments(ctx context.Context, payerEmail string) ([]models.PaymentRecord, error) {
	docs, err := s.records.QueryWhere(ctx, models.CollectionPayments, store.Where("memberEmail", payerEmail))
	if err != nil {
		return nil, err
	}

	payments := make([]models.PaymentRecord, 0, len(docs))
	for _, doc := range docs {
		var payment models.PaymentRecord
		if err := doc.Decode(&payment); err != nil {
			return nil, err
		}
		payment.ID = doc.ID
		payments = append(payments, payment)
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].Date.After(payments[j].Date)
	})
	return payments, nil
}

// CreateCoupon stores a new coupon, available by default. Codes are
// normalized to upper case and must be unique among stored coupons.
func (s *Service) CreateCoupon(ctx context.Context, code string, discount float64, description string) (models.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return models.Coupon{}, fmt.Errorf("coupon code required")
	}
	if discount < 0 || discount > 100 {
		return models.Coupon{}, ErrInvalidInput
	}

	existing, err := s.records.QueryWhere(ctx, models.CollectionCoupons, store.Where("code", code))
	if err != nil {
		return models.Coupon{}, err
	}
	if len(existing) > 0 {
		return models.Coupon{}, fmt.Errorf("coupon code %s already exists", code)
	}

	coupon := models.Coupon{
		Code:        code,
		Discount:    discount,
		Description: description,
		IsAvailable: true,
	}
	id, err := s.records.Create(ctx, models.CollectionCoupons, coupon)
	if err != nil {
		return models.Coupon{}, err
	}
	coupon.ID = id
	return coupon, nil
}

// SetAvailability toggles whether a coupon can be applied. Coupons are
// never hard-deleted.
func (s *Service) SetAvailability(ctx context.Context, couponID string, available bool) error {
	return s.records.Update(ctx, models.CollectionCoupons, couponID, map[string]any{
		"isAvailable": available,
	})
}

// ListCoupons returns all coupons when includeUnavailable is set (the
// admin table), otherwise only the ones visitors may use.
func (s *Service) ListCoupons(ctx context.Context, includeUnavailable bool) ([]models.Coupon, error) {
	docs, err := s.records.QueryWhere(ctx, models.CollectionCoupons, store.All())
	if err != nil {
		return nil, err
	}

	coupons := make([]models.Coupon, 0, len(docs))
	for _, doc := range docs {
		var coupon models.Coupon
		if err := doc.Decode(&coupon); err != nil {
			return nil, err
		}
		if !includeUnavailable && !coupon.IsAvailable {
			continue
		}
		coupon.ID = doc.ID
		coupons = append(coupons, coupon)
	}
	sort.Slice(coupons, func(i, j int) bool { return coupons[i].Code < coupons[j].Code })
	return coupons, nil
}

// WatchCoupons feeds the admin coupon table with full snapshots.
func (s *Service) WatchCoupons(ctx context.Context, fn func([]models.Coupon)) (store.Subscription, error) {
	return s.records.Subscribe(ctx, models.CollectionCoupons, store.All(), func(docs []store.Document) {
		coupons := make([]models.Coupon, 0, len(docs))
		for _, doc := range docs {
			var coupon models.Coupon
			if err := doc.Decode(&coupon); err != nil {
				s.log.Warn().Err(err).Msg("coupon snapshot decode failed")
				return
			}
			coupon.ID = doc.ID
			coupons = append(coupons, coupon)
		}
		fn(coupons)
	})
}
