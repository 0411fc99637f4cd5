package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
)

type specialLookup interface {
	FindActiveByCode(ctx context.Context, code string) (*models.Special, error)
}

// Quote is the authoritative price of a course.
type Quote struct {
	PriceCents  int64
	BaseCents   int64
	AppliedCode string
}

// PricingService computes course prices with optional coupons.
type PricingService struct {
	specials specialLookup
	now      func() time.Time
}

// NewPricingService constructs the pricing engine.
func NewPricingService(specials specialLookup) *PricingService {
	return &PricingService{specials: specials, now: time.Now}
}

// Quote prices course, applying code when it names an active special that
// covers the course and is inside its validity window. Unusable codes are
// ignored without error.
func (s *PricingService) Quote(ctx context.Context, course *models.Course, code string) (Quote, error) {
	base := course.ListPriceCents()
	if base < 0 {
		base = 0
	}
	quote := Quote{PriceCents: base, BaseCents: base}

	normalized := models.NormalizeCouponCode(code)
	if normalized == "" {
		return quote, nil
	}
	special, err := s.specials.FindActiveByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quote, nil
		}
		return quote, appErrors.Internal(err, "failed to look up discount code")
	}
	now := s.now()
	if !special.Active || !special.AppliesTo(course.ID) || special.Expired(now) || !special.Started(now) {
		return quote, nil
	}

	quote.PriceCents = ApplyDiscount(base, special.DiscountType, special.DiscountValue)
	quote.AppliedCode = strings.ToUpper(special.CouponCode)
	return quote, nil
}

// ApplyDiscount returns price after the discount, never below zero or above price.
// Percentage values are in percent; fixed values are in major units.
func ApplyDiscount(price int64, kind models.DiscountType, value float64) int64 {
	var out int64
	switch kind {
	case models.DiscountPercentage:
		out = int64(math.Round(float64(price) * (1 - value/100)))
	case models.DiscountFixed:
		out = price - int64(math.Round(value*100))
	default:
		out = price
	}
	if out < 0 {
		return 0
	}
	if out > price {
		return price
	}
	return out
}
