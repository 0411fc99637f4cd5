package service

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
)

func TestApplyDiscount(t *testing.T) {
	cases := []struct {
		name  string
		price int64
		kind  models.DiscountType
		value float64
		want  int64
	}{
		{"percentage", 10000, models.DiscountPercentage, 15, 8500},
		{"percentage rounds", 999, models.DiscountPercentage, 10, 899},
		{"fixed major units", 5000, models.DiscountFixed, 10, 4000},
		{"fixed clamps at zero", 500, models.DiscountFixed, 10, 0},
		{"negative percentage never raises price", 1000, models.DiscountPercentage, -20, 1000},
		{"unknown kind", 1000, models.DiscountType("bogus"), 50, 1000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ApplyDiscount(tc.price, tc.kind, tc.value))
		})
	}
}

func TestPricingServiceQuote(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	specials := &memSpecials{specials: []models.Special{
		{ID: "s1", CouponCode: "SAVE15", DiscountType: models.DiscountPercentage, DiscountValue: 15, Active: true},
		{ID: "s2", CouponCode: "ONLYC2", DiscountType: models.DiscountFixed, DiscountValue: 5, CourseIDs: pq.StringArray{"c2"}, Active: true},
		{ID: "s3", CouponCode: "OLD", DiscountType: models.DiscountFixed, DiscountValue: 5, ValidUntil: &past, Active: true},
		{ID: "s4", CouponCode: "SOON", DiscountType: models.DiscountFixed, DiscountValue: 5, ValidFrom: &future, Active: true},
		{ID: "s5", CouponCode: "OFF", DiscountType: models.DiscountFixed, DiscountValue: 5, Active: false},
	}}
	svc := NewPricingService(specials)
	svc.now = func() time.Time { return now }

	course := &models.Course{ID: "c1", Number: "C1", PriceRegularCents: 10000}
	ctx := context.Background()

	quote, err := svc.Quote(ctx, course, " save15 ")
	require.NoError(t, err)
	assert.Equal(t, int64(8500), quote.PriceCents)
	assert.Equal(t, int64(10000), quote.BaseCents)
	assert.Equal(t, "SAVE15", quote.AppliedCode)

	for _, code := range []string{"", "ONLYC2", "OLD", "SOON", "OFF", "MISSING"} {
		quote, err := svc.Quote(ctx, course, code)
		require.NoError(t, err, code)
		assert.Equal(t, int64(10000), quote.PriceCents, code)
		assert.Empty(t, quote.AppliedCode, code)
	}
}

func TestPricingServiceUsesDiscountedListPrice(t *testing.T) {
	svc := NewPricingService(&memSpecials{})
	discounted := int64(7500)
	quote, err := svc.Quote(context.Background(), &models.Course{ID: "c1", PriceRegularCents: 9000, PriceDiscountCents: &discounted}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(7500), quote.PriceCents)
}
