package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// DiscountType distinguishes percentage from fixed-amount coupons.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Special is the local cache of a CRM coupon keyed by its code.
type Special struct {
	ID            string         `db:"id" json:"id"`
	CouponCode    string         `db:"coupon_code" json:"coupon_code"`
	CouponName    string         `db:"coupon_name" json:"coupon_name"`
	DiscountType  DiscountType   `db:"discount_type" json:"discount_type"`
	DiscountValue float64        `db:"discount_value" json:"discount_value"`
	CourseIDs     pq.StringArray `db:"course_ids" json:"course_ids"`
	ValidFrom     *time.Time     `db:"valid_from" json:"valid_from,omitempty"`
	ValidUntil    *time.Time     `db:"valid_until" json:"valid_until,omitempty"`
	Active        bool           `db:"active" json:"active"`
	CRMCouponID   *string        `db:"crm_coupon_id" json:"crm_coupon_id,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// NormalizeCouponCode returns the canonical uppercase form of a code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AppliesTo reports whether the allow-list is empty or names the course.
func (s Special) AppliesTo(courseID string) bool {
	if len(s.CourseIDs) == 0 {
		return true
	}
	for _, id := range s.CourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}

// Expired reports whether valid_until lies before now.
func (s Special) Expired(now time.Time) bool {
	return s.ValidUntil != nil && s.ValidUntil.Before(now)
}

// Started reports whether valid_from is absent or already reached.
func (s Special) Started(now time.Time) bool {
	return s.ValidFrom == nil || !s.ValidFrom.After(now)
}
