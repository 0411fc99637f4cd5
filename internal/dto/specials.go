package dto

import "time"

// PublicSpecial is the shape exposed on the public specials endpoint.
type PublicSpecial struct {
	CouponCode    string   `json:"coupon_code"`
	CouponName    string   `json:"coupon_name"`
	DiscountType  string   `json:"discount_type"`
	DiscountValue float64  `json:"discount_value"`
	CourseIDs     []string `json:"course_ids"`
}

// SpecialsResponse wraps the public list.
type SpecialsResponse struct {
	Specials []PublicSpecial `json:"specials"`
}

// CreateSpecialRequest creates a coupon locally and in the CRM.
type CreateSpecialRequest struct {
	CouponCode    string     `json:"couponCode" validate:"required,max=64"`
	CouponName    string     `json:"couponName" validate:"required,max=200"`
	DiscountType  string     `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue float64    `json:"discountValue" validate:"required,gt=0"`
	CourseIDs     []string   `json:"courseIds"`
	ValidFrom     *time.Time `json:"validFrom"`
	ValidUntil    *time.Time `json:"validUntil"`
}
