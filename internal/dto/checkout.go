package dto

// CheckoutRequest starts a hosted card checkout for a course.
type CheckoutRequest struct {
	CourseID     string `json:"courseId" validate:"required"`
	Modality     string `json:"modality" validate:"omitempty,oneof=in-person online"`
	StudentEmail string `json:"studentEmail" validate:"omitempty,email"`
	DiscountCode string `json:"discountCode" validate:"omitempty,max=64"`
	ScheduleID   string `json:"scheduleId"`
}

// CheckoutResponse carries the provider-hosted checkout link.
type CheckoutResponse struct {
	CheckoutURL     string `json:"checkoutUrl"`
	OrderID         string `json:"orderId"`
	PriceCents      int64  `json:"priceCents"`
	AppliedDiscount string `json:"appliedDiscount"`
}

// CheckoutNote is the opaque metadata echoed back by the provider on settlement.
// Field names are kept short because providers cap note length.
type CheckoutNote struct {
	CourseID     string `json:"courseId"`
	Modality     string `json:"modality,omitempty"`
	DiscountCode string `json:"discountCode,omitempty"`
	ScheduleID   string `json:"scheduleId,omitempty"`
}

// ZelleEnrollmentRequest registers a pending bank-transfer enrollment.
type ZelleEnrollmentRequest struct {
	CourseID     string `json:"courseId" validate:"required"`
	Modality     string `json:"modality" validate:"omitempty,oneof=in-person online"`
	StudentName  string `json:"studentName" validate:"required,max=200"`
	StudentEmail string `json:"studentEmail" validate:"required,email"`
	StudentPhone string `json:"studentPhone" validate:"omitempty,max=40"`
	DiscountCode string `json:"discountCode" validate:"omitempty,max=64"`
	ScheduleID   string `json:"scheduleId"`
}

// ZelleEnrollmentResponse gives the student what they need to pay and prove payment.
type ZelleEnrollmentResponse struct {
	ReceiptNumber    string `json:"receiptNumber"`
	TotalAmountCents int64  `json:"totalAmountCents"`
	CourseTitle      string `json:"courseTitle"`
	EnrollmentID     string `json:"enrollmentId"`
	ReceiptURL       string `json:"receiptUrl,omitempty"`
}
