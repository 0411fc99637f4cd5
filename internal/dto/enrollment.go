package dto

import "github.com/noah-isme/academy-enrollment-api/internal/models"

// AdminCreateEnrollmentRequest is the manual-entry payload used by staff.
type AdminCreateEnrollmentRequest struct {
	CourseID           string `json:"courseId"`
	ScheduleID         string `json:"scheduleId"`
	StudentName        string `json:"studentName" validate:"required,max=200"`
	StudentEmail       string `json:"studentEmail" validate:"required,email"`
	StudentPhone       string `json:"studentPhone" validate:"omitempty,max=40"`
	Modality           string `json:"modality" validate:"omitempty,oneof=in-person online"`
	PaymentMethod      string `json:"paymentMethod" validate:"required,oneof=card crm_stripe zelle cash other"`
	Status             string `json:"status" validate:"omitempty,oneof=pending deposit_paid paid cancelled"`
	TotalAmountCents   *int64 `json:"totalAmountCents" validate:"omitempty,min=0"`
	DepositAmountCents int64  `json:"depositAmountCents" validate:"min=0"`
	AmountPaidCents    int64  `json:"amountPaidCents" validate:"min=0"`
	DiscountCode       string `json:"discountCode" validate:"omitempty,max=64"`
	Notes              string `json:"notes" validate:"omitempty,max=2000"`
}

// AdminUpdateEnrollmentRequest patches an enrollment; nil fields are left untouched.
// An empty ScheduleID string unlinks the schedule.
type AdminUpdateEnrollmentRequest struct {
	ScheduleID         *string `json:"scheduleId"`
	StudentName        *string `json:"studentName" validate:"omitempty,max=200"`
	StudentEmail       *string `json:"studentEmail" validate:"omitempty,email"`
	StudentPhone       *string `json:"studentPhone" validate:"omitempty,max=40"`
	Modality           *string `json:"modality" validate:"omitempty,oneof=in-person online"`
	PaymentMethod      *string `json:"paymentMethod" validate:"omitempty,oneof=card crm_stripe zelle cash other"`
	Status             *string `json:"status" validate:"omitempty,oneof=pending deposit_paid paid cancelled"`
	TotalAmountCents   *int64  `json:"totalAmountCents" validate:"omitempty,min=0"`
	DepositAmountCents *int64  `json:"depositAmountCents" validate:"omitempty,min=0"`
	AmountPaidCents    *int64  `json:"amountPaidCents" validate:"omitempty,min=0"`
	Notes              *string `json:"notes" validate:"omitempty,max=2000"`
}

// AttendanceRequest marks or clears attendance.
type AttendanceRequest struct {
	Attended bool `json:"attended"`
}

// EnrollmentMutationResponse reports the saved enrollment and any seat warning.
type EnrollmentMutationResponse struct {
	Enrollment  *models.Enrollment `json:"enrollment"`
	SeatWarning string             `json:"seatWarning,omitempty"`
}
