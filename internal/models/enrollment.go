package models

import "time"

// EnrollmentStatus represents the payment lifecycle of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusPending     EnrollmentStatus = "pending"
	EnrollmentStatusDepositPaid EnrollmentStatus = "deposit_paid"
	EnrollmentStatusPaid        EnrollmentStatus = "paid"
	EnrollmentStatusCancelled   EnrollmentStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusPending, EnrollmentStatusDepositPaid, EnrollmentStatusPaid, EnrollmentStatusCancelled:
		return true
	}
	return false
}

// HoldsSeat reports whether an enrollment in this status occupies a seat.
func (s EnrollmentStatus) HoldsSeat() bool {
	return s != EnrollmentStatusCancelled
}

// Modality is how the student attends.
type Modality string

const (
	ModalityInPerson Modality = "in-person"
	ModalityOnline   Modality = "online"
)

// NormalizeModality maps loose client input to a Modality, defaulting to in-person.
func NormalizeModality(raw string) Modality {
	switch raw {
	case "online", "ONLINE", "Online", "virtual":
		return ModalityOnline
	default:
		return ModalityInPerson
	}
}

// PaymentMethod identifies the rail that settled the enrollment.
type PaymentMethod string

const (
	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodCRMStripe PaymentMethod = "crm_stripe"
	PaymentMethodZelle     PaymentMethod = "zelle"
	PaymentMethodCash      PaymentMethod = "cash"
	PaymentMethodOther     PaymentMethod = "other"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCRMStripe, PaymentMethodZelle, PaymentMethodCash, PaymentMethodOther:
		return true
	}
	return false
}

// NeedsReceipt reports whether the method settles outside the automated provider.
func (m PaymentMethod) NeedsReceipt() bool {
	return m == PaymentMethodZelle || m == PaymentMethodCash
}

// Enrollment is the authoritative record of a purchase attempt.
type Enrollment struct {
	ID                 string           `db:"id" json:"id"`
	CourseID           *string          `db:"course_id" json:"course_id,omitempty"`
	CourseScheduleID   *string          `db:"course_schedule_id" json:"course_schedule_id,omitempty"`
	StudentName        string           `db:"student_name" json:"student_name"`
	StudentEmail       string           `db:"student_email" json:"student_email"`
	StudentPhone       string           `db:"student_phone" json:"student_phone"`
	Modality           Modality         `db:"modality" json:"modality"`
	PaymentMethod      PaymentMethod    `db:"payment_method" json:"payment_method"`
	TotalAmountCents   int64            `db:"total_amount_cents" json:"total_amount_cents"`
	DepositAmountCents int64            `db:"deposit_amount_cents" json:"deposit_amount_cents"`
	AmountPaidCents    int64            `db:"amount_paid_cents" json:"amount_paid_cents"`
	DiscountCode       string           `db:"discount_code" json:"discount_code"`
	ProviderOrderID    *string          `db:"provider_order_id" json:"provider_order_id,omitempty"`
	CRMOrderID         *string          `db:"crm_order_id" json:"crm_order_id,omitempty"`
	Status             EnrollmentStatus `db:"status" json:"status"`
	AccessCode         string           `db:"access_code" json:"access_code"`
	ReceiptNumber      *string          `db:"receipt_number" json:"receipt_number,omitempty"`
	Attended           bool             `db:"attended" json:"attended"`
	AttendedAt         *time.Time       `db:"attended_at" json:"attended_at,omitempty"`
	Notes              string           `db:"notes" json:"notes"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with course and schedule info.
type EnrollmentDetail struct {
	Enrollment
	CourseTitle       *string    `db:"course_title" json:"course_title,omitempty"`
	CourseNumber      *string    `db:"course_num" json:"course_num,omitempty"`
	ScheduleStartDate *time.Time `db:"schedule_start_date" json:"schedule_start_date,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	CourseID      string
	ScheduleID    string
	Status        EnrollmentStatus
	PaymentMethod PaymentMethod
	Search        string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
