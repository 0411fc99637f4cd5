package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
)

const enrollmentColumns = `id, course_id, course_schedule_id, student_name, student_email, student_phone,
    modality, payment_method, total_amount_cents, deposit_amount_cents, amount_paid_cents, discount_code,
    provider_order_id, crm_order_id, status, access_code, receipt_number, attended, attended_at, notes,
    created_at, updated_at`

const enrollmentDetailSelect = `SELECT e.id, e.course_id, e.course_schedule_id, e.student_name, e.student_email,
    e.student_phone, e.modality, e.payment_method, e.total_amount_cents, e.deposit_amount_cents,
    e.amount_paid_cents, e.discount_code, e.provider_order_id, e.crm_order_id, e.status, e.access_code,
    e.receipt_number, e.attended, e.attended_at, e.notes, e.created_at, e.updated_at,
    c.title AS course_title, c.num AS course_num, cs.start_date AS schedule_start_date
    FROM enrollments e
    LEFT JOIN courses c ON c.id = e.course_id
    LEFT JOIN course_schedule cs ON cs.id = e.course_schedule_id`

const enrollmentInsert = `INSERT INTO enrollments (id, course_id, course_schedule_id, student_name, student_email,
    student_phone, modality, payment_method, total_amount_cents, deposit_amount_cents, amount_paid_cents,
    discount_code, provider_order_id, crm_order_id, status, access_code, receipt_number, attended, attended_at,
    notes, created_at, updated_at)
    VALUES (:id, :course_id, :course_schedule_id, :student_name, :student_email, :student_phone, :modality,
    :payment_method, :total_amount_cents, :deposit_amount_cents, :amount_paid_cents, :discount_code,
    :provider_order_id, :crm_order_id, :status, :access_code, :receipt_number, :attended, :attended_at,
    :notes, :created_at, :updated_at)`

// EnrollmentRepository manages persistence for enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs a new repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by id.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	return r.findOne(ctx, "id::text = $1", id, "find enrollment")
}

// FindByProviderOrderID returns the enrollment materialized for a provider order.
func (r *EnrollmentRepository) FindByProviderOrderID(ctx context.Context, orderID string) (*models.Enrollment, error) {
	return r.findOne(ctx, "provider_order_id = $1", orderID, "find enrollment by provider order")
}

// FindByCRMOrderID returns the enrollment materialized for a CRM order.
func (r *EnrollmentRepository) FindByCRMOrderID(ctx context.Context, orderID string) (*models.Enrollment, error) {
	return r.findOne(ctx, "crm_order_id = $1", orderID, "find enrollment by crm order")
}

func (r *EnrollmentRepository) findOne(ctx context.Context, where string, arg interface{}, op string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE ` + where + ` LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment joined with its course and schedule.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.id::text = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment detail: %w", err)
	}
	return &detail, nil
}

// Create inserts an enrollment. When the row carries a provider or CRM order id,
// a conflict on that id is absorbed and created is false.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) (created bool, err error) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now

	query := enrollmentInsert
	switch {
	case enrollment.ProviderOrderID != nil:
		query += ` ON CONFLICT (provider_order_id) WHERE provider_order_id IS NOT NULL DO NOTHING`
	case enrollment.CRMOrderID != nil:
		query += ` ON CONFLICT (crm_order_id) WHERE crm_order_id IS NOT NULL DO NOTHING`
	}
	query += ` RETURNING id`

	bound, args, err := sqlx.Named(query, enrollment)
	if err != nil {
		return false, fmt.Errorf("bind enrollment insert: %w", err)
	}
	var id string
	if err := r.db.QueryRowxContext(ctx, r.db.Rebind(bound), args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("create enrollment: %w", err)
	}
	return true, nil
}

// Update persists the mutable columns of an enrollment.
func (r *EnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET course_id = :course_id, course_schedule_id = :course_schedule_id,
        student_name = :student_name, student_email = :student_email, student_phone = :student_phone,
        modality = :modality, payment_method = :payment_method, total_amount_cents = :total_amount_cents,
        deposit_amount_cents = :deposit_amount_cents, amount_paid_cents = :amount_paid_cents,
        discount_code = :discount_code, status = :status, receipt_number = :receipt_number,
        attended = :attended, attended_at = :attended_at, notes = :notes, updated_at = :updated_at
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, enrollment)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAttendance sets the attended flag and timestamp.
func (r *EnrollmentRepository) MarkAttendance(ctx context.Context, id string, attended bool, at *time.Time) error {
	const query = `UPDATE enrollments SET attended = $2, attended_at = $3, updated_at = $4 WHERE id::text = $1`
	res, err := r.db.ExecContext(ctx, query, id, attended, at, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark attendance: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an enrollment and returns the removed row.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `DELETE FROM enrollments WHERE id::text = $1 RETURNING ` + enrollmentColumns
	var removed models.Enrollment
	if err := r.db.GetContext(ctx, &removed, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("delete enrollment: %w", err)
	}
	return &removed, nil
}

// FindForStudent returns the student's enrollments matching email and access code
// that are in a paid state.
func (r *EnrollmentRepository) FindForStudent(ctx context.Context, email, accessCode string) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + `
        WHERE LOWER(e.student_email) = LOWER($1) AND e.access_code = $2
          AND e.status IN ('paid', 'deposit_paid')
        ORDER BY e.created_at DESC`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, email, accessCode); err != nil {
		return nil, fmt.Errorf("find student enrollments: %w", err)
	}
	return details, nil
}

// ListByEmail returns every paid-state enrollment for an email address.
func (r *EnrollmentRepository) ListByEmail(ctx context.Context, email string) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + `
        WHERE LOWER(e.student_email) = LOWER($1) AND e.status IN ('paid', 'deposit_paid')
        ORDER BY cs.start_date ASC NULLS LAST, e.created_at DESC`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, email); err != nil {
		return nil, fmt.Errorf("list enrollments by email: %w", err)
	}
	return details, nil
}

// ListBySchedule returns the non-cancelled roster of a schedule ordered by name.
func (r *EnrollmentRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + `
        WHERE e.course_schedule_id::text = $1 AND e.status <> 'cancelled'
        ORDER BY LOWER(e.student_name) ASC`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule roster: %w", err)
	}
	return details, nil
}

// List returns enrollments that match the filter with the total count.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("e.course_id::text = $%d", len(args)))
	}
	if filter.ScheduleID != "" {
		args = append(args, filter.ScheduleID)
		conditions = append(conditions, fmt.Sprintf("e.course_schedule_id::text = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if filter.PaymentMethod != "" {
		args = append(args, filter.PaymentMethod)
		conditions = append(conditions, fmt.Sprintf("e.payment_method = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(e.student_name) LIKE $%[1]d OR LOWER(e.student_email) LIKE $%[1]d OR LOWER(COALESCE(e.receipt_number, '')) LIKE $%[1]d)", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":   "e.created_at",
		"student_name": "e.student_name",
		"status":       "e.status",
		"total":        "e.total_amount_cents",
	}
	sortBy, ok := allowedSorts[filter.SortBy]
	if !ok {
		sortBy = "e.created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("%s%s ORDER BY %s %s LIMIT %d OFFSET %d", enrollmentDetailSelect, where, sortBy, sortOrder, pageSize, offset)
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM enrollments e" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return details, total, nil
}
