package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-enrollment-api/internal/dto"
	"github.com/noah-isme/academy-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
	"github.com/noah-isme/academy-enrollment-api/pkg/export"
)

type adminEnrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	Update(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) (*models.Enrollment, error)
	MarkAttendance(ctx context.Context, id string, attended bool, at *time.Time) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.EnrollmentDetail, error)
}

type scheduleLedger interface {
	Get(ctx context.Context, scheduleID string) (*models.CourseSchedule, error)
	Reserve(ctx context.Context, scheduleID string) (*models.CourseSchedule, error)
	Release(ctx context.Context, scheduleID string) (*models.CourseSchedule, error)
	Reconcile(ctx context.Context, scheduleID string) (*models.CourseSchedule, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// Roster export formats.
const (
	RosterFormatCSV = "csv"
	RosterFormatPDF = "pdf"
)

// RosterFile is a rendered schedule roster.
type RosterFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// EnrollmentAdminService implements staff enrollment management. Every
// change that affects who holds a seat is mirrored on the seat ledger.
type EnrollmentAdminService struct {
	store      adminEnrollmentStore
	reconciler materializer
	ledger     scheduleLedger
	outbox     compensator
	csv        csvRenderer
	pdf        pdfRenderer
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewEnrollmentAdminService constructs the service.
func NewEnrollmentAdminService(
	store adminEnrollmentStore,
	reconciler materializer,
	ledger scheduleLedger,
	outbox compensator,
	csv csvRenderer,
	pdf pdfRenderer,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentAdminService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentAdminService{
		store:      store,
		reconciler: reconciler,
		ledger:     ledger,
		outbox:     outbox,
		csv:        csv,
		pdf:        pdf,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// List returns enrollments matching filter.
func (s *EnrollmentAdminService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}
	if filter.PaymentMethod != "" && !filter.PaymentMethod.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment method filter")
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	details, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list enrollments")
	}
	return details, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one enrollment with course and schedule info.
func (s *EnrollmentAdminService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.store.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}
	return detail, nil
}

// Create records a manual enrollment and reserves its seat.
func (s *EnrollmentAdminService) Create(ctx context.Context, req dto.AdminCreateEnrollmentRequest) (*dto.EnrollmentMutationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	result, err := s.reconciler.Materialize(ctx, ReconciliationRequest{
		Source:             SourceAdmin,
		Strict:             true,
		CourseRef:          req.CourseID,
		ScheduleID:         req.ScheduleID,
		Modality:           models.NormalizeModality(req.Modality),
		StudentName:        req.StudentName,
		StudentEmail:       req.StudentEmail,
		StudentPhone:       req.StudentPhone,
		DiscountCode:       req.DiscountCode,
		PaymentMethod:      models.PaymentMethod(req.PaymentMethod),
		Status:             models.EnrollmentStatus(req.Status),
		TotalAmountCents:   req.TotalAmountCents,
		DepositAmountCents: req.DepositAmountCents,
		AmountPaidCents:    nonZero(req.AmountPaidCents),
		Notes:              req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &dto.EnrollmentMutationResponse{Enrollment: result.Enrollment, SeatWarning: result.SeatWarning}, nil
}

// Update applies a partial update. Moving schedules reserves on the new one
// and releases the old; cancelling releases, un-cancelling reserves.
func (s *EnrollmentAdminService) Update(ctx context.Context, id string, req dto.AdminUpdateEnrollmentRequest) (*dto.EnrollmentMutationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}

	updated := *current
	if req.ScheduleID != nil {
		if scheduleID := strings.TrimSpace(*req.ScheduleID); scheduleID == "" {
			updated.CourseScheduleID = nil
		} else {
			if _, err := s.ledger.Get(ctx, scheduleID); err != nil {
				return nil, err
			}
			updated.CourseScheduleID = &scheduleID
		}
	}
	applyString(&updated.StudentName, req.StudentName)
	applyString(&updated.StudentPhone, req.StudentPhone)
	applyString(&updated.Notes, req.Notes)
	if req.StudentEmail != nil {
		updated.StudentEmail = strings.ToLower(strings.TrimSpace(*req.StudentEmail))
	}
	if req.Modality != nil {
		updated.Modality = models.NormalizeModality(*req.Modality)
	}
	if req.PaymentMethod != nil {
		updated.PaymentMethod = models.PaymentMethod(*req.PaymentMethod)
	}
	if req.Status != nil {
		updated.Status = models.EnrollmentStatus(*req.Status)
	}
	if req.TotalAmountCents != nil {
		updated.TotalAmountCents = *req.TotalAmountCents
	}
	if req.DepositAmountCents != nil {
		updated.DepositAmountCents = *req.DepositAmountCents
	}
	if req.AmountPaidCents != nil {
		updated.AmountPaidCents = *req.AmountPaidCents
	}

	if err := s.store.Update(ctx, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to update enrollment")
	}

	warning := s.moveSeat(ctx, current, &updated)
	return &dto.EnrollmentMutationResponse{Enrollment: &updated, SeatWarning: warning}, nil
}

// moveSeat reconciles the ledger with a change in schedule or status.
func (s *EnrollmentAdminService) moveSeat(ctx context.Context, before, after *models.Enrollment) string {
	oldSeat := seatHeld(before)
	newSeat := seatHeld(after)
	if oldSeat == newSeat {
		return ""
	}

	var warning string
	if newSeat != "" {
		_, err := s.ledger.Reserve(ctx, newSeat)
		switch {
		case err == nil:
		case errors.Is(err, appErrors.ErrSoldOut):
			warning = "schedule is sold out; seat count was not changed"
		case errors.Is(err, appErrors.ErrNotFound):
			warning = "schedule not found; seat count was not changed"
		default:
			s.logger.Error("seat reserve failed, deferring", zap.String("schedule_id", newSeat), zap.Error(err))
			s.outbox.ReserveSeat(newSeat)
			warning = "seat reservation deferred"
		}
	}
	if oldSeat != "" {
		s.releaseSeat(ctx, oldSeat)
	}
	return warning
}

// Delete removes an enrollment and gives its seat back.
func (s *EnrollmentAdminService) Delete(ctx context.Context, id string) error {
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Internal(err, "failed to delete enrollment")
	}
	if scheduleID := seatHeld(removed); scheduleID != "" {
		s.releaseSeat(ctx, scheduleID)
	}
	s.logger.Info("enrollment deleted", zap.String("enrollment_id", id))
	return nil
}

func (s *EnrollmentAdminService) releaseSeat(ctx context.Context, scheduleID string) {
	if _, err := s.ledger.Release(ctx, scheduleID); err != nil && !errors.Is(err, appErrors.ErrNotFound) {
		s.logger.Warn("seat release failed, deferring", zap.String("schedule_id", scheduleID), zap.Error(err))
		s.outbox.ReleaseSeat(scheduleID)
	}
}

// MarkAttendance sets or clears attendance.
func (s *EnrollmentAdminService) MarkAttendance(ctx context.Context, id string, req dto.AttendanceRequest) (*models.Enrollment, error) {
	var at *time.Time
	if req.Attended {
		now := s.now().UTC()
		at = &now
	}
	if err := s.store.MarkAttendance(ctx, id, req.Attended, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to mark attendance")
	}
	enrollment, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}
	return enrollment, nil
}

// GetSchedule returns a schedule with its seat counters.
func (s *EnrollmentAdminService) GetSchedule(ctx context.Context, scheduleID string) (*models.CourseSchedule, error) {
	return s.ledger.Get(ctx, scheduleID)
}

// ReconcileSchedule recomputes a schedule's availability from its enrollments.
func (s *EnrollmentAdminService) ReconcileSchedule(ctx context.Context, scheduleID string) (*models.CourseSchedule, error) {
	return s.ledger.Reconcile(ctx, scheduleID)
}

var rosterHeaders = []string{"student_name", "student_email", "student_phone", "modality", "status", "payment_method", "amount_paid", "receipt_number", "attended"}

// ExportRoster renders the schedule's non-cancelled enrollments.
func (s *EnrollmentAdminService) ExportRoster(ctx context.Context, scheduleID, format string) (*RosterFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = RosterFormatCSV
	}
	if format != RosterFormatCSV && format != RosterFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	schedule, err := s.ledger.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	roster, err := s.store.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load roster")
	}

	dataset := export.Dataset{Headers: rosterHeaders, Rows: make([]map[string]string, 0, len(roster))}
	for _, row := range roster {
		receipt := ""
		if row.ReceiptNumber != nil {
			receipt = *row.ReceiptNumber
		}
		attended := "no"
		if row.Attended {
			attended = "yes"
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"student_name":   row.StudentName,
			"student_email":  row.StudentEmail,
			"student_phone":  row.StudentPhone,
			"modality":       string(row.Modality),
			"status":         string(row.Status),
			"payment_method": string(row.PaymentMethod),
			"amount_paid":    FormatCents(row.AmountPaidCents),
			"receipt_number": receipt,
			"attended":       attended,
		})
	}

	base := "roster-" + schedule.ID
	if format == RosterFormatPDF {
		title := "Roster"
		if len(roster) > 0 && roster[0].CourseTitle != nil {
			title = *roster[0].CourseTitle
		}
		if schedule.StartDate != nil {
			title += " - " + schedule.StartDate.Format("Jan 2, 2006")
		}
		title += fmt.Sprintf(" (%d/%d seats taken)", schedule.SpotsTotal-schedule.SpotsAvailable, schedule.SpotsTotal)
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render roster")
		}
		return &RosterFile{Filename: base + ".pdf", ContentType: "application/pdf", Content: content}, nil
	}
	content, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render roster")
	}
	return &RosterFile{Filename: base + ".csv", ContentType: "text/csv", Content: content}, nil
}

func seatHeld(e *models.Enrollment) string {
	if e == nil || e.CourseScheduleID == nil || !e.Status.HoldsSeat() {
		return ""
	}
	return *e.CourseScheduleID
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func nonZero(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
