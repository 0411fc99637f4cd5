package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
)

// Source names the rail an enrollment request arrived on.
type Source string

const (
	SourceProvider Source = "provider"
	SourceCRM      Source = "crm"
	SourceZelle    Source = "zelle"
	SourceAdmin    Source = "admin"
)

// Outcome of a materialization attempt.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
)

// ReconciliationRequest is the provider-neutral description of a settled or
// pending purchase.
type ReconciliationRequest struct {
	Source          Source
	ProviderOrderID string
	CRMOrderID      string

	CourseRef  string
	ScheduleID string
	// Strict makes an unknown course or schedule a NotFound error instead of
	// an unlinked enrollment. Webhook paths leave it false.
	Strict bool

	Modality     models.Modality
	StudentName  string
	StudentEmail string
	StudentPhone string
	DiscountCode string

	PaymentMethod      models.PaymentMethod
	Status             models.EnrollmentStatus
	TotalAmountCents   *int64
	DepositAmountCents int64
	AmountPaidCents    *int64
	Notes              string
}

// MaterializeResult reports what Materialize did.
type MaterializeResult struct {
	Outcome     Outcome
	Enrollment  *models.Enrollment
	Course      *models.Course
	SeatWarning string
}

type enrollmentWriter interface {
	FindByProviderOrderID(ctx context.Context, orderID string) (*models.Enrollment, error)
	FindByCRMOrderID(ctx context.Context, orderID string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) (bool, error)
}

type courseResolver interface {
	FindByRef(ctx context.Context, ref string) (*models.Course, error)
}

type scheduleResolver interface {
	FindByID(ctx context.Context, id string) (*models.CourseSchedule, error)
	NextOpenForCourse(ctx context.Context, courseID string) (*models.CourseSchedule, error)
}

type seatReserver interface {
	Reserve(ctx context.Context, scheduleID string) (*models.CourseSchedule, error)
}

type quoter interface {
	Quote(ctx context.Context, course *models.Course, code string) (Quote, error)
}

type codeIssuer interface {
	AccessCode() (string, error)
	ReceiptNumber() (string, error)
}

// ReconciliationService turns payment events and manual entries into
// enrollments exactly once per external order id.
type ReconciliationService struct {
	enrollments enrollmentWriter
	courses     courseResolver
	schedules   scheduleResolver
	seats       seatReserver
	pricing     quoter
	codes       codeIssuer
	outbox      compensator
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewReconciliationService wires the materializer.
func NewReconciliationService(
	enrollments enrollmentWriter,
	courses courseResolver,
	schedules scheduleResolver,
	seats seatReserver,
	pricing quoter,
	codes codeIssuer,
	outbox compensator,
	metrics *MetricsService,
	logger *zap.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		enrollments: enrollments,
		courses:     courses,
		schedules:   schedules,
		seats:       seats,
		pricing:     pricing,
		codes:       codes,
		outbox:      outbox,
		metrics:     metrics,
		logger:      logger,
	}
}

// Materialize creates the enrollment described by req, or returns the one
// already recorded for the same external order id.
func (s *ReconciliationService) Materialize(ctx context.Context, req ReconciliationRequest) (*MaterializeResult, error) {
	result, err := s.materialize(ctx, req)
	switch {
	case err != nil:
		s.metrics.RecordMaterialized(string(req.Source), "error")
	default:
		s.metrics.RecordMaterialized(string(req.Source), string(result.Outcome))
	}
	return result, err
}

func (s *ReconciliationService) materialize(ctx context.Context, req ReconciliationRequest) (*MaterializeResult, error) {
	logger := s.logger.With(zap.String("source", string(req.Source)),
		zap.String("provider_order_id", req.ProviderOrderID), zap.String("crm_order_id", req.CRMOrderID))

	existing, err := s.findExisting(ctx, req)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check for existing enrollment")
	}
	if existing != nil {
		logger.Info("duplicate enrollment event", zap.String("enrollment_id", existing.ID))
		return &MaterializeResult{Outcome: OutcomeDuplicate, Enrollment: existing}, nil
	}

	course, err := s.resolveCourse(ctx, req)
	if err != nil {
		return nil, err
	}
	schedule, err := s.resolveSchedule(ctx, req, course)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.build(ctx, req, course, schedule)
	if err != nil {
		return nil, err
	}

	created, err := s.enrollments.Create(ctx, enrollment)
	if err != nil {
		logger.Error("failed to persist enrollment", zap.Error(err))
		return nil, appErrors.Internal(err, "failed to save enrollment")
	}
	if !created {
		// lost the race to a concurrent delivery of the same order
		winner, err := s.findExisting(ctx, req)
		if err != nil {
			logger.Error("failed to load enrollment after duplicate insert", zap.Error(err))
			return nil, appErrors.Internal(err, "failed to load existing enrollment")
		}
		if winner == nil {
			return nil, appErrors.Internal(errors.New("duplicate insert without a matching row"), "failed to load existing enrollment")
		}
		logger.Info("duplicate enrollment event absorbed by unique index", zap.String("enrollment_id", winner.ID))
		return &MaterializeResult{Outcome: OutcomeDuplicate, Enrollment: winner, Course: course}, nil
	}

	result := &MaterializeResult{Outcome: OutcomeCreated, Enrollment: enrollment, Course: course}
	if enrollment.CourseScheduleID != nil && enrollment.Status.HoldsSeat() {
		result.SeatWarning = s.reserveSeat(ctx, logger, *enrollment.CourseScheduleID)
	}
	logger.Info("enrollment materialized",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("status", string(enrollment.Status)),
		zap.Int64("total_amount_cents", enrollment.TotalAmountCents))
	return result, nil
}

func (s *ReconciliationService) findExisting(ctx context.Context, req ReconciliationRequest) (*models.Enrollment, error) {
	var (
		existing *models.Enrollment
		err      error
	)
	switch {
	case req.ProviderOrderID != "":
		existing, err = s.enrollments.FindByProviderOrderID(ctx, req.ProviderOrderID)
	case req.CRMOrderID != "":
		existing, err = s.enrollments.FindByCRMOrderID(ctx, req.CRMOrderID)
	default:
		return nil, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return existing, err
}

func (s *ReconciliationService) resolveCourse(ctx context.Context, req ReconciliationRequest) (*models.Course, error) {
	ref := strings.TrimSpace(req.CourseRef)
	if ref == "" {
		return nil, nil
	}
	course, err := s.courses.FindByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if req.Strict {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			s.logger.Warn("event references unknown course", zap.String("course_ref", ref))
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	if req.Strict && !course.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course, nil
}

func (s *ReconciliationService) resolveSchedule(ctx context.Context, req ReconciliationRequest, course *models.Course) (*models.CourseSchedule, error) {
	if id := strings.TrimSpace(req.ScheduleID); id != "" {
		schedule, err := s.schedules.FindByID(ctx, id)
		if err == nil {
			return schedule, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to load schedule")
		}
		if req.Strict {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		s.logger.Warn("event references unknown schedule", zap.String("schedule_id", id))
	}
	if course == nil || req.Source == SourceAdmin {
		return nil, nil
	}
	schedule, err := s.schedules.NextOpenForCourse(ctx, course.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load schedule")
	}
	return schedule, nil
}

func (s *ReconciliationService) build(ctx context.Context, req ReconciliationRequest, course *models.Course, schedule *models.CourseSchedule) (*models.Enrollment, error) {
	enrollment := &models.Enrollment{
		StudentName:        strings.TrimSpace(req.StudentName),
		StudentEmail:       strings.ToLower(strings.TrimSpace(req.StudentEmail)),
		StudentPhone:       strings.TrimSpace(req.StudentPhone),
		Modality:           req.Modality,
		DepositAmountCents: req.DepositAmountCents,
		Notes:              req.Notes,
	}
	if enrollment.Modality == "" {
		enrollment.Modality = models.ModalityInPerson
	}
	if req.ProviderOrderID != "" {
		enrollment.ProviderOrderID = stringPtr(req.ProviderOrderID)
	}
	if req.CRMOrderID != "" {
		enrollment.CRMOrderID = stringPtr(req.CRMOrderID)
	}
	if schedule != nil {
		enrollment.CourseScheduleID = stringPtr(schedule.ID)
	}

	switch req.Source {
	case SourceProvider:
		enrollment.PaymentMethod = models.PaymentMethodCard
		enrollment.Status = models.EnrollmentStatusPaid
	case SourceCRM:
		enrollment.PaymentMethod = models.PaymentMethodCRMStripe
		enrollment.Status = models.EnrollmentStatusPaid
		enrollment.Modality = models.ModalityInPerson
	case SourceZelle:
		enrollment.PaymentMethod = models.PaymentMethodZelle
		enrollment.Status = models.EnrollmentStatusPending
	default:
		enrollment.PaymentMethod = req.PaymentMethod
		enrollment.Status = req.Status
		if !enrollment.PaymentMethod.Valid() {
			enrollment.PaymentMethod = models.PaymentMethodOther
		}
		if !enrollment.Status.Valid() {
			enrollment.Status = models.EnrollmentStatusPending
		}
	}

	if course != nil {
		enrollment.CourseID = stringPtr(course.ID)
		quote, err := s.pricing.Quote(ctx, course, req.DiscountCode)
		if err != nil {
			return nil, err
		}
		enrollment.TotalAmountCents = quote.PriceCents
		enrollment.DiscountCode = quote.AppliedCode
	}
	if req.TotalAmountCents != nil {
		enrollment.TotalAmountCents = *req.TotalAmountCents
	}

	switch {
	case req.AmountPaidCents != nil:
		enrollment.AmountPaidCents = *req.AmountPaidCents
	case enrollment.Status == models.EnrollmentStatusPaid:
		enrollment.AmountPaidCents = enrollment.TotalAmountCents
	case enrollment.Status == models.EnrollmentStatusDepositPaid:
		enrollment.AmountPaidCents = enrollment.DepositAmountCents
	}
	if course == nil && enrollment.TotalAmountCents == 0 {
		enrollment.TotalAmountCents = enrollment.AmountPaidCents
	}

	code, err := s.codes.AccessCode()
	if err != nil {
		return nil, appErrors.Internal(err, "failed to generate access code")
	}
	enrollment.AccessCode = code
	if enrollment.PaymentMethod.NeedsReceipt() {
		receipt, err := s.codes.ReceiptNumber()
		if err != nil {
			return nil, appErrors.Internal(err, "failed to generate receipt number")
		}
		enrollment.ReceiptNumber = &receipt
	}
	return enrollment, nil
}

// reserveSeat decrements the linked schedule. The enrollment is kept whatever
// happens; the returned warning is surfaced to admins.
func (s *ReconciliationService) reserveSeat(ctx context.Context, logger *zap.Logger, scheduleID string) string {
	_, err := s.seats.Reserve(ctx, scheduleID)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, appErrors.ErrSoldOut):
		logger.Warn("enrollment recorded on a sold out schedule", zap.String("schedule_id", scheduleID))
		return "schedule is sold out; seat count was not changed"
	case errors.Is(err, appErrors.ErrNotFound):
		logger.Warn("linked schedule disappeared before seat reserve", zap.String("schedule_id", scheduleID))
		return "schedule not found; seat count was not changed"
	default:
		logger.Error("seat reserve failed, deferring", zap.String("schedule_id", scheduleID), zap.Error(err))
		s.outbox.ReserveSeat(scheduleID)
		return "seat reservation deferred"
	}
}

func stringPtr(v string) *string {
	return &v
}
