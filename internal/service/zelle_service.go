package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-enrollment-api/internal/dto"
	"github.com/noah-isme/academy-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
)

type receiptSigner interface {
	Generate(subject, resource string) (string, time.Time, error)
	Parse(token string) (subject, resource string, expiresAt time.Time, err error)
}

// ZelleService registers bank-transfer enrollments that stay pending until an
// admin confirms the transfer.
type ZelleService struct {
	reconciler  materializer
	signer      receiptSigner
	receiptPath string
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewZelleService constructs the service. receiptPath is the public URL path
// receipts are served under.
func NewZelleService(reconciler materializer, signer receiptSigner, receiptPath string, validate *validator.Validate, logger *zap.Logger) *ZelleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZelleService{
		reconciler:  reconciler,
		signer:      signer,
		receiptPath: strings.TrimRight(receiptPath, "/"),
		validator:   validate,
		logger:      logger,
	}
}

// CreatePending prices the course and records a pending enrollment with a
// receipt number the student quotes in the transfer memo.
func (s *ZelleService) CreatePending(ctx context.Context, req dto.ZelleEnrollmentRequest) (*dto.ZelleEnrollmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid zelle enrollment payload")
	}

	result, err := s.reconciler.Materialize(ctx, ReconciliationRequest{
		Source:       SourceZelle,
		Strict:       true,
		CourseRef:    req.CourseID,
		ScheduleID:   req.ScheduleID,
		Modality:     models.NormalizeModality(req.Modality),
		StudentName:  req.StudentName,
		StudentEmail: req.StudentEmail,
		StudentPhone: req.StudentPhone,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		return nil, err
	}

	enrollment := result.Enrollment
	resp := &dto.ZelleEnrollmentResponse{
		TotalAmountCents: enrollment.TotalAmountCents,
		EnrollmentID:     enrollment.ID,
	}
	if result.Course != nil {
		resp.CourseTitle = result.Course.Title
	}
	if enrollment.ReceiptNumber != nil {
		resp.ReceiptNumber = *enrollment.ReceiptNumber
		token, _, err := s.signer.Generate(enrollment.ID, resp.ReceiptNumber)
		if err != nil {
			s.logger.Warn("failed to sign receipt link", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
		} else {
			resp.ReceiptURL = s.receiptPath + "/" + token
		}
	}
	return resp, nil
}
