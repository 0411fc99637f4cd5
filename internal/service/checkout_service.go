package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-enrollment-api/internal/dto"
	"github.com/noah-isme/academy-enrollment-api/internal/gateway"
	"github.com/noah-isme/academy-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
)

type paymentLinkCreator interface {
	Configured() bool
	CreatePaymentLink(ctx context.Context, req gateway.PaymentLinkRequest) (*gateway.PaymentLink, error)
}

// CheckoutService builds hosted card checkouts. It never writes enrollments;
// those are created when the provider confirms payment.
type CheckoutService struct {
	courses   courseResolver
	pricing   quoter
	provider  paymentLinkCreator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCheckoutService constructs a CheckoutService.
func NewCheckoutService(courses courseResolver, pricing quoter, provider paymentLinkCreator, validate *validator.Validate, logger *zap.Logger) *CheckoutService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{courses: courses, pricing: pricing, provider: provider, validator: validate, logger: logger}
}

// CreateCheckout prices the course and requests a payment link whose note
// carries the course, modality, coupon and schedule back to the webhook.
func (s *CheckoutService) CreateCheckout(ctx context.Context, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	if !s.provider.Configured() {
		return nil, appErrors.Clone(appErrors.ErrProviderNotConfigured, "card payments are not configured; link the merchant account")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checkout payload")
	}

	course, err := s.courses.FindByRef(ctx, strings.TrimSpace(req.CourseID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	quote, err := s.pricing.Quote(ctx, course, req.DiscountCode)
	if err != nil {
		return nil, err
	}

	modality := models.NormalizeModality(req.Modality)
	note, err := json.Marshal(dto.CheckoutNote{
		CourseID:     strings.TrimSpace(req.CourseID),
		Modality:     string(modality),
		DiscountCode: quote.AppliedCode,
		ScheduleID:   strings.TrimSpace(req.ScheduleID),
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to encode checkout note")
	}

	link, err := s.provider.CreatePaymentLink(ctx, gateway.PaymentLinkRequest{
		Title:      course.DisplayName(),
		PriceCents: quote.PriceCents,
		BuyerEmail: strings.TrimSpace(req.StudentEmail),
		Note:       string(note),
	})
	if err != nil {
		s.logger.Error("payment link request failed", zap.String("course_id", course.ID), zap.Error(err))
		return nil, providerFailure(err)
	}

	s.logger.Info("checkout created",
		zap.String("course_id", course.ID),
		zap.String("order_id", link.OrderID),
		zap.Int64("price_cents", quote.PriceCents),
		zap.String("discount_code", quote.AppliedCode))

	return &dto.CheckoutResponse{
		CheckoutURL:     link.URL,
		OrderID:         link.OrderID,
		PriceCents:      quote.PriceCents,
		AppliedDiscount: quote.AppliedCode,
	}, nil
}

func providerFailure(err error) error {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return appErrors.Wrap(err, appErrors.ErrProviderFailure.Code, appErrors.ErrProviderFailure.Status, "payment provider error: "+apiErr.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrProviderFailure.Code, appErrors.ErrProviderFailure.Status, appErrors.ErrProviderFailure.Message)
}
