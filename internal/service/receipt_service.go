package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
	"github.com/noah-isme/academy-enrollment-api/pkg/export"
	"github.com/noah-isme/academy-enrollment-api/pkg/storage"
)

type enrollmentDetailReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

type receiptRenderer interface {
	RenderReceipt(r export.Receipt) ([]byte, error)
}

// ReceiptDocument is a rendered receipt ready to stream.
type ReceiptDocument struct {
	Filename string
	Content  []byte
}

// ReceiptService renders proof-of-payment PDFs behind signed links.
type ReceiptService struct {
	enrollments  enrollmentDetailReader
	signer       receiptSigner
	renderer     receiptRenderer
	organization string
	instructions string
}

// NewReceiptService constructs the service.
func NewReceiptService(enrollments enrollmentDetailReader, signer receiptSigner, renderer receiptRenderer, organization, instructions string) *ReceiptService {
	return &ReceiptService{
		enrollments:  enrollments,
		signer:       signer,
		renderer:     renderer,
		organization: organization,
		instructions: instructions,
	}
}

// Render validates token and renders the receipt it points to.
func (s *ReceiptService) Render(ctx context.Context, token string) (*ReceiptDocument, error) {
	enrollmentID, receiptNumber, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "receipt link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
	}

	detail, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}
	if detail.ReceiptNumber == nil || *detail.ReceiptNumber != receiptNumber {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
	}

	receipt := export.Receipt{
		Organization:  s.organization,
		ReceiptNumber: receiptNumber,
		IssuedOn:      detail.CreatedAt.UTC().Format("2006-01-02"),
		StudentName:   detail.StudentName,
		StudentEmail:  detail.StudentEmail,
		PaymentMethod: string(detail.PaymentMethod),
		Status:        string(detail.Status),
		TotalAmount:   FormatCents(detail.TotalAmountCents),
		AmountPaid:    FormatCents(detail.AmountPaidCents),
	}
	if detail.CourseTitle != nil {
		receipt.CourseTitle = *detail.CourseTitle
	}
	if detail.ScheduleStartDate != nil {
		receipt.ClassDate = detail.ScheduleStartDate.Format("Jan 2, 2006")
	}
	if detail.Status == models.EnrollmentStatusPending {
		receipt.Instructions = s.instructions
	}

	content, err := s.renderer.RenderReceipt(receipt)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render receipt")
	}
	return &ReceiptDocument{Filename: receiptNumber + ".pdf", Content: content}, nil
}

// FormatCents renders minor units as a dollar amount.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

