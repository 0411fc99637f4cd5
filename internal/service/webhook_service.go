package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-enrollment-api/internal/dto"
	"github.com/noah-isme/academy-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
)

// Webhook provider labels.
const (
	ProviderCard = "card"
	ProviderCRM  = "crm"
)

// PaymentEvent is a parsed webhook delivery. Each provider has its own
// variant; all of them reduce to a ReconciliationRequest.
type PaymentEvent interface {
	// Provider returns the metrics label of the sending system.
	Provider() string
	// Reconcile returns the request to materialize, or false when the event
	// does not describe a settled payment.
	Reconcile() (ReconciliationRequest, bool)
}

// CardPaymentEvent is a notification from the card provider.
type CardPaymentEvent struct {
	Payload  dto.PaymentWebhookPayload
	Verified bool
}

// Provider implements PaymentEvent.
func (e CardPaymentEvent) Provider() string { return ProviderCard }

// Reconcile implements PaymentEvent.
func (e CardPaymentEvent) Reconcile() (ReconciliationRequest, bool) {
	payment := e.Payload.Data.Object.Payment
	if payment == nil || !cardEventSettles(e.Payload.Type, payment.Status) {
		return ReconciliationRequest{}, false
	}

	var note dto.CheckoutNote
	if payment.Note != "" {
		// a note that does not decode still yields an enrollment, just unlinked
		_ = json.Unmarshal([]byte(payment.Note), &note)
	}

	orderID := payment.OrderID
	if orderID == "" {
		orderID = payment.ID
	}
	req := ReconciliationRequest{
		Source:          SourceProvider,
		ProviderOrderID: orderID,
		CourseRef:       note.CourseID,
		ScheduleID:      note.ScheduleID,
		Modality:        models.NormalizeModality(note.Modality),
		StudentName:     addressName(payment.BillingAddress, payment.ShippingAddress),
		StudentEmail:    payment.BuyerEmailAddress,
		DiscountCode:    note.DiscountCode,
	}
	switch {
	case payment.TotalMoney != nil:
		req.AmountPaidCents = &payment.TotalMoney.Amount
	case payment.AmountMoney != nil:
		req.AmountPaidCents = &payment.AmountMoney.Amount
	}
	return req, true
}

func cardEventSettles(eventType, status string) bool {
	switch strings.ToLower(eventType) {
	case "payment.completed":
		return true
	case "payment.updated", "payment.created":
		return strings.EqualFold(status, "COMPLETED")
	default:
		return false
	}
}

func addressName(addresses ...*dto.ProviderAddress) string {
	for _, addr := range addresses {
		if addr == nil {
			continue
		}
		if name := strings.TrimSpace(addr.FirstName + " " + addr.LastName); name != "" {
			return name
		}
	}
	return ""
}

// CRMPaymentEvent is a CRM automation callback.
type CRMPaymentEvent struct {
	Payload dto.CRMWebhookPayload
}

// Provider implements PaymentEvent.
func (e CRMPaymentEvent) Provider() string { return ProviderCRM }

// Reconcile implements PaymentEvent.
func (e CRMPaymentEvent) Reconcile() (ReconciliationRequest, bool) {
	p := e.Payload
	eventType := strings.ToLower(firstNonEmpty(p.Type, p.Event))
	switch eventType {
	case "", "invoicepaid", "invoice.paid":
	case "orderstatusupdate", "order.status_update":
		if status := strings.ToLower(p.Status); status != "" && status != "paid" && status != "completed" && status != "succeeded" {
			return ReconciliationRequest{}, false
		}
	default:
		return ReconciliationRequest{}, false
	}

	name := firstNonEmpty(p.FullName, strings.TrimSpace(p.FirstName+" "+p.LastName))
	email, phone := p.Email, p.Phone
	if p.Contact != nil {
		name = firstNonEmpty(name, p.Contact.Name, strings.TrimSpace(p.Contact.FirstName+" "+p.Contact.LastName))
		email = firstNonEmpty(email, p.Contact.Email)
		phone = firstNonEmpty(phone, p.Contact.Phone)
	}

	req := ReconciliationRequest{
		Source:       SourceCRM,
		CRMOrderID:   firstNonEmpty(p.OrderID, p.OrderID2, p.InvoiceID, p.ID),
		CourseRef:    customString(p.CustomData, "courseId", "course_id", "course"),
		ScheduleID:   customString(p.CustomData, "scheduleId", "schedule_id"),
		Modality:     models.ModalityInPerson,
		StudentName:  name,
		StudentEmail: email,
		StudentPhone: phone,
		DiscountCode: customString(p.CustomData, "couponCode", "discountCode", "coupon"),
	}
	if eventType == "" && req.CRMOrderID == "" && strings.TrimSpace(email) == "" {
		return ReconciliationRequest{}, false
	}
	for _, raw := range []json.Number{p.Amount, p.Total} {
		if raw == "" {
			continue
		}
		if major, err := raw.Float64(); err == nil && major >= 0 {
			cents := int64(math.Round(major * 100))
			req.AmountPaidCents = &cents
			break
		}
	}
	return req, true
}

func customString(data map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := data[key]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// WebhookConfig controls signature verification of provider deliveries.
type WebhookConfig struct {
	SignatureKey     string
	NotificationURL  string
	RequireSignature bool
}

type materializer interface {
	Materialize(ctx context.Context, req ReconciliationRequest) (*MaterializeResult, error)
}

// WebhookResult is the acknowledgement detail returned to the sender.
type WebhookResult struct {
	Ignored      bool
	Duplicate    bool
	EnrollmentID string
}

// WebhookService authenticates, parses and ingests payment webhooks.
type WebhookService struct {
	cfg        WebhookConfig
	reconciler materializer
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewWebhookService constructs the ingestion service.
func NewWebhookService(cfg WebhookConfig, reconciler materializer, metrics *MetricsService, logger *zap.Logger) *WebhookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookService{cfg: cfg, reconciler: reconciler, metrics: metrics, logger: logger}
}

// ParsePayment verifies signature against raw and decodes the card provider
// payload. A nil event with nil error means the delivery should be
// acknowledged and ignored.
func (s *WebhookService) ParsePayment(raw []byte, signature string) (PaymentEvent, error) {
	verified, err := s.verify(raw, signature)
	if err != nil {
		s.metrics.RecordWebhook(ProviderCard, "rejected")
		return nil, err
	}
	var payload dto.PaymentWebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		if !verified {
			s.logger.Warn("ignoring unparseable unsigned payment webhook", zap.Error(err))
			s.metrics.RecordWebhook(ProviderCard, "ignored")
			return nil, nil
		}
		s.metrics.RecordWebhook(ProviderCard, "invalid")
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid webhook payload")
	}
	return CardPaymentEvent{Payload: payload, Verified: verified}, nil
}

// ParseCRM decodes a CRM callback. The CRM does not sign its requests.
func (s *WebhookService) ParseCRM(raw []byte) (PaymentEvent, error) {
	var payload dto.CRMWebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.metrics.RecordWebhook(ProviderCRM, "invalid")
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid webhook payload")
	}
	return CRMPaymentEvent{Payload: payload}, nil
}

// Ingest materializes event. Store failures are returned so the sender retries.
func (s *WebhookService) Ingest(ctx context.Context, event PaymentEvent) (*WebhookResult, error) {
	if event == nil {
		return &WebhookResult{Ignored: true}, nil
	}
	req, ok := event.Reconcile()
	if !ok {
		s.metrics.RecordWebhook(event.Provider(), "ignored")
		return &WebhookResult{Ignored: true}, nil
	}
	if req.StudentEmail == "" {
		s.logger.Warn("paid event carries no contact email; recording it for staff follow-up",
			zap.String("provider", event.Provider()),
			zap.String("provider_order_id", req.ProviderOrderID),
			zap.String("crm_order_id", req.CRMOrderID))
	}
	result, err := s.reconciler.Materialize(ctx, req)
	if err != nil {
		s.metrics.RecordWebhook(event.Provider(), "error")
		return nil, err
	}
	s.metrics.RecordWebhook(event.Provider(), string(result.Outcome))
	return &WebhookResult{
		Duplicate:    result.Outcome == OutcomeDuplicate,
		EnrollmentID: result.Enrollment.ID,
	}, nil
}

// verify checks the HMAC-SHA256 of notification URL plus body. verified is
// false only when no signature header was supplied and none is required.
func (s *WebhookService) verify(raw []byte, signature string) (verified bool, err error) {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		if s.cfg.RequireSignature {
			return false, appErrors.Clone(appErrors.ErrSignatureInvalid, "missing webhook signature")
		}
		s.logger.Warn("payment webhook received without signature; processing unverified")
		return false, nil
	}
	if s.cfg.SignatureKey == "" {
		// a signature that cannot be checked is never trusted
		s.logger.Warn("payment webhook signed but no signature key configured; rejecting")
		return false, appErrors.Clone(appErrors.ErrSignatureInvalid, "webhook signature key not configured")
	}
	expected := SignWebhook(s.cfg.SignatureKey, s.cfg.NotificationURL, raw)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		s.logger.Warn("payment webhook signature mismatch")
		return false, appErrors.Clone(appErrors.ErrSignatureInvalid, "")
	}
	return true, nil
}

// SignWebhook returns base64(HMAC-SHA256(key, notificationURL + body)).
func SignWebhook(key, notificationURL string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	_, _ = mac.Write([]byte(notificationURL))
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
