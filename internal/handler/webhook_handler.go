package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
	"github.com/noah-isme/academy-enrollment-api/pkg/middleware/requestid"
	"github.com/noah-isme/academy-enrollment-api/pkg/response"
)

// Signature headers accepted on payment webhooks, in order of preference.
var signatureHeaders = []string{"X-Square-Hmacsha256-Signature", "X-Webhook-Signature"}

const maxWebhookBody = 1 << 20

type webhookIngestor interface {
	ParsePayment(raw []byte, signature string) (service.PaymentEvent, error)
	ParseCRM(raw []byte) (service.PaymentEvent, error)
	Ingest(ctx context.Context, event service.PaymentEvent) (*service.WebhookResult, error)
}

// WebhookHandler receives provider and CRM callbacks.
type WebhookHandler struct {
	webhooks webhookIngestor
	logger   *zap.Logger
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(webhooks webhookIngestor, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{webhooks: webhooks, logger: logger}
}

// Payments godoc
// @Summary Card provider webhook
// @Description Verifies the HMAC signature over the raw body and records the enrollment once per order.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Square-Hmacsha256-Signature header string false "base64 HMAC-SHA256 of notification URL + body"
// @Success 200 {object} response.WebhookAck
// @Failure 400 {object} response.WebhookAck
// @Failure 403 {object} response.WebhookAck
// @Failure 500 {object} response.WebhookAck
// @Router /webhooks/payments [post]
func (h *WebhookHandler) Payments(c *gin.Context) {
	raw, ok := h.readBody(c)
	if !ok {
		return
	}
	var signature string
	for _, header := range signatureHeaders {
		if signature = c.GetHeader(header); signature != "" {
			break
		}
	}
	event, err := h.webhooks.ParsePayment(raw, signature)
	if err != nil {
		response.WebhookError(c, err)
		return
	}
	h.ingest(c, event)
}

// CRM godoc
// @Summary CRM automation webhook
// @Description Records a paid CRM invoice or order as an enrollment.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} response.WebhookAck
// @Failure 400 {object} response.WebhookAck
// @Failure 500 {object} response.WebhookAck
// @Router /webhooks/crm [post]
func (h *WebhookHandler) CRM(c *gin.Context) {
	raw, ok := h.readBody(c)
	if !ok {
		return
	}
	event, err := h.webhooks.ParseCRM(raw)
	if err != nil {
		response.WebhookError(c, err)
		return
	}
	h.ingest(c, event)
}

func (h *WebhookHandler) ingest(c *gin.Context, event service.PaymentEvent) {
	result, err := h.webhooks.Ingest(c.Request.Context(), event)
	if err != nil {
		h.logger.Error("webhook ingestion failed", zap.String("path", c.FullPath()),
			zap.String("request_id", requestid.Value(c)), zap.Error(err))
		response.WebhookError(c, err)
		return
	}
	response.Ack(c, response.WebhookAck{Duplicate: result.Duplicate, Ignored: result.Ignored})
}

func (h *WebhookHandler) readBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		response.WebhookError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read body"))
		return nil, false
	}
	if len(raw) > maxWebhookBody {
		response.WebhookError(c, appErrors.Clone(appErrors.ErrValidation, "body too large"))
		return nil, false
	}
	return raw, true
}
