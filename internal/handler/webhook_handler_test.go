package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
	"github.com/noah-isme/academy-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
	"github.com/noah-isme/academy-enrollment-api/pkg/response"
)

const notificationURL = "https://api.example.com/api/v1/webhooks/payments"

type materializerMock struct {
	seen    map[string]string
	err     error
	calls   int
	lastReq service.ReconciliationRequest
}

func (m *materializerMock) Materialize(ctx context.Context, req service.ReconciliationRequest) (*service.MaterializeResult, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.seen == nil {
		m.seen = make(map[string]string)
	}
	key := req.ProviderOrderID + req.CRMOrderID
	if id, ok := m.seen[key]; ok {
		return &service.MaterializeResult{Outcome: service.OutcomeDuplicate, Enrollment: &models.Enrollment{ID: id}}, nil
	}
	m.seen[key] = "enr-1"
	return &service.MaterializeResult{Outcome: service.OutcomeCreated, Enrollment: &models.Enrollment{ID: "enr-1"}}, nil
}

func newWebhookHandler(m *materializerMock) *WebhookHandler {
	svc := service.NewWebhookService(service.WebhookConfig{SignatureKey: "sig-key", NotificationURL: notificationURL}, m, nil, nil)
	return NewWebhookHandler(svc, nil)
}

func postWebhook(h gin.HandlerFunc, body []byte, headers map[string]string) (*httptest.ResponseRecorder, response.WebhookAck) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/webhooks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	h(c)

	var ack response.WebhookAck
	_ = json.Unmarshal(w.Body.Bytes(), &ack)
	return w, ack
}

const completedPayment = `{"type":"payment.updated","data":{"object":{"payment":{"id":"p-1","status":"COMPLETED","order_id":"o-1",` +
	`"note":"{\"courseId\":\"C1\"}","buyer_email_address":"ana@example.com","total_money":{"amount":4000,"currency":"USD"}}}}}`

func TestPaymentsWebhookSignedAndReplayed(t *testing.T) {
	m := &materializerMock{}
	h := newWebhookHandler(m)
	body := []byte(completedPayment)
	headers := map[string]string{"X-Square-Hmacsha256-Signature": service.SignWebhook("sig-key", notificationURL, body)}

	w, ack := postWebhook(h.Payments, body, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ack.Received)
	assert.False(t, ack.Duplicate)
	assert.Equal(t, "C1", m.lastReq.CourseRef)

	w, ack = postWebhook(h.Payments, body, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ack.Duplicate)
}

func TestPaymentsWebhookBadSignature(t *testing.T) {
	m := &materializerMock{}
	h := newWebhookHandler(m)

	w, ack := postWebhook(h.Payments, []byte(completedPayment), map[string]string{"X-Webhook-Signature": "AAAA"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotEmpty(t, ack.Error)
	assert.Zero(t, m.calls)
}

func TestPaymentsWebhookIgnoredEvent(t *testing.T) {
	m := &materializerMock{}
	h := newWebhookHandler(m)

	w, ack := postWebhook(h.Payments, []byte(`{"type":"refund.created","data":{"object":{}}}`), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ack.Received)
	assert.True(t, ack.Ignored)
	assert.Zero(t, m.calls)
}

func TestPaymentsWebhookStoreFailureAsksForRetry(t *testing.T) {
	m := &materializerMock{err: appErrors.Internal(assert.AnError, "failed to save enrollment")}
	h := newWebhookHandler(m)

	w, _ := postWebhook(h.Payments, []byte(completedPayment), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCRMWebhook(t *testing.T) {
	m := &materializerMock{}
	h := newWebhookHandler(m)

	w, _ := postWebhook(h.CRM, []byte(`{not json`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := []byte(`{"type":"InvoicePaid","orderId":"crm-1","email":"ana@example.com","amount":40,"customData":{"courseId":"C1"}}`)
	w, ack := postWebhook(h.CRM, body, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ack.Received)
	assert.Equal(t, "crm-1", m.lastReq.CRMOrderID)
	require.NotNil(t, m.lastReq.AmountPaidCents)
	assert.Equal(t, int64(4000), *m.lastReq.AmountPaidCents)

	w, ack = postWebhook(h.CRM, body, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ack.Duplicate)
}
