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

	"github.com/noah-isme/academy-enrollment-api/internal/dto"
	"github.com/noah-isme/academy-enrollment-api/internal/middleware"
	"github.com/noah-isme/academy-enrollment-api/internal/models"
	"github.com/noah-isme/academy-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
)

func newTestContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

type checkoutServiceMock struct {
	resp *dto.CheckoutResponse
	err  error
}

func (m *checkoutServiceMock) CreateCheckout(ctx context.Context, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	return m.resp, m.err
}

type zelleServiceMock struct {
	req dto.ZelleEnrollmentRequest
}

func (m *zelleServiceMock) CreatePending(ctx context.Context, req dto.ZelleEnrollmentRequest) (*dto.ZelleEnrollmentResponse, error) {
	m.req = req
	return &dto.ZelleEnrollmentResponse{ReceiptNumber: "AFA-7KQ2ZP", TotalAmountCents: 5000}, nil
}

func TestCheckoutHandler(t *testing.T) {
	h := NewCheckoutHandler(&checkoutServiceMock{resp: &dto.CheckoutResponse{CheckoutURL: "https://pay.example.com/x", OrderID: "o-1", PriceCents: 4000}}, &zelleServiceMock{})

	c, w := newTestContext(http.MethodPost, "/api/v1/checkout", []byte(`{"courseId":"C1"}`))
	h.Checkout(c)
	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data dto.CheckoutResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "o-1", envelope.Data.OrderID)

	c, w = newTestContext(http.MethodPost, "/api/v1/checkout", []byte(`invalid`))
	h.Checkout(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutHandlerProviderNotConfigured(t *testing.T) {
	h := NewCheckoutHandler(&checkoutServiceMock{err: appErrors.Clone(appErrors.ErrProviderNotConfigured, "")}, &zelleServiceMock{})
	c, w := newTestContext(http.MethodPost, "/api/v1/checkout", []byte(`{"courseId":"C1"}`))
	h.Checkout(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "PROVIDER_NOT_CONFIGURED")
}

func TestZelleHandlerCreated(t *testing.T) {
	zelle := &zelleServiceMock{}
	h := NewCheckoutHandler(&checkoutServiceMock{}, zelle)
	c, w := newTestContext(http.MethodPost, "/api/v1/enrollments/zelle", []byte(`{"courseId":"C1","studentName":"Ana","studentEmail":"ana@example.com"}`))
	h.Zelle(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Ana", zelle.req.StudentName)
	assert.Contains(t, w.Body.String(), "AFA-7KQ2ZP")
}

type specialsServiceMock struct {
	deactivated string
}

func (m *specialsServiceMock) ActiveSpecials(ctx context.Context) dto.SpecialsResponse {
	return dto.SpecialsResponse{Specials: []dto.PublicSpecial{{CouponCode: "SPRING", CouponName: "Spring", DiscountType: "percentage", DiscountValue: 10, CourseIDs: []string{}}}}
}

func (m *specialsServiceMock) ListActive(ctx context.Context) ([]models.Special, error) {
	return []models.Special{}, nil
}

func (m *specialsServiceMock) Create(ctx context.Context, req dto.CreateSpecialRequest) (*models.Special, error) {
	return &models.Special{CouponCode: req.CouponCode}, nil
}

func (m *specialsServiceMock) Deactivate(ctx context.Context, code string) error {
	if code == "MISSING" {
		return appErrors.Clone(appErrors.ErrNotFound, "special not found")
	}
	m.deactivated = code
	return nil
}

func TestSpecialsHandlerPublicShape(t *testing.T) {
	h := NewSpecialsHandler(&specialsServiceMock{})
	c, w := newTestContext(http.MethodGet, "/api/v1/specials", nil)
	h.Public(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body["specials"], 1)
	special := body["specials"][0]
	assert.Equal(t, "SPRING", special["coupon_code"])
	assert.Equal(t, "percentage", special["discount_type"])
	assert.Contains(t, special, "course_ids")
}

func TestSpecialsHandlerDeactivate(t *testing.T) {
	mock := &specialsServiceMock{}
	h := NewSpecialsHandler(mock)

	c, w := newTestContext(http.MethodDelete, "/api/v1/admin/specials/SPRING", nil)
	c.Params = gin.Params{{Key: "code", Value: "SPRING"}}
	h.Deactivate(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "SPRING", mock.deactivated)

	c, w = newTestContext(http.MethodDelete, "/api/v1/admin/specials/MISSING", nil)
	c.Params = gin.Params{{Key: "code", Value: "MISSING"}}
	h.Deactivate(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type enrollmentAdminMock struct {
	filter  models.EnrollmentFilter
	deleted string
}

func (m *enrollmentAdminMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	m.filter = filter
	return []models.EnrollmentDetail{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (m *enrollmentAdminMock) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
}

func (m *enrollmentAdminMock) Create(ctx context.Context, req dto.AdminCreateEnrollmentRequest) (*dto.EnrollmentMutationResponse, error) {
	return &dto.EnrollmentMutationResponse{Enrollment: &models.Enrollment{ID: "enr-1"}, SeatWarning: "schedule is sold out; seat count was not changed"}, nil
}

func (m *enrollmentAdminMock) Update(ctx context.Context, id string, req dto.AdminUpdateEnrollmentRequest) (*dto.EnrollmentMutationResponse, error) {
	return &dto.EnrollmentMutationResponse{Enrollment: &models.Enrollment{ID: id}}, nil
}

func (m *enrollmentAdminMock) Delete(ctx context.Context, id string) error {
	m.deleted = id
	return nil
}

func (m *enrollmentAdminMock) MarkAttendance(ctx context.Context, id string, req dto.AttendanceRequest) (*models.Enrollment, error) {
	return &models.Enrollment{ID: id, Attended: req.Attended}, nil
}

func (m *enrollmentAdminMock) GetSchedule(ctx context.Context, scheduleID string) (*models.CourseSchedule, error) {
	return &models.CourseSchedule{ID: scheduleID, SpotsTotal: 10, SpotsAvailable: 3, Status: models.ScheduleStatusFilling}, nil
}

func (m *enrollmentAdminMock) ReconcileSchedule(ctx context.Context, scheduleID string) (*models.CourseSchedule, error) {
	return m.GetSchedule(ctx, scheduleID)
}

func (m *enrollmentAdminMock) ExportRoster(ctx context.Context, scheduleID, format string) (*service.RosterFile, error) {
	return &service.RosterFile{Filename: "roster-" + scheduleID + ".csv", ContentType: "text/csv", Content: []byte("student_name\nAna\n")}, nil
}

func TestEnrollmentHandlerListParsesFilter(t *testing.T) {
	mock := &enrollmentAdminMock{}
	h := NewEnrollmentHandler(mock)
	c, w := newTestContext(http.MethodGet, "/api/v1/admin/enrollments?status=PAID&paymentMethod=zelle&page=2&limit=50&q=ana", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EnrollmentStatusPaid, mock.filter.Status)
	assert.Equal(t, models.PaymentMethodZelle, mock.filter.PaymentMethod)
	assert.Equal(t, 2, mock.filter.Page)
	assert.Equal(t, 50, mock.filter.PageSize)
	assert.Equal(t, "ana", mock.filter.Search)
	assert.Contains(t, w.Body.String(), `"pagination"`)
}

func TestEnrollmentHandlerCreateSurfacesSeatWarning(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentAdminMock{})
	c, w := newTestContext(http.MethodPost, "/api/v1/admin/enrollments", []byte(`{"studentName":"Ana","studentEmail":"ana@example.com","paymentMethod":"cash"}`))
	h.Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "seatWarning")
}

func TestEnrollmentHandlerGetNotFound(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentAdminMock{})
	c, w := newTestContext(http.MethodGet, "/api/v1/admin/enrollments/x", nil)
	c.Params = gin.Params{{Key: "id", Value: "x"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnrollmentHandlerDeleteAndRoster(t *testing.T) {
	mock := &enrollmentAdminMock{}
	h := NewEnrollmentHandler(mock)

	c, w := newTestContext(http.MethodDelete, "/api/v1/admin/enrollments/enr-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}
	h.Delete(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "enr-1", mock.deleted)

	c, w = newTestContext(http.MethodGet, "/api/v1/admin/schedules/sch-1/roster", nil)
	c.Params = gin.Params{{Key: "id", Value: "sch-1"}}
	h.Roster(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "roster-sch-1.csv")
}

type authServiceMock struct{}

func (authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
}

func (authServiceMock) StudentLogin(ctx context.Context, req models.StudentLoginRequest) (*models.LoginResponse, error) {
	return &models.LoginResponse{AccessToken: "token", User: models.UserInfo{Role: models.RoleStudent}}, nil
}

func (authServiceMock) StudentEnrollments(ctx context.Context, claims *models.JWTClaims) ([]models.EnrollmentDetail, error) {
	return []models.EnrollmentDetail{{Enrollment: models.Enrollment{ID: claims.UserID}}}, nil
}

func TestAuthHandler(t *testing.T) {
	h := NewAuthHandler(authServiceMock{})

	c, w := newTestContext(http.MethodPost, "/api/v1/auth/login", []byte(`{"email":"staff@example.com","password":"x"}`))
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newTestContext(http.MethodPost, "/api/v1/portal/login", []byte(`{"email":"ana@example.com","access_code":"K7QZ2P"}`))
	h.StudentLogin(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext(http.MethodGet, "/api/v1/portal/me", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newTestContext(http.MethodGet, "/api/v1/portal/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "enr-1", Email: "ana@example.com", Role: models.RoleStudent})
	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "enr-1")
}

func TestReadyReportsFailingDependency(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": PingFunc(func(ctx context.Context) error { return nil }),
		"redis":    PingFunc(func(ctx context.Context) error { return assert.AnError }),
	})
	c, w := newTestContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}
