package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-enrollment-api/internal/dto"
	"github.com/noah-isme/academy-enrollment-api/internal/models"
	"github.com/noah-isme/academy-enrollment-api/internal/service"
	"github.com/noah-isme/academy-enrollment-api/pkg/response"
)

type enrollmentAdmin interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Create(ctx context.Context, req dto.AdminCreateEnrollmentRequest) (*dto.EnrollmentMutationResponse, error)
	Update(ctx context.Context, id string, req dto.AdminUpdateEnrollmentRequest) (*dto.EnrollmentMutationResponse, error)
	Delete(ctx context.Context, id string) error
	MarkAttendance(ctx context.Context, id string, req dto.AttendanceRequest) (*models.Enrollment, error)
	GetSchedule(ctx context.Context, scheduleID string) (*models.CourseSchedule, error)
	ReconcileSchedule(ctx context.Context, scheduleID string) (*models.CourseSchedule, error)
	ExportRoster(ctx context.Context, scheduleID, format string) (*service.RosterFile, error)
}

// EnrollmentHandler exposes staff enrollment and schedule endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentAdmin
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentAdmin) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Security BearerAuth
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param scheduleId query string false "Filter by schedule"
// @Param status query string false "Filter by status"
// @Param paymentMethod query string false "Filter by payment method"
// @Param q query string false "Search name, email or receipt number"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "created_at, student_name, status or total"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /admin/enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := models.EnrollmentFilter{
		CourseID:      c.Query("courseId"),
		ScheduleID:    c.Query("scheduleId"),
		Status:        models.EnrollmentStatus(strings.ToLower(c.Query("status"))),
		PaymentMethod: models.PaymentMethod(strings.ToLower(c.Query("paymentMethod"))),
		Search:        strings.TrimSpace(c.Query("q")),
		SortBy:        c.Query("sort"),
		SortOrder:     c.Query("order"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	detail, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Record a manual enrollment
// @Tags Enrollments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.AdminCreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req dto.AdminCreateEnrollmentRequest
	if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}
	res, err := h.enrollments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Update godoc
// @Summary Update enrollment
// @Description Partial update. Schedule and status changes move seats accordingly.
// @Tags Enrollments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.AdminUpdateEnrollmentRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/enrollments/{id} [put]
func (h *EnrollmentHandler) Update(c *gin.Context) {
	var req dto.AdminUpdateEnrollmentRequest
	if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}
	res, err := h.enrollments.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Delete godoc
// @Summary Delete enrollment
// @Description Removes the enrollment and returns its seat.
// @Tags Enrollments
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.enrollments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Attendance godoc
// @Summary Mark attendance
// @Tags Enrollments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.AttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/enrollments/{id}/attendance [post]
func (h *EnrollmentHandler) Attendance(c *gin.Context) {
	var req dto.AttendanceRequest
	if !bindJSON(c, &req, "invalid attendance payload") {
		return
	}
	enrollment, err := h.enrollments.MarkAttendance(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}
