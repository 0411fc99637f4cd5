package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-enrollment-api/pkg/response"
)

// GetSchedule godoc
// @Summary Get schedule seats
// @Tags Schedules
// @Security BearerAuth
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/schedules/{id} [get]
func (h *EnrollmentHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.enrollments.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// ReconcileSchedule godoc
// @Summary Recount schedule seats
// @Description Recomputes availability from the enrollments that hold a seat.
// @Tags Schedules
// @Security BearerAuth
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/schedules/{id}/reconcile [post]
func (h *EnrollmentHandler) ReconcileSchedule(c *gin.Context) {
	schedule, err := h.enrollments.ReconcileSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Roster godoc
// @Summary Export schedule roster
// @Tags Schedules
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Schedule ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/schedules/{id}/roster [get]
func (h *EnrollmentHandler) Roster(c *gin.Context) {
	file, err := h.enrollments.ExportRoster(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
