package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-enrollment-api/internal/dto"
	"github.com/noah-isme/academy-enrollment-api/internal/models"
	"github.com/noah-isme/academy-enrollment-api/pkg/response"
)

type specialsManager interface {
	ActiveSpecials(ctx context.Context) dto.SpecialsResponse
	ListActive(ctx context.Context) ([]models.Special, error)
	Create(ctx context.Context, req dto.CreateSpecialRequest) (*models.Special, error)
	Deactivate(ctx context.Context, code string) error
}

// SpecialsHandler serves coupon endpoints.
type SpecialsHandler struct {
	specials specialsManager
}

// NewSpecialsHandler constructs SpecialsHandler.
func NewSpecialsHandler(specials specialsManager) *SpecialsHandler {
	return &SpecialsHandler{specials: specials}
}

// Public godoc
// @Summary Active specials
// @Description Lists coupons that are still valid. Always answers 200; failures yield an empty list.
// @Tags Specials
// @Produce json
// @Success 200 {object} dto.SpecialsResponse
// @Router /specials [get]
func (h *SpecialsHandler) Public(c *gin.Context) {
	c.JSON(http.StatusOK, h.specials.ActiveSpecials(c.Request.Context()))
}

// List godoc
// @Summary List active specials (admin)
// @Tags Specials
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/specials [get]
func (h *SpecialsHandler) List(c *gin.Context) {
	specials, err := h.specials.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, specials, nil)
}

// Create godoc
// @Summary Create special
// @Tags Specials
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.CreateSpecialRequest true "Special payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/specials [post]
func (h *SpecialsHandler) Create(c *gin.Context) {
	var req dto.CreateSpecialRequest
	if !bindJSON(c, &req, "invalid special payload") {
		return
	}
	special, err := h.specials.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, special)
}

// Deactivate godoc
// @Summary Deactivate special
// @Description Retires the code locally and queues its removal from the CRM.
// @Tags Specials
// @Security BearerAuth
// @Param code path string true "Coupon code"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/specials/{code} [delete]
func (h *SpecialsHandler) Deactivate(c *gin.Context) {
	if err := h.specials.Deactivate(c.Request.Context(), c.Param("code")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
