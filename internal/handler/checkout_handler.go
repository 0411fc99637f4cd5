package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-enrollment-api/internal/dto"
	"github.com/noah-isme/academy-enrollment-api/pkg/response"
)

type checkoutCreator interface {
	CreateCheckout(ctx context.Context, req dto.CheckoutRequest) (*dto.CheckoutResponse, error)
}

type zellePendingCreator interface {
	CreatePending(ctx context.Context, req dto.ZelleEnrollmentRequest) (*dto.ZelleEnrollmentResponse, error)
}

// CheckoutHandler exposes the public purchase entry points.
type CheckoutHandler struct {
	checkout checkoutCreator
	zelle    zellePendingCreator
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(checkout checkoutCreator, zelle zellePendingCreator) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, zelle: zelle}
}

// Checkout godoc
// @Summary Start a card checkout
// @Description Prices the course and returns a hosted payment link. No enrollment is created until the provider confirms payment.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param payload body dto.CheckoutRequest true "Checkout payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if !bindJSON(c, &req, "invalid checkout payload") {
		return
	}
	res, err := h.checkout.CreateCheckout(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Zelle godoc
// @Summary Register a Zelle enrollment
// @Description Records a pending enrollment and returns the receipt number to quote in the transfer memo.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param payload body dto.ZelleEnrollmentRequest true "Zelle payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/zelle [post]
func (h *CheckoutHandler) Zelle(c *gin.Context) {
	var req dto.ZelleEnrollmentRequest
	if !bindJSON(c, &req, "invalid zelle enrollment payload") {
		return
	}
	res, err := h.zelle.CreatePending(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}
