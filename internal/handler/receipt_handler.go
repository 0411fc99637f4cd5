package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-enrollment-api/internal/service"
	"github.com/noah-isme/academy-enrollment-api/pkg/response"
)

type receiptRenderer interface {
	Render(ctx context.Context, token string) (*service.ReceiptDocument, error)
}

// ReceiptHandler streams signed receipt PDFs.
type ReceiptHandler struct {
	receipts receiptRenderer
}

// NewReceiptHandler constructs ReceiptHandler.
func NewReceiptHandler(receipts receiptRenderer) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// Download godoc
// @Summary Download receipt
// @Tags Receipts
// @Produce application/pdf
// @Param token path string true "Signed receipt token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /receipts/{token} [get]
func (h *ReceiptHandler) Download(c *gin.Context) {
	doc, err := h.receipts.Render(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+doc.Filename+`"`)
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, "application/pdf", doc.Content)
}
