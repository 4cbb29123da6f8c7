package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/pkg/response"
)

type receiptService interface {
	View(ctx context.Context, transactionID string) (*dto.Receipt, error)
	PDF(ctx context.Context, transactionID string) ([]byte, *dto.Receipt, error)
	Link(ctx context.Context, transactionID string) (*dto.ReceiptLinkResponse, error)
	Shared(ctx context.Context, token string) ([]byte, *dto.Receipt, error)
}

// ReceiptHandler serves receipts as JSON, PDF and via signed share links.
type ReceiptHandler struct {
	receipts receiptService
}

// NewReceiptHandler constructs ReceiptHandler.
func NewReceiptHandler(receipts receiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// View godoc
// @Summary Transaction receipt
// @Tags Receipts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /transactions/{id}/receipt [get]
func (h *ReceiptHandler) View(c *gin.Context) {
	receipt, err := h.receipts.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipt, nil)
}

// PDF godoc
// @Summary Download receipt PDF
// @Tags Receipts
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /transactions/{id}/receipt/pdf [get]
func (h *ReceiptHandler) PDF(c *gin.Context) {
	data, receipt, err := h.receipts.PDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "receipt-"+receipt.ReceiptNumber+".pdf", "application/pdf", data)
}

// Link godoc
// @Summary Create a receipt share link
// @Description Returns a signed URL that serves the PDF without authentication until it expires
// @Tags Receipts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /transactions/{id}/receipt/link [post]
func (h *ReceiptHandler) Link(c *gin.Context) {
	link, err := h.receipts.Link(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// Shared godoc
// @Summary Download a shared receipt
// @Tags Receipts
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /receipts/shared/{token} [get]
func (h *ReceiptHandler) Shared(c *gin.Context) {
	data, receipt, err := h.receipts.Shared(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "receipt-"+receipt.ReceiptNumber+".pdf", "application/pdf", data)
}
