package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
	"github.com/noah-isme/lms-admin-api/pkg/response"
)

type paymentService interface {
	Collect(ctx context.Context, req dto.CollectPaymentRequest, actor dto.Actor) (*dto.CollectPaymentResponse, error)
}

type reconciliationService interface {
	Verify(ctx context.Context) (*dto.LedgerReport, error)
	Fix(ctx context.Context, actor dto.Actor) (*dto.LedgerFixResult, error)
}

// PaymentHandler exposes fee collection and ledger reconciliation.
type PaymentHandler struct {
	payments       paymentService
	reconciliation reconciliationService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments paymentService, reconciliation reconciliationService) *PaymentHandler {
	return &PaymentHandler{payments: payments, reconciliation: reconciliation}
}

// Collect godoc
// @Summary Collect a fee payment
// @Description Records a Completed credit and advances the student's balance. Returns 409 when the balance changed concurrently.
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CollectPaymentRequest true "Payment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments/collect [post]
func (h *PaymentHandler) Collect(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CollectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid payment payload"))
		return
	}
	res, err := h.payments.Collect(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Verify godoc
// @Summary Verify ledger consistency
// @Description Compares every cached balance with the sum of the student's Completed credits
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /payments/verify [get]
func (h *PaymentHandler) Verify(c *gin.Context) {
	report, err := h.reconciliation.Verify(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// FixInconsistencies godoc
// @Summary Fix ledger drift
// @Description Overwrites drifted balances with their ledger totals. SUPERADMIN only.
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /payments/fix-inconsistencies [post]
func (h *PaymentHandler) FixInconsistencies(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.reconciliation.Fix(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
