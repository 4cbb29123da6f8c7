package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
	"github.com/noah-isme/lms-admin-api/pkg/response"
)

type transactionService interface {
	ListByStudent(ctx context.Context, studentRef string) ([]models.Transaction, error)
	Get(ctx context.Context, id string) (*models.Transaction, error)
	UpdateNotes(ctx context.Context, id string, req dto.UpdateTransactionRequest, actor dto.Actor) (*models.Transaction, error)
}

type voidService interface {
	Void(ctx context.Context, transactionID string, req dto.VoidTransactionRequest, actor dto.Actor) (*dto.VoidTransactionResponse, error)
}

// TransactionHandler exposes the ledger history.
type TransactionHandler struct {
	transactions transactionService
	payments     voidService
}

// NewTransactionHandler constructs TransactionHandler.
func NewTransactionHandler(transactions transactionService, payments voidService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, payments: payments}
}

// ListByStudent godoc
// @Summary Student transaction history
// @Description Newest first. Accepts the internal id or the student code.
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID or code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /transactions/student/{studentId} [get]
func (h *TransactionHandler) ListByStudent(c *gin.Context) {
	items, err := h.transactions.ListByStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{"count": len(items)})
}

// Get godoc
// @Summary Get transaction
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	txn, err := h.transactions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, txn, nil)
}

// Update godoc
// @Summary Update transaction notes
// @Description Only notes can change; any other field in the body is rejected.
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param payload body dto.UpdateTransactionRequest true "Notes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /transactions/{id} [patch]
func (h *TransactionHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid transaction payload"))
		return
	}
	var rejected []string
	for field := range body {
		if field != "notes" {
			rejected = append(rejected, field)
		}
	}
	if len(rejected) > 0 {
		sort.Strings(rejected)
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "only notes can be changed on a transaction").
			WithDetails("fields", strings.Join(rejected, ",")))
		return
	}

	var req dto.UpdateTransactionRequest
	if raw, ok := body["notes"]; ok {
		var notes string
		if err := json.Unmarshal(raw, &notes); err != nil {
			response.Error(c, appErrors.Validation(err, "notes must be a string"))
			return
		}
		req.Notes = &notes
	}

	txn, err := h.transactions.UpdateNotes(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, txn, nil)
}

// Cancel godoc
// @Summary Cancel a transaction
// @Description Moves a Completed transaction to Cancelled and removes a credit from the student's balance. SUPERADMIN only.
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param payload body dto.VoidTransactionRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /transactions/{id}/cancel [post]
func (h *TransactionHandler) Cancel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.VoidTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid cancellation payload"))
		return
	}
	res, err := h.payments.Void(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
