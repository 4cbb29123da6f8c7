package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-api/internal/dto"
	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
	"github.com/noah-isme/lms-admin-api/pkg/response"
)

type emiService interface {
	Create(ctx context.Context, req dto.CreateEMIPlanRequest, actor dto.Actor) (*models.EMIPlanView, error)
	Get(ctx context.Context, studentRef string) (*models.EMIPlanView, error)
	Delete(ctx context.Context, studentRef string, actor dto.Actor) error
}

// EMIHandler exposes installment plans.
type EMIHandler struct {
	plans emiService
}

// NewEMIHandler constructs EMIHandler.
func NewEMIHandler(plans emiService) *EMIHandler {
	return &EMIHandler{plans: plans}
}

// Create godoc
// @Summary Create EMI plan
// @Tags EMI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateEMIPlanRequest true "Plan"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /emi-plans [post]
func (h *EMIHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateEMIPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid emi plan payload"))
		return
	}
	plan, err := h.plans.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// Get godoc
// @Summary Get EMI plan
// @Description Installment statuses are recomputed from the ledger on every read
// @Tags EMI
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID or code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /emi-plans/{studentId} [get]
func (h *EMIHandler) Get(c *gin.Context) {
	plan, err := h.plans.Get(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Delete godoc
// @Summary Delete EMI plan
// @Tags EMI
// @Security BearerAuth
// @Param studentId path string true "Student ID or code"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /emi-plans/{studentId} [delete]
func (h *EMIHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.plans.Delete(c.Request.Context(), c.Param("studentId"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
