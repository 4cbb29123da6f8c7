package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-api/internal/middleware"
	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
	"github.com/noah-isme/lms-admin-api/pkg/response"
)

type analyticsService interface {
	Fees(ctx context.Context, filter models.FeeAnalyticsFilter) (*models.FeeAnalytics, bool, error)
}

// AnalyticsHandler exposes dashboard-ready fee analytics.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Fees godoc
// @Summary Fee collection analytics
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param from query string false "Lower bound for the monthly breakdown (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Upper bound for the monthly breakdown (RFC3339 or YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /analytics/fees [get]
func (h *AnalyticsHandler) Fees(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	filter, err := parseFeeFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	result, cacheHit, err := h.analytics.Fees(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ResponseMeta(c)
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, result, nil, meta)
}

func parseFeeFilter(c *gin.Context) (models.FeeAnalyticsFilter, error) {
	var filter models.FeeAnalyticsFilter
	if raw := c.Query("from"); raw != "" {
		parsed, err := parseDateParam(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from parameter")
		}
		filter.From = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := parseDateParam(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to parameter")
		}
		filter.To = &parsed
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	return filter, nil
}

func parseDateParam(raw string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", raw)
}
