package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/services"
	"github.com/demodash/backend/pkg/utils"
)

type AnalyticsHandler struct {
	analytics      *services.AnalyticsService
	requestTimeout time.Duration
	logger         *logrus.Logger
}

func NewAnalyticsHandler(analytics *services.AnalyticsService, requestTimeout time.Duration, logger *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics:      analytics,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

func parseLimit(c *gin.Context) (int, bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		utils.ErrorResponse(c, http.StatusBadRequest, "limit must be a positive integer", err)
		return 0, false
	}
	if limit > 100 {
		limit = 100
	}
	return limit, true
}

// HandleTopFilters lists the most used filters
func (h *AnalyticsHandler) HandleTopFilters(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	filters, err := h.analytics.TopFilters(ctx, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Top filters retrieved", filters)
}

// HandlePredictionStats summarises predictions made within ?window (default 24h)
func (h *AnalyticsHandler) HandlePredictionStats(c *gin.Context) {
	window, err := time.ParseDuration(c.DefaultQuery("window", "24h"))
	if err != nil || window <= 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "window must be a positive duration such as 24h", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	stats, err := h.analytics.PredictionStats(ctx, time.Now().Add(-window))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Prediction statistics", stats)
}

func (h *AnalyticsHandler) HandleRecentQueries(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	logs, err := h.analytics.RecentQueries(ctx, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Recent queries", logs)
}

func (h *AnalyticsHandler) HandleRecentPredictions(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	logs, err := h.analytics.RecentPredictions(ctx, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Recent predictions", logs)
}
