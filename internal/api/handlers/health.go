package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/health"
	"github.com/demodash/backend/internal/models"
	"github.com/demodash/backend/pkg/utils"
)

const serviceName = "demodash-backend"

type HealthHandler struct {
	checker *health.HealthChecker
	logger  *logrus.Logger
}

func NewHealthHandler(checker *health.HealthChecker, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		logger:  logger,
	}
}

// HandleLiveness answers as long as the process serves HTTP
func (h *HealthHandler) HandleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    health.StatusHealthy,
		Service:   serviceName,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// HandleDetailed reports every dependency. ?fresh=true bypasses the periodic result.
func (h *HealthHandler) HandleDetailed(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var overall health.OverallHealth
	if cached, ok := h.checker.CheckCached(ctx); ok && c.Query("fresh") != "true" {
		overall = *cached
	} else {
		overall = h.checker.CheckAll(ctx)
	}

	code := http.StatusOK
	if overall.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	utils.SuccessResponse(c, code, "Health status", overall)
}

// HandleHistory lists the stored periodic checks. ?unhealthy=true keeps failing services only.
func (h *HealthHandler) HandleHistory(c *gin.Context) {
	history, err := h.checker.History(c.Query("unhealthy") == "true")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Health history", history)
}
