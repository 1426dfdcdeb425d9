package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/middleware"
	"github.com/demodash/backend/internal/models"
	"github.com/demodash/backend/internal/prediction"
	"github.com/demodash/backend/internal/services"
	"github.com/demodash/backend/pkg/utils"
)

type PredictionHandler struct {
	predictionService *services.PredictionService
	analytics         *services.AnalyticsService
	requestTimeout    time.Duration
	logger            *logrus.Logger
}

func NewPredictionHandler(
	predictionService *services.PredictionService,
	analytics *services.AnalyticsService,
	requestTimeout time.Duration,
	logger *logrus.Logger,
) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		analytics:         analytics,
		requestTimeout:    requestTimeout,
		logger:            logger,
	}
}

// HandlePredict scores one passenger
func (h *PredictionHandler) HandlePredict(c *gin.Context) {
	startTime := time.Now()

	var req models.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	resp, features, err := h.predictionService.Predict(ctx, req)
	responseTime := time.Since(startTime)

	predictionLog := &models.PredictionLog{
		RequestID:      middleware.GetRequestID(c),
		PassengerClass: features.PassengerClass,
		Sex:            features.Sex,
		Age:            features.Age,
		Fare:           features.Fare,
		Success:        err == nil,
		ResponseTimeMs: int(responseTime.Milliseconds()),
		UserSession:    userSession(c),
	}

	if err != nil {
		predictionLog.ErrorMessage = err.Error()
		// Bad input is the client's problem, not something worth an audit row.
		if !prediction.IsInvalidInput(err) {
			go h.analytics.TrackPrediction(predictionLog)
		}
		respondError(c, h.logger, err)
		return
	}

	resp.ResponseTime = int(responseTime.Milliseconds())
	predictionLog.SurvivalProbability = resp.Result.SurvivalProbability
	predictionLog.ModelFormat = resp.Result.ModelFormat
	predictionLog.ModelVersion = resp.Result.ModelVersion
	go h.analytics.TrackPrediction(predictionLog)

	h.logger.WithFields(logrus.Fields{
		"request_id":           resp.RequestID,
		"survival_probability": resp.Result.SurvivalProbability,
		"response_time":        responseTime.Milliseconds(),
	}).Info("Prediction completed")

	utils.SuccessResponse(c, http.StatusOK, "Prediction completed", resp)
}

// HandleModelInfo reports the adapter state and feature documentation
func (h *PredictionHandler) HandleModelInfo(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Model information", h.predictionService.ModelInfo())
}
