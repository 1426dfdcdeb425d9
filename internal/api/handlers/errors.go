package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/database"
	"github.com/demodash/backend/internal/prediction"
	"github.com/demodash/backend/internal/query"
	"github.com/demodash/backend/pkg/utils"
)

// StatusFor maps domain errors onto HTTP status codes and user-facing messages
func StatusFor(err error) (int, string) {
	var (
		rangeErr  *query.InvalidRangeError
		filterErr *query.InvalidFilterError
		predErr   *prediction.PredictionError
	)

	switch {
	case errors.Is(err, query.ErrDataUnavailable):
		return http.StatusServiceUnavailable, "City dataset unavailable"
	case errors.As(err, &rangeErr):
		return http.StatusBadRequest, "Invalid population range"
	case errors.As(err, &filterErr):
		return http.StatusBadRequest, "Invalid filter"
	case errors.Is(err, query.ErrUnknownExportFormat):
		return http.StatusBadRequest, "Unknown export format"
	case errors.Is(err, prediction.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "Prediction model unavailable"
	case prediction.IsInvalidInput(err):
		return http.StatusUnprocessableEntity, "Invalid passenger features"
	case errors.As(err, &predErr):
		return http.StatusBadGateway, "Model returned an unusable prediction"
	case errors.Is(err, database.ErrDatabaseDisabled):
		return http.StatusServiceUnavailable, "Database not configured"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	code, message := StatusFor(err)

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"path":   c.FullPath(),
		"status": code,
	})
	if code >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Debug(message)
	}

	utils.ErrorResponse(c, code, message, err)
}

func userSession(c *gin.Context) string {
	if session := c.GetHeader("X-Session-ID"); session != "" {
		return session
	}
	return utils.GenerateSessionID(c.ClientIP() + c.GetHeader("User-Agent"))
}
