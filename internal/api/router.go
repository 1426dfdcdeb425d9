package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/api/handlers"
	"github.com/demodash/backend/internal/middleware"
)

type Handlers struct {
	City       *handlers.CityHandler
	Prediction *handlers.PredictionHandler
	Health     *handlers.HealthHandler
	Analytics  *handlers.AnalyticsHandler
}

// NewRouter registers every route. A nil limiter disables rate limiting.
func NewRouter(h Handlers, limiter *middleware.RateLimiter, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.SecurityHeaders(),
	)

	router.GET("/health", h.Health.HandleLiveness)

	v1 := router.Group("/api/v1")
	if limiter != nil {
		v1.Use(limiter.RateLimit())
	}

	v1.GET("/health/detailed", h.Health.HandleDetailed)
	v1.GET("/health/history", h.Health.HandleHistory)

	cities := v1.Group("/cities")
	{
		cities.GET("", h.City.HandleQuery)
		cities.POST("/query", h.City.HandleQueryJSON)
		cities.GET("/countries", h.City.HandleCountries)
		cities.GET("/summary", h.City.HandleSummary)
		cities.GET("/export", h.City.HandleExport)
	}

	predictions := v1.Group("/predictions")
	{
		predictions.POST("", h.Prediction.HandlePredict)
		predictions.GET("/model", h.Prediction.HandleModelInfo)
	}

	analytics := v1.Group("/analytics")
	{
		analytics.GET("/filters", h.Analytics.HandleTopFilters)
		analytics.GET("/predictions", h.Analytics.HandlePredictionStats)
		analytics.GET("/queries/recent", h.Analytics.HandleRecentQueries)
		analytics.GET("/predictions/recent", h.Analytics.HandleRecentPredictions)
	}

	return router
}

// WithCORS wraps the router for the dashboard frontend origins
func WithCORS(handler http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID", "X-Session-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:           300,
	}).Handler(handler)
}
