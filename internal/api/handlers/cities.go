package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/middleware"
	"github.com/demodash/backend/internal/models"
	"github.com/demodash/backend/internal/query"
	"github.com/demodash/backend/internal/services"
	"github.com/demodash/backend/pkg/utils"
)

type CityHandler struct {
	cityService    *services.CityService
	analytics      *services.AnalyticsService
	requestTimeout time.Duration
	logger         *logrus.Logger
}

func NewCityHandler(
	cityService *services.CityService,
	analytics *services.AnalyticsService,
	requestTimeout time.Duration,
	logger *logrus.Logger,
) *CityHandler {
	return &CityHandler{
		cityService:    cityService,
		analytics:      analytics,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

// HandleQuery serves GET /cities with the filter in the query string
func (h *CityHandler) HandleQuery(c *gin.Context) {
	var req models.CityQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}
	h.runQuery(c, req)
}

// HandleQueryJSON serves POST /cities/query
func (h *CityHandler) HandleQueryJSON(c *gin.Context) {
	var req models.CityQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	h.runQuery(c, req)
}

func (h *CityHandler) runQuery(c *gin.Context, req models.CityQueryRequest) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	outcome, err := h.cityService.Query(ctx, req.RawInputs())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = models.DefaultTableLimit
	}
	top := req.Top
	if top == 0 {
		top = models.DefaultTopN
	}

	responseTime := time.Since(startTime)
	response := models.CityQueryResponse{
		Spec:             outcome.Spec,
		IgnoredCountries: nonNil(outcome.IgnoredCountries),
		Count:            outcome.Result.Count,
		TotalPopulation:  outcome.Result.TotalPopulation,
		Summary:          query.Summarize(outcome.Result, top),
		Table:            query.BuildTable(outcome.Result, req.Offset, limit),
		Points:           query.MapPoints(outcome.Result),
		Cached:           outcome.Cached,
		ResponseTime:     int(responseTime.Milliseconds()),
	}

	// Values are captured here; the gin context must not be used after the handler returns.
	queryLog := &models.QueryLog{
		RequestID:        middleware.GetRequestID(c),
		SpecKey:          outcome.Spec.Key(),
		PopulationMin:    outcome.Spec.PopulationMin,
		PopulationMax:    outcome.Spec.PopulationMax,
		CapitalFilter:    string(outcome.Spec.Capital),
		Countries:        models.StringArray(outcome.Spec.Countries),
		IgnoredCountries: models.StringArray(outcome.IgnoredCountries),
		ResultCount:      outcome.Result.Count,
		TotalPopulation:  outcome.Result.TotalPopulation,
		CacheHit:         outcome.Cached,
		ResponseTimeMs:   int(responseTime.Milliseconds()),
		UserSession:      userSession(c),
		UserAgent:        c.GetHeader("User-Agent"),
		IPAddress:        c.ClientIP(),
	}
	go h.analytics.TrackQuery(queryLog)

	h.logger.WithFields(logrus.Fields{
		"spec":          outcome.Spec.Key(),
		"results_count": outcome.Result.Count,
		"cached":        outcome.Cached,
		"response_time": responseTime.Milliseconds(),
	}).Info("City query completed")

	utils.SuccessResponse(c, http.StatusOK, "Query completed", response)
}

func (h *CityHandler) HandleCountries(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	countries, err := h.cityService.Countries(ctx)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Countries retrieved", models.CountriesResponse{
		Countries: countries,
		Total:     len(countries),
	})
}

func (h *CityHandler) HandleSummary(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	summary, err := h.cityService.Summary(ctx)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Dataset summary", summary)
}

// HandleExport streams the filtered rows as a CSV or XLSX attachment
func (h *CityHandler) HandleExport(c *gin.Context) {
	var req models.CityQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", query.ExportCSV))
	contentType, err := query.ContentType(format)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	outcome, err := h.cityService.Query(ctx, req.RawInputs())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("cities-%s.%s", utils.GenerateRandomID(8), format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)

	if err := query.Export(c.Writer, format, outcome.Result); err != nil {
		// Headers are already sent; the client sees a truncated file.
		h.logger.WithError(err).WithField("format", format).Error("Export failed")
		_ = c.Error(err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"format": format,
		"rows":   outcome.Result.Count,
	}).Info("Cities exported")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
