package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dalfonso89/currency-converter/internal/display"
	"github.com/dalfonso89/currency-converter/internal/metrics"
	"github.com/dalfonso89/currency-converter/internal/middleware"
	"github.com/dalfonso89/currency-converter/internal/models"
	"github.com/dalfonso89/currency-converter/internal/ratelimit"
	"github.com/dalfonso89/currency-converter/internal/service"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// maxTables bounds how many base currencies one /tables request may fetch
const maxTables = 10

// HandlerConfig holds the dependencies of Handlers
type HandlerConfig struct {
	Logger       *logrus.Logger
	RatesService *service.RatesService
	RateLimiter  *ratelimit.Limiter
	Metrics      *metrics.ConverterMetrics

	// TrustedProxies may set the client IP through X-Forwarded-For; nil trusts none
	TrustedProxies []string
}

// Handlers contains all HTTP handlers
type Handlers struct {
	logger       *logrus.Logger
	startTime    time.Time
	ratesService *service.RatesService
	rateLimiter  *ratelimit.Limiter
	metrics      *metrics.ConverterMetrics
	validate     *validator.Validate

	trustedProxies []string
}

// NewHandlers creates a new handlers instance
func NewHandlers(handlerConfig HandlerConfig) *Handlers {
	return &Handlers{
		logger:       handlerConfig.Logger,
		startTime:    time.Now(),
		ratesService: handlerConfig.RatesService,
		rateLimiter:  handlerConfig.RateLimiter,
		metrics:      handlerConfig.Metrics,
		validate:     validator.New(),

		trustedProxies: handlerConfig.TrustedProxies,
	}
}

// SetupRoutes configures all the routes using Gin
func (handlers *Handlers) SetupRoutes() *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(handlers.trustedProxies); err != nil {
		handlers.logger.Errorf("Ignoring trusted proxies: %v", err)
		_ = router.SetTrustedProxies(nil)
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(handlers.logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())

	router.GET("/health", handlers.HealthCheck)
	if handlers.metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(handlers.metrics.Registry, promhttp.HandlerOpts{})))
	}

	apiV1 := router.Group("/api/v1")
	if handlers.rateLimiter != nil {
		apiV1.Use(handlers.rateLimiter.Middleware())
	}
	{
		apiV1.GET("/rates", handlers.GetRates)
		apiV1.GET("/rates/:base", handlers.GetRatesByBase)
		apiV1.GET("/tables", handlers.GetTables)
		apiV1.GET("/convert", handlers.Convert)
		apiV1.POST("/convert/batch", handlers.ConvertBatch)
	}

	return router
}

// HealthCheck reports liveness; it never calls the rate provider
func (handlers *Handlers) HealthCheck(context *gin.Context) {
	healthStatus := "healthy"
	if handlers.ratesService == nil {
		healthStatus = "degraded"
	}

	context.JSON(http.StatusOK, models.HealthCheck{
		Status:    healthStatus,
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(handlers.startTime).String(),
	})
}

// GetRates returns a fresh table for the base query parameter
func (handlers *Handlers) GetRates(context *gin.Context) {
	handlers.writeRates(context, context.Query("base"))
}

// GetRatesByBase returns a fresh table for the base path parameter
func (handlers *Handlers) GetRatesByBase(context *gin.Context) {
	handlers.writeRates(context, context.Param("base"))
}

func (handlers *Handlers) writeRates(context *gin.Context, baseCurrency string) {
	if !handlers.ready(context) {
		return
	}

	table, err := handlers.ratesService.FetchRates(context.Request.Context(), baseCurrency)
	if err != nil {
		handlers.writeServiceError(context, err)
		return
	}
	context.JSON(http.StatusOK, table)
}

// GetTables fetches several base tables concurrently, e.g. ?bases=USD,EUR
func (handlers *Handlers) GetTables(context *gin.Context) {
	if !handlers.ready(context) {
		return
	}

	var bases []string
	for _, base := range strings.Split(context.Query("bases"), ",") {
		if code := models.NormalizeCode(base); code != "" {
			bases = append(bases, code)
		}
	}
	if len(bases) == 0 || len(bases) > maxTables {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid bases",
			fmt.Sprintf("bases must list between 1 and %d currency codes", maxTables))
		return
	}

	tables, err := handlers.ratesService.FetchTables(context.Request.Context(), bases)
	if err != nil {
		handlers.writeServiceError(context, err)
		return
	}
	context.JSON(http.StatusOK, models.TablesResponse{Tables: tables})
}

// Convert converts ?amount=&from=&to= against a fresh table for ?base= (default base when absent)
func (handlers *Handlers) Convert(context *gin.Context) {
	if !handlers.ready(context) {
		return
	}

	amount, err := service.ParseAmount(context.Query("amount"))
	if err != nil {
		handlers.writeServiceError(context, err)
		return
	}

	request := models.ConversionRequest{
		Amount: amount,
		From:   context.Query("from"),
		To:     context.Query("to"),
	}
	result, table, err := handlers.ratesService.Quote(context.Request.Context(), context.Query("base"), request)
	if err != nil {
		handlers.writeServiceError(context, err)
		return
	}

	context.JSON(http.StatusOK, models.ConvertResponse{
		From:        result.From,
		To:          result.To,
		Amount:      result.Amount,
		Rate:        result.Rate,
		Converted:   result.Converted,
		Display:     display.Conversion(result),
		Base:        table.Base,
		LastUpdated: table.LastUpdated,
	})
}

// ConvertBatch converts every entry of the body against one fresh table.
// Entries that fail are reported in place; the response is 200 unless the fetch itself failed.
func (handlers *Handlers) ConvertBatch(context *gin.Context) {
	if !handlers.ready(context) {
		return
	}

	var batchRequest models.BatchConvertRequest
	if err := context.ShouldBindJSON(&batchRequest); err != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := handlers.validate.Struct(batchRequest); err != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	results, table, err := handlers.ratesService.ConvertBatch(context.Request.Context(), batchRequest.Base, batchRequest.Conversions)
	var batchErr *service.BatchError
	if err != nil && !errors.As(err, &batchErr) {
		handlers.writeServiceError(context, err)
		return
	}

	response := models.BatchConvertResponse{
		Base:        table.Base,
		LastUpdated: table.LastUpdated,
		Results:     make([]models.BatchEntry, len(results)),
	}
	for i, result := range results {
		entry := models.BatchEntry{
			From:      result.From,
			To:        result.To,
			Amount:    result.Amount,
			Rate:      result.Rate,
			Converted: result.Converted,
		}
		if result.Err != nil {
			entry.Error = result.Err.Error()
			response.Failed++
		} else {
			entry.Display = display.BatchLine(result)
		}
		response.Results[i] = entry
	}

	context.JSON(http.StatusOK, response)
}

func (handlers *Handlers) ready(context *gin.Context) bool {
	if handlers.ratesService == nil {
		handlers.writeErrorResponse(context, http.StatusServiceUnavailable, "rates service unavailable", "not configured")
		return false
	}
	return true
}

// writeServiceError maps converter errors onto HTTP statuses
func (handlers *Handlers) writeServiceError(context *gin.Context, err error) {
	_ = context.Error(err)

	switch service.Classify(err) {
	case service.ErrorTypeInvalidAmount:
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid amount", err.Error())
	case service.ErrorTypeInvalidCurrency:
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid currency", err.Error())
	case service.ErrorTypeRateFetch:
		handlers.writeErrorResponse(context, http.StatusBadGateway, "failed to fetch rates", err.Error())
	default:
		handlers.logger.Errorf("Unclassified error: %v", err)
		handlers.writeErrorResponse(context, http.StatusInternalServerError, "internal error", err.Error())
	}
}

// writeErrorResponse writes an error response using Gin context
func (handlers *Handlers) writeErrorResponse(context *gin.Context, statusCode int, errorMessage, errorDetails string) {
	context.JSON(statusCode, models.ErrorResponse{
		Error:   errorMessage,
		Message: errorDetails,
		Code:    statusCode,
	})
}
