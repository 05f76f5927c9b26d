package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ridwanfathin/edge-transaction-service/internal/model"
	"github.com/ridwanfathin/edge-transaction-service/internal/service"
)

// AnalyticsHandler handles analytics endpoints backed by the rollups
type AnalyticsHandler struct {
	transactionService service.TransactionService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(transactionService service.TransactionService) *AnalyticsHandler {
	return &AnalyticsHandler{
		transactionService: transactionService,
	}
}

// GetStoreAnalytics handles GET /v1/analytics/stores endpoint
// @Summary Get daily store analytics
// @Description Daily revenue, transaction count, branded revenue and unique brands per store
// @Tags analytics
// @Produce json
// @Param storeId query string false "Store filter"
// @Param startDate query string false "Start date filter (YYYY-MM-DD)"
// @Param endDate query string false "End date filter, inclusive (YYYY-MM-DD)"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} model.StoreAnalyticsResponse "Store analytics"
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/analytics/stores [get]
func (h *AnalyticsHandler) GetStoreAnalytics(c *gin.Context) {
	filter, details := parseAnalyticsFilter(c)
	if len(details) > 0 {
		respondBadRequest(c, ErrInvalidQueryParams, details...)
		return
	}

	rows, err := h.transactionService.GetStoreAnalytics(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, "get_store_analytics", err)
		return
	}

	respondOK(c, model.StoreAnalyticsResponse{Data: rows})
}

// GetBrandPerformance handles GET /v1/analytics/brands endpoint
// @Summary Get brand performance
// @Description Units, revenue, average and last price per brand, highest revenue first
// @Tags analytics
// @Produce json
// @Param storeId query string false "Store filter"
// @Param startDate query string false "Start date filter (YYYY-MM-DD)"
// @Param endDate query string false "End date filter, inclusive (YYYY-MM-DD)"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} model.BrandPerformanceResponse "Brand performance"
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/analytics/brands [get]
func (h *AnalyticsHandler) GetBrandPerformance(c *gin.Context) {
	filter, details := parseAnalyticsFilter(c)
	if len(details) > 0 {
		respondBadRequest(c, ErrInvalidQueryParams, details...)
		return
	}

	rows, err := h.transactionService.GetBrandPerformance(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, "get_brand_performance", err)
		return
	}

	respondOK(c, model.BrandPerformanceResponse{Data: rows})
}

// GetCategoryPerformance handles GET /v1/analytics/categories endpoint
// @Summary Get category performance
// @Description Revenue and quantity per category, highest revenue first
// @Tags analytics
// @Produce json
// @Param storeId query string false "Store filter"
// @Param startDate query string false "Start date filter (YYYY-MM-DD)"
// @Param endDate query string false "End date filter, inclusive (YYYY-MM-DD)"
// @Param categoryLimit query int false "Maximum categories (default 10)"
// @Success 200 {object} model.CategoryPerformanceResponse "Category performance"
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/analytics/categories [get]
func (h *AnalyticsHandler) GetCategoryPerformance(c *gin.Context) {
	filter, details := parseAnalyticsFilter(c)
	if len(details) > 0 {
		respondBadRequest(c, ErrInvalidQueryParams, details...)
		return
	}

	rows, err := h.transactionService.GetCategoryPerformance(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, "get_category_performance", err)
		return
	}

	respondOK(c, model.CategoryPerformanceResponse{Data: rows})
}

// GetRegionalInsights handles GET /v1/analytics/regions endpoint
// @Summary Get regional insights
// @Description Transactions, revenue, branded share and top categories per region
// @Tags analytics
// @Produce json
// @Param storeId query string false "Store filter"
// @Param startDate query string false "Start date filter (YYYY-MM-DD)"
// @Param endDate query string false "End date filter, inclusive (YYYY-MM-DD)"
// @Param limit query int false "Maximum regions"
// @Param categoryLimit query int false "Top categories per region (default 10)"
// @Success 200 {object} model.RegionalInsightsResponse "Regional insights"
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/analytics/regions [get]
func (h *AnalyticsHandler) GetRegionalInsights(c *gin.Context) {
	filter, details := parseAnalyticsFilter(c)
	if len(details) > 0 {
		respondBadRequest(c, ErrInvalidQueryParams, details...)
		return
	}

	rows, err := h.transactionService.GetRegionalInsights(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, "get_regional_insights", err)
		return
	}

	respondOK(c, model.RegionalInsightsResponse{Data: rows})
}

// GetDetectionAnalytics handles GET /v1/analytics/detections endpoint
// @Summary Get detection analytics
// @Description Item count, average confidence, low-confidence count and revenue per detection method
// @Tags analytics
// @Produce json
// @Param storeId query string false "Store filter"
// @Param startDate query string false "Start date filter (YYYY-MM-DD)"
// @Param endDate query string false "End date filter, inclusive (YYYY-MM-DD)"
// @Success 200 {object} model.DetectionAnalyticsResponse "Detection analytics"
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/analytics/detections [get]
func (h *AnalyticsHandler) GetDetectionAnalytics(c *gin.Context) {
	filter, details := parseAnalyticsFilter(c)
	if len(details) > 0 {
		respondBadRequest(c, ErrInvalidQueryParams, details...)
		return
	}

	rows, err := h.transactionService.GetDetectionAnalytics(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, "get_detection_analytics", err)
		return
	}

	respondOK(c, model.DetectionAnalyticsResponse{Data: rows})
}

// GetUnbrandedOpportunities handles GET /v1/analytics/unbranded-opportunities endpoint
// @Summary Get unbranded opportunities
// @Description Unbranded volume per category and product, largest volume first
// @Tags analytics
// @Produce json
// @Param storeId query string false "Store filter"
// @Param startDate query string false "Start date filter (YYYY-MM-DD)"
// @Param endDate query string false "End date filter, inclusive (YYYY-MM-DD)"
// @Param category query string false "Category filter"
// @Param minVolume query number false "Minimum total quantity (default 10)"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} model.UnbrandedOpportunitiesResponse "Unbranded opportunities"
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/analytics/unbranded-opportunities [get]
func (h *AnalyticsHandler) GetUnbrandedOpportunities(c *gin.Context) {
	filter, details := parseOpportunityFilter(c)
	if len(details) > 0 {
		respondBadRequest(c, ErrInvalidQueryParams, details...)
		return
	}

	rows, err := h.transactionService.GetUnbrandedOpportunities(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, "get_unbranded_opportunities", err)
		return
	}

	respondOK(c, model.UnbrandedOpportunitiesResponse{Data: rows})
}

// RegisterRoutes registers the analytics routes
func (h *AnalyticsHandler) RegisterRoutes(router *gin.Engine) {
	analytics := router.Group("/v1/analytics")
	{
		analytics.GET("/stores", h.GetStoreAnalytics)
		analytics.GET("/brands", h.GetBrandPerformance)
		analytics.GET("/categories", h.GetCategoryPerformance)
		analytics.GET("/regions", h.GetRegionalInsights)
		analytics.GET("/detections", h.GetDetectionAnalytics)
		analytics.GET("/unbranded-opportunities", h.GetUnbrandedOpportunities)
	}
}
