package handler

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/model"
)

const dateLayout = "2006-01-02"

// getPathParam retrieves a path parameter and validates it's not empty
func getPathParam(c *gin.Context, paramName string) (string, error) {
	value := c.Param(paramName)
	if value == "" {
		return "", fmt.Errorf("%s is required", paramName)
	}
	return value, nil
}

// getQueryInt retrieves an integer query parameter with a default value
func getQueryInt(c *gin.Context, paramName string, defaultValue int) (int, error) {
	valueStr := c.Query(paramName)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be an integer", paramName)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", paramName)
	}

	return value, nil
}

// parseDate parses a date string in YYYY-MM-DD format
func parseDate(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, nil
	}

	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: expected YYYY-MM-DD")
	}

	return date, nil
}

// parseDateRange reads startDate and endDate, both optional
func parseDateRange(c *gin.Context) (*time.Time, *time.Time, []model.ErrorDetail) {
	var details []model.ErrorDetail
	var start, end *time.Time

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"startDate", &start}, {"endDate", &end}} {
		date, err := parseDate(c.Query(p.name))
		if err != nil {
			details = append(details, newErrorDetail(p.name, err.Error()))
			continue
		}
		if !date.IsZero() {
			*p.dst = &date
		}
	}
	return start, end, details
}

// parseTransactionFilter extracts list filters. endDate includes the whole day.
func parseTransactionFilter(c *gin.Context) (domain.TransactionFilter, []model.ErrorDetail) {
	filter := domain.TransactionFilter{
		StoreID:  c.Query("storeId"),
		DeviceID: c.Query("deviceId"),
	}

	start, end, details := parseDateRange(c)
	filter.StartDate = start
	if end != nil {
		last := end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.EndDate = &last
	}

	var err error
	if filter.Limit, err = getQueryInt(c, "limit", 0); err != nil {
		details = append(details, newErrorDetail("limit", err.Error()))
	}
	if filter.Offset, err = getQueryInt(c, "offset", 0); err != nil {
		details = append(details, newErrorDetail("offset", err.Error()))
	}
	return filter, details
}

// parseAnalyticsFilter extracts analytics filters
func parseAnalyticsFilter(c *gin.Context) (domain.AnalyticsFilter, []model.ErrorDetail) {
	filter := domain.AnalyticsFilter{StoreID: c.Query("storeId")}

	start, end, details := parseDateRange(c)
	filter.StartDate = start
	filter.EndDate = end

	var err error
	if filter.Limit, err = getQueryInt(c, "limit", 0); err != nil {
		details = append(details, newErrorDetail("limit", err.Error()))
	}
	if filter.CategoryLimit, err = getQueryInt(c, "categoryLimit", 0); err != nil {
		details = append(details, newErrorDetail("categoryLimit", err.Error()))
	}
	return filter, details
}

// getQueryFloat retrieves a non-negative number query parameter with a default value
func getQueryFloat(c *gin.Context, paramName string, defaultValue float64) (float64, error) {
	valueStr := c.Query(paramName)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid %s: must be a number", paramName)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", paramName)
	}

	return value, nil
}

// parseOpportunityFilter extracts analytics filters plus category and minVolume
func parseOpportunityFilter(c *gin.Context) (domain.OpportunityFilter, []model.ErrorDetail) {
	scope, details := parseAnalyticsFilter(c)
	filter := domain.OpportunityFilter{
		AnalyticsFilter: scope,
		Category:        c.Query("category"),
	}

	var err error
	if filter.MinVolume, err = getQueryFloat(c, "minVolume", domain.DefaultMinVolume); err != nil {
		details = append(details, newErrorDetail("minVolume", err.Error()))
	}
	return filter, details
}
