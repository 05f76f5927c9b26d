package model

import (
	"encoding/json"

	"github.com/ridwanfathin/edge-transaction-service/internal/detection"
	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
)

// TransactionListResponse represents a paginated list of transactions
type TransactionListResponse struct {
	Data       []domain.Transaction `json:"data"`
	Pagination PaginationResponse   `json:"pagination"`
}

// PaginationResponse represents offset pagination metadata
type PaginationResponse struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// BatchSubmissionRequest carries transactions replayed from an edge spool
type BatchSubmissionRequest struct {
	Transactions []json.RawMessage `json:"transactions"`
}

// BatchItemResponse is the outcome of one transaction in a batch
type BatchItemResponse struct {
	Index         int           `json:"index"`
	Status        int           `json:"status"`
	Success       bool          `json:"success"`
	TransactionID string        `json:"transactionId,omitempty"`
	Message       string        `json:"message"`
	Duplicate     bool          `json:"duplicate,omitempty"`
	Retryable     bool          `json:"retryable,omitempty"`
	Details       []ErrorDetail `json:"details,omitempty"`
}

// BatchSubmissionResponse summarises a batch submission
type BatchSubmissionResponse struct {
	Accepted   int                 `json:"accepted"`
	Duplicates int                 `json:"duplicates"`
	Failed     int                 `json:"failed"`
	Results    []BatchItemResponse `json:"results"`
}

// AssembleRequest carries raw edge detections plus the transaction header
type AssembleRequest struct {
	TransactionID string               `json:"transactionId"`
	StoreID       string               `json:"storeId" binding:"required"`
	DeviceID      string               `json:"deviceId" binding:"required"`
	Timestamp     string               `json:"timestamp"`
	PaymentMethod string               `json:"paymentMethod"`
	EdgeVersion   string               `json:"edgeVersion"`
	Detections    []detection.Envelope `json:"detections"`
}

// StoreRequest registers or relocates a store
type StoreRequest struct {
	Region   string `json:"region"`
	Province string `json:"province,omitempty"`
	City     string `json:"city,omitempty"`
}

// StoreAnalyticsResponse wraps daily store rollups
type StoreAnalyticsResponse struct {
	Data []domain.StoreAnalytics `json:"data"`
}

// BrandPerformanceResponse wraps brand rollups
type BrandPerformanceResponse struct {
	Data []domain.BrandPerformance `json:"data"`
}

// CategoryPerformanceResponse wraps category totals
type CategoryPerformanceResponse struct {
	Data []domain.CategoryStat `json:"data"`
}

// RegionalInsightsResponse wraps regional rollups
type RegionalInsightsResponse struct {
	Data []domain.RegionalInsight `json:"data"`
}

// DetectionAnalyticsResponse wraps per-method detection stats
type DetectionAnalyticsResponse struct {
	Data []domain.DetectionStat `json:"data"`
}

// UnbrandedOpportunitiesResponse wraps unbranded volume rows
type UnbrandedOpportunitiesResponse struct {
	Data []domain.UnbrandedOpportunity `json:"data"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FromFieldErrors converts domain field errors into response details
func FromFieldErrors(fields []domain.FieldError) []ErrorDetail {
	details := make([]ErrorDetail, 0, len(fields))
	for _, f := range fields {
		details = append(details, ErrorDetail{Field: f.Field, Message: f.Message})
	}
	return details
}
