package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/logger"
	"github.com/ridwanfathin/edge-transaction-service/internal/model"
)

// HTTP status codes as constants for consistency
const (
	StatusOK                  = http.StatusOK
	StatusCreated             = http.StatusCreated
	StatusBadRequest          = http.StatusBadRequest
	StatusNotFound            = http.StatusNotFound
	StatusTooManyRequests     = http.StatusTooManyRequests
	StatusInternalServerError = http.StatusInternalServerError
	StatusServiceUnavailable  = http.StatusServiceUnavailable
)

// Common error messages
const (
	ErrInvalidInput       = "Invalid input format"
	ErrInvalidQueryParams = "Invalid query parameters"
	ErrValidationFailed   = "Transaction validation failed"
	ErrResourceNotFound   = "Resource not found"
	ErrInternalServer     = "Internal server error"
	ErrTemporaryFailure   = "Temporary storage failure, retry later"
)

// RetryAfterSeconds is sent with 503 responses
const RetryAfterSeconds = 1

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, message string, details ...model.ErrorDetail) {
	response := model.ErrorResponse{
		Status:  http.StatusText(statusCode),
		Message: message,
		Details: details,
	}
	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...model.ErrorDetail) {
	respondWithError(c, StatusBadRequest, message, details...)
}

// respondNotFound sends a 404 Not Found response
func respondNotFound(c *gin.Context, message string) {
	respondWithError(c, StatusNotFound, message)
}

// respondServiceUnavailable sends a 503 with a Retry-After hint
func respondServiceUnavailable(c *gin.Context, message string) {
	c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
	respondWithError(c, StatusServiceUnavailable, message)
}

// respondInternalServerError sends a 500 Internal Server Error response
func respondInternalServerError(c *gin.Context, message string) {
	respondWithError(c, StatusInternalServerError, message)
}

// respondCreated sends a 201 Created response with data
func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(StatusCreated, data)
}

// respondOK sends a 200 OK response with data
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(StatusOK, data)
}

// newErrorDetail creates a new error detail
func newErrorDetail(field, message string) model.ErrorDetail {
	return model.ErrorDetail{
		Field:   field,
		Message: message,
	}
}

// classifyError maps a service error to its HTTP status, message and details
func classifyError(err error) (int, string, []model.ErrorDetail) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return StatusBadRequest, ErrValidationFailed, model.FromFieldErrors(verr.Fields)
	case errors.Is(err, domain.ErrTransactionNotFound):
		return StatusNotFound, "Transaction not found", nil
	case errors.Is(err, domain.ErrStoreNotFound):
		return StatusNotFound, "Store not found", nil
	case domain.IsRetryable(err), errors.Is(err, context.DeadlineExceeded):
		return StatusServiceUnavailable, ErrTemporaryFailure, nil
	default:
		return StatusInternalServerError, ErrInternalServer, nil
	}
}

// respondServiceError writes the response for a failed service call
func respondServiceError(c *gin.Context, op string, err error) {
	status, message, details := classifyError(err)
	if status >= StatusInternalServerError {
		logError(c, op, err)
	}
	switch status {
	case StatusServiceUnavailable:
		respondServiceUnavailable(c, message)
	default:
		respondWithError(c, status, message, details...)
	}
}

// logError records a failed request on the request-scoped logger
func logError(c *gin.Context, op string, err error) {
	log := logger.FromContext(c.Request.Context())
	log.Error().
		Str("op", op).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Err(err).
		Msg("request failed")
}
