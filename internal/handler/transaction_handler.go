package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ridwanfathin/edge-transaction-service/internal/detection"
	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/model"
	"github.com/ridwanfathin/edge-transaction-service/internal/service"
)

// MaxBatchSize caps the transactions accepted by one batch request
const MaxBatchSize = 100

// TransactionHandler handles HTTP requests for transaction ingestion
type TransactionHandler struct {
	transactionService service.TransactionService
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

// SubmitTransaction handles the POST /transactions endpoint
// @Summary Submit a completed transaction
// @Description Validate, enrich and store a transaction captured by an edge device. Resubmitting the same transactionId for a store is acknowledged without storing it again.
// @Tags transactions
// @Accept json
// @Produce json
// @Param transaction body domain.Transaction true "Transaction captured at the edge"
// @Success 201 {object} domain.SubmissionResult "Transaction stored"
// @Success 200 {object} domain.SubmissionResult "Duplicate transaction acknowledged"
// @Failure 400 {object} model.ErrorResponse "Validation failed"
// @Failure 429 {object} model.ErrorResponse "Device is sending too fast"
// @Failure 503 {object} model.ErrorResponse "Temporary failure, retry later"
// @Router /v1/transactions [post]
func (h *TransactionHandler) SubmitTransaction(c *gin.Context) {
	var input domain.Transaction
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("body", err.Error()))
		return
	}

	result, err := h.transactionService.Submit(c.Request.Context(), &input)
	if err != nil {
		respondServiceError(c, "submit_transaction", err)
		return
	}

	if result.Duplicate {
		respondOK(c, result)
		return
	}
	respondCreated(c, result)
}

// SubmitBatch handles the POST /transactions/batch endpoint
// @Summary Replay spooled transactions
// @Description Submit up to 100 transactions at once. Each transaction is accepted or rejected on its own.
// @Tags transactions
// @Accept json
// @Produce json
// @Param batch body model.BatchSubmissionRequest true "Spooled transactions"
// @Success 200 {object} model.BatchSubmissionResponse "Per-transaction results"
// @Failure 400 {object} model.ErrorResponse "Malformed batch"
// @Router /v1/transactions/batch [post]
func (h *TransactionHandler) SubmitBatch(c *gin.Context) {
	var input model.BatchSubmissionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("body", err.Error()))
		return
	}
	if len(input.Transactions) == 0 {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("transactions", "must contain at least 1 entry"))
		return
	}
	if len(input.Transactions) > MaxBatchSize {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("transactions", fmt.Sprintf("must contain at most %d entries", MaxBatchSize)))
		return
	}

	response := model.BatchSubmissionResponse{
		Results: make([]model.BatchItemResponse, len(input.Transactions)),
	}

	// undecodable entries are answered directly, the rest go to the service
	var txns []*domain.Transaction
	var positions []int
	for i, raw := range input.Transactions {
		var txn domain.Transaction
		if err := json.Unmarshal(raw, &txn); err != nil {
			response.Results[i] = model.BatchItemResponse{
				Index:   i,
				Status:  StatusBadRequest,
				Message: ErrInvalidInput,
				Details: []model.ErrorDetail{newErrorDetail(fmt.Sprintf("transactions[%d]", i), err.Error())},
			}
			continue
		}
		txns = append(txns, &txn)
		positions = append(positions, i)
	}

	for j, r := range h.transactionService.SubmitBatch(c.Request.Context(), txns) {
		i := positions[j]
		item := model.BatchItemResponse{Index: i, TransactionID: txns[j].TransactionID}
		if r.Err != nil {
			status, message, details := classifyError(r.Err)
			item.Status = status
			item.Message = message
			item.Details = details
			item.Retryable = status == StatusServiceUnavailable
			if status >= StatusInternalServerError {
				logError(c, "submit_batch", r.Err)
			}
		} else {
			item.Success = true
			item.Message = r.Result.Message
			item.Duplicate = r.Result.Duplicate
			item.Status = StatusCreated
			if r.Result.Duplicate {
				item.Status = StatusOK
			}
		}
		response.Results[i] = item
	}

	for _, r := range response.Results {
		switch {
		case r.Duplicate:
			response.Duplicates++
		case r.Success:
			response.Accepted++
		default:
			response.Failed++
		}
	}
	respondOK(c, response)
}

// ListTransactions handles the GET /transactions endpoint
// @Summary List transactions
// @Description Page through stored transactions, newest first
// @Tags transactions
// @Produce json
// @Param storeId query string false "Store filter"
// @Param deviceId query string false "Device filter"
// @Param startDate query string false "Start date filter (YYYY-MM-DD)"
// @Param endDate query string false "End date filter, inclusive (YYYY-MM-DD)"
// @Param limit query int false "Page size (max 100)" default(50)
// @Param offset query int false "Rows to skip" default(0)
// @Success 200 {object} model.TransactionListResponse "Page of transactions"
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Router /v1/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	filter, details := parseTransactionFilter(c)
	if len(details) > 0 {
		respondBadRequest(c, ErrInvalidQueryParams, details...)
		return
	}

	page, err := h.transactionService.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, "list_transactions", err)
		return
	}

	respondOK(c, model.TransactionListResponse{
		Data: page.Data,
		Pagination: model.PaginationResponse{
			Total:  page.Pagination.Total,
			Limit:  page.Pagination.Limit,
			Offset: page.Pagination.Offset,
		},
	})
}

// GetTransaction handles the GET /transactions/{transactionId} endpoint
// @Summary Get a transaction
// @Description Retrieve a stored transaction. Without storeId the most recently received match is returned.
// @Tags transactions
// @Produce json
// @Param transactionId path string true "Transaction ID"
// @Param storeId query string false "Store the transaction belongs to"
// @Success 200 {object} domain.Transaction "Transaction details"
// @Failure 404 {object} model.ErrorResponse "Transaction not found"
// @Router /v1/transactions/{transactionId} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transactionID, err := getPathParam(c, "transactionId")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	txn, err := h.transactionService.GetTransaction(c.Request.Context(), c.Query("storeId"), transactionID)
	if err != nil {
		respondServiceError(c, "get_transaction", err)
		return
	}

	respondOK(c, txn)
}

// AssembleTransaction handles the POST /detections/assemble endpoint
// @Summary Assemble a draft from raw detections
// @Description Merge voice, OCR, vision and manual detections into classified line items with totals and insights. Nothing is stored.
// @Tags detections
// @Accept json
// @Produce json
// @Param request body model.AssembleRequest true "Transaction header and detections"
// @Success 200 {object} domain.Transaction "Draft transaction"
// @Failure 400 {object} model.ErrorResponse "Invalid detections"
// @Router /v1/detections/assemble [post]
func (h *TransactionHandler) AssembleTransaction(c *gin.Context) {
	var input model.AssembleRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("body", err.Error()))
		return
	}

	draft := detection.Draft{
		TransactionID: input.TransactionID,
		StoreID:       input.StoreID,
		DeviceID:      input.DeviceID,
		PaymentMethod: input.PaymentMethod,
		EdgeVersion:   input.EdgeVersion,
	}
	if input.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, input.Timestamp)
		if err != nil {
			respondBadRequest(c, ErrInvalidInput, newErrorDetail("timestamp", "must be an RFC3339 timestamp"))
			return
		}
		draft.Timestamp = ts
	}

	detections, err := detection.FromEnvelopes(input.Detections)
	if err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("detections", err.Error()))
		return
	}

	respondOK(c, h.transactionService.Assemble(c.Request.Context(), draft, detections))
}

// RegisterRoutes registers the transaction API routes. ingest guards the
// write endpoints, typically with the per-device rate limiter.
func (h *TransactionHandler) RegisterRoutes(router *gin.Engine, ingest ...gin.HandlerFunc) {
	api := router.Group("/v1")

	transactions := api.Group("/transactions")
	{
		transactions.POST("", chain(ingest, h.SubmitTransaction)...)
		transactions.POST("/batch", chain(ingest, h.SubmitBatch)...)
		transactions.GET("", h.ListTransactions)
		transactions.GET("/:transactionId", h.GetTransaction)
	}

	api.POST("/detections/assemble", h.AssembleTransaction)
}

// chain returns a new handler list so routes never share a backing array
func chain(middleware []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	handlers := make([]gin.HandlerFunc, 0, len(middleware)+1)
	handlers = append(handlers, middleware...)
	return append(handlers, handler)
}
