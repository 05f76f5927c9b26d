package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/model"
	"github.com/ridwanfathin/edge-transaction-service/internal/service"
)

// StoreHandler handles the store directory
type StoreHandler struct {
	transactionService service.TransactionService
}

// NewStoreHandler creates a new store handler
func NewStoreHandler(transactionService service.TransactionService) *StoreHandler {
	return &StoreHandler{transactionService: transactionService}
}

// RegisterStore handles PUT /v1/stores/{storeId}
// @Summary Register a store location
// @Description Create or update the region a store belongs to. Transactions from unregistered stores are left out of regional insights.
// @Tags stores
// @Accept json
// @Produce json
// @Param storeId path string true "Store ID"
// @Param store body model.StoreRequest true "Store location"
// @Success 200 {object} domain.Store "Registered store"
// @Failure 400 {object} model.ErrorResponse "Invalid input"
// @Router /v1/stores/{storeId} [put]
func (h *StoreHandler) RegisterStore(c *gin.Context) {
	storeID, err := getPathParam(c, "storeId")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	var input model.StoreRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("body", err.Error()))
		return
	}

	store, err := h.transactionService.RegisterStore(c.Request.Context(), &domain.Store{
		StoreID:  storeID,
		Region:   input.Region,
		Province: input.Province,
		City:     input.City,
	})
	if err != nil {
		respondServiceError(c, "register_store", err)
		return
	}

	respondOK(c, store)
}

// RegisterRoutes registers the store routes
func (h *StoreHandler) RegisterRoutes(router *gin.Engine) {
	router.PUT("/v1/stores/:storeId", h.RegisterStore)
}
