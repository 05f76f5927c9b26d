package repository

import (
	"context"

	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/rollup"
)

// RollupFunc applies analytics increments inside the unit of work that
// stores a transaction
type RollupFunc func(ctx context.Context, inc rollup.Incrementer) error

// TransactionRepository defines the interface for transaction data operations
type TransactionRepository interface {
	// SaveTransaction stores the header, its items and the rollup increments
	// atomically. It returns domain.ErrDuplicateTransaction without writing
	// anything when (storeId, transactionId) already exists.
	SaveTransaction(ctx context.Context, txn *domain.Transaction, apply RollupFunc) error
	GetTransactionByID(ctx context.Context, storeID, transactionID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) (*domain.PaginatedTransactions, error)
}

// StoreRepository manages the store directory used for regional rollups
type StoreRepository interface {
	UpsertStore(ctx context.Context, store *domain.Store) error
	GetStore(ctx context.Context, storeID string) (*domain.Store, error)
}

// AnalyticsRepository serves the aggregate views. Queries without a time
// range read the rollup tables; ranged queries aggregate stored items.
type AnalyticsRepository interface {
	GetStoreAnalytics(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.StoreAnalytics, error)
	GetBrandPerformance(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.BrandPerformance, error)
	GetCategoryPerformance(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.CategoryStat, error)
	GetRegionalInsights(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.RegionalInsight, error)
	GetDetectionAnalytics(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.DetectionStat, error)
	GetUnbrandedOpportunities(ctx context.Context, filter domain.OpportunityFilter) ([]domain.UnbrandedOpportunity, error)
}

// Store bundles every repository a backend provides
type Store interface {
	TransactionRepository
	StoreRepository
	AnalyticsRepository
}

// Pagination defaults applied by every backend
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
