package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/ridwanfathin/edge-transaction-service/internal/aggregator"
	"github.com/ridwanfathin/edge-transaction-service/internal/detection"
	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/logger"
	"github.com/ridwanfathin/edge-transaction-service/internal/repository"
	"github.com/ridwanfathin/edge-transaction-service/internal/rollup"
	"github.com/ridwanfathin/edge-transaction-service/internal/validation"
)

// Submission result messages
const (
	MessageAccepted  = "Transaction processed successfully"
	MessageDuplicate = "Transaction already processed"
)

// TransactionServiceError represents an error in the transaction service
type TransactionServiceError struct {
	Op  string
	Err error
}

func (e *TransactionServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *TransactionServiceError) Unwrap() error {
	return e.Err
}

// BatchResult is the outcome of one transaction in a batch submission
type BatchResult struct {
	Index  int
	Result *domain.SubmissionResult
	Err    error
}

// TransactionService defines the interface for transaction ingestion and analytics
type TransactionService interface {
	// Ingestion operations
	Submit(ctx context.Context, txn *domain.Transaction) (*domain.SubmissionResult, error)
	SubmitBatch(ctx context.Context, txns []*domain.Transaction) []BatchResult
	Assemble(ctx context.Context, draft detection.Draft, detections []detection.Detection) *domain.Transaction

	// Query operations
	GetTransaction(ctx context.Context, storeID, transactionID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) (*domain.PaginatedTransactions, error)

	// Store directory
	RegisterStore(ctx context.Context, store *domain.Store) (*domain.Store, error)

	// Analytics operations
	GetStoreAnalytics(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.StoreAnalytics, error)
	GetBrandPerformance(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.BrandPerformance, error)
	GetCategoryPerformance(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.CategoryStat, error)
	GetRegionalInsights(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.RegionalInsight, error)
	GetDetectionAnalytics(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.DetectionStat, error)
	GetUnbrandedOpportunities(ctx context.Context, filter domain.OpportunityFilter) ([]domain.UnbrandedOpportunity, error)
}

// Options tunes the service
type Options struct {
	Retry            RetryConfig
	MaxWorkers       int
	TopCategoryLimit int
}

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	repository repository.Store
	validator  *validation.Validator
	aggregator *aggregator.Aggregator
	engine     *rollup.Engine
	assembler  *detection.Assembler
	opts       Options
}

// NewTransactionService creates a new TransactionService. Nil collaborators
// other than the repository fall back to their defaults.
func NewTransactionService(
	repo repository.Store,
	v *validation.Validator,
	agg *aggregator.Aggregator,
	engine *rollup.Engine,
	assembler *detection.Assembler,
	opts Options,
) TransactionService {
	if v == nil {
		v = validation.New()
	}
	if agg == nil {
		agg = aggregator.New(aggregator.AnomalyPolicy{}, nil)
	}
	if engine == nil {
		engine = rollup.NewEngine(nil)
	}
	if assembler == nil {
		assembler = detection.NewAssembler(detection.NewMerger(detection.DefaultMergerConfig(), nil, nil), nil, agg)
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	if opts.TopCategoryLimit < 1 {
		opts.TopCategoryLimit = aggregator.PlatformTopCategoryLimit
	}
	return &TransactionServiceImpl{
		repository: repo,
		validator:  v,
		aggregator: agg,
		engine:     engine,
		assembler:  assembler,
		opts:       opts,
	}
}

// Submit validates, enriches and persists one transaction. A duplicate
// submission is reported as success with Duplicate set and writes nothing.
func (s *TransactionServiceImpl) Submit(ctx context.Context, txn *domain.Transaction) (*domain.SubmissionResult, error) {
	log := logger.FromContext(ctx)

	if txn == nil {
		verr := &domain.ValidationError{}
		verr.Add("body", "is required")
		return nil, &TransactionServiceError{Op: "validate_transaction", Err: verr}
	}

	s.validator.Canonicalize(txn)
	if err := s.validator.Validate(txn); err != nil {
		log.Warn().
			Str("transaction_id", txn.TransactionID).
			Str("store_id", txn.StoreID).
			Err(err).
			Msg("transaction rejected")
		return nil, &TransactionServiceError{Op: "validate_transaction", Err: err}
	}

	totals, insights := s.aggregator.Aggregate(txn.Items)
	if !sameTotals(txn.Totals, &totals) {
		log.Warn().
			Str("transaction_id", txn.TransactionID).
			Float64("submitted_total", txn.Totals.TotalAmount).
			Float64("computed_total", totals.TotalAmount).
			Msg("submitted totals differ from line items, using computed totals")
	}
	txn.Totals = &totals
	txn.Insights = &insights

	apply := func(ctx context.Context, inc rollup.Incrementer) error {
		return s.engine.Apply(ctx, inc, txn)
	}
	err := retryOnConflict(ctx, s.opts.Retry, func(attempt int) error {
		if attempt > 1 {
			log.Debug().Str("transaction_id", txn.TransactionID).Int("attempt", attempt).Msg("retrying after rollup conflict")
		}
		return s.repository.SaveTransaction(ctx, txn, apply)
	})

	if errors.Is(err, domain.ErrDuplicateTransaction) {
		log.Info().
			Str("transaction_id", txn.TransactionID).
			Str("store_id", txn.StoreID).
			Msg("duplicate transaction ignored")
		return &domain.SubmissionResult{
			Success:       true,
			TransactionID: txn.TransactionID,
			Message:       MessageDuplicate,
			Duplicate:     true,
		}, nil
	}
	if err != nil {
		log.Error().
			Str("transaction_id", txn.TransactionID).
			Str("store_id", txn.StoreID).
			Bool("retryable", domain.IsRetryable(err)).
			Err(err).
			Msg("failed to store transaction")
		return nil, &TransactionServiceError{Op: "store_transaction", Err: err}
	}

	log.Info().
		Str("transaction_id", txn.TransactionID).
		Str("store_id", txn.StoreID).
		Int("items", len(txn.Items)).
		Float64("total_amount", totals.TotalAmount).
		Msg("transaction accepted")

	return &domain.SubmissionResult{
		Success:       true,
		TransactionID: txn.TransactionID,
		Message:       MessageAccepted,
	}, nil
}

// sameTotals compares amounts to the cent and counts exactly
func sameTotals(submitted, computed *domain.Totals) bool {
	if submitted == nil {
		return false
	}
	return aggregator.WithinTolerance(submitted.TotalAmount, computed.TotalAmount) &&
		aggregator.WithinTolerance(submitted.BrandedAmount, computed.BrandedAmount) &&
		aggregator.WithinTolerance(submitted.UnbrandedAmount, computed.UnbrandedAmount) &&
		submitted.TotalItems == computed.TotalItems
}

// SubmitBatch submits spooled transactions with bounded concurrency. Each
// transaction succeeds or fails on its own; results keep input order.
func (s *TransactionServiceImpl) SubmitBatch(ctx context.Context, txns []*domain.Transaction) []BatchResult {
	results := make([]BatchResult, len(txns))

	var g errgroup.Group
	g.SetLimit(s.opts.MaxWorkers)
	for i, txn := range txns {
		g.Go(func() error {
			result, err := s.Submit(ctx, txn)
			results[i] = BatchResult{Index: i, Result: result, Err: err}
			return nil
		})
	}
	// workers never return errors
	_ = g.Wait()

	return results
}

// Assemble builds a draft transaction from raw detections without storing it
func (s *TransactionServiceImpl) Assemble(ctx context.Context, draft detection.Draft, detections []detection.Detection) *domain.Transaction {
	txn := s.assembler.Assemble(draft, detections)
	logger.FromContext(ctx).Debug().
		Str("transaction_id", txn.TransactionID).
		Int("detections", len(detections)).
		Int("items", len(txn.Items)).
		Msg("assembled draft transaction")
	return txn
}

// GetTransaction retrieves a stored transaction
func (s *TransactionServiceImpl) GetTransaction(ctx context.Context, storeID, transactionID string) (*domain.Transaction, error) {
	txn, err := s.repository.GetTransactionByID(ctx, storeID, transactionID)
	if err != nil {
		return nil, &TransactionServiceError{
			Op:  "get_transaction",
			Err: err,
		}
	}
	return txn, nil
}

// ListTransactions retrieves a paginated list of transactions
func (s *TransactionServiceImpl) ListTransactions(ctx context.Context, filter domain.TransactionFilter) (*domain.PaginatedTransactions, error) {
	if err := checkRange(filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate)); err != nil {
		return nil, &TransactionServiceError{Op: "list_transactions", Err: err}
	}
	page, err := s.repository.ListTransactions(ctx, filter)
	if err != nil {
		return nil, &TransactionServiceError{
			Op:  "list_transactions",
			Err: err,
		}
	}
	return page, nil
}

// RegisterStore creates or updates a store's location
func (s *TransactionServiceImpl) RegisterStore(ctx context.Context, store *domain.Store) (*domain.Store, error) {
	if err := s.validator.Struct(store); err != nil {
		return nil, &TransactionServiceError{Op: "validate_store", Err: err}
	}
	if err := s.repository.UpsertStore(ctx, store); err != nil {
		return nil, &TransactionServiceError{Op: "upsert_store", Err: err}
	}
	logger.FromContext(ctx).Info().
		Str("store_id", store.StoreID).
		Str("region", store.Region).
		Msg("store registered")
	return store, nil
}

// GetStoreAnalytics retrieves daily store rollups
func (s *TransactionServiceImpl) GetStoreAnalytics(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.StoreAnalytics, error) {
	filter, err := s.analyticsFilter(filter)
	if err != nil {
		return nil, &TransactionServiceError{Op: "get_store_analytics", Err: err}
	}
	rows, err := s.repository.GetStoreAnalytics(ctx, filter)
	if err != nil {
		return nil, &TransactionServiceError{Op: "get_store_analytics", Err: err}
	}
	return rows, nil
}

// GetBrandPerformance retrieves brand rollups
func (s *TransactionServiceImpl) GetBrandPerformance(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.BrandPerformance, error) {
	filter, err := s.analyticsFilter(filter)
	if err != nil {
		return nil, &TransactionServiceError{Op: "get_brand_performance", Err: err}
	}
	rows, err := s.repository.GetBrandPerformance(ctx, filter)
	if err != nil {
		return nil, &TransactionServiceError{Op: "get_brand_performance", Err: err}
	}
	return rows, nil
}

// GetCategoryPerformance retrieves per-category totals
func (s *TransactionServiceImpl) GetCategoryPerformance(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.CategoryStat, error) {
	filter, err := s.analyticsFilter(filter)
	if err != nil {
		return nil, &TransactionServiceError{Op: "get_category_performance", Err: err}
	}
	rows, err := s.repository.GetCategoryPerformance(ctx, filter)
	if err != nil {
		return nil, &TransactionServiceError{Op: "get_category_performance", Err: err}
	}
	return rows, nil
}

// GetRegionalInsights retrieves regional rollups
func (s *TransactionServiceImpl) GetRegionalInsights(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.RegionalInsight, error) {
	filter, err := s.analyticsFilter(filter)
	if err != nil {
		return nil, &TransactionServiceError{Op: "get_regional_insights", Err: err}
	}
	rows, err := s.repository.GetRegionalInsights(ctx, filter)
	if err != nil {
		return nil, &TransactionServiceError{Op: "get_regional_insights", Err: err}
	}
	return rows, nil
}

// GetDetectionAnalytics retrieves item counts and confidence per detection method
func (s *TransactionServiceImpl) GetDetectionAnalytics(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.DetectionStat, error) {
	filter, err := s.analyticsFilter(filter)
	if err != nil {
		return nil, &TransactionServiceError{Op: "get_detection_analytics", Err: err}
	}
	rows, err := s.repository.GetDetectionAnalytics(ctx, filter)
	if err != nil {
		return nil, &TransactionServiceError{Op: "get_detection_analytics", Err: err}
	}
	return rows, nil
}

// GetUnbrandedOpportunities retrieves unbranded products selling at least
// filter.MinVolume units
func (s *TransactionServiceImpl) GetUnbrandedOpportunities(ctx context.Context, filter domain.OpportunityFilter) ([]domain.UnbrandedOpportunity, error) {
	scope, err := s.analyticsFilter(filter.AnalyticsFilter)
	if err != nil {
		return nil, &TransactionServiceError{Op: "get_unbranded_opportunities", Err: err}
	}
	filter.AnalyticsFilter = scope

	verr := &domain.ValidationError{}
	if filter.Category != "" {
		filter.Category = domain.CanonicalCategory(filter.Category)
		if !domain.IsKnownCategory(filter.Category) {
			verr.Add("category", "unknown category")
		}
	}
	if filter.MinVolume < 0 || math.IsNaN(filter.MinVolume) {
		verr.Add("minVolume", "must be zero or greater")
	}
	if verr.HasErrors() {
		return nil, &TransactionServiceError{Op: "get_unbranded_opportunities", Err: verr}
	}

	rows, err := s.repository.GetUnbrandedOpportunities(ctx, filter)
	if err != nil {
		return nil, &TransactionServiceError{Op: "get_unbranded_opportunities", Err: err}
	}
	return rows, nil
}

func (s *TransactionServiceImpl) analyticsFilter(filter domain.AnalyticsFilter) (domain.AnalyticsFilter, error) {
	if err := checkRange(filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate)); err != nil {
		return filter, err
	}
	if filter.Limit < 0 {
		filter.Limit = 0
	}
	if filter.CategoryLimit <= 0 {
		filter.CategoryLimit = s.opts.TopCategoryLimit
	}
	return filter, nil
}

func checkRange(inverted bool) error {
	if !inverted {
		return nil
	}
	verr := &domain.ValidationError{}
	verr.Add("endDate", "must not be before startDate")
	return verr
}
