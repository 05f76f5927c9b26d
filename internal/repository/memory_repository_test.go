package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanfathin/edge-transaction-service/internal/aggregator"
	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/rollup"
)

var saleTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func branded(brand, product, category string, quantity, unitPrice float64) domain.TransactionItem {
	return domain.TransactionItem{
		BrandName:       strPtr(brand),
		ProductName:     product,
		Quantity:        quantity,
		Unit:            "pc",
		UnitPrice:       unitPrice,
		TotalPrice:      aggregator.LineTotal(quantity, unitPrice),
		Category:        category,
		DetectionMethod: domain.DetectionManual,
		Confidence:      1,
	}
}

func unbranded(product, category string, quantity, unitPrice float64) domain.TransactionItem {
	item := branded("", product, category, quantity, unitPrice)
	item.BrandName = nil
	item.IsUnbranded = true
	item.Unit = "kg"
	return item
}

func newTransaction(storeID, transactionID string, at time.Time, items ...domain.TransactionItem) *domain.Transaction {
	totals, insights := aggregator.New(aggregator.AnomalyPolicy{}, nil).Aggregate(items)
	return &domain.Transaction{
		TransactionID: transactionID,
		StoreID:       storeID,
		DeviceID:      "device-1",
		Timestamp:     at,
		Items:         items,
		Totals:        &totals,
		Insights:      &insights,
		PaymentMethod: "cash",
		EdgeVersion:   "1.4.0",
	}
}

func basket(storeID, transactionID string, at time.Time) *domain.Transaction {
	return newTransaction(storeID, transactionID, at,
		branded("Coca-Cola", "Coke 330ml", domain.CategoryBeverage, 2, 25),
		unbranded("Rice", domain.CategoryStaple, 3, 45),
	)
}

func rollups(txn *domain.Transaction) RollupFunc {
	engine := rollup.NewEngine(time.UTC)
	return func(ctx context.Context, inc rollup.Incrementer) error {
		return engine.Apply(ctx, inc, txn)
	}
}

func save(t *testing.T, repo *MemoryRepository, txn *domain.Transaction) error {
	t.Helper()
	return repo.SaveTransaction(context.Background(), txn, rollups(txn))
}

func TestSaveAndGetTransaction(t *testing.T) {
	repo := NewMemoryRepository()
	txn := basket("store-1", "txn-1", saleTime)

	require.NoError(t, save(t, repo, txn))
	assert.NotEmpty(t, txn.ID)
	assert.False(t, txn.ReceivedAt.IsZero())
	for _, item := range txn.Items {
		assert.NotEmpty(t, item.ID)
	}

	got, err := repo.GetTransactionByID(context.Background(), "store-1", "txn-1")
	require.NoError(t, err)
	assert.Equal(t, txn.ID, got.ID)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, 185.0, got.Totals.TotalAmount)

	// mutating the copy must not leak into the store
	got.Items[0].ProductName = "changed"
	again, err := repo.GetTransactionByID(context.Background(), "", "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "Coke 330ml", again.Items[0].ProductName)
}

func TestGetTransactionNotFound(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.GetTransactionByID(context.Background(), "store-1", "missing")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestSaveDuplicateIsNoop(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, save(t, repo, basket("store-1", "txn-1", saleTime)))

	err := save(t, repo, basket("store-1", "txn-1", saleTime))
	assert.ErrorIs(t, err, domain.ErrDuplicateTransaction)

	days, err := repo.GetStoreAnalytics(ctx, domain.AnalyticsFilter{StoreID: "store-1"})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, int64(1), days[0].TotalTransactions)
	assert.Equal(t, 185.0, days[0].TotalRevenue)

	// the same id at another store is a different transaction
	require.NoError(t, save(t, repo, basket("store-2", "txn-1", saleTime)))
}

func TestSaveFailureLeavesNoTrace(t *testing.T) {
	for _, stage := range []string{"insert_transaction", "insert_items", "rollup"} {
		t.Run(stage, func(t *testing.T) {
			repo := NewMemoryRepository()
			ctx := context.Background()
			repo.failHook = func(s string) error {
				if s == stage {
					return errors.New("disk full")
				}
				return nil
			}

			err := save(t, repo, basket("store-1", "txn-1", saleTime))
			var persistErr *domain.PersistenceError
			require.ErrorAs(t, err, &persistErr)
			assert.Equal(t, stage, persistErr.Op)
			assert.True(t, domain.IsRetryable(err))

			_, err = repo.GetTransactionByID(ctx, "store-1", "txn-1")
			assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
			days, err := repo.GetStoreAnalytics(ctx, domain.AnalyticsFilter{})
			require.NoError(t, err)
			assert.Empty(t, days)
			brands, err := repo.GetBrandPerformance(ctx, domain.AnalyticsFilter{})
			require.NoError(t, err)
			assert.Empty(t, brands)

			// the reservation is released so a retry succeeds
			repo.failHook = nil
			require.NoError(t, save(t, repo, basket("store-1", "txn-1", saleTime)))
		})
	}
}

func TestSaveConflictPassesThrough(t *testing.T) {
	repo := NewMemoryRepository()
	repo.failHook = func(stage string) error {
		if stage == "rollup" {
			return &domain.RollupConflictError{Key: "brand:Coca-Cola", Err: errors.New("busy")}
		}
		return nil
	}

	err := save(t, repo, basket("store-1", "txn-1", saleTime))
	var conflict *domain.RollupConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "brand:Coca-Cola", conflict.Key)
}

func TestSaveCancelledContext(t *testing.T) {
	repo := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	txn := basket("store-1", "txn-1", saleTime)
	err := repo.SaveTransaction(ctx, txn, rollups(txn))
	var persistErr *domain.PersistenceError
	require.ErrorAs(t, err, &persistErr)

	_, err = repo.GetTransactionByID(context.Background(), "store-1", "txn-1")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestConcurrentSavesKeepRollupsExact(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.UpsertStore(ctx, &domain.Store{StoreID: "store-1", Region: "NCR"}))

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txn := newTransaction("store-1", fmt.Sprintf("txn-%d", i), saleTime,
				branded("Coca-Cola", "Coke 330ml", domain.CategoryBeverage, 1, 10.10))
			assert.NoError(t, save(t, repo, txn))
		}(i)
	}
	wg.Wait()

	days, err := repo.GetStoreAnalytics(ctx, domain.AnalyticsFilter{StoreID: "store-1"})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, int64(workers), days[0].TotalTransactions)
	assert.Equal(t, 505.0, days[0].TotalRevenue)

	brands, err := repo.GetBrandPerformance(ctx, domain.AnalyticsFilter{})
	require.NoError(t, err)
	require.Len(t, brands, 1)
	assert.Equal(t, float64(workers), brands[0].TotalUnitsSold)
	assert.Equal(t, 505.0, brands[0].TotalRevenue)
	assert.Equal(t, 10.10, brands[0].AvgPrice)

	regions, err := repo.GetRegionalInsights(ctx, domain.AnalyticsFilter{})
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, int64(workers), regions[0].TotalTransactions)
	assert.Equal(t, 100.0, regions[0].BrandedPercentage)
}

func TestConcurrentDuplicateSavesAcceptOne(t *testing.T) {
	repo := NewMemoryRepository()

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, duplicates := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := save(t, repo, basket("store-1", "txn-1", saleTime))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, domain.ErrDuplicateTransaction):
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, workers-1, duplicates)

	days, err := repo.GetStoreAnalytics(context.Background(), domain.AnalyticsFilter{})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, int64(1), days[0].TotalTransactions)
}

func TestRegionalRollupNeedsRegisteredStore(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, save(t, repo, basket("store-1", "txn-1", saleTime)))
	regions, err := repo.GetRegionalInsights(ctx, domain.AnalyticsFilter{})
	require.NoError(t, err)
	assert.Empty(t, regions)

	require.NoError(t, repo.UpsertStore(ctx, &domain.Store{StoreID: "store-1", Region: "NCR", City: "Manila"}))
	require.NoError(t, save(t, repo, basket("store-1", "txn-2", saleTime)))

	regions, err = repo.GetRegionalInsights(ctx, domain.AnalyticsFilter{})
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "NCR", regions[0].Region)
	assert.Equal(t, int64(1), regions[0].TotalTransactions)
	assert.Equal(t, 185.0, regions[0].TotalRevenue)
	assert.Equal(t, 27.03, regions[0].BrandedPercentage)
	require.Len(t, regions[0].TopCategories, 2)
	assert.Equal(t, domain.CategoryStaple, regions[0].TopCategories[0].Category)
}

func TestBrandPerformanceForRange(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, save(t, repo, newTransaction("store-1", "txn-1", saleTime,
		branded("Coca-Cola", "Coke", domain.CategoryBeverage, 2, 25))))
	require.NoError(t, save(t, repo, newTransaction("store-1", "txn-2", saleTime.Add(2*time.Hour),
		branded("Coca-Cola", "Coke", domain.CategoryBeverage, 1, 27))))
	require.NoError(t, save(t, repo, newTransaction("store-2", "txn-3", saleTime.AddDate(0, 0, 3),
		branded("Lucky Me", "Pancit Canton", domain.CategoryFood, 5, 15))))

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	brands, err := repo.GetBrandPerformance(ctx, domain.AnalyticsFilter{StartDate: &day, EndDate: &day})
	require.NoError(t, err)
	require.Len(t, brands, 1)
	assert.Equal(t, "Coca-Cola", brands[0].BrandName)
	assert.Equal(t, 3.0, brands[0].TotalUnitsSold)
	assert.Equal(t, 77.0, brands[0].TotalRevenue)
	assert.Equal(t, 27.0, brands[0].LastUnitPrice)
	assert.Equal(t, 25.67, brands[0].AvgPrice)

	all, err := repo.GetBrandPerformance(ctx, domain.AnalyticsFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Coca-Cola", all[0].BrandName)

	byStore, err := repo.GetBrandPerformance(ctx, domain.AnalyticsFilter{StoreID: "store-2"})
	require.NoError(t, err)
	require.Len(t, byStore, 1)
	assert.Equal(t, "Lucky Me", byStore[0].BrandName)
}

func TestStoreAnalyticsByDate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, save(t, repo, basket("store-1", "txn-1", saleTime)))
	require.NoError(t, save(t, repo, basket("store-1", "txn-2", saleTime.AddDate(0, 0, 1))))

	days, err := repo.GetStoreAnalytics(ctx, domain.AnalyticsFilter{StoreID: "store-1"})
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2025-06-02", days[0].Date)
	assert.Equal(t, "2025-06-01", days[1].Date)
	assert.Equal(t, 135.0, days[1].UnbrandedRevenue)
	assert.Equal(t, 2.0, days[1].BrandedItemsSold)

	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	days, err = repo.GetStoreAnalytics(ctx, domain.AnalyticsFilter{StoreID: "store-1", StartDate: &start})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2025-06-02", days[0].Date)
}

func TestCategoryPerformance(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, save(t, repo, basket("store-1", "txn-1", saleTime)))
	require.NoError(t, save(t, repo, basket("store-2", "txn-2", saleTime)))

	stats, err := repo.GetCategoryPerformance(ctx, domain.AnalyticsFilter{})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, domain.CategoryStat{Category: domain.CategoryStaple, Count: 6, Value: 270}, stats[0])
	assert.Equal(t, domain.CategoryStat{Category: domain.CategoryBeverage, Count: 4, Value: 100}, stats[1])

	stats, err = repo.GetCategoryPerformance(ctx, domain.AnalyticsFilter{StoreID: "store-1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 135.0, stats[0].Value)
}

func TestDetectionAnalytics(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	spoken := unbranded("Rice", domain.CategoryStaple, 3, 45)
	spoken.DetectionMethod = domain.DetectionVoice
	spoken.Confidence = 0.6
	seen := branded("Coca-Cola", "Coke 330ml", domain.CategoryBeverage, 2, 25)
	seen.DetectionMethod = domain.DetectionVision
	seen.Confidence = 0.9
	read := seen
	read.Confidence = 0.8
	require.NoError(t, save(t, repo, newTransaction("store-1", "txn-1", saleTime, spoken, seen, read)))
	require.NoError(t, save(t, repo, newTransaction("store-2", "txn-2", saleTime,
		branded("Lucky Me", "Pancit Canton", domain.CategoryFood, 1, 15))))

	stats, err := repo.GetDetectionAnalytics(ctx, domain.AnalyticsFilter{StoreID: "store-1"})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, domain.DetectionStat{
		DetectionMethod:   domain.DetectionVision,
		ItemCount:         2,
		AverageConfidence: 0.85,
		TotalRevenue:      100,
		ItemShare:         66.67,
	}, stats[0])
	assert.Equal(t, domain.DetectionStat{
		DetectionMethod:    domain.DetectionVoice,
		ItemCount:          1,
		AverageConfidence:  0.6,
		LowConfidenceCount: 1,
		TotalRevenue:       135,
		ItemShare:          33.33,
	}, stats[1])

	stats, err = repo.GetDetectionAnalytics(ctx, domain.AnalyticsFilter{})
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, domain.DetectionVision, stats[0].DetectionMethod)
	assert.Equal(t, 50.0, stats[0].ItemShare)
	assert.Equal(t, []domain.DetectionMethod{domain.DetectionManual, domain.DetectionVoice},
		[]domain.DetectionMethod{stats[1].DetectionMethod, stats[2].DetectionMethod})
}

func TestUnbrandedOpportunities(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	rice := unbranded("Bigas", domain.CategoryStaple, 6, 45)
	rice.GenericName = strPtr("Rice")
	suggested := rice
	suggested.SuggestedBrands = []string{"Dinorado"}
	eggs := unbranded("Itlog", domain.CategoryFresh, 4, 8)
	eggs.Unit = "tray"

	require.NoError(t, save(t, repo, newTransaction("store-1", "txn-1", saleTime, rice, eggs)))
	require.NoError(t, save(t, repo, newTransaction("store-2", "txn-2", saleTime.Add(time.Hour), suggested)))
	require.NoError(t, save(t, repo, newTransaction("store-2", "txn-3", saleTime.Add(2*time.Hour),
		unbranded("Asukal", domain.CategoryCooking, 2, 60),
		branded("Coca-Cola", "Coke 330ml", domain.CategoryBeverage, 40, 25))))

	rows, err := repo.GetUnbrandedOpportunities(ctx, domain.OpportunityFilter{MinVolume: domain.DefaultMinVolume})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.UnbrandedOpportunity{
		Category:        domain.CategoryStaple,
		Product:         "Rice",
		Unit:            "kg",
		TotalQuantity:   12,
		ItemCount:       2,
		TotalRevenue:    540,
		StoreCount:      2,
		SuggestedBrands: []string{"Dinorado"},
	}, rows[0])

	rows, err = repo.GetUnbrandedOpportunities(ctx, domain.OpportunityFilter{MinVolume: 1})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Rice", "Itlog", "Asukal"}, []string{rows[0].Product, rows[1].Product, rows[2].Product})
	assert.Equal(t, "tray", rows[1].Unit)
	assert.Empty(t, rows[2].SuggestedBrands)

	rows, err = repo.GetUnbrandedOpportunities(ctx, domain.OpportunityFilter{Category: domain.CategoryFresh, MinVolume: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Itlog", rows[0].Product)

	rows, err = repo.GetUnbrandedOpportunities(ctx, domain.OpportunityFilter{
		AnalyticsFilter: domain.AnalyticsFilter{StoreID: "store-1"},
		MinVolume:       1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 6.0, rows[0].TotalQuantity)
	assert.Empty(t, rows[0].SuggestedBrands)
}

func TestListTransactionsPagination(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, save(t, repo, basket("store-1", fmt.Sprintf("txn-%d", i), saleTime.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, save(t, repo, basket("store-2", "other", saleTime)))

	page, err := repo.ListTransactions(ctx, domain.TransactionFilter{StoreID: "store-1", Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Pagination.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "txn-3", page.Data[0].TransactionID)
	assert.Equal(t, "txn-2", page.Data[1].TransactionID)

	page, err = repo.ListTransactions(ctx, domain.TransactionFilter{Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, 6, page.Pagination.Total)
	assert.Empty(t, page.Data)
	assert.Equal(t, DefaultPageLimit, page.Pagination.Limit)

	page, err = repo.ListTransactions(ctx, domain.TransactionFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageLimit, page.Pagination.Limit)
}

func TestUpsertStore(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetStore(ctx, "store-1")
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)

	require.NoError(t, repo.UpsertStore(ctx, &domain.Store{StoreID: "store-1", Region: "NCR"}))
	require.NoError(t, repo.UpsertStore(ctx, &domain.Store{StoreID: "store-1", Region: "Region VII", City: "Cebu"}))

	store, err := repo.GetStore(ctx, "store-1")
	require.NoError(t, err)
	assert.Equal(t, "Region VII", store.Region)
	assert.Equal(t, "Cebu", store.City)
}

func TestKeyedMutexLockAll(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.LockAll([]string{"b", "a", "b"})
	done := make(chan struct{})
	go func() {
		release := km.Lock("a")
		release()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("lock on a was acquired while held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a was never released")
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks)
}
