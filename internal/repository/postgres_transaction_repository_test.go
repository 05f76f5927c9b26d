package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanfathin/edge-transaction-service/internal/database"
	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/rollup"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, err error)
	}{
		{
			name: "serialization failure is a conflict",
			err:  &pgconn.PgError{Code: "40001"},
			check: func(t *testing.T, err error) {
				var conflict *domain.RollupConflictError
				assert.ErrorAs(t, err, &conflict)
				assert.True(t, domain.IsRetryable(err))
			},
		},
		{
			name: "deadlock is a conflict",
			err:  fmt.Errorf("upsert: %w", &pgconn.PgError{Code: "40P01"}),
			check: func(t *testing.T, err error) {
				var conflict *domain.RollupConflictError
				assert.ErrorAs(t, err, &conflict)
			},
		},
		{
			name: "unique violation on the transaction key is a duplicate",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "transactions_store_txn_key"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrDuplicateTransaction)
			},
		},
		{
			name: "other unique violations are persistence errors",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "stores_pkey"},
			check: func(t *testing.T, err error) {
				var persistence *domain.PersistenceError
				assert.ErrorAs(t, err, &persistence)
				assert.Equal(t, "save_transaction", persistence.Op)
			},
		},
		{
			name: "connection errors are persistence errors",
			err:  errors.New("connection refused"),
			check: func(t *testing.T, err error) {
				var persistence *domain.PersistenceError
				assert.ErrorAs(t, err, &persistence)
				assert.True(t, domain.IsRetryable(err))
			},
		},
		{
			name: "typed errors pass through",
			err:  &domain.RollupConflictError{Key: "brand:Coca-Cola"},
			check: func(t *testing.T, err error) {
				var conflict *domain.RollupConflictError
				require.ErrorAs(t, err, &conflict)
				assert.Equal(t, "brand:Coca-Cola", conflict.Key)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, classify("save_transaction", tt.err))
		})
	}

	assert.NoError(t, classify("save_transaction", nil))
}

// newPostgresRepository connects to POSTGRES_DB_URL and applies the schema.
// Tests use run-unique store ids so they can share a database.
func newPostgresRepository(t *testing.T) *PostgresTransactionRepository {
	t.Helper()
	dbURL := os.Getenv("POSTGRES_DB_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_DB_URL is not set, skipping Postgres repository tests")
	}

	ctx := context.Background()
	db, err := database.NewPostgresDB(ctx, dbURL, 4)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	return NewPostgresTransactionRepository(db.GetPool())
}

func uniqueStore(t *testing.T) string {
	return fmt.Sprintf("pg-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestPostgresSaveAndGet(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()
	storeID := uniqueStore(t)

	txn := basket(storeID, "txn-1", saleTime)
	require.NoError(t, repo.SaveTransaction(ctx, txn, rollups(txn)))
	assert.NotEmpty(t, txn.ID)

	got, err := repo.GetTransactionByID(ctx, storeID, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, txn.ID, got.ID)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Coca-Cola", got.Items[0].Brand())
	assert.Nil(t, got.Items[1].BrandName)
	assert.Equal(t, 185.0, got.Totals.TotalAmount)

	err = repo.SaveTransaction(ctx, basket(storeID, "txn-1", saleTime), rollups(txn))
	assert.ErrorIs(t, err, domain.ErrDuplicateTransaction)

	days, err := repo.GetStoreAnalytics(ctx, domain.AnalyticsFilter{StoreID: storeID})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, int64(1), days[0].TotalTransactions)
	assert.Equal(t, 185.0, days[0].TotalRevenue)
}

func TestPostgresRollupFailureRollsBack(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()
	storeID := uniqueStore(t)

	txn := basket(storeID, "txn-1", saleTime)
	failing := func(ctx context.Context, inc rollup.Incrementer) error {
		if err := rollups(txn)(ctx, inc); err != nil {
			return err
		}
		return &domain.RollupConflictError{Key: "test"}
	}

	err := repo.SaveTransaction(ctx, txn, failing)
	var conflict *domain.RollupConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = repo.GetTransactionByID(ctx, storeID, "txn-1")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	days, err := repo.GetStoreAnalytics(ctx, domain.AnalyticsFilter{StoreID: storeID})
	require.NoError(t, err)
	assert.Empty(t, days)

	// the same submission can be retried afterwards
	require.NoError(t, repo.SaveTransaction(ctx, txn, rollups(txn)))
}

func TestPostgresListAndStores(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()
	storeID := uniqueStore(t)

	require.NoError(t, repo.UpsertStore(ctx, &domain.Store{StoreID: storeID, Region: "NCR"}))
	store, err := repo.GetStore(ctx, storeID)
	require.NoError(t, err)
	assert.Equal(t, "NCR", store.Region)

	for i := 0; i < 3; i++ {
		txn := basket(storeID, fmt.Sprintf("txn-%d", i), saleTime.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.SaveTransaction(ctx, txn, rollups(txn)))
	}

	page, err := repo.ListTransactions(ctx, domain.TransactionFilter{StoreID: storeID, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Pagination.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "txn-2", page.Data[0].TransactionID)
	assert.Len(t, page.Data[0].Items, 2)

	start := saleTime.Truncate(24 * time.Hour)
	categories, err := repo.GetCategoryPerformance(ctx, domain.AnalyticsFilter{
		StoreID:       storeID,
		StartDate:     &start,
		EndDate:       &start,
		CategoryLimit: 10,
	})
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, domain.CategoryStaple, categories[0].Category)
	assert.Equal(t, 405.0, categories[0].Value)

	_, err = repo.GetStore(ctx, storeID+"-missing")
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
}

func TestPostgresDetectionAndOpportunities(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()
	storeID := uniqueStore(t)

	for i := 0; i < 4; i++ {
		txn := basket(storeID, fmt.Sprintf("txn-%d", i), saleTime.Add(time.Duration(i)*time.Minute))
		if i == 3 {
			txn.Items[1].SuggestedBrands = []string{"Dinorado"}
		}
		require.NoError(t, repo.SaveTransaction(ctx, txn, rollups(txn)))
	}

	stats, err := repo.GetDetectionAnalytics(ctx, domain.AnalyticsFilter{StoreID: storeID})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, domain.DetectionManual, stats[0].DetectionMethod)
	assert.Equal(t, int64(8), stats[0].ItemCount)
	assert.Equal(t, 1.0, stats[0].AverageConfidence)
	assert.Equal(t, 100.0, stats[0].ItemShare)

	rows, err := repo.GetUnbrandedOpportunities(ctx, domain.OpportunityFilter{
		AnalyticsFilter: domain.AnalyticsFilter{StoreID: storeID},
		MinVolume:       domain.DefaultMinVolume,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Rice", rows[0].Product)
	assert.Equal(t, 12.0, rows[0].TotalQuantity)
	assert.Equal(t, int64(4), rows[0].ItemCount)
	assert.Equal(t, int64(1), rows[0].StoreCount)
	assert.Equal(t, []string{"Dinorado"}, rows[0].SuggestedBrands)

	rows, err = repo.GetUnbrandedOpportunities(ctx, domain.OpportunityFilter{
		AnalyticsFilter: domain.AnalyticsFilter{StoreID: storeID},
		Category:        domain.CategoryBeverage,
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
