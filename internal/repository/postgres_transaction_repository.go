package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ridwanfathin/edge-transaction-service/internal/database"
	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
)

// PostgresTransactionRepository implements Store using PostgreSQL
type PostgresTransactionRepository struct {
	db *pgxpool.Pool
}

// NewPostgresTransactionRepository creates a new PostgreSQL transaction repository
func NewPostgresTransactionRepository(db *pgxpool.Pool) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{
		db: db,
	}
}

const transactionColumns = `
	id::text, transaction_id, store_id, device_id, "timestamp",
	total_amount, total_items, branded_amount, unbranded_amount, branded_count, unbranded_count,
	insights, payment_method, processing_time, edge_version, received_at`

const itemColumns = `
	transaction_ref::text, id::text, brand_name, product_name, generic_name, local_name, sku,
	quantity, unit, unit_price, total_price, category, is_unbranded, is_bulk,
	detection_method, confidence, brand_confidence, suggested_brands, COALESCE(notes, '')`

// SaveTransaction implements TransactionRepository. The header insert is a
// no-op on conflict, which both detects duplicates and serializes racing
// submissions of the same id on the unique index.
func (r *PostgresTransactionRepository) SaveTransaction(ctx context.Context, txn *domain.Transaction, apply RollupFunc) error {
	id := txn.ID
	if id == "" {
		id = uuid.NewString()
	}
	itemIDs := make([]string, len(txn.Items))
	for i, item := range txn.Items {
		itemIDs[i] = item.ID
		if itemIDs[i] == "" {
			itemIDs[i] = uuid.NewString()
		}
	}

	err := database.ExecuteTransaction(ctx, r.db, func(tx pgx.Tx) error {
		totals := txn.Totals
		if totals == nil {
			totals = &domain.Totals{}
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO transactions (
				id, transaction_id, store_id, device_id, "timestamp",
				total_amount, total_items, branded_amount, unbranded_amount, branded_count, unbranded_count,
				insights, payment_method, processing_time, edge_version
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (store_id, transaction_id) DO NOTHING
			RETURNING received_at
		`, id, txn.TransactionID, txn.StoreID, txn.DeviceID, txn.Timestamp,
			totals.TotalAmount, totals.TotalItems, totals.BrandedAmount, totals.UnbrandedAmount,
			totals.BrandedCount, totals.UnbrandedCount,
			txn.Insights, txn.PaymentMethod, txn.ProcessingTime, txn.EdgeVersion,
		).Scan(&txn.ReceivedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrDuplicateTransaction
		}
		if err != nil {
			return classify("insert_transaction", err)
		}

		batch := &pgx.Batch{}
		for i, item := range txn.Items {
			suggested := item.SuggestedBrands
			if suggested == nil {
				suggested = []string{}
			}
			var notes *string
			if item.Notes != "" {
				notes = &item.Notes
			}
			batch.Queue(`
				INSERT INTO transaction_items (
					id, transaction_ref, position, brand_name, product_name, generic_name, local_name, sku,
					quantity, unit, unit_price, total_price, category, is_unbranded, is_bulk,
					detection_method, confidence, brand_confidence, suggested_brands, notes
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
			`, itemIDs[i], id, i, item.BrandName, item.ProductName, item.GenericName, item.LocalName, item.SKU,
				item.Quantity, item.Unit, item.UnitPrice, item.TotalPrice, item.Category, item.IsUnbranded, item.IsBulk,
				string(item.DetectionMethod), item.Confidence, item.BrandConfidence, suggested, notes)
		}

		results := tx.SendBatch(ctx, batch)
		for range txn.Items {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return classify("insert_items", err)
			}
		}
		if err := results.Close(); err != nil {
			return classify("insert_items", err)
		}

		if apply != nil {
			if err := apply(ctx, &postgresIncrementer{tx: tx}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return classify("save_transaction", err)
	}

	txn.ID = id
	for i := range txn.Items {
		txn.Items[i].ID = itemIDs[i]
	}
	return nil
}

// GetTransactionByID implements TransactionRepository. An empty storeID
// matches the most recently received transaction with that id.
func (r *PostgresTransactionRepository) GetTransactionByID(ctx context.Context, storeID, transactionID string) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE transaction_id = $1 AND ($2 = '' OR store_id = $2)
		ORDER BY received_at DESC
		LIMIT 1
	`, transactionID, storeID)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Transaction{txn}); err != nil {
		return nil, err
	}
	return txn, nil
}

// ListTransactions implements TransactionRepository
func (r *PostgresTransactionRepository) ListTransactions(ctx context.Context, filter domain.TransactionFilter) (*domain.PaginatedTransactions, error) {
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)

	result := &domain.PaginatedTransactions{
		Data: []domain.Transaction{},
		Pagination: domain.Pagination{
			Limit:  filter.Limit,
			Offset: filter.Offset,
		},
	}

	// Build query conditions
	conditions := []string{}
	args := []interface{}{}
	argCount := 1

	if filter.StoreID != "" {
		conditions = append(conditions, fmt.Sprintf("store_id = $%d", argCount))
		args = append(args, filter.StoreID)
		argCount++
	}
	if filter.DeviceID != "" {
		conditions = append(conditions, fmt.Sprintf("device_id = $%d", argCount))
		args = append(args, filter.DeviceID)
		argCount++
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf(`"timestamp" >= $%d`, argCount))
		args = append(args, *filter.StartDate)
		argCount++
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf(`"timestamp" <= $%d`, argCount))
		args = append(args, *filter.EndDate)
		argCount++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions `+whereClause, args...).Scan(&result.Pagination.Total); err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	if result.Pagination.Total == 0 || filter.Offset >= result.Pagination.Total {
		return result, nil
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM transactions
		%s
		ORDER BY "timestamp" DESC, transaction_id
		LIMIT $%d OFFSET $%d
	`, transactionColumns, whereClause, argCount, argCount+1), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var page []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		page = append(page, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	if err := r.attachItems(ctx, page); err != nil {
		return nil, err
	}
	for _, txn := range page {
		result.Data = append(result.Data, *txn)
	}
	return result, nil
}

// attachItems loads the items of every transaction in one query
func (r *PostgresTransactionRepository) attachItems(ctx context.Context, txns []*domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Transaction, len(txns))
	ids := make([]string, 0, len(txns))
	for _, txn := range txns {
		txn.Items = []domain.TransactionItem{}
		byID[txn.ID] = txn
		ids = append(ids, txn.ID)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+itemColumns+`
		FROM transaction_items
		WHERE transaction_ref = ANY($1::uuid[])
		ORDER BY transaction_ref, position
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query transaction items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref, method string
		var item domain.TransactionItem
		if err := rows.Scan(
			&ref, &item.ID, &item.BrandName, &item.ProductName, &item.GenericName, &item.LocalName, &item.SKU,
			&item.Quantity, &item.Unit, &item.UnitPrice, &item.TotalPrice, &item.Category, &item.IsUnbranded, &item.IsBulk,
			&method, &item.Confidence, &item.BrandConfidence, &item.SuggestedBrands, &item.Notes,
		); err != nil {
			return fmt.Errorf("failed to scan transaction item: %w", err)
		}
		item.DetectionMethod = domain.DetectionMethod(method)
		if len(item.SuggestedBrands) == 0 {
			item.SuggestedBrands = nil
		}
		if txn, ok := byID[ref]; ok {
			txn.Items = append(txn.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating transaction items: %w", err)
	}
	return nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var txn domain.Transaction
	var totals domain.Totals
	var insights domain.Insights
	if err := row.Scan(
		&txn.ID, &txn.TransactionID, &txn.StoreID, &txn.DeviceID, &txn.Timestamp,
		&totals.TotalAmount, &totals.TotalItems, &totals.BrandedAmount, &totals.UnbrandedAmount,
		&totals.BrandedCount, &totals.UnbrandedCount,
		&insights, &txn.PaymentMethod, &txn.ProcessingTime, &txn.EdgeVersion, &txn.ReceivedAt,
	); err != nil {
		return nil, err
	}
	txn.Totals = &totals
	txn.Insights = &insights
	return &txn, nil
}

// UpsertStore implements StoreRepository
func (r *PostgresTransactionRepository) UpsertStore(ctx context.Context, store *domain.Store) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO stores (store_id, region, province, city)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		ON CONFLICT (store_id) DO UPDATE
		SET region = EXCLUDED.region, province = EXCLUDED.province, city = EXCLUDED.city, updated_at = NOW()
	`, store.StoreID, store.Region, store.Province, store.City)
	if err != nil {
		return classify("upsert_store", err)
	}
	return nil
}

// GetStore implements StoreRepository
func (r *PostgresTransactionRepository) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	var store domain.Store
	err := r.db.QueryRow(ctx, `
		SELECT store_id, region, COALESCE(province, ''), COALESCE(city, '')
		FROM stores
		WHERE store_id = $1
	`, storeID).Scan(&store.StoreID, &store.Region, &store.Province, &store.City)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	return &store, nil
}

// Ensure PostgresTransactionRepository implements Store interface.
var _ Store = (*PostgresTransactionRepository)(nil)
