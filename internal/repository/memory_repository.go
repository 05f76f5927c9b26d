package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ridwanfathin/edge-transaction-service/internal/aggregator"
	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/rollup"
)

// MemoryRepository is an in-memory implementation of Store.
// It is safe for concurrent use. Data is lost on restart; use the Postgres
// backend for persistence.
type MemoryRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction
	reserved     map[string]struct{}
	stores       map[string]domain.Store

	// rollup rows, each mutated only while its key lock is held
	locks     *keyedMutex
	storeDays sync.Map // key -> *domain.StoreAnalytics
	brands    sync.Map // key -> *domain.BrandPerformance
	regions   sync.Map // key -> *regionEntry

	now func() time.Time
	// failHook lets tests inject a storage failure at a named stage
	failHook func(stage string) error
}

type regionEntry struct {
	insight    domain.RegionalInsight
	categories map[string]*domain.CategoryStat
}

// NewMemoryRepository creates an empty in-memory store
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		transactions: make(map[string]*domain.Transaction),
		reserved:     make(map[string]struct{}),
		stores:       make(map[string]domain.Store),
		locks:        newKeyedMutex(),
		now:          time.Now,
	}
}

func transactionKey(storeID, transactionID string) string {
	return storeID + "\x00" + transactionID
}

// SaveTransaction implements TransactionRepository. The id is reserved
// first, rollup increments are staged, and everything becomes visible in
// one commit step that cannot fail halfway.
func (r *MemoryRepository) SaveTransaction(ctx context.Context, txn *domain.Transaction, apply RollupFunc) error {
	key := transactionKey(txn.StoreID, txn.TransactionID)

	r.mu.Lock()
	if _, exists := r.transactions[key]; exists {
		r.mu.Unlock()
		return domain.ErrDuplicateTransaction
	}
	if _, pending := r.reserved[key]; pending {
		r.mu.Unlock()
		return domain.ErrDuplicateTransaction
	}
	r.reserved[key] = struct{}{}
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		delete(r.reserved, key)
		r.mu.Unlock()
	}

	stored := copyTransaction(txn)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	for i := range stored.Items {
		if stored.Items[i].ID == "" {
			stored.Items[i].ID = uuid.NewString()
		}
	}
	if stored.ReceivedAt.IsZero() {
		stored.ReceivedAt = r.now().UTC()
	}

	for _, stage := range []string{"insert_transaction", "insert_items"} {
		if err := r.fail(stage); err != nil {
			release()
			return err
		}
	}

	staged := &stagedRollups{repo: r}
	if apply != nil {
		if err := apply(ctx, staged); err != nil {
			release()
			return err
		}
	}
	if err := r.fail("rollup"); err != nil {
		release()
		return err
	}
	if err := ctx.Err(); err != nil {
		release()
		return &domain.PersistenceError{Op: "commit", Err: err}
	}

	unlock := r.locks.LockAll(staged.keys())
	staged.commit(r.now().UTC())
	r.mu.Lock()
	r.transactions[key] = stored
	delete(r.reserved, key)
	r.mu.Unlock()
	unlock()

	txn.ID = stored.ID
	txn.ReceivedAt = stored.ReceivedAt
	for i := range txn.Items {
		txn.Items[i].ID = stored.Items[i].ID
	}
	return nil
}

func (r *MemoryRepository) fail(stage string) error {
	if r.failHook == nil {
		return nil
	}
	err := r.failHook(stage)
	if err == nil {
		return nil
	}
	var conflict *domain.RollupConflictError
	if errors.As(err, &conflict) {
		return err
	}
	return &domain.PersistenceError{Op: stage, Err: err}
}

// GetTransactionByID implements TransactionRepository. An empty storeID
// matches the most recently received transaction with that id.
func (r *MemoryRepository) GetTransactionByID(ctx context.Context, storeID, transactionID string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if storeID != "" {
		txn, ok := r.transactions[transactionKey(storeID, transactionID)]
		if !ok {
			return nil, domain.ErrTransactionNotFound
		}
		return copyTransaction(txn), nil
	}

	var found *domain.Transaction
	for _, txn := range r.transactions {
		if txn.TransactionID != transactionID {
			continue
		}
		if found == nil || txn.ReceivedAt.After(found.ReceivedAt) {
			found = txn
		}
	}
	if found == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return copyTransaction(found), nil
}

// ListTransactions implements TransactionRepository
func (r *MemoryRepository) ListTransactions(ctx context.Context, filter domain.TransactionFilter) (*domain.PaginatedTransactions, error) {
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)

	r.mu.RLock()
	var matched []*domain.Transaction
	for _, txn := range r.transactions {
		if filter.StoreID != "" && txn.StoreID != filter.StoreID {
			continue
		}
		if filter.DeviceID != "" && txn.DeviceID != filter.DeviceID {
			continue
		}
		if filter.StartDate != nil && txn.Timestamp.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && txn.Timestamp.After(*filter.EndDate) {
			continue
		}
		matched = append(matched, txn)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].TransactionID < matched[j].TransactionID
	})

	result := &domain.PaginatedTransactions{
		Data: []domain.Transaction{},
		Pagination: domain.Pagination{
			Limit:  filter.Limit,
			Offset: filter.Offset,
			Total:  len(matched),
		},
	}
	if filter.Offset >= len(matched) {
		return result, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	for _, txn := range matched[filter.Offset:end] {
		result.Data = append(result.Data, *copyTransaction(txn))
	}
	return result, nil
}

// UpsertStore implements StoreRepository
func (r *MemoryRepository) UpsertStore(ctx context.Context, store *domain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[store.StoreID] = *store
	return nil
}

// GetStore implements StoreRepository
func (r *MemoryRepository) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	store, ok := r.stores[storeID]
	if !ok {
		return nil, domain.ErrStoreNotFound
	}
	return &store, nil
}

// stagedRollups collects increments until the save commits
type stagedRollups struct {
	repo      *MemoryRepository
	storeDays []rollup.StoreDayDelta
	brands    []rollup.BrandDelta
	regions   []rollup.RegionDelta
}

func (s *stagedRollups) IncrementStoreDay(ctx context.Context, delta rollup.StoreDayDelta) error {
	s.storeDays = append(s.storeDays, delta)
	return nil
}

func (s *stagedRollups) IncrementBrand(ctx context.Context, delta rollup.BrandDelta) error {
	s.brands = append(s.brands, delta)
	return nil
}

func (s *stagedRollups) IncrementRegion(ctx context.Context, delta rollup.RegionDelta) error {
	s.regions = append(s.regions, delta)
	return nil
}

func (s *stagedRollups) LookupRegion(ctx context.Context, storeID string) (string, bool, error) {
	s.repo.mu.RLock()
	defer s.repo.mu.RUnlock()
	store, ok := s.repo.stores[storeID]
	return store.Region, ok, nil
}

func storeDayKey(storeID, date string) string { return "store:" + storeID + ":" + date }
func brandKey(brand string) string            { return "brand:" + brand }
func regionKey(region string) string          { return "region:" + region }

func (s *stagedRollups) keys() []string {
	var keys []string
	for _, d := range s.storeDays {
		keys = append(keys, storeDayKey(d.StoreID, d.Date))
	}
	for _, d := range s.brands {
		keys = append(keys, brandKey(d.Brand))
	}
	for _, d := range s.regions {
		keys = append(keys, regionKey(d.Region))
	}
	return keys
}

// commit applies staged increments. The caller holds every key lock.
func (s *stagedRollups) commit(now time.Time) {
	for _, d := range s.storeDays {
		v, _ := s.repo.storeDays.LoadOrStore(storeDayKey(d.StoreID, d.Date), &domain.StoreAnalytics{StoreID: d.StoreID, Date: d.Date})
		row := v.(*domain.StoreAnalytics)
		row.TotalTransactions += d.Transactions
		row.TotalRevenue = addAmount(row.TotalRevenue, d.Revenue)
		row.BrandedRevenue = addAmount(row.BrandedRevenue, d.BrandedRevenue)
		row.UnbrandedRevenue = addAmount(row.UnbrandedRevenue, d.UnbrandedRevenue)
		row.TotalItemsSold = addQuantity(row.TotalItemsSold, d.ItemsSold)
		row.BrandedItemsSold = addQuantity(row.BrandedItemsSold, d.BrandedItemsSold)
		row.UnbrandedItemsSold = addQuantity(row.UnbrandedItemsSold, d.UnbrandedItemsSold)
		row.UpdatedAt = now
	}

	for _, d := range s.brands {
		v, _ := s.repo.brands.LoadOrStore(brandKey(d.Brand), &domain.BrandPerformance{BrandName: d.Brand, Category: d.Category})
		row := v.(*domain.BrandPerformance)
		row.TotalUnitsSold = addQuantity(row.TotalUnitsSold, d.Units)
		row.TotalRevenue = addAmount(row.TotalRevenue, d.Revenue)
		if !d.LastSold.Before(row.LastSold) {
			row.LastSold = d.LastSold
			row.LastUnitPrice = d.LastUnitPrice
		}
	}

	for _, d := range s.regions {
		v, _ := s.repo.regions.LoadOrStore(regionKey(d.Region), &regionEntry{
			insight:    domain.RegionalInsight{Region: d.Region},
			categories: make(map[string]*domain.CategoryStat),
		})
		entry := v.(*regionEntry)
		entry.insight.TotalTransactions += d.Transactions
		entry.insight.TotalRevenue = addAmount(entry.insight.TotalRevenue, d.Revenue)
		entry.insight.BrandedRevenue = addAmount(entry.insight.BrandedRevenue, d.BrandedRevenue)
		entry.insight.UpdatedAt = now
		for _, c := range d.Categories {
			stat, ok := entry.categories[c.Category]
			if !ok {
				stat = &domain.CategoryStat{Category: c.Category}
				entry.categories[c.Category] = stat
			}
			stat.Count = addQuantity(stat.Count, c.Count)
			stat.Value = addAmount(stat.Value, c.Value)
		}
	}
}

// GetStoreAnalytics implements AnalyticsRepository. Store-day rows are
// already bucketed by date so ranges filter the rollup directly.
func (r *MemoryRepository) GetStoreAnalytics(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.StoreAnalytics, error) {
	var start, end string
	if filter.StartDate != nil {
		start = filter.StartDate.Format(rollup.DateLayout)
	}
	if filter.EndDate != nil {
		end = filter.EndDate.Format(rollup.DateLayout)
	}

	rows := []domain.StoreAnalytics{}
	r.storeDays.Range(func(k, v any) bool {
		unlock := r.locks.Lock(k.(string))
		row := *v.(*domain.StoreAnalytics)
		unlock()

		if filter.StoreID != "" && row.StoreID != filter.StoreID {
			return true
		}
		if start != "" && row.Date < start {
			return true
		}
		if end != "" && row.Date > end {
			return true
		}
		rows = append(rows, row)
		return true
	})

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date > rows[j].Date
		}
		return rows[i].StoreID < rows[j].StoreID
	})
	return truncate(rows, filter.Limit), nil
}

// GetBrandPerformance implements AnalyticsRepository
func (r *MemoryRepository) GetBrandPerformance(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.BrandPerformance, error) {
	rows := []domain.BrandPerformance{}

	if !filter.HasRange() && filter.StoreID == "" {
		r.brands.Range(func(k, v any) bool {
			unlock := r.locks.Lock(k.(string))
			row := *v.(*domain.BrandPerformance)
			unlock()
			rows = append(rows, row)
			return true
		})
	} else {
		byBrand := make(map[string]*domain.BrandPerformance)
		var order []string
		for _, txn := range r.matching(filter) {
			for _, item := range txn.Items {
				if item.BrandName == nil {
					continue
				}
				row, ok := byBrand[*item.BrandName]
				if !ok {
					row = &domain.BrandPerformance{BrandName: *item.BrandName, Category: item.Category}
					byBrand[*item.BrandName] = row
					order = append(order, *item.BrandName)
				}
				row.TotalUnitsSold = addQuantity(row.TotalUnitsSold, item.Quantity)
				row.TotalRevenue = addAmount(row.TotalRevenue, item.TotalPrice)
				if !txn.Timestamp.Before(row.LastSold) {
					row.LastSold = txn.Timestamp
					row.LastUnitPrice = item.UnitPrice
				}
			}
		}
		for _, brand := range order {
			rows = append(rows, *byBrand[brand])
		}
	}

	for i := range rows {
		rows[i].AvgPrice = averagePrice(rows[i].TotalRevenue, rows[i].TotalUnitsSold)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalRevenue != rows[j].TotalRevenue {
			return rows[i].TotalRevenue > rows[j].TotalRevenue
		}
		return rows[i].BrandName < rows[j].BrandName
	})
	return truncate(rows, filter.Limit), nil
}

// GetCategoryPerformance implements AnalyticsRepository
func (r *MemoryRepository) GetCategoryPerformance(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.CategoryStat, error) {
	var items []domain.TransactionItem
	for _, txn := range r.matching(filter) {
		items = append(items, txn.Items...)
	}
	return aggregator.TopCategories(items, filter.Limit), nil
}

// GetRegionalInsights implements AnalyticsRepository
func (r *MemoryRepository) GetRegionalInsights(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.RegionalInsight, error) {
	rows := []domain.RegionalInsight{}

	if !filter.HasRange() && filter.StoreID == "" {
		r.regions.Range(func(k, v any) bool {
			unlock := r.locks.Lock(k.(string))
			entry := v.(*regionEntry)
			row := entry.insight
			stats := make([]domain.CategoryStat, 0, len(entry.categories))
			for _, stat := range entry.categories {
				stats = append(stats, *stat)
			}
			unlock()

			row.TopCategories = aggregator.RankCategories(stats, filter.CategoryLimit)
			rows = append(rows, row)
			return true
		})
	} else {
		r.mu.RLock()
		stores := make(map[string]domain.Store, len(r.stores))
		for id, s := range r.stores {
			stores[id] = s
		}
		r.mu.RUnlock()

		byRegion := make(map[string]*domain.RegionalInsight)
		itemsByRegion := make(map[string][]domain.TransactionItem)
		for _, txn := range r.matching(filter) {
			store, ok := stores[txn.StoreID]
			if !ok {
				continue
			}
			row, ok := byRegion[store.Region]
			if !ok {
				row = &domain.RegionalInsight{Region: store.Region}
				byRegion[store.Region] = row
			}
			totals := aggregator.Totals(txn.Items)
			row.TotalTransactions++
			row.TotalRevenue = addAmount(row.TotalRevenue, totals.TotalAmount)
			row.BrandedRevenue = addAmount(row.BrandedRevenue, totals.BrandedAmount)
			if txn.ReceivedAt.After(row.UpdatedAt) {
				row.UpdatedAt = txn.ReceivedAt
			}
			itemsByRegion[store.Region] = append(itemsByRegion[store.Region], txn.Items...)
		}
		for region, row := range byRegion {
			row.TopCategories = aggregator.TopCategories(itemsByRegion[region], filter.CategoryLimit)
			rows = append(rows, *row)
		}
	}

	for i := range rows {
		rows[i].BrandedPercentage = decimal.NewFromFloat(
			domain.BrandedPercentageOf(rows[i].BrandedRevenue, rows[i].TotalRevenue),
		).Round(2).InexactFloat64()
	}
	sortRegions(rows)
	return truncate(rows, filter.Limit), nil
}

// GetDetectionAnalytics implements AnalyticsRepository
func (r *MemoryRepository) GetDetectionAnalytics(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.DetectionStat, error) {
	var items []domain.TransactionItem
	for _, txn := range r.matching(filter) {
		items = append(items, txn.Items...)
	}
	return aggregator.DetectionStats(items), nil
}

// GetUnbrandedOpportunities implements AnalyticsRepository
func (r *MemoryRepository) GetUnbrandedOpportunities(ctx context.Context, filter domain.OpportunityFilter) ([]domain.UnbrandedOpportunity, error) {
	type group struct {
		row    domain.UnbrandedOpportunity
		stores map[string]struct{}
	}
	groups := make(map[string]*group)
	var order []string
	for _, txn := range r.matching(filter.AnalyticsFilter) {
		for _, item := range txn.Items {
			if !item.IsUnbranded {
				continue
			}
			if filter.Category != "" && item.Category != filter.Category {
				continue
			}
			product := aggregator.OpportunityProduct(item)
			key := item.Category + "\x00" + product + "\x00" + item.Unit
			g, ok := groups[key]
			if !ok {
				g = &group{
					row:    domain.UnbrandedOpportunity{Category: item.Category, Product: product, Unit: item.Unit},
					stores: make(map[string]struct{}),
				}
				groups[key] = g
				order = append(order, key)
			}
			g.row.TotalQuantity = addQuantity(g.row.TotalQuantity, item.Quantity)
			g.row.TotalRevenue = addAmount(g.row.TotalRevenue, item.TotalPrice)
			g.row.ItemCount++
			g.stores[txn.StoreID] = struct{}{}
			// transactions arrive oldest first, so the latest suggestions win
			if len(item.SuggestedBrands) > 0 {
				g.row.SuggestedBrands = append([]string(nil), item.SuggestedBrands...)
			}
		}
	}

	rows := []domain.UnbrandedOpportunity{}
	for _, key := range order {
		g := groups[key]
		if g.row.TotalQuantity < filter.MinVolume {
			continue
		}
		g.row.StoreCount = int64(len(g.stores))
		if g.row.SuggestedBrands == nil {
			g.row.SuggestedBrands = []string{}
		}
		rows = append(rows, g.row)
	}
	return aggregator.RankOpportunities(rows, filter.Limit), nil
}

// matching returns stored transactions inside the filter, oldest first
func (r *MemoryRepository) matching(filter domain.AnalyticsFilter) []*domain.Transaction {
	r.mu.RLock()
	var matched []*domain.Transaction
	for _, txn := range r.transactions {
		if filter.StoreID != "" && txn.StoreID != filter.StoreID {
			continue
		}
		if !filter.Contains(txn.Timestamp) {
			continue
		}
		matched = append(matched, txn)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.Before(matched[j].Timestamp)
		}
		return matched[i].TransactionID < matched[j].TransactionID
	})
	return matched
}

func copyTransaction(txn *domain.Transaction) *domain.Transaction {
	c := *txn
	c.Items = append([]domain.TransactionItem(nil), txn.Items...)
	if txn.Totals != nil {
		totals := *txn.Totals
		c.Totals = &totals
	}
	if txn.Insights != nil {
		insights := *txn.Insights
		c.Insights = &insights
	}
	return &c
}

func addAmount(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

func addQuantity(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).InexactFloat64()
}

func averagePrice(revenue, units float64) float64 {
	if units <= 0 {
		return 0
	}
	return decimal.NewFromFloat(revenue).Div(decimal.NewFromFloat(units)).Round(2).InexactFloat64()
}

// sortRegions orders regions by revenue, highest first
func sortRegions(rows []domain.RegionalInsight) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalRevenue != rows[j].TotalRevenue {
			return rows[i].TotalRevenue > rows[j].TotalRevenue
		}
		return rows[i].Region < rows[j].Region
	})
}

func truncate[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

// Ensure MemoryRepository implements Store interface.
var _ Store = (*MemoryRepository)(nil)
