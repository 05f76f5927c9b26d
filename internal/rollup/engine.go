// Package rollup turns an accepted transaction into increments against the
// store-day, brand and region aggregates.
package rollup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ridwanfathin/edge-transaction-service/internal/aggregator"
	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
)

// DateLayout is the key format of store-day aggregates
const DateLayout = "2006-01-02"

// StoreDayDelta is the increment for one store on one local date
type StoreDayDelta struct {
	StoreID            string
	Date               string
	Transactions       int64
	Revenue            float64
	BrandedRevenue     float64
	UnbrandedRevenue   float64
	ItemsSold          float64
	BrandedItemsSold   float64
	UnbrandedItemsSold float64
	At                 time.Time
}

// BrandDelta is the increment for one brand
type BrandDelta struct {
	Brand         string
	Category      string
	Units         float64
	Revenue       float64
	LastUnitPrice float64
	LastSold      time.Time
}

// RegionDelta is the increment for one region, including its category sums
type RegionDelta struct {
	Region         string
	Transactions   int64
	Revenue        float64
	BrandedRevenue float64
	Categories     []domain.CategoryStat
	At             time.Time
}

// Incrementer applies increment-or-create operations. Each call must be
// atomic for its key; implementations decide how.
type Incrementer interface {
	IncrementStoreDay(ctx context.Context, delta StoreDayDelta) error
	IncrementBrand(ctx context.Context, delta BrandDelta) error
	IncrementRegion(ctx context.Context, delta RegionDelta) error
	LookupRegion(ctx context.Context, storeID string) (string, bool, error)
}

// Engine computes deltas and applies them in a fixed key order
type Engine struct {
	loc *time.Location
}

// NewEngine creates an engine that buckets store days in loc. A nil loc means UTC.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

// Apply increments every aggregate touched by txn. Keys are visited in the
// order store-day, brands by name, region so concurrent writers lock rows
// in the same order.
func (e *Engine) Apply(ctx context.Context, inc Incrementer, txn *domain.Transaction) error {
	store := e.StoreDay(txn)
	if err := inc.IncrementStoreDay(ctx, store); err != nil {
		return fmt.Errorf("store rollup %s/%s: %w", store.StoreID, store.Date, err)
	}

	for _, brand := range Brands(txn) {
		if err := inc.IncrementBrand(ctx, brand); err != nil {
			return fmt.Errorf("brand rollup %s: %w", brand.Brand, err)
		}
	}

	region, ok, err := inc.LookupRegion(ctx, txn.StoreID)
	if err != nil {
		return fmt.Errorf("lookup region for %s: %w", txn.StoreID, err)
	}
	if !ok {
		// stores without a registered region only feed store and brand rollups
		return nil
	}

	delta := Region(txn, store)
	delta.Region = region
	if err := inc.IncrementRegion(ctx, delta); err != nil {
		return fmt.Errorf("region rollup %s: %w", region, err)
	}
	return nil
}

// StoreDay computes the store-day increment for txn
func (e *Engine) StoreDay(txn *domain.Transaction) StoreDayDelta {
	totals := aggregator.Totals(txn.Items)
	return StoreDayDelta{
		StoreID:            txn.StoreID,
		Date:               txn.Timestamp.In(e.loc).Format(DateLayout),
		Transactions:       1,
		Revenue:            totals.TotalAmount,
		BrandedRevenue:     totals.BrandedAmount,
		UnbrandedRevenue:   totals.UnbrandedAmount,
		ItemsSold:          totals.TotalItems,
		BrandedItemsSold:   totals.BrandedCount,
		UnbrandedItemsSold: totals.UnbrandedCount,
		At:                 txn.Timestamp,
	}
}

// Brands computes one increment per brand, sorted by brand name
func Brands(txn *domain.Transaction) []BrandDelta {
	type acc struct {
		delta   BrandDelta
		units   decimal.Decimal
		revenue decimal.Decimal
	}

	byBrand := make(map[string]*acc)
	for _, item := range txn.Items {
		if item.BrandName == nil {
			continue
		}
		a, ok := byBrand[*item.BrandName]
		if !ok {
			a = &acc{delta: BrandDelta{Brand: *item.BrandName, Category: item.Category, LastSold: txn.Timestamp}}
			byBrand[*item.BrandName] = a
		}
		a.units = a.units.Add(decimal.NewFromFloat(item.Quantity))
		a.revenue = a.revenue.Add(decimal.NewFromFloat(item.TotalPrice))
		a.delta.LastUnitPrice = item.UnitPrice
	}

	deltas := make([]BrandDelta, 0, len(byBrand))
	for _, a := range byBrand {
		a.delta.Units = a.units.InexactFloat64()
		a.delta.Revenue = a.revenue.Round(2).InexactFloat64()
		deltas = append(deltas, a.delta)
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Brand < deltas[j].Brand })
	return deltas
}

// Region computes the region increment for txn. The caller sets Region.
func Region(txn *domain.Transaction, store StoreDayDelta) RegionDelta {
	return RegionDelta{
		Transactions:   1,
		Revenue:        store.Revenue,
		BrandedRevenue: store.BrandedRevenue,
		Categories:     aggregator.TopCategories(txn.Items, 0),
		At:             txn.Timestamp,
	}
}
