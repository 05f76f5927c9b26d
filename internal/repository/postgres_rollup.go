package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/ridwanfathin/edge-transaction-service/internal/rollup"
)

// postgresIncrementer applies rollup increments inside the save transaction.
// Every statement is a single upsert so the row lock is held only for the
// remainder of the transaction.
type postgresIncrementer struct {
	tx pgx.Tx
}

func (p *postgresIncrementer) IncrementStoreDay(ctx context.Context, d rollup.StoreDayDelta) error {
	_, err := p.tx.Exec(ctx, `
		INSERT INTO store_daily_analytics (
			store_id, date, total_transactions, total_revenue, branded_revenue, unbranded_revenue,
			total_items_sold, branded_items_sold, unbranded_items_sold, updated_at
		)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (store_id, date) DO UPDATE SET
			total_transactions   = store_daily_analytics.total_transactions + EXCLUDED.total_transactions,
			total_revenue        = store_daily_analytics.total_revenue + EXCLUDED.total_revenue,
			branded_revenue      = store_daily_analytics.branded_revenue + EXCLUDED.branded_revenue,
			unbranded_revenue    = store_daily_analytics.unbranded_revenue + EXCLUDED.unbranded_revenue,
			total_items_sold     = store_daily_analytics.total_items_sold + EXCLUDED.total_items_sold,
			branded_items_sold   = store_daily_analytics.branded_items_sold + EXCLUDED.branded_items_sold,
			unbranded_items_sold = store_daily_analytics.unbranded_items_sold + EXCLUDED.unbranded_items_sold,
			updated_at           = NOW()
	`, d.StoreID, d.Date, d.Transactions, d.Revenue, d.BrandedRevenue, d.UnbrandedRevenue,
		d.ItemsSold, d.BrandedItemsSold, d.UnbrandedItemsSold)
	return classify(storeDayKey(d.StoreID, d.Date), err)
}

func (p *postgresIncrementer) IncrementBrand(ctx context.Context, d rollup.BrandDelta) error {
	_, err := p.tx.Exec(ctx, `
		INSERT INTO brand_performance (brand_name, category, total_units_sold, total_revenue, last_unit_price, last_sold, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (brand_name) DO UPDATE SET
			total_units_sold = brand_performance.total_units_sold + EXCLUDED.total_units_sold,
			total_revenue    = brand_performance.total_revenue + EXCLUDED.total_revenue,
			last_unit_price  = CASE WHEN EXCLUDED.last_sold >= brand_performance.last_sold
			                        THEN EXCLUDED.last_unit_price ELSE brand_performance.last_unit_price END,
			last_sold        = GREATEST(brand_performance.last_sold, EXCLUDED.last_sold),
			updated_at       = NOW()
	`, d.Brand, d.Category, d.Units, d.Revenue, d.LastUnitPrice, d.LastSold)
	return classify(brandKey(d.Brand), err)
}

func (p *postgresIncrementer) IncrementRegion(ctx context.Context, d rollup.RegionDelta) error {
	_, err := p.tx.Exec(ctx, `
		INSERT INTO regional_insights (region, total_transactions, total_revenue, branded_revenue, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (region) DO UPDATE SET
			total_transactions = regional_insights.total_transactions + EXCLUDED.total_transactions,
			total_revenue      = regional_insights.total_revenue + EXCLUDED.total_revenue,
			branded_revenue    = regional_insights.branded_revenue + EXCLUDED.branded_revenue,
			updated_at         = NOW()
	`, d.Region, d.Transactions, d.Revenue, d.BrandedRevenue)
	if err != nil {
		return classify(regionKey(d.Region), err)
	}

	// categories arrive in rank order; lock rows by name instead
	categories := append(d.Categories[:0:0], d.Categories...)
	sort.Slice(categories, func(i, j int) bool { return categories[i].Category < categories[j].Category })
	for _, c := range categories {
		_, err := p.tx.Exec(ctx, `
			INSERT INTO region_categories (region, category, item_count, total_value)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (region, category) DO UPDATE SET
				item_count  = region_categories.item_count + EXCLUDED.item_count,
				total_value = region_categories.total_value + EXCLUDED.total_value
		`, d.Region, c.Category, c.Count, c.Value)
		if err != nil {
			return classify(regionKey(d.Region), err)
		}
	}
	return nil
}

func (p *postgresIncrementer) LookupRegion(ctx context.Context, storeID string) (string, bool, error) {
	var region string
	err := p.tx.QueryRow(ctx, `SELECT region FROM stores WHERE store_id = $1`, storeID).Scan(&region)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify("lookup_region", err)
	}
	return region, true, nil
}
