package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ridwanfathin/edge-transaction-service/internal/aggregator"
	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/rollup"
)

// itemScope builds the WHERE clause shared by the raw item queries. The
// transactions table must be aliased as t.
func itemScope(filter domain.AnalyticsFilter, conditions []string) (string, []interface{}) {
	args := []interface{}{}
	argCount := 1

	if filter.StoreID != "" {
		conditions = append(conditions, fmt.Sprintf("t.store_id = $%d", argCount))
		args = append(args, filter.StoreID)
		argCount++
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf(`t."timestamp" >= $%d`, argCount))
		args = append(args, *filter.StartDate)
		argCount++
	}
	if end := filter.EndExclusive(); end != nil {
		conditions = append(conditions, fmt.Sprintf(`t."timestamp" < $%d`, argCount))
		args = append(args, *end)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf("LIMIT %d", limit)
}

// GetStoreAnalytics implements AnalyticsRepository
func (r *PostgresTransactionRepository) GetStoreAnalytics(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.StoreAnalytics, error) {
	conditions := []string{}
	args := []interface{}{}
	argCount := 1

	if filter.StoreID != "" {
		conditions = append(conditions, fmt.Sprintf("store_id = $%d", argCount))
		args = append(args, filter.StoreID)
		argCount++
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d::date", argCount))
		args = append(args, filter.StartDate.Format(rollup.DateLayout))
		argCount++
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d::date", argCount))
		args = append(args, filter.EndDate.Format(rollup.DateLayout))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT store_id, to_char(date, 'YYYY-MM-DD'), total_transactions, total_revenue, branded_revenue,
			unbranded_revenue, total_items_sold, branded_items_sold, unbranded_items_sold, updated_at
		FROM store_daily_analytics
		%s
		ORDER BY date DESC, store_id
		%s
	`, whereClause, limitClause(filter.Limit)), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query store analytics: %w", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StoreAnalytics, error) {
		var a domain.StoreAnalytics
		err := row.Scan(&a.StoreID, &a.Date, &a.TotalTransactions, &a.TotalRevenue, &a.BrandedRevenue,
			&a.UnbrandedRevenue, &a.TotalItemsSold, &a.BrandedItemsSold, &a.UnbrandedItemsSold, &a.UpdatedAt)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan store analytics: %w", err)
	}
	return result, nil
}

// GetBrandPerformance implements AnalyticsRepository
func (r *PostgresTransactionRepository) GetBrandPerformance(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.BrandPerformance, error) {
	var query string
	var args []interface{}

	if !filter.HasRange() && filter.StoreID == "" {
		query = fmt.Sprintf(`
			SELECT brand_name, category, total_units_sold, total_revenue, last_unit_price, last_sold
			FROM brand_performance
			ORDER BY total_revenue DESC, brand_name
			%s
		`, limitClause(filter.Limit))
	} else {
		var whereClause string
		whereClause, args = itemScope(filter, []string{"i.brand_name IS NOT NULL"})
		query = fmt.Sprintf(`
			SELECT i.brand_name,
				(array_agg(i.category ORDER BY t."timestamp", t.transaction_id, i.position))[1],
				SUM(i.quantity),
				SUM(i.total_price),
				(array_agg(i.unit_price ORDER BY t."timestamp" DESC, t.transaction_id DESC, i.position DESC))[1],
				MAX(t."timestamp")
			FROM transaction_items i
			JOIN transactions t ON t.id = i.transaction_ref
			%s
			GROUP BY i.brand_name
			ORDER BY SUM(i.total_price) DESC, i.brand_name
			%s
		`, whereClause, limitClause(filter.Limit))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query brand performance: %w", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.BrandPerformance, error) {
		var b domain.BrandPerformance
		if err := row.Scan(&b.BrandName, &b.Category, &b.TotalUnitsSold, &b.TotalRevenue, &b.LastUnitPrice, &b.LastSold); err != nil {
			return b, err
		}
		b.AvgPrice = averagePrice(b.TotalRevenue, b.TotalUnitsSold)
		return b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan brand performance: %w", err)
	}
	return result, nil
}

// GetCategoryPerformance implements AnalyticsRepository
func (r *PostgresTransactionRepository) GetCategoryPerformance(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.CategoryStat, error) {
	whereClause, args := itemScope(filter, nil)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT i.category, SUM(i.quantity), SUM(i.total_price)
		FROM transaction_items i
		JOIN transactions t ON t.id = i.transaction_ref
		%s
		GROUP BY i.category
	`, whereClause), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query category performance: %w", err)
	}

	stats, err := pgx.CollectRows(rows, scanCategoryStat)
	if err != nil {
		return nil, fmt.Errorf("failed to scan category performance: %w", err)
	}
	return aggregator.RankCategories(stats, filter.Limit), nil
}

// GetRegionalInsights implements AnalyticsRepository
func (r *PostgresTransactionRepository) GetRegionalInsights(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.RegionalInsight, error) {
	fromRollup := !filter.HasRange() && filter.StoreID == ""

	var insightQuery, categoryQuery string
	var args []interface{}
	if fromRollup {
		insightQuery = `
			SELECT region, total_transactions, total_revenue, branded_revenue, updated_at
			FROM regional_insights`
		categoryQuery = `
			SELECT region, category, item_count, total_value
			FROM region_categories`
	} else {
		var whereClause string
		whereClause, args = itemScope(filter, nil)
		insightQuery = fmt.Sprintf(`
			SELECT s.region, COUNT(*), SUM(t.total_amount), SUM(t.branded_amount), MAX(t.received_at)
			FROM transactions t
			JOIN stores s ON s.store_id = t.store_id
			%s
			GROUP BY s.region`, whereClause)
		categoryQuery = fmt.Sprintf(`
			SELECT s.region, i.category, SUM(i.quantity), SUM(i.total_price)
			FROM transaction_items i
			JOIN transactions t ON t.id = i.transaction_ref
			JOIN stores s ON s.store_id = t.store_id
			%s
			GROUP BY s.region, i.category`, whereClause)
	}

	rows, err := r.db.Query(ctx, insightQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query regional insights: %w", err)
	}
	insights, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RegionalInsight, error) {
		var ri domain.RegionalInsight
		err := row.Scan(&ri.Region, &ri.TotalTransactions, &ri.TotalRevenue, &ri.BrandedRevenue, &ri.UpdatedAt)
		return ri, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan regional insights: %w", err)
	}

	rows, err = r.db.Query(ctx, categoryQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query regional categories: %w", err)
	}
	categories := make(map[string][]domain.CategoryStat)
	for rows.Next() {
		var region string
		var stat domain.CategoryStat
		if err := rows.Scan(&region, &stat.Category, &stat.Count, &stat.Value); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan regional category: %w", err)
		}
		categories[region] = append(categories[region], stat)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating regional categories: %w", err)
	}

	for i := range insights {
		insights[i].TopCategories = aggregator.RankCategories(categories[insights[i].Region], filter.CategoryLimit)
		insights[i].BrandedPercentage = decimal.NewFromFloat(
			domain.BrandedPercentageOf(insights[i].BrandedRevenue, insights[i].TotalRevenue),
		).Round(2).InexactFloat64()
	}
	sortRegions(insights)
	return truncate(insights, filter.Limit), nil
}

func scanCategoryStat(row pgx.CollectableRow) (domain.CategoryStat, error) {
	var stat domain.CategoryStat
	err := row.Scan(&stat.Category, &stat.Count, &stat.Value)
	return stat, err
}

// GetDetectionAnalytics implements AnalyticsRepository
func (r *PostgresTransactionRepository) GetDetectionAnalytics(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.DetectionStat, error) {
	whereClause, args := itemScope(filter, nil)
	args = append(args, domain.LowConfidenceThreshold)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT i.detection_method, COUNT(*), ROUND(AVG(i.confidence), 4),
			COUNT(*) FILTER (WHERE i.confidence < $%d), SUM(i.total_price)
		FROM transaction_items i
		JOIN transactions t ON t.id = i.transaction_ref
		%s
		GROUP BY i.detection_method
	`, len(args), whereClause), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection analytics: %w", err)
	}

	stats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DetectionStat, error) {
		var s domain.DetectionStat
		var method string
		err := row.Scan(&method, &s.ItemCount, &s.AverageConfidence, &s.LowConfidenceCount, &s.TotalRevenue)
		s.DetectionMethod = domain.DetectionMethod(method)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan detection analytics: %w", err)
	}
	return aggregator.RankDetectionStats(stats), nil
}

// GetUnbrandedOpportunities implements AnalyticsRepository
func (r *PostgresTransactionRepository) GetUnbrandedOpportunities(ctx context.Context, filter domain.OpportunityFilter) ([]domain.UnbrandedOpportunity, error) {
	whereClause, args := itemScope(filter.AnalyticsFilter, []string{"i.is_unbranded"})
	if filter.Category != "" {
		args = append(args, filter.Category)
		whereClause += fmt.Sprintf(" AND i.category = $%d", len(args))
	}
	args = append(args, filter.MinVolume)
	minVolumeArg := len(args)

	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		WITH scoped AS (
			SELECT i.category,
				COALESCE(NULLIF(TRIM(i.generic_name), ''), TRIM(i.product_name)) AS product,
				i.unit, i.quantity, i.total_price, i.suggested_brands, i.position,
				t.store_id, t."timestamp", t.transaction_id
			FROM transaction_items i
			JOIN transactions t ON t.id = i.transaction_ref
			%s
		),
		latest AS (
			SELECT DISTINCT ON (category, product, unit) category, product, unit, suggested_brands
			FROM scoped
			WHERE cardinality(suggested_brands) > 0
			ORDER BY category, product, unit, "timestamp" DESC, transaction_id DESC, position DESC
		)
		SELECT s.category, s.product, s.unit, SUM(s.quantity), COUNT(*), SUM(s.total_price),
			COUNT(DISTINCT s.store_id), COALESCE(l.suggested_brands, '{}')
		FROM scoped s
		LEFT JOIN latest l USING (category, product, unit)
		GROUP BY s.category, s.product, s.unit, l.suggested_brands
		HAVING SUM(s.quantity) >= $%d
		ORDER BY SUM(s.quantity) DESC, SUM(s.total_price) DESC, s.category, s.product
		%s
	`, whereClause, minVolumeArg, limitClause(filter.Limit)), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query unbranded opportunities: %w", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.UnbrandedOpportunity, error) {
		var o domain.UnbrandedOpportunity
		err := row.Scan(&o.Category, &o.Product, &o.Unit, &o.TotalQuantity, &o.ItemCount, &o.TotalRevenue,
			&o.StoreCount, &o.SuggestedBrands)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan unbranded opportunities: %w", err)
	}
	return aggregator.RankOpportunities(result, 0), nil
}
