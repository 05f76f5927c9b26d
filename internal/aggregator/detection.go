package aggregator

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
)

// DetectionStats groups items by detection method. Items without a method
// are counted as manual entries.
func DetectionStats(items []domain.TransactionItem) []domain.DetectionStat {
	type acc struct {
		count      int64
		low        int64
		confidence decimal.Decimal
		revenue    decimal.Decimal
	}
	byMethod := make(map[domain.DetectionMethod]*acc)
	for _, item := range items {
		method := item.DetectionMethod
		if method == "" {
			method = domain.DetectionManual
		}
		a, ok := byMethod[method]
		if !ok {
			a = &acc{}
			byMethod[method] = a
		}
		a.count++
		a.confidence = a.confidence.Add(decimal.NewFromFloat(item.Confidence))
		a.revenue = a.revenue.Add(decimal.NewFromFloat(item.TotalPrice))
		if item.Confidence < domain.LowConfidenceThreshold {
			a.low++
		}
	}

	stats := make([]domain.DetectionStat, 0, len(byMethod))
	for method, a := range byMethod {
		stats = append(stats, domain.DetectionStat{
			DetectionMethod:    method,
			ItemCount:          a.count,
			AverageConfidence:  a.confidence.Div(decimal.NewFromInt(a.count)).Round(4).InexactFloat64(),
			LowConfidenceCount: a.low,
			TotalRevenue:       a.revenue.Round(2).InexactFloat64(),
		})
	}
	return RankDetectionStats(stats)
}

// RankDetectionStats fills in each method's share of all items and sorts
// by item count desc, then method name
func RankDetectionStats(stats []domain.DetectionStat) []domain.DetectionStat {
	if stats == nil {
		return []domain.DetectionStat{}
	}
	var total int64
	for _, s := range stats {
		total += s.ItemCount
	}
	for i := range stats {
		if total > 0 {
			stats[i].ItemShare = decimal.NewFromInt(stats[i].ItemCount * 100).
				Div(decimal.NewFromInt(total)).Round(2).InexactFloat64()
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].ItemCount != stats[j].ItemCount {
			return stats[i].ItemCount > stats[j].ItemCount
		}
		return stats[i].DetectionMethod < stats[j].DetectionMethod
	})
	return stats
}

// OpportunityProduct is the name an unbranded item is grouped under
func OpportunityProduct(item domain.TransactionItem) string {
	if item.GenericName != nil && strings.TrimSpace(*item.GenericName) != "" {
		return strings.TrimSpace(*item.GenericName)
	}
	return strings.TrimSpace(item.ProductName)
}

// RankOpportunities sorts opportunities by quantity desc, revenue desc,
// then category and product, and truncates to limit when limit is positive
func RankOpportunities(rows []domain.UnbrandedOpportunity, limit int) []domain.UnbrandedOpportunity {
	if rows == nil {
		return []domain.UnbrandedOpportunity{}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalQuantity != rows[j].TotalQuantity {
			return rows[i].TotalQuantity > rows[j].TotalQuantity
		}
		if rows[i].TotalRevenue != rows[j].TotalRevenue {
			return rows[i].TotalRevenue > rows[j].TotalRevenue
		}
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].Product < rows[j].Product
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
