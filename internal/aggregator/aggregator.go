// Package aggregator derives transaction totals and insights from line items.
// Every function here is pure and safe to call concurrently.
package aggregator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
)

// PlatformTopCategoryLimit bounds category rankings on platform-wide rollups
const PlatformTopCategoryLimit = 10

// Aggregator computes totals and insights with a fixed rule set and anomaly policy
type Aggregator struct {
	rules  []SuggestionRule
	policy AnomalyPolicy
}

// New creates an aggregator. A nil rule set selects DefaultSuggestionRules.
func New(policy AnomalyPolicy, rules []SuggestionRule) *Aggregator {
	if rules == nil {
		rules = DefaultSuggestionRules
	}
	return &Aggregator{rules: rules, policy: policy}
}

// Aggregate returns the totals and insights for a finalized item list
func (a *Aggregator) Aggregate(items []domain.TransactionItem) (domain.Totals, domain.Insights) {
	totals := Totals(items)
	insights := domain.Insights{
		BrandedVsUnbranded: Split(items),
		TopCategories:      TopCategories(items, 0),
		Suggestions:        Suggest(items, a.rules),
		Anomalies:          a.policy.Detect(items),
	}
	return totals, insights
}

// Totals partitions items on brand status and sums amounts and quantities.
// Amounts are summed exactly and rounded to cents only once at the end.
func Totals(items []domain.TransactionItem) domain.Totals {
	var brandedAmount, unbrandedAmount decimal.Decimal
	var brandedCount, unbrandedCount decimal.Decimal

	for _, item := range items {
		price := decimal.NewFromFloat(item.TotalPrice)
		quantity := decimal.NewFromFloat(item.Quantity)
		if item.BrandName == nil {
			unbrandedAmount = unbrandedAmount.Add(price)
			unbrandedCount = unbrandedCount.Add(quantity)
		} else {
			brandedAmount = brandedAmount.Add(price)
			brandedCount = brandedCount.Add(quantity)
		}
	}

	branded := brandedAmount.Round(2)
	unbranded := unbrandedAmount.Round(2)

	return domain.Totals{
		TotalAmount:     branded.Add(unbranded).InexactFloat64(),
		TotalItems:      brandedCount.Add(unbrandedCount).InexactFloat64(),
		BrandedAmount:   branded.InexactFloat64(),
		UnbrandedAmount: unbranded.InexactFloat64(),
		BrandedCount:    brandedCount.InexactFloat64(),
		UnbrandedCount:  unbrandedCount.InexactFloat64(),
	}
}

// Split returns the branded and unbranded share of line items as percentages
func Split(items []domain.TransactionItem) domain.BrandSplit {
	if len(items) == 0 {
		return domain.BrandSplit{}
	}
	branded := 0
	for _, item := range items {
		if item.BrandName != nil {
			branded++
		}
	}
	total := decimal.NewFromInt(int64(len(items)))
	brandedPct := decimal.NewFromInt(int64(branded)).Div(total).Mul(decimal.NewFromInt(100)).Round(2)
	return domain.BrandSplit{
		BrandedPercentage:   brandedPct.InexactFloat64(),
		UnbrandedPercentage: decimal.NewFromInt(100).Sub(brandedPct).InexactFloat64(),
	}
}

// TopCategories groups items by category and ranks them by value, then
// quantity, then name. A limit of zero returns every category.
func TopCategories(items []domain.TransactionItem, limit int) []domain.CategoryStat {
	counts := make(map[string]decimal.Decimal)
	values := make(map[string]decimal.Decimal)
	for _, item := range items {
		counts[item.Category] = counts[item.Category].Add(decimal.NewFromFloat(item.Quantity))
		values[item.Category] = values[item.Category].Add(decimal.NewFromFloat(item.TotalPrice))
	}

	stats := make([]domain.CategoryStat, 0, len(counts))
	for category, count := range counts {
		stats = append(stats, domain.CategoryStat{
			Category: category,
			Count:    count.InexactFloat64(),
			Value:    values[category].Round(2).InexactFloat64(),
		})
	}
	return RankCategories(stats, limit)
}

// RankCategories sorts category stats by value desc, count desc, name asc
// and truncates to limit when limit is positive
func RankCategories(stats []domain.CategoryStat, limit int) []domain.CategoryStat {
	if stats == nil {
		return []domain.CategoryStat{}
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Value != stats[j].Value {
			return stats[i].Value > stats[j].Value
		}
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Category < stats[j].Category
	})
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

// LineTotal returns round(quantity*unitPrice, 2)
func LineTotal(quantity, unitPrice float64) float64 {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice)).Round(2).InexactFloat64()
}

// UnitPriceFromTotal splits a printed line total across the quantity
func UnitPriceFromTotal(total, quantity float64) float64 {
	if quantity <= 0 {
		return total
	}
	return decimal.NewFromFloat(total).Div(decimal.NewFromFloat(quantity)).Round(2).InexactFloat64()
}

// WithinTolerance reports whether two amounts agree to the cent
func WithinTolerance(a, b float64) bool {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs().LessThanOrEqual(decimal.New(1, -2))
}
