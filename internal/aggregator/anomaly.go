package aggregator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
)

// PriceBand bounds the expected unit price of a category. A zero Max leaves
// the band open at the top.
type PriceBand struct {
	Min float64
	Max float64
}

// AnomalyPolicy flags items whose unit price leaves its category band.
// The zero value flags nothing.
type AnomalyPolicy struct {
	UnitPriceBands map[string]PriceBand
}

// Detect returns the anomalies found in items, or nil
func (p AnomalyPolicy) Detect(items []domain.TransactionItem) []domain.Anomaly {
	if len(p.UnitPriceBands) == 0 {
		return nil
	}

	var anomalies []domain.Anomaly
	for i, item := range items {
		band, ok := p.UnitPriceBands[item.Category]
		if !ok {
			continue
		}
		switch {
		case item.UnitPrice < band.Min:
			anomalies = append(anomalies, domain.Anomaly{
				ItemIndex: i,
				Field:     "unitPrice",
				Reason:    fmt.Sprintf("unit price %.2f below %s minimum %.2f", item.UnitPrice, item.Category, band.Min),
			})
		case band.Max > 0 && item.UnitPrice > band.Max:
			anomalies = append(anomalies, domain.Anomaly{
				ItemIndex: i,
				Field:     "unitPrice",
				Reason:    fmt.Sprintf("unit price %.2f above %s maximum %.2f", item.UnitPrice, item.Category, band.Max),
			})
		}
	}
	return anomalies
}

// ParsePriceBands reads bands in the form "beverage:5-500,staple:20-"
func ParsePriceBands(raw string) (map[string]PriceBand, error) {
	bands := make(map[string]PriceBand)
	if strings.TrimSpace(raw) == "" {
		return bands, nil
	}

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		category, limits, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("price band %q: missing ':'", entry)
		}
		lo, hi, ok := strings.Cut(limits, "-")
		if !ok {
			return nil, fmt.Errorf("price band %q: missing '-'", entry)
		}

		var band PriceBand
		var err error
		if lo = strings.TrimSpace(lo); lo != "" {
			if band.Min, err = strconv.ParseFloat(lo, 64); err != nil {
				return nil, fmt.Errorf("price band %q: %w", entry, err)
			}
		}
		if hi = strings.TrimSpace(hi); hi != "" {
			if band.Max, err = strconv.ParseFloat(hi, 64); err != nil {
				return nil, fmt.Errorf("price band %q: %w", entry, err)
			}
		}
		if band.Max > 0 && band.Max < band.Min {
			return nil, fmt.Errorf("price band %q: max below min", entry)
		}
		bands[strings.TrimSpace(category)] = band
	}
	return bands, nil
}
