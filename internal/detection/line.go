package detection

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ridwanfathin/edge-transaction-service/internal/aggregator"
	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/units"
)

var (
	currencyPriceExpr = regexp.MustCompile(`(?i)(?:₱|\bPHP\s*|\bP\s?)(\d+(?:,\d{3})*(?:\.\d{1,2})?)\b`)
	trailingPriceExpr = regexp.MustCompile(`(\d+(?:,\d{3})*\.\d{2})\s*$`)
	summaryLineExpr   = regexp.MustCompile(`(?i)\b(?:sub-?total|total|cash|change|vat|tax|amount\s+due|balance)\b`)
)

// parsedLine is the product, quantity and price content of one OCR line
type parsedLine struct {
	name        string
	quantity    float64
	unit        string
	hasQuantity bool
	total       *float64
}

func defaultLine() parsedLine {
	return parsedLine{quantity: units.DefaultQuantity, unit: units.DefaultUnit}
}

func parseLine(n *units.Normalizer, text string) parsedLine {
	rest := text
	var total *float64
	for _, expr := range []*regexp.Regexp{currencyPriceExpr, trailingPriceExpr} {
		if loc := expr.FindStringSubmatchIndex(rest); loc != nil {
			if v, err := strconv.ParseFloat(strings.ReplaceAll(rest[loc[2]:loc[3]], ",", ""), 64); err == nil {
				total = &v
			}
			rest = rest[:loc[0]] + " " + rest[loc[1]:]
			break
		}
	}

	line := parsedLine{total: total}
	line.quantity, line.unit = n.Parse(rest)
	_, _, line.hasQuantity = n.Find(rest)
	line.name = n.Strip(rest)
	return line
}

// isHint reports a fragment that carries only a quantity or a price
func (p parsedLine) isHint() bool {
	return !hasLetter(p.name) && (p.hasQuantity || p.total != nil)
}

// isProduct reports a line that plausibly names a purchased product
func (p parsedLine) isProduct() bool {
	return hasLetter(p.name) && !summaryLineExpr.MatchString(p.name)
}

// with overlays the quantity and price of a hint fragment
func (p parsedLine) with(h parsedLine) parsedLine {
	if h.hasQuantity {
		p.quantity, p.unit, p.hasQuantity = h.quantity, h.unit, true
	}
	if h.total != nil {
		p.total = h.total
	}
	return p
}

// apply writes quantity, unit and prices onto item. Printed prices are line
// totals and are split across the quantity.
func (p parsedLine) apply(item domain.TransactionItem) domain.TransactionItem {
	item.Quantity = p.quantity
	item.Unit = p.unit
	if p.total != nil {
		return priced(item, aggregator.UnitPriceFromTotal(*p.total, p.quantity))
	}
	return priced(item, 0)
}

func priced(item domain.TransactionItem, unitPrice float64) domain.TransactionItem {
	item.UnitPrice = unitPrice
	item.TotalPrice = aggregator.LineTotal(item.Quantity, unitPrice)
	return item
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
