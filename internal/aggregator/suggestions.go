package aggregator

import (
	"strings"
	"unicode"

	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
)

// Matcher selects items by category or by whole-word keywords found in the
// product, generic or local name
type Matcher struct {
	Categories []string
	Keywords   []string
}

// Matches reports whether the item satisfies the matcher
func (m Matcher) Matches(item domain.TransactionItem) bool {
	for _, category := range m.Categories {
		if item.Category == category {
			return true
		}
	}
	if len(m.Keywords) == 0 {
		return false
	}

	text := " " + strings.Join(itemWords(item), " ") + " "
	for _, kw := range m.Keywords {
		if strings.Contains(text, " "+strings.ToLower(kw)+" ") {
			return true
		}
	}
	return false
}

// SuggestionRule emits a cross-sell hint when some item matches Requires and
// no item matches Absent. The rules are a merchandising heuristic, not a model.
type SuggestionRule struct {
	Name       string
	Requires   Matcher
	Absent     Matcher
	Suggestion string
}

// DefaultSuggestionRules is evaluated in order; each rule fires at most once
var DefaultSuggestionRules = []SuggestionRule{
	{
		Name:       "rice-without-oil",
		Requires:   Matcher{Keywords: []string{"rice", "bigas"}},
		Absent:     Matcher{Keywords: []string{"oil", "cooking oil", "mantika"}},
		Suggestion: "Suggest cooking oil with rice purchase",
	},
	{
		Name:       "noodles-without-seasoning",
		Requires:   Matcher{Keywords: []string{"noodles", "pancit canton", "mami"}},
		Absent:     Matcher{Keywords: []string{"seasoning", "sauce", "toyo", "patis"}},
		Suggestion: "Suggest seasoning with instant noodles",
	},
	{
		Name:       "coffee-without-creamer",
		Requires:   Matcher{Keywords: []string{"coffee", "kape"}},
		Absent:     Matcher{Keywords: []string{"sugar", "asukal", "creamer"}},
		Suggestion: "Suggest sugar or creamer with coffee",
	},
	{
		Name:       "beverage-without-snacks",
		Requires:   Matcher{Categories: []string{domain.CategoryBeverage}},
		Absent:     Matcher{Categories: []string{domain.CategorySnacks}},
		Suggestion: "Suggest snacks to pair with beverages",
	},
}

// Suggest applies rules in order and never returns nil
func Suggest(items []domain.TransactionItem, rules []SuggestionRule) []string {
	suggestions := []string{}
	for _, rule := range rules {
		required, absent := false, false
		for _, item := range items {
			if rule.Requires.Matches(item) {
				required = true
			}
			if rule.Absent.Matches(item) {
				absent = true
			}
		}
		if required && !absent {
			suggestions = append(suggestions, rule.Suggestion)
		}
	}
	return suggestions
}

func itemWords(item domain.TransactionItem) []string {
	text := item.ProductName
	if item.GenericName != nil {
		text += " " + *item.GenericName
	}
	if item.LocalName != nil {
		text += " " + *item.LocalName
	}
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
