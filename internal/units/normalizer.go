// Package units maps free-form quantity and unit text to canonical units.
//
// Localized number words ("dalawang", "isang") are resolved by the voice
// parser before text reaches this package and are not handled here.
package units

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	// DefaultQuantity applies when the text carries no numeric quantity
	DefaultQuantity = 1.0
	// DefaultUnit applies when no unit token can be found at all
	DefaultUnit = "pc"
	// BulkQuantityThreshold is the weight/volume above which a purchase counts as bulk
	BulkQuantityThreshold = 10.0
)

// Canonical units
const (
	Piece   = "pc"
	Kilo    = "kg"
	Liter   = "L"
	Dozen   = "dozen"
	Bundle  = "bundle"
	Pack    = "pack"
	Bottle  = "bottle"
	Can     = "can"
	Sachet  = "sachet"
	Sack    = "sack"
	Gram    = "g"
	Millilt = "mL"
)

// DefaultSynonyms maps lower-cased unit words, English and Filipino, to canonical units
var DefaultSynonyms = map[string]string{
	"pc": Piece, "pcs": Piece, "piece": Piece, "pieces": Piece, "piraso": Piece,
	"kg": Kilo, "kgs": Kilo, "kilo": Kilo, "kilos": Kilo, "kilogram": Kilo, "kilograms": Kilo,
	"l": Liter, "liter": Liter, "liters": Liter, "litre": Liter, "litres": Liter, "litro": Liter,
	"dozen": Dozen, "dosena": Dozen,
	"tali": Bundle, "bundle": Bundle, "bundles": Bundle,
	"pakete": Pack, "pack": Pack, "packs": Pack, "packet": Pack, "packets": Pack,
	"bote": Bottle, "bottle": Bottle, "bottles": Bottle,
	"lata": Can, "can": Can, "cans": Can,
	"sakto": Sachet, "sachet": Sachet, "sachets": Sachet,
	"sako": Sack, "sack": Sack, "sacks": Sack,
	"g": Gram, "gram": Gram, "grams": Gram,
	"ml": Millilt,
}

// Normalizer parses quantity/unit pairs from text
type Normalizer struct {
	synonyms     map[string]string
	quantityExpr *regexp.Regexp
	literalExpr  *regexp.Regexp
	numberExpr   *regexp.Regexp
	unitExpr     *regexp.Regexp
	productWord  func(string) bool
}

// NewNormalizer builds a normalizer for the given synonym table.
// A nil table selects DefaultSynonyms.
func NewNormalizer(synonyms map[string]string) *Normalizer {
	if synonyms == nil {
		synonyms = DefaultSynonyms
	}

	words := make([]string, 0, len(synonyms))
	for word := range synonyms {
		words = append(words, regexp.QuoteMeta(word))
	}
	// longest first so "kilos" wins over "kilo" and "l"
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	alternation := strings.Join(words, "|")

	return &Normalizer{
		synonyms:     synonyms,
		quantityExpr: regexp.MustCompile(`(?i)(?:^|[^\w.])(\d+(?:\.\d+)?)\s*(` + alternation + `)\b`),
		literalExpr:  regexp.MustCompile(`(?:^|[^\w.])(\d+(?:\.\d+)?)\s+(\p{L}+)\s+\p{L}`),
		numberExpr:   regexp.MustCompile(`(?:^|[^\w.])(\d+(?:\.\d+)?)\b`),
		unitExpr:     regexp.MustCompile(`(?i)\b(` + alternation + `)\b`),
	}
}

// WithProductWords returns a copy of n that never reads a word reported by
// isProduct as a unit. The classifier vocabulary is the usual source.
func (n *Normalizer) WithProductWords(isProduct func(word string) bool) *Normalizer {
	c := *n
	c.productWord = isProduct
	return &c
}

var defaultNormalizer = NewNormalizer(nil)

// Parse extracts a quantity and canonical unit using the default synonym table
func Parse(text string) (float64, string) {
	return defaultNormalizer.Parse(text)
}

// Parse extracts a quantity and canonical unit from text.
// The first "<number> <unit>" match wins. Without a number the quantity is
// DefaultQuantity; without any unit word the unit is DefaultUnit.
//
// An unmapped word between a number and further product text ("2 tray
// itlog") is kept as the literal unit. A number followed only by the product
// ("2 Coke"), or by a product word, is a bare count.
func (n *Normalizer) Parse(text string) (float64, string) {
	if quantity, unit, _, ok := n.match(text); ok {
		return quantity, unit
	}

	quantity := DefaultQuantity
	if m := n.numberExpr.FindStringSubmatch(text); m != nil {
		quantity = parseQuantity(m[1])
	}

	if m := n.unitExpr.FindStringSubmatch(text); m != nil {
		return quantity, n.synonyms[strings.ToLower(m[1])]
	}

	return quantity, DefaultUnit
}

// Find returns the first explicit "<number> <unit>" phrase in text.
// ok is false when the text carries no such phrase.
func (n *Normalizer) Find(text string) (quantity float64, unit string, ok bool) {
	quantity, unit, _, ok = n.match(text)
	return quantity, unit, ok
}

// match finds the first mapped quantity phrase, then the first literal one.
// span covers the number and the unit word.
func (n *Normalizer) match(text string) (quantity float64, unit string, span []int, ok bool) {
	if m := n.quantityExpr.FindStringSubmatchIndex(text); m != nil {
		return parseQuantity(text[m[2]:m[3]]), n.synonyms[strings.ToLower(text[m[4]:m[5]])], []int{m[2], m[5]}, true
	}
	for _, m := range n.literalExpr.FindAllStringSubmatchIndex(text, -1) {
		word := text[m[4]:m[5]]
		if n.productWord != nil && n.productWord(word) {
			continue
		}
		return parseQuantity(text[m[2]:m[3]]), word, []int{m[2], m[5]}, true
	}
	return 0, "", nil, false
}

// NormalizeUnit maps a single unit token to its canonical form.
// Unmapped tokens are returned trimmed but otherwise unchanged.
func (n *Normalizer) NormalizeUnit(token string) string {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return DefaultUnit
	}
	if canonical, ok := n.synonyms[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// NormalizeUnit maps a unit token using the default synonym table
func NormalizeUnit(token string) string {
	return defaultNormalizer.NormalizeUnit(token)
}

// Strip removes every mapped quantity/unit phrase from text and collapses
// whitespace. Without a mapped phrase the literal unit phrase found by Parse
// is removed instead.
func (n *Normalizer) Strip(text string) string {
	stripped := n.quantityExpr.ReplaceAllString(text, " ")
	if stripped == text {
		if _, _, span, ok := n.match(text); ok {
			stripped = text[:span[0]] + " " + text[span[1]:]
		}
	}
	return strings.Join(strings.Fields(stripped), " ")
}

// IsBulk reports sack purchases and large weight/volume quantities
func IsBulk(quantity float64, unit string) bool {
	switch unit {
	case Sack:
		return true
	case Kilo, Liter:
		return quantity > BulkQuantityThreshold
	}
	return false
}

func parseQuantity(raw string) float64 {
	q, err := strconv.ParseFloat(raw, 64)
	if err != nil || q <= 0 {
		return DefaultQuantity
	}
	return q
}
